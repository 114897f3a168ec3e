package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmaseek/internal/docstore"
	"pharmaseek/internal/domain"
)

// Collection names addressed through the document store.
const (
	ProductCollection      = "products"
	BranchCollection       = "branches"
	AvailabilityCollection = "product_availability"
	AlternativeCollection  = "alternatives"
)

// listLimit bounds pharmacy-scoped listings, matching the portal's
// catalogue page size.
const listLimit = 10000

var (
	ErrProductNotFound = errors.New("product not found")
)

// ProductRepository defines the interface for product record access
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Update(ctx context.Context, product *domain.Product) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	ListByPharmacy(ctx context.Context, pharmacyID string) ([]*domain.Product, error)
}

type productRepository struct {
	store docstore.Store
}

// NewProductRepository creates a new instance of ProductRepository
func NewProductRepository(store docstore.Store) ProductRepository {
	return &productRepository{store: store}
}

func (r *productRepository) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	doc, err := r.store.Create(ctx, ProductCollection, productFields(product))
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return productFromDoc(doc), nil
}

func (r *productRepository) Update(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	doc, err := r.store.Update(ctx, ProductCollection, product.ID, productFields(product))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return productFromDoc(doc), nil
}

func (r *productRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, ProductCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrProductNotFound
		}
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (r *productRepository) FindByID(ctx context.Context, id string) (*domain.Product, error) {
	// The store addresses records by filter, not by direct key lookup
	docs, err := r.store.List(ctx, ProductCollection, docstore.Filter{
		All:   []docstore.Eq{{Field: docstore.IDField, Value: id}},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find product by ID: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrProductNotFound
	}
	return productFromDoc(docs[0]), nil
}

func (r *productRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]*domain.Product, error) {
	docs, err := r.store.List(ctx, ProductCollection, docstore.Filter{
		All:   []docstore.Eq{{Field: "pharmacyId", Value: pharmacyID}},
		Limit: listLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, productFromDoc(doc))
	}
	return products, nil
}

func productFields(p *domain.Product) map[string]any {
	return map[string]any{
		"name":        p.Name,
		"price":       p.Price,
		"description": p.Description,
		"image":       p.ImageURL,
		"url":         p.URL,
		"pharmacyId":  p.PharmacyID,
	}
}

func productFromDoc(doc *docstore.Document) *domain.Product {
	return &domain.Product{
		ID:          doc.ID,
		Name:        doc.String("name"),
		Price:       doc.Float("price"),
		Description: doc.String("description"),
		ImageURL:    doc.String("image"),
		URL:         doc.String("url"),
		PharmacyID:  doc.String("pharmacyId"),
		CreatedAt:   doc.CreatedAt,
		UpdatedAt:   doc.UpdatedAt,
	}
}
