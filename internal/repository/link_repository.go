package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmaseek/internal/docstore"
	"pharmaseek/internal/domain"
)

var (
	ErrLinkNotFound = errors.New("link not found")
)

// AvailabilityRepository manages the join records linking a product to the
// branches it is available at.
type AvailabilityRepository interface {
	Create(ctx context.Context, productID, branchID string) (*domain.AvailabilityLink, error)
	ListByProduct(ctx context.Context, productID string) ([]*domain.AvailabilityLink, error)
	ListByBranch(ctx context.Context, branchID string) ([]*domain.AvailabilityLink, error)
	Delete(ctx context.Context, id string) error
}

type availabilityRepository struct {
	store docstore.Store
}

// NewAvailabilityRepository creates a new instance of AvailabilityRepository
func NewAvailabilityRepository(store docstore.Store) AvailabilityRepository {
	return &availabilityRepository{store: store}
}

func (r *availabilityRepository) Create(ctx context.Context, productID, branchID string) (*domain.AvailabilityLink, error) {
	doc, err := r.store.Create(ctx, AvailabilityCollection, map[string]any{
		"productId": productID,
		"branchId":  branchID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create availability link: %w", err)
	}
	return availabilityFromDoc(doc), nil
}

func (r *availabilityRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.AvailabilityLink, error) {
	docs, err := r.store.List(ctx, AvailabilityCollection, docstore.Filter{
		All: []docstore.Eq{{Field: "productId", Value: productID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list availability links by product: %w", err)
	}
	return availabilityLinks(docs), nil
}

func (r *availabilityRepository) ListByBranch(ctx context.Context, branchID string) ([]*domain.AvailabilityLink, error) {
	docs, err := r.store.List(ctx, AvailabilityCollection, docstore.Filter{
		All: []docstore.Eq{{Field: "branchId", Value: branchID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list availability links by branch: %w", err)
	}
	return availabilityLinks(docs), nil
}

func (r *availabilityRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, AvailabilityCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to delete availability link: %w", err)
	}
	return nil
}

func availabilityLinks(docs []*docstore.Document) []*domain.AvailabilityLink {
	links := make([]*domain.AvailabilityLink, 0, len(docs))
	for _, doc := range docs {
		links = append(links, availabilityFromDoc(doc))
	}
	return links
}

func availabilityFromDoc(doc *docstore.Document) *domain.AvailabilityLink {
	return &domain.AvailabilityLink{
		ID:        doc.ID,
		ProductID: doc.String("productId"),
		BranchID:  doc.String("branchId"),
	}
}

// AlternativeRepository manages the symmetric join records linking a product
// to its substitute products.
type AlternativeRepository interface {
	Create(ctx context.Context, productID, alternativeProductID string) (*domain.AlternativeLink, error)
	ListByProduct(ctx context.Context, productID string) ([]*domain.AlternativeLink, error)
	ListByEitherSide(ctx context.Context, productID string) ([]*domain.AlternativeLink, error)
	Delete(ctx context.Context, id string) error
}

type alternativeRepository struct {
	store docstore.Store
}

// NewAlternativeRepository creates a new instance of AlternativeRepository
func NewAlternativeRepository(store docstore.Store) AlternativeRepository {
	return &alternativeRepository{store: store}
}

func (r *alternativeRepository) Create(ctx context.Context, productID, alternativeProductID string) (*domain.AlternativeLink, error) {
	doc, err := r.store.Create(ctx, AlternativeCollection, map[string]any{
		"productId":            productID,
		"alternativeProductId": alternativeProductID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create alternative link: %w", err)
	}
	return alternativeFromDoc(doc), nil
}

func (r *alternativeRepository) ListByProduct(ctx context.Context, productID string) ([]*domain.AlternativeLink, error) {
	docs, err := r.store.List(ctx, AlternativeCollection, docstore.Filter{
		All: []docstore.Eq{{Field: "productId", Value: productID}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alternative links by product: %w", err)
	}
	return alternativeLinks(docs), nil
}

// ListByEitherSide returns links where the product appears as owner or as
// target. A link may have been created by the other side originally, so a
// one-directional query is not enough during teardown.
func (r *alternativeRepository) ListByEitherSide(ctx context.Context, productID string) ([]*domain.AlternativeLink, error) {
	docs, err := r.store.List(ctx, AlternativeCollection, docstore.Filter{
		Any: []docstore.Eq{
			{Field: "productId", Value: productID},
			{Field: "alternativeProductId", Value: productID},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list alternative links by either side: %w", err)
	}
	return alternativeLinks(docs), nil
}

func (r *alternativeRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, AlternativeCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrLinkNotFound
		}
		return fmt.Errorf("failed to delete alternative link: %w", err)
	}
	return nil
}

func alternativeLinks(docs []*docstore.Document) []*domain.AlternativeLink {
	links := make([]*domain.AlternativeLink, 0, len(docs))
	for _, doc := range docs {
		links = append(links, alternativeFromDoc(doc))
	}
	return links
}

func alternativeFromDoc(doc *docstore.Document) *domain.AlternativeLink {
	return &domain.AlternativeLink{
		ID:                   doc.ID,
		ProductID:            doc.String("productId"),
		AlternativeProductID: doc.String("alternativeProductId"),
	}
}
