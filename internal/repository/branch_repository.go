package repository

import (
	"context"
	"errors"
	"fmt"

	"pharmaseek/internal/docstore"
	"pharmaseek/internal/domain"
)

var (
	ErrBranchNotFound = errors.New("branch not found")
)

// BranchRepository defines the interface for branch record access
type BranchRepository interface {
	Create(ctx context.Context, branch *domain.Branch) (*domain.Branch, error)
	Update(ctx context.Context, branch *domain.Branch) (*domain.Branch, error)
	Delete(ctx context.Context, id string) error
	FindByID(ctx context.Context, id string) (*domain.Branch, error)
	ListByPharmacy(ctx context.Context, pharmacyID string) ([]*domain.Branch, error)
}

type branchRepository struct {
	store docstore.Store
}

// NewBranchRepository creates a new instance of BranchRepository
func NewBranchRepository(store docstore.Store) BranchRepository {
	return &branchRepository{store: store}
}

func (r *branchRepository) Create(ctx context.Context, branch *domain.Branch) (*domain.Branch, error) {
	doc, err := r.store.Create(ctx, BranchCollection, branchFields(branch))
	if err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}
	return branchFromDoc(doc), nil
}

func (r *branchRepository) Update(ctx context.Context, branch *domain.Branch) (*domain.Branch, error) {
	doc, err := r.store.Update(ctx, BranchCollection, branch.ID, branchFields(branch))
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return nil, ErrBranchNotFound
		}
		return nil, fmt.Errorf("failed to update branch: %w", err)
	}
	return branchFromDoc(doc), nil
}

func (r *branchRepository) Delete(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, BranchCollection, id); err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return ErrBranchNotFound
		}
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

func (r *branchRepository) FindByID(ctx context.Context, id string) (*domain.Branch, error) {
	docs, err := r.store.List(ctx, BranchCollection, docstore.Filter{
		All:   []docstore.Eq{{Field: docstore.IDField, Value: id}},
		Limit: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to find branch by ID: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrBranchNotFound
	}
	return branchFromDoc(docs[0]), nil
}

func (r *branchRepository) ListByPharmacy(ctx context.Context, pharmacyID string) ([]*domain.Branch, error) {
	docs, err := r.store.List(ctx, BranchCollection, docstore.Filter{
		All:   []docstore.Eq{{Field: "pharmacyId", Value: pharmacyID}},
		Limit: listLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}

	branches := make([]*domain.Branch, 0, len(docs))
	for _, doc := range docs {
		branches = append(branches, branchFromDoc(doc))
	}
	return branches, nil
}

func branchFields(b *domain.Branch) map[string]any {
	return map[string]any{
		"name":         b.Name,
		"latitude":     b.Latitude,
		"longitude":    b.Longitude,
		"street":       b.Street,
		"borough":      b.Borough,
		"city":         b.City,
		"rating":       b.Rating,
		"workingHours": b.WorkingHours,
		"about":        b.About,
		"siteUrl":      b.SiteURL,
		"locationUrl":  b.LocationURL,
		"pharmacyId":   b.PharmacyID,
	}
}

func branchFromDoc(doc *docstore.Document) *domain.Branch {
	return &domain.Branch{
		ID:           doc.ID,
		Name:         doc.String("name"),
		Latitude:     doc.Float("latitude"),
		Longitude:    doc.Float("longitude"),
		Street:       doc.String("street"),
		Borough:      doc.String("borough"),
		City:         doc.String("city"),
		Rating:       doc.Float("rating"),
		WorkingHours: doc.String("workingHours"),
		About:        doc.String("about"),
		SiteURL:      doc.String("siteUrl"),
		LocationURL:  doc.String("locationUrl"),
		PharmacyID:   doc.String("pharmacyId"),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
	}
}
