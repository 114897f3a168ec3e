package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pharmaseek/internal/domain"
	"pharmaseek/internal/repository"
)

// ProductInput carries the scalar fields of a product payload. Relationship
// targets are passed separately as desired ID sets.
type ProductInput struct {
	Name        string
	Price       float64
	Description string
	ImageURL    string
	URL         string
	PharmacyID  string
}

// ProductService reconciles product records and their relationship links.
// Link sets are replaced wholesale on modify (teardown then recreate) and
// removed ahead of the parent on delete, so no link ever outlives either of
// its endpoints.
type ProductService interface {
	AddProduct(ctx context.Context, input ProductInput, branchIDs, alternativeIDs []string) (*domain.Product, error)
	ModifyProduct(ctx context.Context, input ProductInput, branchIDs, alternativeIDs []string, productID string) (*domain.Product, error)
	DeleteProducts(ctx context.Context, productIDs []string) error
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	ListProducts(ctx context.Context, pharmacyID string) ([]*domain.Product, error)
	GetProductAvailability(ctx context.Context, productID string) ([]string, error)
	GetProductAlternatives(ctx context.Context, productID string) ([]string, error)
}

type productService struct {
	productRepo      repository.ProductRepository
	availabilityRepo repository.AvailabilityRepository
	alternativeRepo  repository.AlternativeRepository
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	availabilityRepo repository.AvailabilityRepository,
	alternativeRepo repository.AlternativeRepository,
) ProductService {
	return &productService{
		productRepo:      productRepo,
		availabilityRepo: availabilityRepo,
		alternativeRepo:  alternativeRepo,
	}
}

// AddProduct persists a new product and creates its link set: one
// availability link per desired branch and a reciprocal pair of alternative
// links per desired alternative. There is no transaction across the writes;
// a failure partway leaves the product with a partial link set.
func (s *productService) AddProduct(ctx context.Context, input ProductInput, branchIDs, alternativeIDs []string) (*domain.Product, error) {
	product, err := s.productRepo.Create(ctx, &domain.Product{
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		URL:         input.URL,
		PharmacyID:  input.PharmacyID,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	for _, branchID := range desiredSet(branchIDs, product.ID) {
		if _, err := s.availabilityRepo.Create(ctx, product.ID, branchID); err != nil {
			return nil, fmt.Errorf("failed to link branch %s: %w", branchID, err)
		}
	}

	for _, alternativeID := range desiredSet(alternativeIDs, product.ID) {
		if err := s.createAlternativePair(ctx, product.ID, alternativeID); err != nil {
			return nil, err
		}
	}

	return product, nil
}

// ModifyProduct overwrites the product's scalar fields and replaces both
// link sets with the desired sets. Teardown always runs before recreation,
// so a failure partway leaves the product with an empty or partial link set,
// never with stale pre-modify links.
func (s *productService) ModifyProduct(ctx context.Context, input ProductInput, branchIDs, alternativeIDs []string, productID string) (*domain.Product, error) {
	product, err := s.productRepo.Update(ctx, &domain.Product{
		ID:          productID,
		Name:        input.Name,
		Price:       input.Price,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		URL:         input.URL,
		PharmacyID:  input.PharmacyID,
	})
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to update product: %w", err)
	}

	if err := s.reconcileAvailability(ctx, productID, branchIDs); err != nil {
		return nil, err
	}
	if err := s.reconcileAlternatives(ctx, productID, alternativeIDs); err != nil {
		return nil, err
	}

	return product, nil
}

// DeleteProducts cascades each product independently and concurrently:
// availability links first, then alternative links in both directions, then
// the product record. A failed cascade does not undo or abort the others.
func (s *productService) DeleteProducts(ctx context.Context, productIDs []string) error {
	ids := desiredSet(productIDs, "")
	if len(ids) == 0 {
		return nil
	}

	var wg sync.WaitGroup
	errs := make(chan error, len(ids))

	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			if err := s.cascadeDelete(ctx, id); err != nil {
				errs <- fmt.Errorf("product %s: %w", id, err)
			}
		}(id)
	}

	wg.Wait()
	close(errs)

	var failed []error
	for err := range errs {
		failed = append(failed, err)
	}
	if len(failed) > 0 {
		return fmt.Errorf("failed to delete %d of %d products: %w", len(failed), len(ids), errors.Join(failed...))
	}
	return nil
}

func (s *productService) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	product, err := s.productRepo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, repository.ErrProductNotFound) {
			return nil, repository.ErrProductNotFound
		}
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context, pharmacyID string) ([]*domain.Product, error) {
	products, err := s.productRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GetProductAvailability returns the branch IDs the product is linked to.
func (s *productService) GetProductAvailability(ctx context.Context, productID string) ([]string, error) {
	links, err := s.availabilityRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product availability: %w", err)
	}

	branchIDs := make([]string, 0, len(links))
	for _, link := range links {
		branchIDs = append(branchIDs, link.BranchID)
	}
	return branchIDs, nil
}

// GetProductAlternatives returns the alternative product IDs owned by the
// product. Only the owning direction is projected; the reciprocal links
// exist for the other side's own projection.
func (s *productService) GetProductAlternatives(ctx context.Context, productID string) ([]string, error) {
	links, err := s.alternativeRepo.ListByProduct(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product alternatives: %w", err)
	}

	alternativeIDs := make([]string, 0, len(links))
	for _, link := range links {
		alternativeIDs = append(alternativeIDs, link.AlternativeProductID)
	}
	return alternativeIDs, nil
}

// reconcileAvailability replaces the product's availability links with the
// desired branch set. Full teardown, not a diff.
func (s *productService) reconcileAvailability(ctx context.Context, productID string, branchIDs []string) error {
	existing, err := s.availabilityRepo.ListByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to fetch availability links: %w", err)
	}
	for _, link := range existing {
		if err := s.availabilityRepo.Delete(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
			return fmt.Errorf("failed to remove availability link %s: %w", link.ID, err)
		}
	}

	for _, branchID := range desiredSet(branchIDs, productID) {
		if _, err := s.availabilityRepo.Create(ctx, productID, branchID); err != nil {
			return fmt.Errorf("failed to link branch %s: %w", branchID, err)
		}
	}
	return nil
}

// reconcileAlternatives replaces the product's alternative links with the
// desired set. Teardown matches both directions because a link may have been
// created by the other side; recreation always writes the reciprocal pair.
// A diff cannot tell which side created a symmetric link, so the full
// replacement is deliberate.
func (s *productService) reconcileAlternatives(ctx context.Context, productID string, alternativeIDs []string) error {
	existing, err := s.alternativeRepo.ListByEitherSide(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to fetch alternative links: %w", err)
	}
	for _, link := range existing {
		if err := s.alternativeRepo.Delete(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
			return fmt.Errorf("failed to remove alternative link %s: %w", link.ID, err)
		}
	}

	for _, alternativeID := range desiredSet(alternativeIDs, productID) {
		if err := s.createAlternativePair(ctx, productID, alternativeID); err != nil {
			return err
		}
	}
	return nil
}

func (s *productService) createAlternativePair(ctx context.Context, productID, alternativeID string) error {
	if _, err := s.alternativeRepo.Create(ctx, productID, alternativeID); err != nil {
		return fmt.Errorf("failed to link alternative %s: %w", alternativeID, err)
	}
	if _, err := s.alternativeRepo.Create(ctx, alternativeID, productID); err != nil {
		return fmt.Errorf("failed to link reciprocal alternative %s: %w", alternativeID, err)
	}
	return nil
}

// cascadeDelete removes every link referencing the product before the
// product record itself, so no link ever references a dead parent.
// A link that is already gone counts as removed: when both endpoints of an
// alternative pair are deleted in one batch, the two cascades fetch the same
// link documents and race to delete them, and the loser must still finish.
func (s *productService) cascadeDelete(ctx context.Context, productID string) error {
	availability, err := s.availabilityRepo.ListByProduct(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to fetch availability links: %w", err)
	}
	for _, link := range availability {
		if err := s.availabilityRepo.Delete(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
			return fmt.Errorf("failed to remove availability link %s: %w", link.ID, err)
		}
	}

	alternatives, err := s.alternativeRepo.ListByEitherSide(ctx, productID)
	if err != nil {
		return fmt.Errorf("failed to fetch alternative links: %w", err)
	}
	for _, link := range alternatives {
		if err := s.alternativeRepo.Delete(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
			return fmt.Errorf("failed to remove alternative link %s: %w", link.ID, err)
		}
	}

	if err := s.productRepo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

// desiredSet deduplicates a caller-supplied ID list, preserving order and
// dropping empty IDs and the owning record's own ID.
func desiredSet(ids []string, self string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || id == self || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
