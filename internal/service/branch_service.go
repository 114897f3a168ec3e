package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"pharmaseek/internal/domain"
	"pharmaseek/internal/repository"
)

// BranchInput carries the scalar fields of a branch payload.
type BranchInput struct {
	Name         string
	Latitude     float64
	Longitude    float64
	Street       string
	Borough      string
	City         string
	Rating       float64
	WorkingHours string
	About        string
	SiteURL      string
	LocationURL  string
	PharmacyID   string
}

// BranchService manages branch records. Branches own no outgoing links, but
// deleting one removes the availability links pointing at it so products
// never advertise availability at a dead branch.
type BranchService interface {
	AddBranch(ctx context.Context, input BranchInput) (*domain.Branch, error)
	ModifyBranch(ctx context.Context, input BranchInput, branchID string) (*domain.Branch, error)
	DeleteBranches(ctx context.Context, branchIDs []string) error
	GetBranch(ctx context.Context, branchID string) (*domain.Branch, error)
	ListBranches(ctx context.Context, pharmacyID string) ([]*domain.Branch, error)
}

type branchService struct {
	branchRepo       repository.BranchRepository
	availabilityRepo repository.AvailabilityRepository
}

// NewBranchService creates a new instance of BranchService
func NewBranchService(
	branchRepo repository.BranchRepository,
	availabilityRepo repository.AvailabilityRepository,
) BranchService {
	return &branchService{
		branchRepo:       branchRepo,
		availabilityRepo: availabilityRepo,
	}
}

func (s *branchService) AddBranch(ctx context.Context, input BranchInput) (*domain.Branch, error) {
	branch, err := s.branchRepo.Create(ctx, branchFromInput(input, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create branch: %w", err)
	}
	return branch, nil
}

func (s *branchService) ModifyBranch(ctx context.Context, input BranchInput, branchID string) (*domain.Branch, error) {
	branch, err := s.branchRepo.Update(ctx, branchFromInput(input, branchID))
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			return nil, repository.ErrBranchNotFound
		}
		return nil, fmt.Errorf("failed to update branch: %w", err)
	}
	return branch, nil
}

// DeleteBranches cascades each branch independently and concurrently:
// availability links referencing the branch first, then the branch record.
// A failed cascade does not undo or abort the others.
func (s *branchService) DeleteBranches(ctx context.Context, branchIDs []string) error {
	ids := desiredSet(branchIDs, "")
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
				errs <- fmt.Errorf("branch %s: %w", id, err)
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
		return fmt.Errorf("failed to delete %d of %d branches: %w", len(failed), len(ids), errors.Join(failed...))
	}
	return nil
}

func (s *branchService) GetBranch(ctx context.Context, branchID string) (*domain.Branch, error) {
	branch, err := s.branchRepo.FindByID(ctx, branchID)
	if err != nil {
		if errors.Is(err, repository.ErrBranchNotFound) {
			return nil, repository.ErrBranchNotFound
		}
		return nil, fmt.Errorf("failed to get branch: %w", err)
	}
	return branch, nil
}

func (s *branchService) ListBranches(ctx context.Context, pharmacyID string) ([]*domain.Branch, error) {
	branches, err := s.branchRepo.ListByPharmacy(ctx, pharmacyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list branches: %w", err)
	}
	return branches, nil
}

// cascadeDelete tolerates links that are already gone so concurrent
// cascades touching the same link documents all complete.
func (s *branchService) cascadeDelete(ctx context.Context, branchID string) error {
	links, err := s.availabilityRepo.ListByBranch(ctx, branchID)
	if err != nil {
		return fmt.Errorf("failed to fetch availability links: %w", err)
	}
	for _, link := range links {
		if err := s.availabilityRepo.Delete(ctx, link.ID); err != nil && !errors.Is(err, repository.ErrLinkNotFound) {
			return fmt.Errorf("failed to remove availability link %s: %w", link.ID, err)
		}
	}

	if err := s.branchRepo.Delete(ctx, branchID); err != nil {
		return fmt.Errorf("failed to delete branch: %w", err)
	}
	return nil
}

func branchFromInput(input BranchInput, id string) *domain.Branch {
	return &domain.Branch{
		ID:           id,
		Name:         input.Name,
		Latitude:     input.Latitude,
		Longitude:    input.Longitude,
		Street:       input.Street,
		Borough:      input.Borough,
		City:         input.City,
		Rating:       input.Rating,
		WorkingHours: input.WorkingHours,
		About:        input.About,
		SiteURL:      input.SiteURL,
		LocationURL:  input.LocationURL,
		PharmacyID:   input.PharmacyID,
	}
}
