package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"

	"pharmaseek/internal/docstore"
	"pharmaseek/internal/domain"
	"pharmaseek/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

type serviceFixture struct {
	store            *docstore.MemoryStore
	products         ProductService
	branches         BranchService
	availabilityRepo repository.AvailabilityRepository
	alternativeRepo  repository.AlternativeRepository
}

func newServiceFixture() *serviceFixture {
	store := docstore.NewMemoryStore()
	productRepo := repository.NewProductRepository(store)
	branchRepo := repository.NewBranchRepository(store)
	availabilityRepo := repository.NewAvailabilityRepository(store)
	alternativeRepo := repository.NewAlternativeRepository(store)

	return &serviceFixture{
		store:            store,
		products:         NewProductService(productRepo, availabilityRepo, alternativeRepo),
		branches:         NewBranchService(branchRepo, availabilityRepo),
		availabilityRepo: availabilityRepo,
		alternativeRepo:  alternativeRepo,
	}
}

func (f *serviceFixture) mustAddProduct(t *testing.T, name string, branchIDs, alternativeIDs []string) string {
	t.Helper()
	product, err := f.products.AddProduct(context.Background(), ProductInput{
		Name:       name,
		Price:      9.99,
		PharmacyID: "ph1",
	}, branchIDs, alternativeIDs)
	if err != nil {
		t.Fatalf("AddProduct(%s) failed: %v", name, err)
	}
	return product.ID
}

func (f *serviceFixture) mustAddBranch(t *testing.T, name string) string {
	t.Helper()
	branch, err := f.branches.AddBranch(context.Background(), BranchInput{
		Name:       name,
		City:       "Sofia",
		PharmacyID: "ph1",
	})
	if err != nil {
		t.Fatalf("AddBranch(%s) failed: %v", name, err)
	}
	return branch.ID
}

func sortedStrings(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	a, b = sortedStrings(a), sortedStrings(b)
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestAddProduct_CreatesLinksForBranchesAndAlternatives(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	b1 := f.mustAddBranch(t, "Center")
	b2 := f.mustAddBranch(t, "Airport")
	alt1 := f.mustAddProduct(t, "Ibuprofen", nil, nil)
	alt2 := f.mustAddProduct(t, "Paracetamol", nil, nil)

	id := f.mustAddProduct(t, "Aspirin", []string{b1, b2}, []string{alt1, alt2})

	branchIDs, err := f.products.GetProductAvailability(ctx, id)
	if err != nil {
		t.Fatalf("GetProductAvailability failed: %v", err)
	}
	if !equalSets(branchIDs, []string{b1, b2}) {
		t.Errorf("expected availability at %v, got %v", []string{b1, b2}, branchIDs)
	}

	alternativeIDs, err := f.products.GetProductAlternatives(ctx, id)
	if err != nil {
		t.Fatalf("GetProductAlternatives failed: %v", err)
	}
	if !equalSets(alternativeIDs, []string{alt1, alt2}) {
		t.Errorf("expected alternatives %v, got %v", []string{alt1, alt2}, alternativeIDs)
	}

	// Each alternative must also see the new product from its own side.
	for _, alt := range []string{alt1, alt2} {
		back, err := f.products.GetProductAlternatives(ctx, alt)
		if err != nil {
			t.Fatalf("GetProductAlternatives(%s) failed: %v", alt, err)
		}
		if !equalSets(back, []string{id}) {
			t.Errorf("expected %s to list %s as alternative, got %v", alt, id, back)
		}
	}
}

func TestModifyProduct_ReplacesLinkSets(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	b1 := f.mustAddBranch(t, "Center")
	b2 := f.mustAddBranch(t, "Airport")
	b3 := f.mustAddBranch(t, "Harbor")
	alt1 := f.mustAddProduct(t, "Ibuprofen", nil, nil)
	alt2 := f.mustAddProduct(t, "Paracetamol", nil, nil)

	id := f.mustAddProduct(t, "Aspirin", []string{b1, b2}, []string{alt1})

	updated, err := f.products.ModifyProduct(ctx, ProductInput{
		Name:       "Aspirin Forte",
		Price:      12.50,
		PharmacyID: "ph1",
	}, []string{b2, b3}, []string{alt2}, id)
	if err != nil {
		t.Fatalf("ModifyProduct failed: %v", err)
	}
	if updated.Name != "Aspirin Forte" || updated.Price != 12.50 {
		t.Errorf("scalar fields not overwritten: %+v", updated)
	}

	branchIDs, err := f.products.GetProductAvailability(ctx, id)
	if err != nil {
		t.Fatalf("GetProductAvailability failed: %v", err)
	}
	if !equalSets(branchIDs, []string{b2, b3}) {
		t.Errorf("expected availability at %v after modify, got %v", []string{b2, b3}, branchIDs)
	}

	alternativeIDs, err := f.products.GetProductAlternatives(ctx, id)
	if err != nil {
		t.Fatalf("GetProductAlternatives failed: %v", err)
	}
	if !equalSets(alternativeIDs, []string{alt2}) {
		t.Errorf("expected alternatives %v after modify, got %v", []string{alt2}, alternativeIDs)
	}

	// The dropped alternative must no longer point back.
	back, err := f.products.GetProductAlternatives(ctx, alt1)
	if err != nil {
		t.Fatalf("GetProductAlternatives(%s) failed: %v", alt1, err)
	}
	if len(back) != 0 {
		t.Errorf("expected %s to have no alternatives after modify, got %v", alt1, back)
	}
}

func TestModifyProduct_RemovesLinksCreatedByOtherSide(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	a := f.mustAddProduct(t, "Aspirin", nil, nil)
	b := f.mustAddProduct(t, "Ibuprofen", nil, []string{a})

	// b owns the forward link; a owns only the reciprocal. Clearing a's
	// alternatives must remove both directions regardless of ownership.
	if _, err := f.products.ModifyProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, nil, nil, a); err != nil {
		t.Fatalf("ModifyProduct failed: %v", err)
	}

	for _, id := range []string{a, b} {
		alts, err := f.products.GetProductAlternatives(ctx, id)
		if err != nil {
			t.Fatalf("GetProductAlternatives(%s) failed: %v", id, err)
		}
		if len(alts) != 0 {
			t.Errorf("expected %s to have no alternatives, got %v", id, alts)
		}
	}
}

// brokenLinkWriter fails availability link creation while leaving listing
// and teardown intact.
type brokenLinkWriter struct {
	repository.AvailabilityRepository
}

func (r *brokenLinkWriter) Create(ctx context.Context, productID, branchID string) (*domain.AvailabilityLink, error) {
	return nil, errors.New("store rejected write")
}

func TestModifyProduct_RecreateFailureLeavesProductLinkless(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	productRepo := repository.NewProductRepository(store)
	availabilityRepo := repository.NewAvailabilityRepository(store)
	alternativeRepo := repository.NewAlternativeRepository(store)
	products := NewProductService(productRepo, availabilityRepo, alternativeRepo)

	branchRepo := repository.NewBranchRepository(store)
	branch, err := branchRepo.Create(ctx, &domain.Branch{Name: "Center", PharmacyID: "ph1"})
	if err != nil {
		t.Fatalf("Create branch failed: %v", err)
	}

	product, err := products.AddProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, []string{branch.ID}, nil)
	if err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}

	// Teardown succeeds, recreation fails: there is no rollback, so the
	// product must end up with no availability links rather than the
	// pre-modify set.
	broken := NewProductService(productRepo, &brokenLinkWriter{availabilityRepo}, alternativeRepo)
	if _, err := broken.ModifyProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, []string{branch.ID}, nil, product.ID); err == nil {
		t.Fatal("expected ModifyProduct to fail when link creation fails")
	}

	branchIDs, err := products.GetProductAvailability(ctx, product.ID)
	if err != nil {
		t.Fatalf("GetProductAvailability failed: %v", err)
	}
	if len(branchIDs) != 0 {
		t.Errorf("expected no availability links after failed recreate, got %v", branchIDs)
	}
}

func TestModifyProduct_NotFound(t *testing.T) {
	f := newServiceFixture()

	_, err := f.products.ModifyProduct(context.Background(), ProductInput{Name: "X"}, nil, nil, "missing")
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected ErrProductNotFound, got %v", err)
	}
}

func TestDeleteProducts_CascadesLinks(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	b1 := f.mustAddBranch(t, "Center")
	alt := f.mustAddProduct(t, "Ibuprofen", nil, nil)
	id := f.mustAddProduct(t, "Aspirin", []string{b1}, []string{alt})

	if err := f.products.DeleteProducts(ctx, []string{id}); err != nil {
		t.Fatalf("DeleteProducts failed: %v", err)
	}

	if _, err := f.products.GetProduct(ctx, id); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected deleted product to be gone, got %v", err)
	}

	links, err := f.availabilityRepo.ListByProduct(ctx, id)
	if err != nil {
		t.Fatalf("ListByProduct failed: %v", err)
	}
	if len(links) != 0 {
		t.Errorf("expected no availability links after delete, got %d", len(links))
	}

	// The surviving alternative must not reference the dead product.
	alts, err := f.products.GetProductAlternatives(ctx, alt)
	if err != nil {
		t.Fatalf("GetProductAlternatives failed: %v", err)
	}
	if len(alts) != 0 {
		t.Errorf("expected survivor to have no alternatives, got %v", alts)
	}
}

func TestDeleteProducts_BothEndpointsOfAlternativePair(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	a := f.mustAddProduct(t, "Aspirin", nil, nil)
	b := f.mustAddProduct(t, "Ibuprofen", nil, []string{a})

	// Both cascades fetch the shared pair links and race to delete them;
	// the batch must still succeed for valid input.
	if err := f.products.DeleteProducts(ctx, []string{a, b}); err != nil {
		t.Fatalf("DeleteProducts failed: %v", err)
	}

	for _, id := range []string{a, b} {
		if _, err := f.products.GetProduct(ctx, id); !errors.Is(err, repository.ErrProductNotFound) {
			t.Errorf("expected product %s deleted, got %v", id, err)
		}
	}

	docs, err := f.store.List(ctx, repository.AlternativeCollection, docstore.Filter{})
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(docs) != 0 {
		t.Errorf("expected no alternative links to survive, got %d", len(docs))
	}
}

// staleAlternativeRepo lists links a concurrent cascade has already torn
// down, so every subsequent delete of them hits a missing document.
type staleAlternativeRepo struct {
	repository.AlternativeRepository
}

func (r *staleAlternativeRepo) ListByEitherSide(ctx context.Context, productID string) ([]*domain.AlternativeLink, error) {
	links, err := r.AlternativeRepository.ListByEitherSide(ctx, productID)
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		if err := r.AlternativeRepository.Delete(ctx, link.ID); err != nil {
			return nil, err
		}
	}
	return links, nil
}

func TestDeleteProducts_ToleratesLinksRemovedConcurrently(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	productRepo := repository.NewProductRepository(store)
	availabilityRepo := repository.NewAvailabilityRepository(store)
	alternativeRepo := &staleAlternativeRepo{repository.NewAlternativeRepository(store)}
	products := NewProductService(productRepo, availabilityRepo, alternativeRepo)

	a, err := products.AddProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, nil, nil)
	if err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}
	if _, err := products.AddProduct(ctx, ProductInput{Name: "Ibuprofen", PharmacyID: "ph1"}, nil, []string{a.ID}); err != nil {
		t.Fatalf("AddProduct failed: %v", err)
	}

	// Every pair link the cascade lists is gone by the time it deletes;
	// the cascade must still remove the product record.
	if err := products.DeleteProducts(ctx, []string{a.ID}); err != nil {
		t.Fatalf("DeleteProducts failed: %v", err)
	}
	if _, err := products.GetProduct(ctx, a.ID); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected product deleted despite stale link listing, got %v", err)
	}
}

func TestDeleteProducts_ReportsPartialFailure(t *testing.T) {
	f := newServiceFixture()
	ctx := context.Background()

	id := f.mustAddProduct(t, "Aspirin", nil, nil)

	err := f.products.DeleteProducts(ctx, []string{id, "missing"})
	if err == nil {
		t.Fatal("expected an error for the missing product")
	}
	if !strings.Contains(err.Error(), "1 of 2") {
		t.Errorf("expected failure count in error, got %q", err)
	}
	if !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected wrapped ErrProductNotFound, got %v", err)
	}

	// The existing product's cascade must have run despite the failure.
	if _, err := f.products.GetProduct(ctx, id); !errors.Is(err, repository.ErrProductNotFound) {
		t.Errorf("expected existing product deleted, got %v", err)
	}
}

func TestDeleteProducts_EmptyBatch(t *testing.T) {
	f := newServiceFixture()

	if err := f.products.DeleteProducts(context.Background(), nil); err != nil {
		t.Errorf("expected nil error for empty batch, got %v", err)
	}
}

func TestProperty_AlternativeLinksStaySymmetric(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every alternative relation is visible from both sides", prop.ForAll(
		func(names []string) bool {
			f := newServiceFixture()
			ctx := context.Background()

			ids := make([]string, 0, len(names))
			for _, name := range names {
				ids = append(ids, f.mustAddProduct(t, name, nil, nil))
			}

			// Link each product to every previously created one.
			for i, id := range ids {
				if _, err := f.products.ModifyProduct(ctx, ProductInput{Name: names[i], PharmacyID: "ph1"}, nil, ids[:i], id); err != nil {
					t.Logf("FAIL: ModifyProduct: %v", err)
					return false
				}
			}

			for _, id := range ids {
				alts, err := f.products.GetProductAlternatives(ctx, id)
				if err != nil {
					t.Logf("FAIL: GetProductAlternatives: %v", err)
					return false
				}
				for _, other := range alts {
					back, err := f.products.GetProductAlternatives(ctx, other)
					if err != nil {
						t.Logf("FAIL: GetProductAlternatives: %v", err)
						return false
					}
					found := false
					for _, candidate := range back {
						if candidate == id {
							found = true
							break
						}
					}
					if !found {
						t.Logf("FAIL: %s lists %s but not vice versa", id, other)
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(4, gen.RegexMatch(`[A-Z][a-z]{3,10}`)),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_ModifyConvergesToDesiredBranchSet(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("availability equals the last desired branch set", prop.ForAll(
		func(firstPick, secondPick []bool) bool {
			f := newServiceFixture()
			ctx := context.Background()

			branchIDs := make([]string, 5)
			for i := range branchIDs {
				branchIDs[i] = f.mustAddBranch(t, "Branch")
			}
			id := f.mustAddProduct(t, "Aspirin", pick(branchIDs, firstPick), nil)

			desired := pick(branchIDs, secondPick)
			if _, err := f.products.ModifyProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, desired, nil, id); err != nil {
				t.Logf("FAIL: ModifyProduct: %v", err)
				return false
			}

			got, err := f.products.GetProductAvailability(ctx, id)
			if err != nil {
				t.Logf("FAIL: GetProductAvailability: %v", err)
				return false
			}
			if !equalSets(got, desired) {
				t.Logf("FAIL: expected %v, got %v", desired, got)
				return false
			}

			// Modify with the same set again; the outcome must not change.
			if _, err := f.products.ModifyProduct(ctx, ProductInput{Name: "Aspirin", PharmacyID: "ph1"}, desired, nil, id); err != nil {
				t.Logf("FAIL: repeat ModifyProduct: %v", err)
				return false
			}
			got, err = f.products.GetProductAvailability(ctx, id)
			if err != nil {
				t.Logf("FAIL: GetProductAvailability: %v", err)
				return false
			}
			if !equalSets(got, desired) {
				t.Logf("FAIL: repeat modify changed outcome: expected %v, got %v", desired, got)
				return false
			}
			return true
		},
		gen.SliceOfN(5, gen.Bool()),
		gen.SliceOfN(5, gen.Bool()),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func pick(ids []string, mask []bool) []string {
	var out []string
	for i, keep := range mask {
		if i < len(ids) && keep {
			out = append(out, ids[i])
		}
	}
	return out
}
