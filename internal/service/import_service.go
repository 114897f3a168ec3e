package service

import (
	"context"
	"fmt"
)

// ImportItem is one product entry of a bulk import payload.
type ImportItem struct {
	Product        ProductInput
	BranchIDs      []string
	AlternativeIDs []string
}

// ImportError records why a single import item failed.
type ImportError struct {
	Index   int    `json:"index"`
	Message string `json:"message"`
}

// ImportResult summarizes a bulk import run.
type ImportResult struct {
	Succeeded int           `json:"succeeded"`
	Failed    int           `json:"failed"`
	Errors    []ImportError `json:"errors,omitempty"`
}

// ImportService loads product catalogs in bulk. Items run sequentially so
// earlier items of the same payload can be referenced as alternatives by
// later ones once their IDs are known.
type ImportService interface {
	ImportProducts(ctx context.Context, items []ImportItem) (*ImportResult, error)
}

type importService struct {
	productService ProductService
}

// NewImportService creates a new instance of ImportService
func NewImportService(productService ProductService) ImportService {
	return &importService{productService: productService}
}

// ImportProducts runs each item through the regular add path and collects
// per-item outcomes. A failed item is recorded and skipped; the rest of the
// batch continues.
func (s *importService) ImportProducts(ctx context.Context, items []ImportItem) (*ImportResult, error) {
	result := &ImportResult{}

	for i, item := range items {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("import aborted at item %d: %w", i, err)
		}

		if _, err := s.productService.AddProduct(ctx, item.Product, item.BranchIDs, item.AlternativeIDs); err != nil {
			result.Failed++
			result.Errors = append(result.Errors, ImportError{Index: i, Message: err.Error()})
			continue
		}
		result.Succeeded++
	}

	return result, nil
}
