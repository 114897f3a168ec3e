package docstore

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("document not found")
)

// Document is a single record in a remote collection. The ID is an opaque
// string assigned by the store on creation.
type Document struct {
	ID        string
	Fields    map[string]any
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Eq is an equality predicate over a named field.
type Eq struct {
	Field string
	Value string
}

// IDField is the reserved predicate field matching the store-assigned
// document ID. It may only appear in All predicates.
const IDField = "id"

// Filter selects documents in a collection. All predicates are conjoined;
// Any predicates are disjoined with each other and conjoined with All.
// Limit caps the result size (0 means no limit).
type Filter struct {
	All   []Eq
	Any   []Eq
	Limit int
}

// Store defines the interface for a generic remote document-collection store
type Store interface {
	Create(ctx context.Context, collection string, fields map[string]any) (*Document, error)
	List(ctx context.Context, collection string, filter Filter) ([]*Document, error)
	Update(ctx context.Context, collection string, id string, fields map[string]any) (*Document, error)
	Delete(ctx context.Context, collection string, id string) error
}

// String returns the string value of a document field, or "" when the field
// is absent or not a string.
func (d *Document) String(field string) string {
	if v, ok := d.Fields[field].(string); ok {
		return v
	}
	return ""
}

// Float returns the numeric value of a document field, or 0 when the field
// is absent or not numeric.
func (d *Document) Float(field string) float64 {
	switch v := d.Fields[field].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	}
	return 0
}
