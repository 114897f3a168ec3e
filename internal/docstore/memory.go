package docstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store used by tests and local development.
// Documents are copied on read and write so callers never share maps with
// the store.
type MemoryStore struct {
	mu          sync.RWMutex
	nextSeq     int64
	collections map[string]map[string]*memoryDoc
}

type memoryDoc struct {
	doc Document
	seq int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[string]map[string]*memoryDoc),
	}
}

var _ Store = (*MemoryStore)(nil)

func (m *MemoryStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, ok := m.collections[collection]
	if !ok {
		docs = make(map[string]*memoryDoc)
		m.collections[collection] = docs
	}

	now := time.Now().UTC()
	doc := Document{
		ID:        uuid.New().String(),
		Fields:    copyFields(fields),
		CreatedAt: now,
		UpdatedAt: now,
	}
	m.nextSeq++
	docs[doc.ID] = &memoryDoc{doc: doc, seq: m.nextSeq}

	out := doc
	out.Fields = copyFields(doc.Fields)
	return &out, nil
}

func (m *MemoryStore) List(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*memoryDoc
	for _, md := range m.collections[collection] {
		if matches(&md.doc, filter) {
			matched = append(matched, md)
		}
	}

	// Stable insertion order so limits are deterministic
	sort.Slice(matched, func(i, j int) bool { return matched[i].seq < matched[j].seq })

	if filter.Limit > 0 && len(matched) > filter.Limit {
		matched = matched[:filter.Limit]
	}

	out := make([]*Document, 0, len(matched))
	for _, md := range matched {
		doc := md.doc
		doc.Fields = copyFields(doc.Fields)
		out = append(out, &doc)
	}
	return out, nil
}

func (m *MemoryStore) Update(ctx context.Context, collection string, id string, fields map[string]any) (*Document, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	md, ok := m.collections[collection][id]
	if !ok {
		return nil, ErrNotFound
	}

	md.doc.Fields = copyFields(fields)
	md.doc.UpdatedAt = time.Now().UTC()

	out := md.doc
	out.Fields = copyFields(out.Fields)
	return &out, nil
}

func (m *MemoryStore) Delete(ctx context.Context, collection string, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs := m.collections[collection]
	if _, ok := docs[id]; !ok {
		return ErrNotFound
	}
	delete(docs, id)
	return nil
}

func matches(doc *Document, filter Filter) bool {
	for _, eq := range filter.All {
		if !eqMatches(doc, eq) {
			return false
		}
	}
	if len(filter.Any) > 0 {
		anyMatched := false
		for _, eq := range filter.Any {
			if eqMatches(doc, eq) {
				anyMatched = true
				break
			}
		}
		if !anyMatched {
			return false
		}
	}
	return true
}

func eqMatches(doc *Document, eq Eq) bool {
	if eq.Field == IDField {
		return doc.ID == eq.Value
	}
	v, ok := doc.Fields[eq.Field].(string)
	return ok && v == eq.Value
}

func copyFields(fields map[string]any) map[string]any {
	out := make(map[string]any, len(fields))
	for k, v := range fields {
		out[k] = v
	}
	return out
}
