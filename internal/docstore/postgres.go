package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PostgresStore keeps every collection in a single documents table with the
// fields serialized as jsonb. Equality filters compile to fields->>key
// comparisons.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

var _ Store = (*PostgresStore)(nil)

func (s *PostgresStore) Create(ctx context.Context, collection string, fields map[string]any) (*Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	doc := &Document{
		ID:        uuid.New().String(),
		Fields:    fields,
		CreatedAt: time.Now().UTC(),
	}
	doc.UpdatedAt = doc.CreatedAt

	query := `
		INSERT INTO documents (collection, id, fields, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err = s.db.ExecContext(ctx, query, collection, doc.ID, payload, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create document: %w", err)
	}

	return doc, nil
}

func (s *PostgresStore) List(ctx context.Context, collection string, filter Filter) ([]*Document, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, fields, created_at, updated_at
		FROM documents
		WHERE collection = $1
	`)

	args := []interface{}{collection}
	argIndex := 2

	for _, eq := range filter.All {
		if eq.Field == IDField {
			sb.WriteString(fmt.Sprintf(" AND id = $%d", argIndex))
			args = append(args, eq.Value)
			argIndex++
			continue
		}
		sb.WriteString(fmt.Sprintf(" AND fields->>$%d = $%d", argIndex, argIndex+1))
		args = append(args, eq.Field, eq.Value)
		argIndex += 2
	}

	if len(filter.Any) > 0 {
		clauses := make([]string, 0, len(filter.Any))
		for _, eq := range filter.Any {
			clauses = append(clauses, fmt.Sprintf("fields->>$%d = $%d", argIndex, argIndex+1))
			args = append(args, eq.Field, eq.Value)
			argIndex += 2
		}
		sb.WriteString(" AND (" + strings.Join(clauses, " OR ") + ")")
	}

	sb.WriteString(" ORDER BY created_at, id")

	if filter.Limit > 0 {
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", argIndex))
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	documents := []*Document{}
	for rows.Next() {
		doc := &Document{}
		var payload []byte
		if err := rows.Scan(&doc.ID, &payload, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		if err := json.Unmarshal(payload, &doc.Fields); err != nil {
			return nil, fmt.Errorf("failed to decode document fields: %w", err)
		}
		documents = append(documents, doc)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating documents: %w", err)
	}

	return documents, nil
}

func (s *PostgresStore) Update(ctx context.Context, collection string, id string, fields map[string]any) (*Document, error) {
	payload, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document fields: %w", err)
	}

	query := `
		UPDATE documents
		SET fields = $3, updated_at = $4
		WHERE collection = $1 AND id = $2
		RETURNING created_at
	`

	doc := &Document{
		ID:        id,
		Fields:    fields,
		UpdatedAt: time.Now().UTC(),
	}

	err = s.db.QueryRowContext(ctx, query, collection, id, payload, doc.UpdatedAt).Scan(&doc.CreatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	return doc, nil
}

func (s *PostgresStore) Delete(ctx context.Context, collection string, id string) error {
	query := `DELETE FROM documents WHERE collection = $1 AND id = $2`

	result, err := s.db.ExecContext(ctx, query, collection, id)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}
