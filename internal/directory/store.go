// Package directory is the document store holding the users and courses collections.
package directory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const (
	CollectionUsers   = "users"
	CollectionCourses = "courses"
)

type Document struct {
	Collection string
	ID         string
	Data       json.RawMessage
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Store is a collection/id keyed document store. Writes to a single document are
// serialized by the database; nothing spans collections.
type Store interface {
	Get(ctx context.Context, collection, id string) (*Document, error)
	List(ctx context.Context, collection string) ([]Document, error)
	Set(ctx context.Context, collection, id string, data any) error
	Create(ctx context.Context, collection string, data any) (string, error)
	Update(ctx context.Context, collection, id string, partial map[string]any) error
	Delete(ctx context.Context, collection, id string) error
}

type PGStore struct {
	db *database.DB
}

func NewPGStore(db *database.DB) *PGStore {
	return &PGStore{db: db}
}

func (s *PGStore) Get(ctx context.Context, collection, id string) (*Document, error) {
	doc := Document{Collection: collection}
	var data []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents WHERE collection = $1 AND id = $2
	`, collection, id).Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("directory.get", fmt.Sprintf("%s/%s not found", collection, id))
	}
	if err != nil {
		return nil, apperr.Upstream("directory.get", err)
	}
	doc.Data = data
	return &doc, nil
}

func (s *PGStore) List(ctx context.Context, collection string) ([]Document, error) {
	rows, err := s.db.Pool.Query(ctx, `
		SELECT id, data, created_at, updated_at
		FROM documents WHERE collection = $1
		ORDER BY created_at DESC, id
	`, collection)
	if err != nil {
		return nil, apperr.Upstream("directory.list", err)
	}
	defer rows.Close()

	var docs []Document
	for rows.Next() {
		doc := Document{Collection: collection}
		var data []byte
		if err := rows.Scan(&doc.ID, &data, &doc.CreatedAt, &doc.UpdatedAt); err != nil {
			return nil, apperr.Upstream("directory.list", err)
		}
		doc.Data = data
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Upstream("directory.list", err)
	}
	return docs, nil
}

func (s *PGStore) Set(ctx context.Context, collection, id string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return apperr.Validation("directory.set", "invalid_document", err.Error())
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
		ON CONFLICT (collection, id) DO UPDATE SET data = EXCLUDED.data, updated_at = NOW()
	`, collection, id, payload)
	if err != nil {
		return apperr.Upstream("directory.set", err)
	}
	return nil
}

func (s *PGStore) Create(ctx context.Context, collection string, data any) (string, error) {
	id := uuid.NewString()
	payload, err := json.Marshal(data)
	if err != nil {
		return "", apperr.Validation("directory.create", "invalid_document", err.Error())
	}

	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO documents (collection, id, data)
		VALUES ($1, $2, $3)
	`, collection, id, payload)
	if err != nil {
		return "", apperr.Upstream("directory.create", err)
	}
	return id, nil
}

// Update merges partial into the stored document at the top level.
func (s *PGStore) Update(ctx context.Context, collection, id string, partial map[string]any) error {
	payload, err := json.Marshal(partial)
	if err != nil {
		return apperr.Validation("directory.update", "invalid_document", err.Error())
	}

	result, err := s.db.Pool.Exec(ctx, `
		UPDATE documents SET data = data || $3::jsonb, updated_at = NOW()
		WHERE collection = $1 AND id = $2
	`, collection, id, payload)
	if err != nil {
		return apperr.Upstream("directory.update", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("directory.update", fmt.Sprintf("%s/%s not found", collection, id))
	}
	return nil
}

func (s *PGStore) Delete(ctx context.Context, collection, id string) error {
	result, err := s.db.Pool.Exec(ctx, `
		DELETE FROM documents WHERE collection = $1 AND id = $2
	`, collection, id)
	if err != nil {
		return apperr.Upstream("directory.delete", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("directory.delete", fmt.Sprintf("%s/%s not found", collection, id))
	}
	return nil
}
