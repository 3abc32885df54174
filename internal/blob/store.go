// Package blob stores course attachments and renders their download URLs.
package blob

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/jackc/pgx/v5"
	"github.com/klauspost/compress/zstd"
	"github.com/zeebo/blake3"
)

// ObjectRef addresses a stored object as {folder}/{name}.
type ObjectRef string

type Object struct {
	Ref         ObjectRef
	ContentType string
	Size        int64
	// Digest is the hex BLAKE3-256 of the uncompressed content.
	Digest    string
	Data      []byte
	CreatedAt time.Time
}

type Store interface {
	Upload(ctx context.Context, ref ObjectRef, contentType string, data []byte) (ObjectRef, error)
	Open(ctx context.Context, ref ObjectRef) (*Object, error)
	Delete(ctx context.Context, ref ObjectRef) error
	PublicURL(ref ObjectRef) string
	RefFromURL(raw string) (ObjectRef, error)
}

const (
	encodingIdentity = "identity"
	encodingZstd     = "zstd"
)

// zstd.Encoder and zstd.Decoder are safe for concurrent use with EncodeAll/DecodeAll.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	zstdEncoder, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		panic("blob: zstd encoder initialization failed: " + err.Error())
	}
	zstdDecoder, err = zstd.NewReader(nil)
	if err != nil {
		panic("blob: zstd decoder initialization failed: " + err.Error())
	}
}

// PGStore keeps objects in the blobs table, compressed when that makes them smaller.
type PGStore struct {
	db      *database.DB
	baseURL string
}

func NewPGStore(db *database.DB, baseURL string) *PGStore {
	return &PGStore{db: db, baseURL: baseURL}
}

func Digest(data []byte) string {
	sum := blake3.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func encode(data []byte) (string, []byte) {
	compressed := zstdEncoder.EncodeAll(data, nil)
	if len(compressed) >= len(data) {
		return encodingIdentity, data
	}
	return encodingZstd, compressed
}

func decode(encoding string, stored []byte, size int64) ([]byte, error) {
	switch encoding {
	case encodingIdentity:
		return stored, nil
	case encodingZstd:
		out, err := zstdDecoder.DecodeAll(stored, make([]byte, 0, size))
		if err != nil {
			return nil, fmt.Errorf("zstd decompress: %w", err)
		}
		if int64(len(out)) != size {
			return nil, fmt.Errorf("zstd decompress: got %d bytes, expected %d", len(out), size)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown blob encoding %q", encoding)
}

// Upload stores data at ref. An existing object at ref is never replaced.
func (s *PGStore) Upload(ctx context.Context, ref ObjectRef, contentType string, data []byte) (ObjectRef, error) {
	if _, _, ok := ref.split(); !ok {
		return "", apperr.Validation("blob.upload", "invalid_path", "invalid object path")
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	encoding, stored := encode(data)
	result, err := s.db.Pool.Exec(ctx, `
		INSERT INTO blobs (path, content_type, size, digest, encoding, data)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (path) DO NOTHING
	`, string(ref), contentType, int64(len(data)), Digest(data), encoding, stored)
	if err != nil {
		return "", apperr.Upstream("blob.upload", err)
	}
	if result.RowsAffected() == 0 {
		return "", apperr.Validation("blob.upload", "object_exists", "a file with this name already exists")
	}
	return ref, nil
}

func (s *PGStore) Open(ctx context.Context, ref ObjectRef) (*Object, error) {
	obj := Object{Ref: ref}
	var encoding string
	var stored []byte
	err := s.db.Pool.QueryRow(ctx, `
		SELECT content_type, size, digest, encoding, data, created_at
		FROM blobs WHERE path = $1
	`, string(ref)).Scan(&obj.ContentType, &obj.Size, &obj.Digest, &encoding, &stored, &obj.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("blob.open", "file not found")
	}
	if err != nil {
		return nil, apperr.Upstream("blob.open", err)
	}

	obj.Data, err = decode(encoding, stored, obj.Size)
	if err != nil {
		return nil, apperr.Upstream("blob.open", err)
	}
	return &obj, nil
}

func (s *PGStore) Delete(ctx context.Context, ref ObjectRef) error {
	result, err := s.db.Pool.Exec(ctx, `DELETE FROM blobs WHERE path = $1`, string(ref))
	if err != nil {
		return apperr.Upstream("blob.delete", err)
	}
	if result.RowsAffected() == 0 {
		return apperr.NotFound("blob.delete", "file not found")
	}
	return nil
}

func (s *PGStore) PublicURL(ref ObjectRef) string {
	return urlFor(s.baseURL, ref)
}

func (s *PGStore) RefFromURL(raw string) (ObjectRef, error) {
	return refFromURL(s.baseURL, raw)
}
