package database

import (
	"context"
	"fmt"
)

var migrations = []string{
	// Identity provider: credentials and the signed claim set live here, never in documents.
	`CREATE TABLE IF NOT EXISTS credentials (
		uid VARCHAR(64) PRIMARY KEY,
		email VARCHAR(255) UNIQUE NOT NULL,
		password_hash VARCHAR(255) NOT NULL,
		admin BOOLEAN NOT NULL DEFAULT FALSE,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS refresh_tokens (
		id BIGSERIAL PRIMARY KEY,
		uid VARCHAR(64) NOT NULL REFERENCES credentials(uid) ON DELETE CASCADE,
		token_hash VARCHAR(255) NOT NULL UNIQUE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE TABLE IF NOT EXISTS password_resets (
		token_hash VARCHAR(255) PRIMARY KEY,
		uid VARCHAR(64) NOT NULL REFERENCES credentials(uid) ON DELETE CASCADE,
		expires_at TIMESTAMP WITH TIME ZONE NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	// Directory store: users and courses documents.
	`CREATE TABLE IF NOT EXISTS documents (
		collection VARCHAR(64) NOT NULL,
		id VARCHAR(64) NOT NULL,
		data JSONB NOT NULL DEFAULT '{}',
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,

	// Blob store.
	`CREATE TABLE IF NOT EXISTS blobs (
		path VARCHAR(1024) PRIMARY KEY,
		content_type VARCHAR(255) NOT NULL,
		size BIGINT NOT NULL,
		digest VARCHAR(64) NOT NULL,
		encoding VARCHAR(16) NOT NULL DEFAULT 'identity',
		data BYTEA NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	)`,

	`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_uid ON refresh_tokens(uid)`,
	`CREATE INDEX IF NOT EXISTS idx_password_resets_uid ON password_resets(uid)`,
	`CREATE INDEX IF NOT EXISTS idx_documents_collection_created ON documents(collection, created_at DESC)`,
}

func (db *DB) Migrate(ctx context.Context) error {
	for i, migration := range migrations {
		if _, err := db.Pool.Exec(ctx, migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
