package identity

import (
	"context"
	"time"

	"github.com/dimitrije/medportal-api/internal/database"
)

type TokenService struct {
	db *database.DB
}

func NewTokenService(db *database.DB) *TokenService {
	return &TokenService{db: db}
}

func (s *TokenService) StoreRefreshToken(ctx context.Context, uid, tokenHash string, expiresAt time.Time) error {
	_, err := s.db.Pool.Exec(ctx, `
		INSERT INTO refresh_tokens (uid, token_hash, expires_at)
		VALUES ($1, $2, $3)
	`, uid, tokenHash, expiresAt)
	return err
}

// ConsumeRefreshToken deletes a live refresh token and returns its owner, so
// each refresh token can be exchanged once.
func (s *TokenService) ConsumeRefreshToken(ctx context.Context, tokenHash string) (string, error) {
	var uid string
	err := s.db.Pool.QueryRow(ctx, `
		DELETE FROM refresh_tokens
		WHERE token_hash = $1 AND expires_at > NOW()
		RETURNING uid
	`, tokenHash).Scan(&uid)
	return uid, err
}

func (s *TokenService) RevokeRefreshToken(ctx context.Context, tokenHash string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE token_hash = $1`, tokenHash)
	return err
}

func (s *TokenService) RevokeAllUserTokens(ctx context.Context, uid string) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE uid = $1`, uid)
	return err
}

func (s *TokenService) CleanupExpired(ctx context.Context) error {
	_, err := s.db.Pool.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < NOW()`)
	if err != nil {
		return err
	}
	_, err = s.db.Pool.Exec(ctx, `DELETE FROM password_resets WHERE expires_at < NOW()`)
	return err
}
