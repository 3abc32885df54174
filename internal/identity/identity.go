// Package identity issues and verifies credentials for email/password accounts.
package identity

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/dimitrije/medportal-api/internal/hub"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"
)

// ClaimSet is the part of a credential that carries privileges.
type ClaimSet struct {
	Admin bool `json:"admin"`
}

// Credential is a verified sign-in. Only the access token is required to
// rebuild one; RefreshToken is set on sign-in and refresh only.
type Credential struct {
	UID          string
	Email        string
	AccessToken  string
	RefreshToken string
	ExpiresIn    int64
	ExpiresAt    time.Time
	Claims       ClaimSet
}

type Mailer interface {
	SendPasswordReset(to, link string) error
}

type Options struct {
	MinPasswordLength int
	ResetExpiry       time.Duration
	// ResetURL is the frontend base URL; links point at its /reset-password page.
	ResetURL   string
	BcryptCost int
}

type Service struct {
	db     *database.DB
	jwt    *JWTService
	tokens *TokenService
	events hub.Publisher
	local  *hub.Hub
	mailer Mailer
	opts   Options
	logger *slog.Logger
}

func NewService(db *database.DB, jwt *JWTService, events hub.Publisher, local *hub.Hub, mailer Mailer, opts Options, logger *slog.Logger) *Service {
	if opts.MinPasswordLength < 6 {
		opts.MinPasswordLength = 6
	}
	if opts.ResetExpiry <= 0 {
		opts.ResetExpiry = time.Hour
	}
	if opts.BcryptCost == 0 {
		opts.BcryptCost = bcrypt.DefaultCost
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		db:     db,
		jwt:    jwt,
		tokens: NewTokenService(db),
		events: events,
		local:  local,
		mailer: mailer,
		opts:   opts,
		logger: logger,
	}
}

func (s *Service) Tokens() *TokenService {
	return s.tokens
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validateEmail(op, email string) error {
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return apperr.Validation(op, "invalid_email", "a valid email address is required")
	}
	return nil
}

func (s *Service) validatePassword(op, password string) error {
	if utf8.RuneCountInString(password) < s.opts.MinPasswordLength {
		return apperr.Validation(op, "weak_password",
			fmt.Sprintf("password must be at least %d characters", s.opts.MinPasswordLength))
	}
	return nil
}

// SignUp creates an account without privileges and signs it in.
func (s *Service) SignUp(ctx context.Context, email, password string) (*Credential, error) {
	const op = "identity.signup"
	email = normalizeEmail(email)
	if err := validateEmail(op, email); err != nil {
		return nil, err
	}
	if err := s.validatePassword(op, password); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.opts.BcryptCost)
	if err != nil {
		return nil, apperr.Validation(op, "weak_password", "password cannot be used")
	}

	uid := uuid.NewString()
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO credentials (uid, email, password_hash)
		VALUES ($1, $2, $3)
	`, uid, email, string(hash))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Validation(op, "email_in_use", "an account with this email already exists")
		}
		return nil, apperr.Upstream(op, err)
	}

	return s.issue(ctx, op, uid, email, false)
}

func (s *Service) SignIn(ctx context.Context, email, password string) (*Credential, error) {
	const op = "identity.signin"
	email = normalizeEmail(email)

	var uid, hash string
	var admin bool
	err := s.db.Pool.QueryRow(ctx, `
		SELECT uid, password_hash, admin FROM credentials WHERE email = $1
	`, email).Scan(&uid, &hash, &admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthenticated(op, "invalid_credentials", "invalid email or password")
	}
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return nil, apperr.Unauthenticated(op, "invalid_credentials", "invalid email or password")
	}

	return s.issue(ctx, op, uid, email, admin)
}

// Refresh exchanges a refresh token for a new credential. The claim set is
// re-read, so a changed admin claim takes effect here.
func (s *Service) Refresh(ctx context.Context, refreshToken string) (*Credential, error) {
	const op = "identity.refresh"
	uid, err := s.jwt.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperr.Unauthenticated(op, "invalid_refresh_token", "invalid or expired refresh token")
	}

	owner, err := s.tokens.ConsumeRefreshToken(ctx, HashToken(refreshToken))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthenticated(op, "invalid_refresh_token", "refresh token revoked or expired")
	}
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}
	if owner != uid {
		return nil, apperr.Unauthenticated(op, "invalid_refresh_token", "refresh token revoked or expired")
	}

	var email string
	var admin bool
	err = s.db.Pool.QueryRow(ctx, `SELECT email, admin FROM credentials WHERE uid = $1`, uid).Scan(&email, &admin)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.Unauthenticated(op, "account_not_found", "account no longer exists")
	}
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}

	return s.issue(ctx, op, uid, email, admin)
}

func (s *Service) issue(ctx context.Context, op, uid, email string, admin bool) (*Credential, error) {
	pair, err := s.jwt.GenerateTokenPair(uid, email, admin)
	if err != nil {
		return nil, apperr.Upstream(op, err)
	}

	expiresAt := time.Now().Add(s.jwt.RefreshExpiry())
	if err := s.tokens.StoreRefreshToken(ctx, uid, HashToken(pair.RefreshToken), expiresAt); err != nil {
		return nil, apperr.Upstream(op, err)
	}

	return &Credential{
		UID:          uid,
		Email:        email,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresIn:    pair.ExpiresIn,
		ExpiresAt:    pair.ExpiresAt,
		Claims:       ClaimSet{Admin: admin},
	}, nil
}

// SignOut revokes one refresh token. Unknown tokens are ignored.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if err := s.tokens.RevokeRefreshToken(ctx, HashToken(refreshToken)); err != nil {
		return apperr.Upstream("identity.signout", err)
	}
	return nil
}

// SignOutEverywhere revokes every refresh token of uid and ends its live sessions.
func (s *Service) SignOutEverywhere(ctx context.Context, uid string) error {
	if err := s.tokens.RevokeAllUserTokens(ctx, uid); err != nil {
		return apperr.Upstream("identity.signout_all", err)
	}
	s.publish(ctx, hub.Event{Type: hub.EventSignedOut, UID: uid})
	return nil
}

// Verify checks an access token and returns the credential it encodes.
func (s *Service) Verify(accessToken string) (*Credential, error) {
	claims, err := s.jwt.ValidateAccessToken(accessToken)
	if err != nil {
		return nil, apperr.Unauthenticated("identity.verify", "invalid_token", "invalid or expired token")
	}
	cred := &Credential{
		UID:         claims.UID,
		Email:       claims.Email,
		AccessToken: accessToken,
		Claims:      ClaimSet{Admin: claims.Admin},
	}
	if claims.ExpiresAt != nil {
		cred.ExpiresAt = claims.ExpiresAt.Time
		cred.ExpiresIn = int64(time.Until(cred.ExpiresAt).Seconds())
	}
	return cred, nil
}

// Claims returns the claim set of cred; an absent credential has none.
func (s *Service) Claims(cred *Credential) ClaimSet {
	if cred == nil {
		return ClaimSet{}
	}
	return cred.Claims
}

// SendPasswordReset mails a single-use reset link. Unknown addresses are
// accepted without error so the endpoint does not reveal which emails exist.
func (s *Service) SendPasswordReset(ctx context.Context, email string) error {
	const op = "identity.password_reset"
	email = normalizeEmail(email)
	if err := validateEmail(op, email); err != nil {
		return err
	}

	var uid string
	err := s.db.Pool.QueryRow(ctx, `SELECT uid FROM credentials WHERE email = $1`, email).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		s.logger.Info("password reset requested for unknown email")
		return nil
	}
	if err != nil {
		return apperr.Upstream(op, err)
	}

	token, err := randomToken()
	if err != nil {
		return apperr.Upstream(op, err)
	}
	_, err = s.db.Pool.Exec(ctx, `
		INSERT INTO password_resets (token_hash, uid, expires_at)
		VALUES ($1, $2, $3)
	`, HashToken(token), uid, time.Now().Add(s.opts.ResetExpiry))
	if err != nil {
		return apperr.Upstream(op, err)
	}

	link := strings.TrimRight(s.opts.ResetURL, "/") + "/reset-password?token=" + url.QueryEscape(token)
	if s.mailer == nil {
		s.logger.Warn("no mailer configured, password reset link not sent", "uid", uid)
		return nil
	}
	if err := s.mailer.SendPasswordReset(email, link); err != nil {
		return apperr.Upstream(op, fmt.Errorf("send reset email: %w", err))
	}
	return nil
}

// ConfirmPasswordReset sets a new password, consumes the token and revokes
// every refresh token of the account.
func (s *Service) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	const op = "identity.password_reset_confirm"
	if err := s.validatePassword(op, newPassword); err != nil {
		return err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.opts.BcryptCost)
	if err != nil {
		return apperr.Validation(op, "weak_password", "password cannot be used")
	}

	tx, err := s.db.Pool.Begin(ctx)
	if err != nil {
		return apperr.Upstream(op, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var uid string
	err = tx.QueryRow(ctx, `
		DELETE FROM password_resets
		WHERE token_hash = $1 AND expires_at > NOW()
		RETURNING uid
	`, HashToken(token)).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return apperr.Validation(op, "invalid_reset_token", "reset link is invalid or has expired")
	}
	if err != nil {
		return apperr.Upstream(op, err)
	}

	if _, err := tx.Exec(ctx, `
		UPDATE credentials SET password_hash = $1, updated_at = NOW() WHERE uid = $2
	`, string(hash), uid); err != nil {
		return apperr.Upstream(op, err)
	}
	if _, err := tx.Exec(ctx, `DELETE FROM refresh_tokens WHERE uid = $1`, uid); err != nil {
		return apperr.Upstream(op, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperr.Upstream(op, err)
	}

	s.publish(ctx, hub.Event{Type: hub.EventSignedOut, UID: uid})
	return nil
}

// SetAdminClaim grants or revokes the admin claim of the account with email.
// Live credentials keep their old claim set until they are refreshed.
func (s *Service) SetAdminClaim(ctx context.Context, email string, admin bool) (string, error) {
	const op = "identity.set_admin_claim"
	var uid string
	err := s.db.Pool.QueryRow(ctx, `
		UPDATE credentials SET admin = $1, updated_at = NOW()
		WHERE email = $2
		RETURNING uid
	`, admin, normalizeEmail(email)).Scan(&uid)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound(op, "no account with this email")
	}
	if err != nil {
		return "", apperr.Upstream(op, err)
	}
	return uid, nil
}

// DeleteAccount removes the account of uid with its refresh tokens and
// pending resets, and ends its live sessions. Deleting an unknown uid is not
// an error.
func (s *Service) DeleteAccount(ctx context.Context, uid string) error {
	if _, err := s.db.Pool.Exec(ctx, `DELETE FROM credentials WHERE uid = $1`, uid); err != nil {
		return apperr.Upstream("identity.delete_account", err)
	}
	s.publish(ctx, hub.Event{Type: hub.EventSignedOut, UID: uid})
	return nil
}

// NotifyRecordChanged tells the live sessions of uid to re-read its directory record.
func (s *Service) NotifyRecordChanged(ctx context.Context, uid string) {
	s.publish(ctx, hub.Event{Type: hub.EventRecordChanged, UID: uid})
}

func (s *Service) publish(ctx context.Context, event hub.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.Error("failed to publish credential event", "type", event.Type, "uid", event.UID, "error", err)
	}
}

func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
