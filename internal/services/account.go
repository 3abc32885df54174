package services

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/models"
)

// AccountService runs registration and the approval-gated sign-in.
type AccountService struct {
	idp    IdentityProvider
	users  UserDirectory
	logger *slog.Logger
	now    func() time.Time
}

func NewAccountService(idp IdentityProvider, users UserDirectory, logger *slog.Logger) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AccountService{idp: idp, users: users, logger: logger, now: time.Now}
}

// Register creates the account and its users record with approved=false.
// The account is left signed out until an administrator approves it. If the
// record cannot be written the account is deleted again.
func (s *AccountService) Register(ctx context.Context, reg models.Registration) (*models.UserRecord, error) {
	const op = "accounts.register"
	reg.FirstName = strings.TrimSpace(reg.FirstName)
	reg.LastName = strings.TrimSpace(reg.LastName)
	if reg.FirstName == "" || reg.LastName == "" {
		return nil, apperr.Validation(op, "missing_name", "first and last name are required")
	}
	if !reg.AcceptTerms {
		return nil, apperr.Validation(op, "terms_not_accepted", "the terms and privacy policy must be accepted")
	}

	cred, err := s.idp.SignUp(ctx, reg.Email, reg.Password)
	if err != nil {
		return nil, err
	}

	rec := &models.UserRecord{
		UID:       cred.UID,
		Email:     cred.Email,
		Approved:  false,
		CreatedAt: s.now().UTC(),
		Profile:   reg.Profile,
	}
	if err := s.users.Create(ctx, rec); err != nil {
		s.logger.Error("failed to create users record", "uid", cred.UID, "error", err)
		// drop the account so the email can register again
		if derr := s.idp.DeleteAccount(context.WithoutCancel(ctx), cred.UID); derr != nil {
			s.logger.Error("failed to delete account without record", "uid", cred.UID, "error", derr)
			s.signOut(ctx, cred)
		}
		return nil, err
	}

	s.signOut(ctx, cred)
	return rec, nil
}

// SignIn authenticates and then requires an approved users record. A missing
// or unapproved record fails with PendingApproval, never with a credential error.
func (s *AccountService) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	const op = "accounts.signin"
	cred, err := s.idp.SignIn(ctx, email, password)
	if err != nil {
		return nil, err
	}

	if err := s.requireApproved(ctx, op, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// Refresh rotates the refresh token under the same approval rule as SignIn,
// so a revoked account cannot keep its session alive.
func (s *AccountService) Refresh(ctx context.Context, refreshToken string) (*identity.Credential, error) {
	const op = "accounts.refresh"
	cred, err := s.idp.Refresh(ctx, refreshToken)
	if err != nil {
		return nil, err
	}
	if err := s.requireApproved(ctx, op, cred); err != nil {
		return nil, err
	}
	return cred, nil
}

// requireApproved signs cred out unless its users record is approved.
func (s *AccountService) requireApproved(ctx context.Context, op string, cred *identity.Credential) error {
	rec, err := s.users.Get(ctx, cred.UID)
	if errors.Is(err, apperr.ErrNotFound) {
		s.signOut(ctx, cred)
		return apperr.PendingApproval(op)
	}
	if err != nil {
		s.signOut(ctx, cred)
		return err
	}
	if !rec.Approved {
		s.signOut(ctx, cred)
		return apperr.PendingApproval(op)
	}
	return nil
}

func (s *AccountService) signOut(ctx context.Context, cred *identity.Credential) {
	if cred.RefreshToken == "" {
		return
	}
	if err := s.idp.SignOut(context.WithoutCancel(ctx), cred.RefreshToken); err != nil {
		s.logger.Warn("failed to revoke refresh token", "uid", cred.UID, "error", err)
	}
}
