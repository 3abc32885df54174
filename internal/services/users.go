package services

import (
	"context"
	"log/slog"

	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/policy"
)

// UserAdminService is the administrator's view of the users collection.
type UserAdminService struct {
	users  UserDirectory
	idp    IdentityProvider
	logger *slog.Logger
}

func NewUserAdminService(users UserDirectory, idp IdentityProvider, logger *slog.Logger) *UserAdminService {
	if logger == nil {
		logger = slog.Default()
	}
	return &UserAdminService{users: users, idp: idp, logger: logger}
}

func (s *UserAdminService) List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error) {
	return s.users.List(ctx, filter)
}

func (s *UserAdminService) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	return s.users.Get(ctx, uid)
}

// SetApproval approves or revokes uid on behalf of actorUID. Setting the
// state the record already has changes nothing.
func (s *UserAdminService) SetApproval(ctx context.Context, actorUID, uid string, approved bool) (*models.UserRecord, error) {
	op := policy.OpRevoke
	if approved {
		op = policy.OpApprove
	}
	if err := policy.CheckActor(actorUID, uid, op); err != nil {
		return nil, err
	}

	rec, err := s.users.Get(ctx, uid)
	if err != nil {
		return nil, err
	}
	from := policy.StateOf(rec.Approved)
	to, err := policy.Transition(from, op)
	if err != nil {
		return nil, err
	}
	if to == from {
		return rec, nil
	}

	if err := s.users.SetApproved(ctx, uid, approved); err != nil {
		return nil, err
	}
	rec.Approved = approved
	s.logger.Info("user approval changed", "uid", uid, "approved", approved, "actor", actorUID)
	s.idp.NotifyRecordChanged(ctx, uid)
	return rec, nil
}

// Delete removes the users record of uid and revokes its refresh tokens.
// The account itself remains and signs in as pending approval.
func (s *UserAdminService) Delete(ctx context.Context, actorUID, uid string) error {
	if err := policy.CheckActor(actorUID, uid, policy.OpDelete); err != nil {
		return err
	}

	rec, err := s.users.Get(ctx, uid)
	if err != nil {
		return err
	}
	if _, err := policy.Transition(policy.StateOf(rec.Approved), policy.OpDelete); err != nil {
		return err
	}

	if err := s.users.Delete(ctx, uid); err != nil {
		return err
	}
	s.logger.Info("user record deleted", "uid", uid, "actor", actorUID)

	if err := s.idp.SignOutEverywhere(ctx, uid); err != nil {
		s.logger.Warn("failed to revoke tokens of deleted user", "uid", uid, "error", err)
	}
	s.idp.NotifyRecordChanged(ctx, uid)
	return nil
}
