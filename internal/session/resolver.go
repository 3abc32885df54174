package session

import (
	"context"
	"errors"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/obs"
	"github.com/dimitrije/medportal-api/internal/policy"
)

type UserGetter interface {
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
}

// Resolver joins a credential with its users record.
type Resolver struct {
	users UserGetter
}

func NewResolver(users UserGetter) *Resolver {
	return &Resolver{users: users}
}

// Resolve returns the principal for cred, or nil when there is no
// credential, the record is absent or unapproved, or the fetch failed. A
// failed fetch is also returned as an error so callers can log it.
func (r *Resolver) Resolve(ctx context.Context, cred *identity.Credential) (*Principal, error) {
	if cred == nil {
		obs.ObserveResolution(obs.OutcomeAnonymous)
		return nil, nil
	}

	rec, err := r.users.Get(ctx, cred.UID)
	if errors.Is(err, apperr.ErrNotFound) {
		obs.ObserveResolution(obs.OutcomeAbsent)
		return nil, nil
	}
	if err != nil {
		obs.ObserveResolution(obs.OutcomeFailed)
		return nil, upstream("session.resolve", err)
	}
	if !rec.Approved {
		obs.ObserveResolution(obs.OutcomePending)
		return nil, nil
	}

	obs.ObserveResolution(obs.OutcomePrincipal)
	return newPrincipal(cred, rec), nil
}

// Subject builds the policy input for one request. Approved and IsAdmin are
// reported independently: an admin claim on an unapproved record still
// grants management actions. The returned principal is nil when the record
// is absent, and carries Approved=false for a pending user.
func (r *Resolver) Subject(ctx context.Context, cred *identity.Credential) (policy.Subject, *Principal, error) {
	if cred == nil {
		return policy.Subject{}, nil, nil
	}

	rec, err := r.users.Get(ctx, cred.UID)
	if errors.Is(err, apperr.ErrNotFound) {
		// deleted or never registered: the credential is orphaned
		return policy.Subject{}, nil, nil
	}
	if err != nil {
		return policy.Subject{}, nil, upstream("session.subject", err)
	}

	subject := policy.Subject{
		Authenticated: true,
		Approved:      rec.Approved,
		IsAdmin:       cred.Claims.Admin,
	}
	return subject, newPrincipal(cred, rec), nil
}

// upstream tags a bare directory error so it maps to a 503.
func upstream(op string, err error) error {
	var e *apperr.Error
	if errors.As(err, &e) {
		return err
	}
	return apperr.Upstream(op, err)
}

func newPrincipal(cred *identity.Credential, rec *models.UserRecord) *Principal {
	email := cred.Email
	if email == "" {
		email = rec.Email
	}
	return &Principal{
		UID:       cred.UID,
		Email:     email,
		IsAdmin:   cred.Claims.Admin,
		Approved:  rec.Approved,
		CreatedAt: rec.CreatedAt,
		Profile:   rec.Profile,
	}
}
