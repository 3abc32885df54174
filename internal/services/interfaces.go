package services

import (
	"context"

	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/models"
)

// UserDirectory is the users collection of the Directory Store.
type UserDirectory interface {
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
	Create(ctx context.Context, rec *models.UserRecord) error
	SetApproved(ctx context.Context, uid string, approved bool) error
	Delete(ctx context.Context, uid string) error
	List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error)
}

// CourseDirectory is the courses collection of the Directory Store.
type CourseDirectory interface {
	Get(ctx context.Context, id string) (*models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
	Create(ctx context.Context, course *models.Course) (string, error)
	Update(ctx context.Context, id string, fields map[string]any) error
}

// IdentityProvider is the part of the identity service the workflows drive.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password string) (*identity.Credential, error)
	SignIn(ctx context.Context, email, password string) (*identity.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Credential, error)
	SignOut(ctx context.Context, refreshToken string) error
	SignOutEverywhere(ctx context.Context, uid string) error
	DeleteAccount(ctx context.Context, uid string) error
	NotifyRecordChanged(ctx context.Context, uid string)
}
