package handlers

import (
	"context"

	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/session"
)

// AccountServiceInterface defines the methods used by handlers from AccountService
type AccountServiceInterface interface {
	Register(ctx context.Context, reg models.Registration) (*models.UserRecord, error)
	SignIn(ctx context.Context, email, password string) (*identity.Credential, error)
	Refresh(ctx context.Context, refreshToken string) (*identity.Credential, error)
}

// IdentityServiceInterface defines the methods used by handlers from the identity service
type IdentityServiceInterface interface {
	SignOut(ctx context.Context, refreshToken string) error
	SignOutEverywhere(ctx context.Context, uid string) error
	SendPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, token, newPassword string) error
}

// SessionResolver resolves principals for the materializer and subjects for
// the standing of a session without one.
type SessionResolver interface {
	session.PrincipalResolver
	middleware.SubjectResolver
}

// CredentialWatcher streams credential changes for one client
type CredentialWatcher interface {
	Subscribe(ctx context.Context, initial *identity.Credential, onChange func(*identity.Credential)) func()
}

// UserAdminServiceInterface defines the methods used by handlers from UserAdminService
type UserAdminServiceInterface interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error)
	Get(ctx context.Context, uid string) (*models.UserRecord, error)
	SetApproval(ctx context.Context, actorUID, uid string, approved bool) (*models.UserRecord, error)
	Delete(ctx context.Context, actorUID, uid string) error
}

// CourseServiceInterface defines the methods used by handlers from CourseService
type CourseServiceInterface interface {
	List(ctx context.Context) ([]models.Course, error)
	Get(ctx context.Context, id string) (*models.Course, error)
	Create(ctx context.Context, draft models.CourseDraft) (*models.Course, error)
	Update(ctx context.Context, id string, edit models.CourseEdit) (*models.Course, error)
	RemoveAttachment(ctx context.Context, id, url string) (*models.Course, error)
}

// BlobReader opens stored attachments
type BlobReader interface {
	Open(ctx context.Context, ref blob.ObjectRef) (*blob.Object, error)
}
