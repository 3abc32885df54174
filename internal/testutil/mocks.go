package testutil

import (
	"context"

	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/stretchr/testify/mock"
)

// MockUserDirectory mocks the users collection
type MockUserDirectory struct {
	mock.Mock
}

func (m *MockUserDirectory) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockUserDirectory) Create(ctx context.Context, rec *models.UserRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func (m *MockUserDirectory) SetApproved(ctx context.Context, uid string, approved bool) error {
	args := m.Called(ctx, uid, approved)
	return args.Error(0)
}

func (m *MockUserDirectory) Delete(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockUserDirectory) List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserRecord), args.Error(1)
}

// MockCourseDirectory mocks the courses collection
type MockCourseDirectory struct {
	mock.Mock
}

func (m *MockCourseDirectory) Get(ctx context.Context, id string) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseDirectory) List(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockCourseDirectory) Create(ctx context.Context, course *models.Course) (string, error) {
	args := m.Called(ctx, course)
	return args.String(0), args.Error(1)
}

func (m *MockCourseDirectory) Update(ctx context.Context, id string, fields map[string]any) error {
	args := m.Called(ctx, id, fields)
	return args.Error(0)
}

// MockBlobStore mocks the attachment store. URLs are rendered under
// https://files.test/ so they round trip through RefFromURL.
type MockBlobStore struct {
	mock.Mock
}

const mockBlobBase = "https://files.test/"

func (m *MockBlobStore) Upload(ctx context.Context, ref blob.ObjectRef, contentType string, data []byte) (blob.ObjectRef, error) {
	args := m.Called(ctx, ref, contentType, data)
	return args.Get(0).(blob.ObjectRef), args.Error(1)
}

func (m *MockBlobStore) Open(ctx context.Context, ref blob.ObjectRef) (*blob.Object, error) {
	args := m.Called(ctx, ref)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*blob.Object), args.Error(1)
}

func (m *MockBlobStore) Delete(ctx context.Context, ref blob.ObjectRef) error {
	args := m.Called(ctx, ref)
	return args.Error(0)
}

func (m *MockBlobStore) PublicURL(ref blob.ObjectRef) string {
	return mockBlobBase + string(ref)
}

func (m *MockBlobStore) RefFromURL(raw string) (blob.ObjectRef, error) {
	args := m.Called(raw)
	return args.Get(0).(blob.ObjectRef), args.Error(1)
}

// BlobURL is the URL MockBlobStore renders for ref.
func BlobURL(ref blob.ObjectRef) string {
	return mockBlobBase + string(ref)
}

// MockIdentityProvider mocks the identity service
type MockIdentityProvider struct {
	mock.Mock
}

func (m *MockIdentityProvider) SignUp(ctx context.Context, email, password string) (*identity.Credential, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

func (m *MockIdentityProvider) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

func (m *MockIdentityProvider) Refresh(ctx context.Context, refreshToken string) (*identity.Credential, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

func (m *MockIdentityProvider) SignOut(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockIdentityProvider) SignOutEverywhere(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockIdentityProvider) DeleteAccount(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockIdentityProvider) NotifyRecordChanged(ctx context.Context, uid string) {
	m.Called(ctx, uid)
}

// MockAccountService mocks the registration and sign-in workflows
type MockAccountService struct {
	mock.Mock
}

func (m *MockAccountService) Register(ctx context.Context, reg models.Registration) (*models.UserRecord, error) {
	args := m.Called(ctx, reg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockAccountService) SignIn(ctx context.Context, email, password string) (*identity.Credential, error) {
	args := m.Called(ctx, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

func (m *MockAccountService) Refresh(ctx context.Context, refreshToken string) (*identity.Credential, error) {
	args := m.Called(ctx, refreshToken)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*identity.Credential), args.Error(1)
}

// MockIdentityService mocks the sign-out and password reset operations
type MockIdentityService struct {
	mock.Mock
}

func (m *MockIdentityService) SignOut(ctx context.Context, refreshToken string) error {
	args := m.Called(ctx, refreshToken)
	return args.Error(0)
}

func (m *MockIdentityService) SignOutEverywhere(ctx context.Context, uid string) error {
	args := m.Called(ctx, uid)
	return args.Error(0)
}

func (m *MockIdentityService) SendPasswordReset(ctx context.Context, email string) error {
	args := m.Called(ctx, email)
	return args.Error(0)
}

func (m *MockIdentityService) ConfirmPasswordReset(ctx context.Context, token, newPassword string) error {
	args := m.Called(ctx, token, newPassword)
	return args.Error(0)
}

// MockUserAdminService mocks the administrator's user operations
type MockUserAdminService struct {
	mock.Mock
}

func (m *MockUserAdminService) List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.UserRecord), args.Error(1)
}

func (m *MockUserAdminService) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	args := m.Called(ctx, uid)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockUserAdminService) SetApproval(ctx context.Context, actorUID, uid string, approved bool) (*models.UserRecord, error) {
	args := m.Called(ctx, actorUID, uid, approved)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserRecord), args.Error(1)
}

func (m *MockUserAdminService) Delete(ctx context.Context, actorUID, uid string) error {
	args := m.Called(ctx, actorUID, uid)
	return args.Error(0)
}

// MockCourseService mocks the course workflows
type MockCourseService struct {
	mock.Mock
}

func (m *MockCourseService) List(ctx context.Context) ([]models.Course, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Course), args.Error(1)
}

func (m *MockCourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseService) Create(ctx context.Context, draft models.CourseDraft) (*models.Course, error) {
	args := m.Called(ctx, draft)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseService) Update(ctx context.Context, id string, edit models.CourseEdit) (*models.Course, error) {
	args := m.Called(ctx, id, edit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}

func (m *MockCourseService) RemoveAttachment(ctx context.Context, id, url string) (*models.Course, error) {
	args := m.Called(ctx, id, url)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Course), args.Error(1)
}
