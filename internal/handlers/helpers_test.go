package handlers

import (
	"testing"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/session"
	"github.com/dimitrije/medportal-api/internal/testutil"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/stretchr/testify/mock"
)

// testEnv authenticates requests against a mocked users collection.
type testEnv struct {
	users    *testutil.MockUserDirectory
	verifier *identity.Service
	resolver *session.Resolver
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	users := new(testutil.MockUserDirectory)
	return &testEnv{
		users:    users,
		verifier: identity.NewService(nil, testutil.TestJWTService(), nil, nil, nil, identity.Options{}, nil),
		resolver: session.NewResolver(users),
	}
}

func (e *testEnv) auth() drift.HandlerFunc {
	return middleware.Auth(e.verifier, e.resolver)
}

// as returns headers for uid, whose users record has the given approval.
func (e *testEnv) as(t *testing.T, uid string, approved, admin bool) map[string]string {
	t.Helper()
	rec := testutil.NewUserRecord(uid, testutil.WithEmail(uid+"@example.com"))
	rec.Approved = approved
	e.users.On("Get", mock.Anything, uid).Return(rec, nil)
	return map[string]string{"Authorization": testutil.AuthHeader(testutil.GenerateTestToken(t, uid, uid+"@example.com", admin))}
}

// orphan returns headers for a credential whose users record is gone.
func (e *testEnv) orphan(t *testing.T, uid string, admin bool) map[string]string {
	t.Helper()
	e.users.On("Get", mock.Anything, uid).Return(nil, apperr.NotFound("directory.get", "document not found"))
	return map[string]string{"Authorization": testutil.AuthHeader(testutil.GenerateTestToken(t, uid, uid+"@example.com", admin))}
}
