package middleware

import (
	"context"
	"strings"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/obs"
	"github.com/dimitrije/medportal-api/internal/policy"
	"github.com/dimitrije/medportal-api/internal/session"
	"github.com/m1z23r/drift/pkg/drift"
)

const (
	SubjectKey    = "subject"
	PrincipalKey  = "principal"
	CredentialKey = "credential"
)

type CredentialVerifier interface {
	Verify(accessToken string) (*identity.Credential, error)
}

type SubjectResolver interface {
	Subject(ctx context.Context, cred *identity.Credential) (policy.Subject, *session.Principal, error)
}

// Auth requires a bearer access token and stores the request's subject,
// principal and credential in the context.
func Auth(verifier CredentialVerifier, subjects SubjectResolver) drift.HandlerFunc {
	return authenticate(verifier, subjects, true)
}

// OptionalAuth is Auth for routes that also serve anonymous requests. A
// present but invalid token is still rejected.
func OptionalAuth(verifier CredentialVerifier, subjects SubjectResolver) drift.HandlerFunc {
	return authenticate(verifier, subjects, false)
}

func authenticate(verifier CredentialVerifier, subjects SubjectResolver, required bool) drift.HandlerFunc {
	return func(c *drift.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			if required {
				RespondError(c, apperr.Unauthenticated("auth", "missing_token", "missing authorization header"))
				return
			}
			c.Set(SubjectKey, policy.Subject{})
			c.Next()
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" || parts[1] == "" {
			RespondError(c, apperr.Unauthenticated("auth", "invalid_header", "invalid authorization header format"))
			return
		}

		cred, err := verifier.Verify(parts[1])
		if err != nil {
			RespondError(c, err)
			return
		}

		subject, principal, err := subjects.Subject(c.Request.Context(), cred)
		if err != nil {
			RespondError(c, err)
			return
		}

		c.Set(SubjectKey, subject)
		c.Set(CredentialKey, cred)
		if principal != nil {
			c.Set(PrincipalKey, principal)
		}
		c.Next()
	}
}

// Require lets the request through only when policy allows action for the
// subject Auth stored.
func Require(action policy.Action) drift.HandlerFunc {
	return func(c *drift.Context) {
		decision := policy.Decide(action, GetSubject(c))
		obs.ObserveDecision(string(decision.Action), string(decision.Reason))
		if !decision.Allowed {
			RespondError(c, decision.Err())
			return
		}
		c.Next()
	}
}

func GetSubject(c *drift.Context) policy.Subject {
	if v, ok := c.Get(SubjectKey); ok {
		if s, ok := v.(policy.Subject); ok {
			return s
		}
	}
	return policy.Subject{}
}

// GetPrincipal returns the principal of the request, or nil when the
// credential has no users record.
func GetPrincipal(c *drift.Context) *session.Principal {
	if v, ok := c.Get(PrincipalKey); ok {
		if p, ok := v.(*session.Principal); ok {
			return p
		}
	}
	return nil
}

func GetCredential(c *drift.Context) *identity.Credential {
	if v, ok := c.Get(CredentialKey); ok {
		if cred, ok := v.(*identity.Credential); ok {
			return cred
		}
	}
	return nil
}

func GetUserID(c *drift.Context) string {
	if cred := GetCredential(c); cred != nil {
		return cred.UID
	}
	return ""
}
