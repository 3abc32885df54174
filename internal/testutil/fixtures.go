package testutil

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/models"
)

var counter atomic.Int64

// UserOption configures a test users record
type UserOption func(*models.UserRecord)

// NewUserRecord returns an unapproved users record with a filled profile
func NewUserRecord(uid string, opts ...UserOption) *models.UserRecord {
	n := counter.Add(1)
	rec := &models.UserRecord{
		UID:       uid,
		Email:     fmt.Sprintf("user%d@example.com", n),
		CreatedAt: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Profile: models.Profile{
			FirstName:      "Ana",
			LastName:       fmt.Sprintf("Pérez %d", n),
			DocumentType:   "CC",
			DocumentNumber: fmt.Sprintf("10%06d", n),
			Specialty:      "Medicina general",
		},
	}
	for _, opt := range opts {
		opt(rec)
	}
	return rec
}

// Approved marks the record approved
func Approved() UserOption {
	return func(r *models.UserRecord) {
		r.Approved = true
	}
}

// WithEmail sets the record's email
func WithEmail(email string) UserOption {
	return func(r *models.UserRecord) {
		r.Email = email
	}
}

// WithDocumentNumber sets the record's document number
func WithDocumentNumber(doc string) UserOption {
	return func(r *models.UserRecord) {
		r.DocumentNumber = doc
	}
}

// NewCredential returns a credential for uid valid for an hour
func NewCredential(uid string, admin bool) *identity.Credential {
	return &identity.Credential{
		UID:          uid,
		Email:        uid + "@example.com",
		AccessToken:  "access-" + uid,
		RefreshToken: "refresh-" + uid,
		ExpiresIn:    3600,
		ExpiresAt:    time.Now().Add(time.Hour),
		Claims:       identity.ClaimSet{Admin: admin},
	}
}

// NewCourse returns a course with the given materials
func NewCourse(id, title string, materials ...string) *models.Course {
	return &models.Course{
		ID:          id,
		Title:       title,
		Description: "Descripción de " + title,
		Videos:      []string{"https://video.example.com/" + id},
		Materials:   materials,
		CreatedAt:   time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}
