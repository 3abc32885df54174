package directory

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/models"
)

// Users is the typed view of the users collection, keyed by uid.
type Users struct {
	store Store
}

func NewUsers(store Store) *Users {
	return &Users{store: store}
}

func (u *Users) Get(ctx context.Context, uid string) (*models.UserRecord, error) {
	doc, err := u.store.Get(ctx, CollectionUsers, uid)
	if err != nil {
		return nil, err
	}
	return decodeUser(doc)
}

func (u *Users) Create(ctx context.Context, rec *models.UserRecord) error {
	return u.store.Set(ctx, CollectionUsers, rec.UID, rec)
}

func (u *Users) SetApproved(ctx context.Context, uid string, approved bool) error {
	return u.store.Update(ctx, CollectionUsers, uid, map[string]any{"approved": approved})
}

func (u *Users) Delete(ctx context.Context, uid string) error {
	return u.store.Delete(ctx, CollectionUsers, uid)
}

func (u *Users) List(ctx context.Context, filter models.UserFilter) ([]models.UserRecord, error) {
	docs, err := u.store.List(ctx, CollectionUsers)
	if err != nil {
		return nil, err
	}

	users := make([]models.UserRecord, 0, len(docs))
	for i := range docs {
		rec, err := decodeUser(&docs[i])
		if err != nil {
			return nil, err
		}
		if matchesFilter(rec, filter) {
			users = append(users, *rec)
		}
	}
	return users, nil
}

func matchesFilter(rec *models.UserRecord, f models.UserFilter) bool {
	switch f.Approval {
	case models.ApprovalApproved:
		if !rec.Approved {
			return false
		}
	case models.ApprovalUnapproved:
		if rec.Approved {
			return false
		}
	}

	if f.DocumentNumber != "" &&
		!strings.Contains(strings.ToLower(rec.DocumentNumber), strings.ToLower(f.DocumentNumber)) {
		return false
	}

	if f.CreatedFrom != nil && (rec.CreatedAt.IsZero() || rec.CreatedAt.Before(*f.CreatedFrom)) {
		return false
	}
	if f.CreatedTo != nil && (rec.CreatedAt.IsZero() || rec.CreatedAt.After(*f.CreatedTo)) {
		return false
	}
	return true
}

func decodeUser(doc *Document) (*models.UserRecord, error) {
	var rec models.UserRecord
	if err := json.Unmarshal(doc.Data, &rec); err != nil {
		return nil, apperr.Upstream("directory.users.decode", err)
	}
	rec.UID = doc.ID
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = doc.CreatedAt
	}
	return &rec, nil
}
