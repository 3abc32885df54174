package directory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/database"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T) (*PGStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	db := &database.DB{Pool: mock}
	return NewPGStore(db), mock
}

var docColumns = []string{"id", "data", "created_at", "updated_at"}

func TestPGStore_Get_Success(t *testing.T) {
	store, mock := setupStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT id, data, created_at, updated_at FROM documents WHERE collection = \$1 AND id = \$2`).
		WithArgs("users", "uid-1").
		WillReturnRows(pgxmock.NewRows(docColumns).AddRow("uid-1", []byte(`{"approved":true}`), now, now))

	doc, err := store.Get(context.Background(), "users", "uid-1")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", doc.ID)
	assert.Equal(t, "users", doc.Collection)
	assert.JSONEq(t, `{"approved":true}`, string(doc.Data))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Get_NotFound(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("users", "missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := store.Get(context.Background(), "users", "missing")

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Get_Upstream(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("users", "uid-1").
		WillReturnError(errors.New("connection reset"))

	_, err := store.Get(context.Background(), "users", "uid-1")

	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
}

func TestPGStore_List(t *testing.T) {
	store, mock := setupStore(t)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM documents WHERE collection = \$1 ORDER BY created_at DESC`).
		WithArgs("courses").
		WillReturnRows(pgxmock.NewRows(docColumns).
			AddRow("c2", []byte(`{"title":"B"}`), now, now).
			AddRow("c1", []byte(`{"title":"A"}`), now.Add(-time.Hour), now))

	docs, err := store.List(context.Background(), "courses")

	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "c2", docs[0].ID)
	assert.Equal(t, "c1", docs[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Set(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`INSERT INTO documents .+ ON CONFLICT \(collection, id\) DO UPDATE`).
		WithArgs("users", "uid-1", []byte(`{"approved":false}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := store.Set(context.Background(), "users", "uid-1", map[string]any{"approved": false})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Create_AssignsID(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`INSERT INTO documents`).
		WithArgs("courses", pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	id, err := store.Create(context.Background(), "courses", map[string]any{"title": "Sesion 8"})

	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Update_Merges(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE documents SET data = data \|\| \$3::jsonb`).
		WithArgs("users", "uid-1", []byte(`{"approved":true}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := store.Update(context.Background(), "users", "uid-1", map[string]any{"approved": true})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStore_Update_NotFound(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("users", "gone", pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := store.Update(context.Background(), "users", "gone", map[string]any{"approved": true})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestPGStore_Update_Upstream(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("courses", "c1", pgxmock.AnyArg()).
		WillReturnError(errors.New("deadline exceeded"))

	err := store.Update(context.Background(), "courses", "c1", map[string]any{"title": "x"})

	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
}

func TestPGStore_Delete(t *testing.T) {
	store, mock := setupStore(t)

	mock.ExpectExec(`DELETE FROM documents WHERE collection = \$1 AND id = \$2`).
		WithArgs("users", "uid-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))
	mock.ExpectExec(`DELETE FROM documents`).
		WithArgs("users", "uid-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, store.Delete(context.Background(), "users", "uid-1"))
	assert.ErrorIs(t, store.Delete(context.Background(), "users", "uid-1"), apperr.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_GetIgnoresForgedFields(t *testing.T) {
	store, mock := setupStore(t)
	users := NewUsers(store)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("users", "uid-1").
		WillReturnRows(pgxmock.NewRows(docColumns).AddRow(
			"uid-1",
			[]byte(`{"email":"a@x.com","approved":false,"role":"admin","isAdmin":true,"firstName":"Ana"}`),
			now, now,
		))

	rec, err := users.Get(context.Background(), "uid-1")

	require.NoError(t, err)
	assert.Equal(t, "uid-1", rec.UID)
	assert.False(t, rec.Approved)
	assert.Equal(t, "admin", rec.Role)
	assert.Equal(t, "Ana", rec.FirstName)
	assert.Equal(t, now, rec.CreatedAt)
}

func TestUsers_SetApproved(t *testing.T) {
	store, mock := setupStore(t)
	users := NewUsers(store)

	mock.ExpectExec(`UPDATE documents`).
		WithArgs("users", "uid-1", []byte(`{"approved":true}`)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, users.SetApproved(context.Background(), "uid-1", true))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUsers_ListFilters(t *testing.T) {
	store, mock := setupStore(t)
	users := NewUsers(store)
	jan := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	mar := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)

	rows := func() *pgxmock.Rows {
		return pgxmock.NewRows(docColumns).
			AddRow("u1", []byte(`{"approved":true,"documentNumber":"CC-1001","createdAt":"2025-01-10T00:00:00Z"}`), jan, jan).
			AddRow("u2", []byte(`{"approved":false,"documentNumber":"CC-2002","createdAt":"2025-03-10T00:00:00Z"}`), mar, mar)
	}

	mock.ExpectQuery(`SELECT .+ FROM documents`).WithArgs("users").WillReturnRows(rows())
	got, err := users.List(context.Background(), models.UserFilter{Approval: models.ApprovalUnapproved})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].UID)

	mock.ExpectQuery(`SELECT .+ FROM documents`).WithArgs("users").WillReturnRows(rows())
	got, err = users.List(context.Background(), models.UserFilter{DocumentNumber: "cc-100"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UID)

	from := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(`SELECT .+ FROM documents`).WithArgs("users").WillReturnRows(rows())
	got, err = users.List(context.Background(), models.UserFilter{CreatedFrom: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u2", got[0].UID)

	mock.ExpectQuery(`SELECT .+ FROM documents`).WithArgs("users").WillReturnRows(rows())
	got, err = users.List(context.Background(), models.UserFilter{Approval: models.ApprovalAll, CreatedTo: &from})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "u1", got[0].UID)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCourses_ListNewestFirst(t *testing.T) {
	store, mock := setupStore(t)
	courses := NewCourses(store)
	older := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("courses").
		WillReturnRows(pgxmock.NewRows(docColumns).
			AddRow("old", []byte(`{"title":"Old","createdAt":"2025-01-01T00:00:00Z"}`), older, older).
			AddRow("new", []byte(`{"title":"New","videos":["https://v/1"],"createdAt":"2025-06-01T00:00:00Z"}`), newer, newer))

	got, err := courses.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "new", got[0].ID)
	assert.Equal(t, []string{"https://v/1"}, got[0].Videos)
	assert.Equal(t, []string{}, got[1].Videos)
	assert.Equal(t, []string{}, got[1].Materials)
}

func TestCourses_GetDecodeFailure(t *testing.T) {
	store, mock := setupStore(t)
	courses := NewCourses(store)
	now := time.Now()

	mock.ExpectQuery(`SELECT .+ FROM documents`).
		WithArgs("courses", "c1").
		WillReturnRows(pgxmock.NewRows(docColumns).AddRow("c1", []byte(`{"videos":"not-a-list"}`), now, now))

	_, err := courses.Get(context.Background(), "c1")

	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
}
