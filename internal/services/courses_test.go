package services

import (
	"context"
	"errors"
	"testing"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupCourseService(t *testing.T) (*CourseService, *testutil.MockCourseDirectory, *testutil.MockBlobStore) {
	t.Helper()
	courses := new(testutil.MockCourseDirectory)
	blobs := new(testutil.MockBlobStore)
	t.Cleanup(func() {
		courses.AssertExpectations(t)
		blobs.AssertExpectations(t)
	})
	return NewCourseService(courses, blobs, 1<<20, nil), courses, blobs
}

func pdf(name string) models.Attachment {
	return models.Attachment{Name: name, ContentType: "application/pdf", Data: []byte("%PDF-1.4 " + name)}
}

func TestCourseService_Create(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/guia.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("sesión8/guia.pdf"), nil)
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/notas.txt"), "text/plain; charset=utf-8", mock.Anything).Return(blob.ObjectRef("sesión8/notas.txt"), nil)
	courses.On("Create", ctx, mock.MatchedBy(func(c *models.Course) bool {
		return c.Title == "Sesión 8" && len(c.Materials) == 2 && len(c.Videos) == 1
	})).Return("course-1", nil)

	course, err := svc.Create(ctx, models.CourseDraft{
		Title:       "  Sesión 8 ",
		Description: " Cardiología básica ",
		Videos:      []string{" https://video.example.com/1 ", "", "   "},
		Attachments: []models.Attachment{
			pdf("guia.pdf"),
			{Name: "notas.txt", Data: []byte("plain notes")},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, "course-1", course.ID)
	assert.Equal(t, "Cardiología básica", course.Description)
	assert.Equal(t, []string{"https://video.example.com/1"}, course.Videos)
	assert.Equal(t, []string{
		testutil.BlobURL("sesión8/guia.pdf"),
		testutil.BlobURL("sesión8/notas.txt"),
	}, course.Materials)
}

func TestCourseService_Create_MissingFields(t *testing.T) {
	svc, courses, _ := setupCourseService(t)

	_, err := svc.Create(context.Background(), models.CourseDraft{Title: "  ", Description: "x"})

	assert.Equal(t, "missing_fields", apperr.CodeOf(err))
	courses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCourseService_Create_RejectsBadFileNameBeforeUploading(t *testing.T) {
	svc, _, blobs := setupCourseService(t)

	_, err := svc.Create(context.Background(), models.CourseDraft{
		Title:       "Sesión 8",
		Description: "x",
		Attachments: []models.Attachment{pdf("ok.pdf"), pdf("../etc/passwd")},
	})

	assert.ErrorIs(t, err, apperr.ErrValidationFailure)
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCourseService_Create_RejectsOversizedAttachment(t *testing.T) {
	svc, _, _ := setupCourseService(t)
	big := models.Attachment{Name: "big.pdf", Data: make([]byte, 1<<20+1)}

	_, err := svc.Create(context.Background(), models.CourseDraft{Title: "a", Description: "b", Attachments: []models.Attachment{big}})

	assert.Equal(t, "attachment_too_large", apperr.CodeOf(err))
}

func TestCourseService_Create_RejectsDuplicateNames(t *testing.T) {
	svc, _, _ := setupCourseService(t)

	_, err := svc.Create(context.Background(), models.CourseDraft{
		Title: "a", Description: "b",
		Attachments: []models.Attachment{pdf("x.pdf"), pdf("x.pdf")},
	})

	assert.Equal(t, "duplicate_attachment", apperr.CodeOf(err))
}

// Second upload fails: no course record, first upload removed.
func TestCourseService_Create_PartialUploadWritesNothing(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/a.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("sesión8/a.pdf"), nil)
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/b.pdf"), "application/pdf", mock.Anything).
		Return(blob.ObjectRef(""), apperr.Upstream("blob.upload", errors.New("quota exceeded")))
	blobs.On("Delete", mock.Anything, blob.ObjectRef("sesión8/a.pdf")).Return(nil)

	course, err := svc.Create(ctx, models.CourseDraft{
		Title:       "Sesión 8",
		Description: "x",
		Attachments: []models.Attachment{pdf("a.pdf"), pdf("b.pdf")},
	})

	assert.Nil(t, course)
	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
	courses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCourseService_Create_DirectoryFailureDiscardsUploads(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	blobs.On("Upload", ctx, blob.ObjectRef("a/x.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("a/x.pdf"), nil)
	courses.On("Create", ctx, mock.Anything).Return("", apperr.Upstream("directory.create", errors.New("timeout")))
	blobs.On("Delete", mock.Anything, blob.ObjectRef("a/x.pdf")).Return(nil)

	_, err := svc.Create(ctx, models.CourseDraft{Title: "A", Description: "b", Attachments: []models.Attachment{pdf("x.pdf")}})

	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
}

func TestCourseService_RemoveAttachment(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	keep := testutil.BlobURL("a/keep.pdf")
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", keep, drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(nil)
	courses.On("Update", ctx, "course-1", map[string]any{"materialMedico": []string{keep}}).Return(nil)

	course, err := svc.RemoveAttachment(ctx, "course-1", drop)

	require.NoError(t, err)
	assert.Equal(t, []string{keep}, course.Materials)
}

func TestCourseService_RemoveAttachment_BlobAlreadyGone(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(apperr.NotFound("blob.delete", "file not found"))
	courses.On("Update", ctx, "course-1", map[string]any{"materialMedico": []string{}}).Return(nil)

	course, err := svc.RemoveAttachment(ctx, "course-1", drop)

	require.NoError(t, err)
	assert.Empty(t, course.Materials)
}

func TestCourseService_RemoveAttachment_UnknownURL(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A"), nil)

	_, err := svc.RemoveAttachment(ctx, "course-1", testutil.BlobURL("a/other.pdf"))

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCourseService_RemoveAttachment_BlobDeleteFails(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(apperr.Upstream("blob.delete", errors.New("timeout")))

	_, err := svc.RemoveAttachment(ctx, "course-1", drop)

	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
	var div *DivergenceError
	assert.False(t, errors.As(err, &div))
	courses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

// Blob deleted, directory update fails: the URL stays listed and the
// caller gets a DivergenceError rather than a crash.
func TestCourseService_RemoveAttachment_DirectoryUpdateFails(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(nil)
	courses.On("Update", ctx, "course-1", mock.Anything).Return(apperr.Upstream("directory.update", errors.New("timeout")))

	course, err := svc.RemoveAttachment(ctx, "course-1", drop)

	assert.Nil(t, course)
	var div *DivergenceError
	require.ErrorAs(t, err, &div)
	assert.Equal(t, "course-1", div.CourseID)
	assert.Equal(t, []string{drop}, div.URLs)
	assert.Equal(t, StepDirectoryUpdate, div.Step)
	assert.ErrorIs(t, err, apperr.ErrUpstreamFailure)
	assert.Equal(t, "attachment_divergence", apperr.CodeOf(err))
}

func TestCourseService_Update(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	keep := testutil.BlobURL("a/keep.pdf")
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", keep, drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(nil)
	blobs.On("Upload", ctx, blob.ObjectRef("b/new.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("b/new.pdf"), nil)
	courses.On("Update", ctx, "course-1", map[string]any{
		"title":          "B",
		"description":    "nueva",
		"videos":         []string{"https://v/1"},
		"materialMedico": []string{keep, testutil.BlobURL("b/new.pdf")},
	}).Return(nil)

	course, err := svc.Update(ctx, "course-1", models.CourseEdit{
		Title:           "B",
		Description:     "nueva",
		Videos:          []string{"https://v/1", " "},
		RemoveMaterials: []string{drop},
		Attachments:     []models.Attachment{pdf("new.pdf")},
	})

	require.NoError(t, err)
	assert.Equal(t, "B", course.Title)
	assert.Equal(t, []string{keep, testutil.BlobURL("b/new.pdf")}, course.Materials)
}

func TestCourseService_Update_UploadFailsAfterDelete(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/drop.pdf")).Return(nil)
	blobs.On("Upload", ctx, blob.ObjectRef("a/new.pdf"), "application/pdf", mock.Anything).
		Return(blob.ObjectRef(""), errors.New("quota exceeded"))

	_, err := svc.Update(ctx, "course-1", models.CourseEdit{
		Title:           "A",
		Description:     "d",
		RemoveMaterials: []string{drop},
		Attachments:     []models.Attachment{pdf("new.pdf")},
	})

	var div *DivergenceError
	require.ErrorAs(t, err, &div)
	assert.Equal(t, StepUpload, div.Step)
	courses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCourseService_Update_UnknownMaterial(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A"), nil)

	_, err := svc.Update(ctx, "course-1", models.CourseEdit{
		Title:           "A",
		Description:     "d",
		RemoveMaterials: []string{testutil.BlobURL("a/missing.pdf")},
	})

	assert.ErrorIs(t, err, apperr.ErrNotFound)
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestCourseService_Create_ExistingObjectIsNotDiscarded(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/a.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("sesión8/a.pdf"), nil)
	blobs.On("Upload", ctx, blob.ObjectRef("sesión8/b.pdf"), "application/pdf", mock.Anything).
		Return(blob.ObjectRef(""), apperr.Validation("blob.upload", "object_exists", "a file with this name already exists"))
	blobs.On("Delete", mock.Anything, blob.ObjectRef("sesión8/a.pdf")).Return(nil)

	_, err := svc.Create(ctx, models.CourseDraft{
		Title:       "Sesión 8",
		Description: "x",
		Attachments: []models.Attachment{pdf("a.pdf"), pdf("b.pdf")},
	})

	assert.Equal(t, "object_exists", apperr.CodeOf(err))
	blobs.AssertNotCalled(t, "Delete", mock.Anything, blob.ObjectRef("sesión8/b.pdf"))
	courses.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestCourseService_Update_RejectsListedName(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	listed := testutil.BlobURL("a/guia.pdf")
	drop := testutil.BlobURL("a/drop.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", listed, drop), nil)
	blobs.On("RefFromURL", drop).Return(blob.ObjectRef("a/drop.pdf"), nil)

	_, err := svc.Update(ctx, "course-1", models.CourseEdit{
		Title:           "A",
		Description:     "d",
		RemoveMaterials: []string{drop},
		Attachments:     []models.Attachment{pdf("guia.pdf")},
	})

	assert.ErrorIs(t, err, apperr.ErrValidationFailure)
	assert.Equal(t, "duplicate_attachment", apperr.CodeOf(err))
	blobs.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
	blobs.AssertNotCalled(t, "Upload", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	courses.AssertNotCalled(t, "Update", mock.Anything, mock.Anything, mock.Anything)
}

func TestCourseService_Update_ReplacesRemovedName(t *testing.T) {
	svc, courses, blobs := setupCourseService(t)
	ctx := context.Background()
	listed := testutil.BlobURL("a/guia.pdf")
	courses.On("Get", ctx, "course-1").Return(testutil.NewCourse("course-1", "A", listed), nil)
	blobs.On("RefFromURL", listed).Return(blob.ObjectRef("a/guia.pdf"), nil)
	blobs.On("Delete", ctx, blob.ObjectRef("a/guia.pdf")).Return(nil)
	blobs.On("Upload", ctx, blob.ObjectRef("a/guia.pdf"), "application/pdf", mock.Anything).Return(blob.ObjectRef("a/guia.pdf"), nil)
	courses.On("Update", ctx, "course-1", mock.Anything).Return(nil)

	course, err := svc.Update(ctx, "course-1", models.CourseEdit{
		Title:           "A",
		Description:     "d",
		RemoveMaterials: []string{listed},
		Attachments:     []models.Attachment{pdf("guia.pdf")},
	})

	require.NoError(t, err)
	assert.Equal(t, []string{listed}, course.Materials)
}
