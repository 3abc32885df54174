package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/blob"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/obs"
)

// Steps of an attachment change at which the two stores can diverge.
const (
	StepBlobDelete      = "blob_delete"
	StepUpload          = "upload"
	StepDirectoryUpdate = "directory_update"
)

// DivergenceError reports that blobs were deleted but the course record
// still lists their URLs. It is an upstream failure.
type DivergenceError struct {
	CourseID string
	URLs     []string
	Step     string
	cause    error
}

func newDivergence(courseID string, urls []string, step string, cause error) *DivergenceError {
	obs.ObserveDivergence(step)
	return &DivergenceError{
		CourseID: courseID,
		URLs:     urls,
		Step:     step,
		cause: &apperr.Error{
			Kind:    apperr.KindUpstreamFailure,
			Op:      "courses." + step,
			Code:    "attachment_divergence",
			Message: "attachment files were deleted but the course still lists them",
			Err:     cause,
		},
	}
}

func (e *DivergenceError) Error() string {
	return fmt.Sprintf("course %s: %d deleted attachment(s) still listed after %s: %v", e.CourseID, len(e.URLs), e.Step, e.cause)
}

func (e *DivergenceError) Unwrap() error { return e.cause }

type CourseService struct {
	courses  CourseDirectory
	blobs    blob.Store
	maxBytes int64
	logger   *slog.Logger
	now      func() time.Time
}

// NewCourseService returns a CourseService rejecting attachments larger than
// maxBytes (0 means no limit).
func NewCourseService(courses CourseDirectory, blobs blob.Store, maxBytes int64, logger *slog.Logger) *CourseService {
	if logger == nil {
		logger = slog.Default()
	}
	return &CourseService{courses: courses, blobs: blobs, maxBytes: maxBytes, logger: logger, now: time.Now}
}

func (s *CourseService) List(ctx context.Context) ([]models.Course, error) {
	return s.courses.List(ctx)
}

func (s *CourseService) Get(ctx context.Context, id string) (*models.Course, error) {
	return s.courses.Get(ctx, id)
}

// Create uploads the attachments one after another and only then writes the
// course. If any upload fails the course is not written and the files already
// uploaded are removed.
func (s *CourseService) Create(ctx context.Context, draft models.CourseDraft) (*models.Course, error) {
	const op = "courses.create"
	title, description, err := validateText(op, draft.Title, draft.Description)
	if err != nil {
		return nil, err
	}
	refs, err := s.plan(op, title, draft.Attachments)
	if err != nil {
		return nil, err
	}

	urls, uploaded, err := s.uploadAll(ctx, refs, draft.Attachments)
	if err != nil {
		return nil, err
	}

	course := &models.Course{
		Title:       title,
		Description: description,
		Videos:      cleanVideos(draft.Videos),
		Materials:   urls,
		CreatedAt:   s.now().UTC(),
	}
	id, err := s.courses.Create(ctx, course)
	if err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}
	course.ID = id
	s.logger.Info("course created", "course_id", id, "attachments", len(urls))
	return course, nil
}

// Update removes the requested materials (blob first, then URL), uploads new
// attachments under the possibly renamed title and writes the merged record.
// A new attachment may reuse a listed name only if the same edit removes it.
func (s *CourseService) Update(ctx context.Context, id string, edit models.CourseEdit) (*models.Course, error) {
	const op = "courses.update"
	title, description, err := validateText(op, edit.Title, edit.Description)
	if err != nil {
		return nil, err
	}

	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	removeRefs := make([]blob.ObjectRef, 0, len(edit.RemoveMaterials))
	for _, u := range edit.RemoveMaterials {
		if !slices.Contains(course.Materials, u) {
			return nil, apperr.NotFound(op, "attachment not found on course")
		}
		ref, err := s.blobs.RefFromURL(u)
		if err != nil {
			return nil, err
		}
		removeRefs = append(removeRefs, ref)
	}
	refs, err := s.plan(op, title, edit.Attachments)
	if err != nil {
		return nil, err
	}
	for i, ref := range refs {
		u := s.blobs.PublicURL(ref)
		if slices.Contains(course.Materials, u) && !slices.Contains(edit.RemoveMaterials, u) {
			return nil, apperr.Validation(op, "duplicate_attachment", fmt.Sprintf("attachment %q is already on the course", edit.Attachments[i].Name))
		}
	}

	var removed []string
	for i, ref := range removeRefs {
		if err := s.deleteBlob(ctx, ref); err != nil {
			if len(removed) > 0 {
				return nil, newDivergence(id, removed, StepBlobDelete, err)
			}
			return nil, err
		}
		removed = append(removed, edit.RemoveMaterials[i])
	}

	urls, uploaded, err := s.uploadAll(ctx, refs, edit.Attachments)
	if err != nil {
		if len(removed) > 0 {
			return nil, newDivergence(id, removed, StepUpload, err)
		}
		return nil, err
	}

	materials := make([]string, 0, len(course.Materials)+len(urls))
	for _, u := range course.Materials {
		if !slices.Contains(removed, u) {
			materials = append(materials, u)
		}
	}
	materials = append(materials, urls...)
	videos := cleanVideos(edit.Videos)

	err = s.courses.Update(ctx, id, map[string]any{
		"title":          title,
		"description":    description,
		"videos":         videos,
		"materialMedico": materials,
	})
	if err != nil {
		s.discard(ctx, uploaded)
		if len(removed) > 0 {
			return nil, newDivergence(id, removed, StepDirectoryUpdate, err)
		}
		return nil, err
	}

	course.Title = title
	course.Description = description
	course.Videos = videos
	course.Materials = materials
	return course, nil
}

// RemoveAttachment deletes one attachment in two steps: the blob, then the
// URL in the course record. The steps are not atomic; if the second fails
// the blob is gone while the URL is still listed, reported as a
// DivergenceError.
func (s *CourseService) RemoveAttachment(ctx context.Context, id, url string) (*models.Course, error) {
	const op = "courses.remove_attachment"
	course, err := s.courses.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(course.Materials, url) {
		return nil, apperr.NotFound(op, "attachment not found on course")
	}
	ref, err := s.blobs.RefFromURL(url)
	if err != nil {
		return nil, err
	}

	if err := s.deleteBlob(ctx, ref); err != nil {
		return nil, err
	}

	remaining := slices.DeleteFunc(slices.Clone(course.Materials), func(m string) bool { return m == url })
	if err := s.courses.Update(ctx, id, map[string]any{"materialMedico": remaining}); err != nil {
		div := newDivergence(id, []string{url}, StepDirectoryUpdate, err)
		s.logger.Error("attachment removal diverged", "course_id", id, "url", url, "step", div.Step, "error", err)
		return nil, div
	}

	course.Materials = remaining
	return course, nil
}

// plan validates every attachment before anything is uploaded.
func (s *CourseService) plan(op, title string, attachments []models.Attachment) ([]blob.ObjectRef, error) {
	refs := make([]blob.ObjectRef, 0, len(attachments))
	seen := make(map[blob.ObjectRef]bool, len(attachments))
	for _, a := range attachments {
		if len(a.Data) == 0 {
			return nil, apperr.Validation(op, "empty_attachment", fmt.Sprintf("attachment %q is empty", a.Name))
		}
		if s.maxBytes > 0 && int64(len(a.Data)) > s.maxBytes {
			return nil, apperr.Validation(op, "attachment_too_large", fmt.Sprintf("attachment %q exceeds %d bytes", a.Name, s.maxBytes))
		}
		ref, err := blob.ObjectPath(title, a.Name)
		if err != nil {
			return nil, err
		}
		if seen[ref] {
			return nil, apperr.Validation(op, "duplicate_attachment", fmt.Sprintf("attachment %q given twice", a.Name))
		}
		seen[ref] = true
		refs = append(refs, ref)
	}
	return refs, nil
}

// uploadAll uploads sequentially. On failure it removes what it uploaded.
func (s *CourseService) uploadAll(ctx context.Context, refs []blob.ObjectRef, attachments []models.Attachment) ([]string, []blob.ObjectRef, error) {
	urls := make([]string, 0, len(refs))
	uploaded := make([]blob.ObjectRef, 0, len(refs))
	for i, ref := range refs {
		a := attachments[i]
		contentType := a.ContentType
		if contentType == "" {
			contentType = http.DetectContentType(a.Data)
		}
		stored, err := s.blobs.Upload(ctx, ref, contentType, a.Data)
		if err != nil {
			s.discard(ctx, uploaded)
			return nil, nil, fmt.Errorf("upload %q: %w", a.Name, err)
		}
		uploaded = append(uploaded, stored)
		urls = append(urls, s.blobs.PublicURL(stored))
	}
	return urls, uploaded, nil
}

func (s *CourseService) deleteBlob(ctx context.Context, ref blob.ObjectRef) error {
	err := s.blobs.Delete(ctx, ref)
	if errors.Is(err, apperr.ErrNotFound) {
		s.logger.Warn("attachment blob already missing", "path", ref)
		return nil
	}
	return err
}

// discard removes blobs uploaded for a write that did not happen.
func (s *CourseService) discard(ctx context.Context, refs []blob.ObjectRef) {
	ctx = context.WithoutCancel(ctx)
	for _, ref := range refs {
		if err := s.blobs.Delete(ctx, ref); err != nil && !errors.Is(err, apperr.ErrNotFound) {
			s.logger.Warn("failed to remove orphaned attachment", "path", ref, "error", err)
		}
	}
}

func validateText(op, title, description string) (string, string, error) {
	title = strings.TrimSpace(title)
	description = strings.TrimSpace(description)
	if title == "" || description == "" {
		return "", "", apperr.Validation(op, "missing_fields", "title and description are required")
	}
	return title, description, nil
}

func cleanVideos(videos []string) []string {
	out := make([]string, 0, len(videos))
	for _, v := range videos {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
