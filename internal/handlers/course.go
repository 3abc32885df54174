package handlers

import (
	"errors"
	"net/http"

	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/internal/services"
	"github.com/dimitrije/medportal-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type CourseHandler struct {
	courses CourseServiceInterface
}

func NewCourseHandler(courses CourseServiceInterface) *CourseHandler {
	return &CourseHandler{courses: courses}
}

func (h *CourseHandler) List(c *drift.Context) {
	courses, err := h.courses.List(c.Request.Context())
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	response := make([]dto.CourseResponse, len(courses))
	for i := range courses {
		response[i] = courseResponse(&courses[i])
	}
	_ = c.JSON(http.StatusOK, response)
}

func (h *CourseHandler) Get(c *drift.Context) {
	course, err := h.courses.Get(c.Request.Context(), c.Param("courseId"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, courseResponse(course))
}

func (h *CourseHandler) Create(c *drift.Context) {
	var req dto.CreateCourseRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	course, err := h.courses.Create(c.Request.Context(), models.CourseDraft{
		Title:       req.Title,
		Description: req.Description,
		Videos:      req.Videos,
		Attachments: attachments(req.Attachments),
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusCreated, courseResponse(course))
}

func (h *CourseHandler) Update(c *drift.Context) {
	var req dto.UpdateCourseRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	course, err := h.courses.Update(c.Request.Context(), c.Param("courseId"), models.CourseEdit{
		Title:           req.Title,
		Description:     req.Description,
		Videos:          req.Videos,
		RemoveMaterials: req.RemoveMaterials,
		Attachments:     attachments(req.Attachments),
	})
	if err != nil {
		respondCourseError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, courseResponse(course))
}

func (h *CourseHandler) RemoveAttachment(c *drift.Context) {
	var req dto.RemoveAttachmentRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.URL == "" {
		c.BadRequest("url is required")
		return
	}

	course, err := h.courses.RemoveAttachment(c.Request.Context(), c.Param("courseId"), req.URL)
	if err != nil {
		respondCourseError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, courseResponse(course))
}

// respondCourseError reports a divergence with the URLs left dangling so the
// administrator can retry the removal.
func respondCourseError(c *drift.Context, err error) {
	var div *services.DivergenceError
	if !errors.As(err, &div) {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusServiceUnavailable, dto.DivergenceResponse{
		ErrorResponse: middleware.ErrorBody(err),
		CourseID:      div.CourseID,
		URLs:          div.URLs,
		Step:          div.Step,
	})
}

func attachments(in []dto.AttachmentRequest) []models.Attachment {
	out := make([]models.Attachment, len(in))
	for i, a := range in {
		out[i] = models.Attachment{Name: a.Name, ContentType: a.ContentType, Data: a.Data}
	}
	return out
}

func courseResponse(course *models.Course) dto.CourseResponse {
	videos := course.Videos
	if videos == nil {
		videos = []string{}
	}
	materials := course.Materials
	if materials == nil {
		materials = []string{}
	}
	return dto.CourseResponse{
		ID:             course.ID,
		Title:          course.Title,
		Description:    course.Description,
		Videos:         videos,
		MaterialMedico: materials,
		CreatedAt:      course.CreatedAt,
	}
}
