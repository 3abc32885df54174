package handlers

import (
	"net/http"
	"time"

	"github.com/dimitrije/medportal-api/internal/apperr"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type UserHandler struct {
	users UserAdminServiceInterface
}

func NewUserHandler(users UserAdminServiceInterface) *UserHandler {
	return &UserHandler{users: users}
}

// GetMe returns the caller's own users record, pending or not.
func (h *UserHandler) GetMe(c *drift.Context) {
	principal := middleware.GetPrincipal(c)
	if principal == nil {
		middleware.RespondError(c, apperr.Unauthenticated("users.me", "no_record", "no user record for this account"))
		return
	}

	_ = c.JSON(http.StatusOK, userResponse(&models.UserRecord{
		UID:       principal.UID,
		Email:     principal.Email,
		Approved:  principal.Approved,
		CreatedAt: principal.CreatedAt,
		Profile:   principal.Profile,
	}))
}

// List accepts ?approval=all|approved|unapproved, ?document= (substring) and
// ?from= / ?to= dates (YYYY-MM-DD, inclusive).
func (h *UserHandler) List(c *drift.Context) {
	filter := models.UserFilter{
		Approval:       models.ApprovalFilter(c.QueryParam("approval")),
		DocumentNumber: c.QueryParam("document"),
	}
	switch filter.Approval {
	case "":
		filter.Approval = models.ApprovalAll
	case models.ApprovalAll, models.ApprovalApproved, models.ApprovalUnapproved:
	default:
		c.BadRequest("approval must be all, approved or unapproved")
		return
	}

	if from := c.QueryParam("from"); from != "" {
		t, err := time.Parse(time.DateOnly, from)
		if err != nil {
			c.BadRequest("invalid from date")
			return
		}
		filter.CreatedFrom = &t
	}
	if to := c.QueryParam("to"); to != "" {
		t, err := time.Parse(time.DateOnly, to)
		if err != nil {
			c.BadRequest("invalid to date")
			return
		}
		end := t.Add(24*time.Hour - time.Nanosecond)
		filter.CreatedTo = &end
	}

	records, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	response := make([]dto.UserResponse, len(records))
	for i := range records {
		response[i] = userResponse(&records[i])
	}
	_ = c.JSON(http.StatusOK, response)
}

func (h *UserHandler) Get(c *drift.Context) {
	rec, err := h.users.Get(c.Request.Context(), c.Param("uid"))
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, userResponse(rec))
}

func (h *UserHandler) SetApproval(c *drift.Context) {
	var req dto.ApprovalRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Approved == nil {
		c.BadRequest("approved is required")
		return
	}

	rec, err := h.users.SetApproval(c.Request.Context(), middleware.GetUserID(c), c.Param("uid"), *req.Approved)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, userResponse(rec))
}

func (h *UserHandler) Delete(c *drift.Context) {
	if err := h.users.Delete(c.Request.Context(), middleware.GetUserID(c), c.Param("uid")); err != nil {
		middleware.RespondError(c, err)
		return
	}
	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "user deleted"})
}

func userResponse(rec *models.UserRecord) dto.UserResponse {
	return dto.UserResponse{
		UID:                  rec.UID,
		Email:                rec.Email,
		Approved:             rec.Approved,
		CreatedAt:            rec.CreatedAt,
		FirstName:            rec.FirstName,
		LastName:             rec.LastName,
		DocumentType:         rec.DocumentType,
		DocumentNumber:       rec.DocumentNumber,
		Phone:                rec.Phone,
		Country:              rec.Country,
		Department:           rec.Department,
		City:                 rec.City,
		Address:              rec.Address,
		Specialty:            rec.Specialty,
		ProfessionalCard:     rec.ProfessionalCard,
		HowDidYouKnow:        rec.HowDidYouKnow,
		IsHealthProfessional: rec.IsHealthProfessional,
	}
}
