package handlers

import (
	"net/http"
	"strings"

	"github.com/dimitrije/medportal-api/internal/identity"
	"github.com/dimitrije/medportal-api/internal/middleware"
	"github.com/dimitrije/medportal-api/internal/models"
	"github.com/dimitrije/medportal-api/pkg/dto"
	"github.com/m1z23r/drift/pkg/drift"
)

type AuthHandler struct {
	accounts AccountServiceInterface
	identity IdentityServiceInterface
}

func NewAuthHandler(accounts AccountServiceInterface, identity IdentityServiceInterface) *AuthHandler {
	return &AuthHandler{accounts: accounts, identity: identity}
}

// Register creates a pending account. No tokens are returned: the account
// cannot sign in until an administrator approves it.
func (h *AuthHandler) Register(c *drift.Context) {
	var req dto.RegisterRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	rec, err := h.accounts.Register(c.Request.Context(), models.Registration{
		Email:       req.Email,
		Password:    req.Password,
		AcceptTerms: req.AcceptTerms,
		Profile: models.Profile{
			FirstName:            req.FirstName,
			LastName:             req.LastName,
			DocumentType:         req.DocumentType,
			DocumentNumber:       req.DocumentNumber,
			Phone:                req.Phone,
			Country:              req.Country,
			Department:           req.Department,
			City:                 req.City,
			Address:              req.Address,
			Specialty:            req.Specialty,
			ProfessionalCard:     req.ProfessionalCard,
			HowDidYouKnow:        req.HowDidYouKnow,
			IsHealthProfessional: req.IsHealthProfessional,
		},
	})
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusCreated, userResponse(rec))
}

func (h *AuthHandler) SignIn(c *drift.Context) {
	var req dto.SignInRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		c.BadRequest("email and password are required")
		return
	}

	cred, err := h.accounts.SignIn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, tokenResponse(cred))
}

func (h *AuthHandler) RefreshToken(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken == "" {
		c.BadRequest("refresh_token is required")
		return
	}

	cred, err := h.accounts.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, tokenResponse(cred))
}

func (h *AuthHandler) Logout(c *drift.Context) {
	var req dto.RefreshTokenRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}

	if req.RefreshToken != "" {
		_ = h.identity.SignOut(c.Request.Context(), req.RefreshToken)
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) LogoutAll(c *drift.Context) {
	uid := middleware.GetUserID(c)
	if uid == "" {
		c.Unauthorized("not authenticated")
		return
	}

	if err := h.identity.SignOutEverywhere(c.Request.Context(), uid); err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "all sessions logged out"})
}

// RequestPasswordReset always answers the same way so it cannot be used to
// probe which emails are registered.
func (h *AuthHandler) RequestPasswordReset(c *drift.Context) {
	var req dto.PasswordResetRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if strings.TrimSpace(req.Email) == "" {
		c.BadRequest("email is required")
		return
	}

	if err := h.identity.SendPasswordReset(c.Request.Context(), req.Email); err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusAccepted, dto.MessageResponse{Message: "if the email is registered, a reset link has been sent"})
}

func (h *AuthHandler) ConfirmPasswordReset(c *drift.Context) {
	var req dto.PasswordResetConfirmRequest
	if err := c.BindJSON(&req); err != nil {
		c.BadRequest("invalid request body")
		return
	}
	if req.Token == "" {
		c.BadRequest("token is required")
		return
	}

	if err := h.identity.ConfirmPasswordReset(c.Request.Context(), req.Token, req.Password); err != nil {
		middleware.RespondError(c, err)
		return
	}

	_ = c.JSON(http.StatusOK, dto.MessageResponse{Message: "password updated"})
}

func tokenResponse(cred *identity.Credential) dto.TokenResponse {
	return dto.TokenResponse{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		ExpiresIn:    cred.ExpiresIn,
	}
}
