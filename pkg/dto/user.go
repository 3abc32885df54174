package dto

import "time"

type UserResponse struct {
	UID                  string    `json:"uid"`
	Email                string    `json:"email"`
	Approved             bool      `json:"approved"`
	CreatedAt            time.Time `json:"createdAt"`
	FirstName            string    `json:"firstName"`
	LastName             string    `json:"lastName"`
	DocumentType         string    `json:"documentType,omitempty"`
	DocumentNumber       string    `json:"documentNumber,omitempty"`
	Phone                string    `json:"phone,omitempty"`
	Country              string    `json:"country,omitempty"`
	Department           string    `json:"department,omitempty"`
	City                 string    `json:"city,omitempty"`
	Address              string    `json:"address,omitempty"`
	Specialty            string    `json:"specialty,omitempty"`
	ProfessionalCard     string    `json:"professionalCard,omitempty"`
	HowDidYouKnow        string    `json:"howDidYouKnow,omitempty"`
	IsHealthProfessional bool      `json:"isHealthProfessional"`
}

// ApprovalRequest sets or clears a user's approval. Approved is required.
type ApprovalRequest struct {
	Approved *bool `json:"approved"`
}

// PrincipalResponse is the derived session principal. IsAdmin reflects the
// signed admin claim.
type PrincipalResponse struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	IsAdmin   bool      `json:"isAdmin"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"createdAt"`
	FirstName string    `json:"firstName"`
	LastName  string    `json:"lastName"`
	Specialty string    `json:"specialty,omitempty"`
}

type SessionResponse struct {
	Principal   *PrincipalResponse `json:"principal"`
	IsResolving bool               `json:"isResolving"`
	Seq         uint64             `json:"seq"`
	Standing    string             `json:"standing,omitempty"`
}
