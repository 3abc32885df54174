package models

import (
	"time"
)

// Profile holds the registration form fields of a users record.
type Profile struct {
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	DocumentType         string `json:"documentType,omitempty"`
	DocumentNumber       string `json:"documentNumber,omitempty"`
	Phone                string `json:"phone,omitempty"`
	Country              string `json:"country,omitempty"`
	Department           string `json:"department,omitempty"`
	City                 string `json:"city,omitempty"`
	Address              string `json:"address,omitempty"`
	Specialty            string `json:"specialty,omitempty"`
	ProfessionalCard     string `json:"professionalCard,omitempty"`
	HowDidYouKnow        string `json:"howDidYouKnow,omitempty"`
	IsHealthProfessional bool   `json:"isHealthProfessional,omitempty"`
}

// UserRecord is the users/{uid} document.
//
// Role is informational only. Authorization reads the admin claim from the
// credential, never this field.
type UserRecord struct {
	UID       string    `json:"uid"`
	Email     string    `json:"email"`
	Approved  bool      `json:"approved"`
	Role      string    `json:"role,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
	Profile
}

type ApprovalFilter string

const (
	ApprovalAll        ApprovalFilter = "all"
	ApprovalApproved   ApprovalFilter = "approved"
	ApprovalUnapproved ApprovalFilter = "unapproved"
)

// UserFilter narrows the administrator's user listing.
type UserFilter struct {
	Approval       ApprovalFilter
	DocumentNumber string
	CreatedFrom    *time.Time
	CreatedTo      *time.Time
}

// Registration is the sign-up form. Terms must be accepted.
type Registration struct {
	Email       string
	Password    string
	AcceptTerms bool
	Profile
}
