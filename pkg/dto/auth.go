package dto

type RegisterRequest struct {
	Email                string `json:"email"`
	Password             string `json:"password"`
	AcceptTerms          bool   `json:"acceptTerms"`
	FirstName            string `json:"firstName"`
	LastName             string `json:"lastName"`
	DocumentType         string `json:"documentType"`
	DocumentNumber       string `json:"documentNumber"`
	Phone                string `json:"phone"`
	Country              string `json:"country"`
	Department           string `json:"department"`
	City                 string `json:"city"`
	Address              string `json:"address"`
	Specialty            string `json:"specialty"`
	ProfessionalCard     string `json:"professionalCard"`
	HowDidYouKnow        string `json:"howDidYouKnow"`
	IsHealthProfessional bool   `json:"isHealthProfessional"`
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresIn    int64  `json:"expires_in"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

type PasswordResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type MessageResponse struct {
	Message string `json:"message"`
}
