package dto

// ErrorResponse is the body of every failed request. Redirect tells the
// frontend where to send the user: /login when a sign-in (or approval) is
// needed, / when the account lacks privileges.
type ErrorResponse struct {
	Error    string `json:"error"`
	Code     string `json:"code"`
	Redirect string `json:"redirect,omitempty"`
}
