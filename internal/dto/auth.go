package dto

// SignInRequest captures credential input.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
