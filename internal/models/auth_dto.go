package models

// SessionResponse is returned after a completed sign-in
type SessionResponse struct {
	Token string       `json:"token"`
	User  UserResponse `json:"user"`
}

// PasswordLoginRequest is the request body for the local fallback login
type PasswordLoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SetPasswordRequest is the request body for setting the fallback password
type SetPasswordRequest struct {
	Password string `json:"password"`
}

// RotateKeyResponse is returned when a user rotates their API key
type RotateKeyResponse struct {
	APIKey string `json:"apiKey"`
}
