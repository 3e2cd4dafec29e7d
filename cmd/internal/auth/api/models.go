package authapi

import "time"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type signupRequest struct {
	Email           string `json:"email"`
	DisplayName     string `json:"display_name"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirm_password"`
}

type accountResponse struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name"`
	AvatarURL   *string   `json:"avatar_url,omitempty"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"created_at,omitzero"`
}

type authResponse struct {
	Success bool             `json:"success"`
	Message string           `json:"message"`
	Account *accountResponse `json:"account,omitempty"`
	Token   string           `json:"token,omitempty"`
}

type meResponse struct {
	Account accountResponse `json:"account"`
}
