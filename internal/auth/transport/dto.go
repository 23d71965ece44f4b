// Package transport defines the auth API request and response shapes.
package transport

// SignInRequest is the login payload.
type SignInRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// SignInResponse carries the access token and the signed-in identity.
type SignInResponse struct {
	AccessToken string       `json:"accessToken"`
	User        UserResponse `json:"user"`
}

// UserResponse is the account shape exposed to clients.
type UserResponse struct {
	ID          string `json:"id"`
	Email       string `json:"email"`
	DisplayName string `json:"displayName"`
	Role        string `json:"role"`
	TeamName    string `json:"teamName,omitempty"`
}
