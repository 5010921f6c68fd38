package auth

import (
	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// LoginRequest captures the credentials sent to the login endpoint.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// ResellerSummary is the public slice of an account returned after login.
type ResellerSummary struct {
	ID             uuid.UUID       `json:"id"`
	Name           string          `json:"name"`
	Email          string          `json:"email"`
	Role           enums.ActorRole `json:"role"`
	WhatsAppNumber *string         `json:"whatsapp_number,omitempty"`
	PixKey         *string         `json:"pix_key,omitempty"`
}

// LoginResponse contains the token pair and account produced by a successful login.
type LoginResponse struct {
	AccessToken  string           `json:"access_token"`
	RefreshToken string           `json:"refresh_token"`
	Reseller     *ResellerSummary `json:"reseller"`
}

// RefreshRequest carries the expired access token plus its refresh token.
type RefreshRequest struct {
	AccessToken  string `json:"access_token" validate:"required"`
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshResponse returns a freshly rotated token pair.
type RefreshResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// RegisterRequest contains the payload for onboarding a new reseller.
type RegisterRequest struct {
	Name           string  `json:"name" validate:"required"`
	Email          string  `json:"email" validate:"required,email"`
	Password       string  `json:"password" validate:"required,min=8"`
	WhatsAppNumber *string `json:"whatsapp_number,omitempty"`
	PixKey         *string `json:"pix_key,omitempty"`
}
