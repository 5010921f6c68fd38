package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/luccasmf/pixkeys-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	ResellerID uuid.UUID
	Role       enums.ActorRole
	JTI        string
}

// AccessTokenClaims represents the typed JWT issued to resellers and admins.
type AccessTokenClaims struct {
	ResellerID uuid.UUID       `json:"reseller_id"`
	Role       enums.ActorRole `json:"role"`
	jwt.RegisteredClaims
}
