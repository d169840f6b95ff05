package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Role        enums.ActorRole
	DisplayName string
	JTI         string
}

// AccessTokenClaims represents the typed JWT issued to clients. Every token
// is bound to one tenant; switching tenants requires a new token.
type AccessTokenClaims struct {
	UserID      uuid.UUID       `json:"user_id"`
	TenantID    uuid.UUID       `json:"tenant_id"`
	Role        enums.ActorRole `json:"role"`
	DisplayName string          `json:"name,omitempty"`
	jwt.RegisteredClaims
}
