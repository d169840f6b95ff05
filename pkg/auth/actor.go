package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/pkg/enums"
)

// Actor is the authenticated principal flowing from middleware into services.
// Services trust it fully; role checks happen against Actor.Role, never
// against client-supplied fields.
type Actor struct {
	UserID      uuid.UUID
	TenantID    uuid.UUID
	Role        enums.ActorRole
	DisplayName string
}

// FromClaims builds an Actor out of validated token claims.
func FromClaims(claims *AccessTokenClaims) Actor {
	return Actor{
		UserID:      claims.UserID,
		TenantID:    claims.TenantID,
		Role:        claims.Role,
		DisplayName: claims.DisplayName,
	}
}

// IsElevated reports whether the actor can bypass author-only restrictions,
// e.g. deleting another user's comment.
func (a Actor) IsElevated() bool {
	return a.Role.IsElevated()
}
