package middleware

import (
	"context"

	"github.com/angelmondragon/prodflow-backend/pkg/auth"
)

type contextKey string

const ctxActor contextKey = "actor"

// ActorFromContext returns the authenticated actor seeded by the Auth
// middleware. The boolean is false on unauthenticated requests.
func ActorFromContext(ctx context.Context) (auth.Actor, bool) {
	if ctx == nil {
		return auth.Actor{}, false
	}
	if actor, ok := ctx.Value(ctxActor).(auth.Actor); ok {
		return actor, true
	}
	return auth.Actor{}, false
}

// WithActor injects the actor into the context. Exposed for handler tests.
func WithActor(ctx context.Context, actor auth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}
