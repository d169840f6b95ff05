package controllers

import (
	"net/http"

	"github.com/angelmondragon/prodflow-backend/api/middleware"
	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/pkg/auth"
	pkgerrors "github.com/angelmondragon/prodflow-backend/pkg/errors"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

// requireActor pulls the authenticated actor from the request context and
// writes the 401 itself when it is missing.
func requireActor(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (auth.Actor, bool) {
	actor, ok := middleware.ActorFromContext(r.Context())
	if !ok {
		responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing"))
		return auth.Actor{}, false
	}
	return actor, true
}
