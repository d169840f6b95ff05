package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/prodflow-backend/api/responses"
	"github.com/angelmondragon/prodflow-backend/api/validators"
	"github.com/angelmondragon/prodflow-backend/internal/hierarchy"
	"github.com/angelmondragon/prodflow-backend/pkg/db/models"
	"github.com/angelmondragon/prodflow-backend/pkg/logger"
)

// HierarchyList returns the tenant's classification levels with their nodes.
func HierarchyList(svc hierarchy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		levels, err := svc.List(r.Context(), actor.TenantID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]levelWithNodesResponse, 0, len(levels))
		for _, level := range levels {
			items = append(items, levelWithNodesFromModel(level))
		}
		responses.WriteSuccess(w, items)
	}
}

type levelCreateRequest struct {
	Key      string `json:"key" validate:"required"`
	Label    string `json:"label" validate:"required"`
	Position int    `json:"position"`
}

// HierarchyLevelCreate adds a classification level.
func HierarchyLevelCreate(svc hierarchy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		var payload levelCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		level, err := svc.CreateLevel(r.Context(), actor, payload.Key, payload.Label, payload.Position)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, levelFromModel(*level))
	}
}

// HierarchyLevelDelete removes a level and all of its nodes.
func HierarchyLevelDelete(svc hierarchy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		levelID, err := validators.ParseUUIDParam(chi.URLParam(r, "levelId"), "levelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteLevel(r.Context(), actor, levelID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type nodeCreateRequest struct {
	Label string `json:"label" validate:"required"`
}

// HierarchyNodeCreate adds a selectable node under a level.
func HierarchyNodeCreate(svc hierarchy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		levelID, err := validators.ParseUUIDParam(chi.URLParam(r, "levelId"), "levelId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload nodeCreateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		node, err := svc.CreateNode(r.Context(), actor, levelID, strings.TrimSpace(payload.Label))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, nodeFromModel(*node))
	}
}

// HierarchyNodeDelete removes a node.
func HierarchyNodeDelete(svc hierarchy.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		actor, ok := requireActor(w, r, logg)
		if !ok {
			return
		}

		nodeID, err := validators.ParseUUIDParam(chi.URLParam(r, "nodeId"), "nodeId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.DeleteNode(r.Context(), actor, nodeID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "deleted"})
	}
}

type levelResponse struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Label     string    `json:"label"`
	Position  int       `json:"position"`
	CreatedAt time.Time `json:"created_at"`
}

type nodeResponse struct {
	ID        uuid.UUID `json:"id"`
	LevelID   uuid.UUID `json:"level_id"`
	Label     string    `json:"label"`
	CreatedAt time.Time `json:"created_at"`
}

type levelWithNodesResponse struct {
	Level levelResponse  `json:"level"`
	Nodes []nodeResponse `json:"nodes"`
}

func levelFromModel(m models.HierarchyLevel) levelResponse {
	return levelResponse{
		ID:        m.ID,
		Key:       m.Key,
		Label:     m.Label,
		Position:  m.Position,
		CreatedAt: m.CreatedAt,
	}
}

func nodeFromModel(m models.HierarchyNode) nodeResponse {
	return nodeResponse{
		ID:        m.ID,
		LevelID:   m.LevelID,
		Label:     m.Label,
		CreatedAt: m.CreatedAt,
	}
}

func levelWithNodesFromModel(m hierarchy.LevelWithNodes) levelWithNodesResponse {
	out := levelWithNodesResponse{
		Level: levelFromModel(m.Level),
		Nodes: make([]nodeResponse, 0, len(m.Nodes)),
	}
	for _, node := range m.Nodes {
		out.Nodes = append(out.Nodes, nodeFromModel(node))
	}
	return out
}
