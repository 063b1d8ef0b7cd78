package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/logger"
	"github.com/futig/chat-backend/internal/pkg/response"
	"github.com/go-chi/chi/v5"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Handler serves the retrieval-agent admin endpoints.
type Handler struct {
	store AgentStore
	cache CacheInvalidator
}

func NewHandler(store AgentStore, cache CacheInvalidator) *Handler {
	return &Handler{
		store: store,
		cache: cache,
	}
}

// List handles GET /api/v1/agents - list configured retrieval agents
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ListAgents")

	agents, err := h.store.List(ctx)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
		return
	}
	if agents == nil {
		agents = []*entity.RetrievalAgent{}
	}
	response.Success(w, agents)
}

// Upsert handles PUT /api/v1/agents/{botID} - create or update an agent
func (h *Handler) Upsert(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "UpsertAgent")
	botID := chi.URLParam(r, "botID")

	var req entity.RetrievalAgent
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	// The path owns the identity; a mismatching body id is ignored.
	req.ID = botID

	if req.Collection == "" {
		h.respondError(ctx, w, http.StatusBadRequest, "collection is required", entity.ErrMissingField)
		return
	}

	stored, err := h.store.Upsert(ctx, req)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
		return
	}
	h.cache.Invalidate(botID)

	ctxzap.Info(ctx, "agent upserted",
		zap.String("bot_id", botID),
		zap.String("collection", stored.Collection),
	)
	response.Success(w, stored)
}

// Delete handles DELETE /api/v1/agents/{botID} - remove an agent
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "DeleteAgent")
	botID := chi.URLParam(r, "botID")

	if err := h.store.Delete(ctx, botID); err != nil {
		if errors.Is(err, entity.ErrAgentNotFound) {
			h.respondError(ctx, w, http.StatusNotFound, "agent not found", err)
			return
		}
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
		return
	}
	h.cache.Invalidate(botID)

	ctxzap.Info(ctx, "agent deleted", zap.String("bot_id", botID))
	response.NoContent(w)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, message)
}
