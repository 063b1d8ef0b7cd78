package chat

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/logger"
	"github.com/futig/chat-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	usecase ChatUsecase
}

func NewHandler(usecase ChatUsecase) *Handler {
	return &Handler{
		usecase: usecase,
	}
}

// Chat handles POST /api/v1/chat - run one buffered chat turn
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Chat")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	ctxzap.Info(ctx, "handling chat turn",
		zap.String("model", req.Model),
		zap.Int("messages", len(req.Messages)),
		zap.String("bot_id", req.BotID),
	)

	result, err := h.usecase.ChatTurn(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	response.Success(w, result)
}

// ChatStream handles POST /api/v1/chat/stream - run one streaming chat turn
func (h *Handler) ChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "ChatStream")

	var req entity.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	result, err := h.usecase.ChatTurnStream(ctx, req)
	if err != nil {
		h.handleUsecaseError(ctx, w, err)
		return
	}

	sse, err := newSSEWriter(w)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "streaming unsupported", err)
		return
	}

	// enrichment outcomes go out before the first token so clients can
	// render sources while the answer streams
	if len(result.Citations) > 0 {
		sse.Send("citations", result.Citations)
	}
	if len(result.Errors) > 0 {
		sse.Send("stage_errors", result.Errors)
	}

	for chunk := range result.Chunks {
		if chunk.Err != nil {
			ctxzap.Error(ctx, "stream failed", zap.Error(chunk.Err))
			sse.Send("error", response.ErrorResponse{Error: chunk.Err.Error()})
			return
		}
		if chunk.Thinking != "" {
			if err := sse.Send("thinking", map[string]string{"text": chunk.Thinking}); err != nil {
				return
			}
		}
		if chunk.Text != "" {
			if err := sse.Send("token", map[string]string{"text": chunk.Text}); err != nil {
				return
			}
		}
	}

	sse.Send("done", map[string]string{})
}

// Models handles GET /api/v1/models - list the configured model catalog
func (h *Handler) Models(w http.ResponseWriter, r *http.Request) {
	response.Success(w, map[string]any{"models": h.usecase.Models()})
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, message)
}

func (h *Handler) handleUsecaseError(ctx context.Context, w http.ResponseWriter, err error) {
	if errors.Is(err, entity.ErrModelNotFound) {
		h.respondError(ctx, w, http.StatusBadRequest, "unknown model", err)
	} else if errors.Is(err, entity.ErrInvalidParameter) || errors.Is(err, entity.ErrMissingField) || errors.Is(err, entity.ErrInvalidFormat) {
		h.respondError(ctx, w, http.StatusBadRequest, "invalid parameter", err)
	} else if errors.Is(err, entity.ErrUnknownSDK) {
		h.respondError(ctx, w, http.StatusInternalServerError, "model misconfigured", err)
	} else {
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
	}
}
