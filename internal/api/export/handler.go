package export

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/formatter"
	"github.com/futig/chat-backend/internal/pkg/logger"
	"github.com/futig/chat-backend/internal/pkg/response"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Handler struct {
	formatters *formatter.Factory
}

func NewHandler(formatters *formatter.Factory) *Handler {
	return &Handler{
		formatters: formatters,
	}
}

// Export handles POST /api/v1/export - download a conversation transcript
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	ctx := logger.WithAction(r.Context(), "Export")

	var req entity.ExportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctxzap.Error(ctx, "failed to decode request body", zap.Error(err))
		h.respondError(ctx, w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	if len(req.Messages) == 0 {
		h.respondError(ctx, w, http.StatusBadRequest, "messages are required", entity.ErrMissingField)
		return
	}

	format := req.Format
	if format == "" {
		format = entity.FormatMarkdown
	}

	f, err := h.formatters.Create(format)
	if err != nil {
		if errors.Is(err, entity.ErrInvalidFormat) {
			h.respondError(ctx, w, http.StatusBadRequest, "unsupported format", err)
			return
		}
		h.respondError(ctx, w, http.StatusInternalServerError, "internal server error", err)
		return
	}

	data, err := f.Format(req.Title, req.Messages)
	if err != nil {
		h.respondError(ctx, w, http.StatusInternalServerError, "render transcript", err)
		return
	}

	ctxzap.Info(ctx, "transcript exported",
		zap.String("format", string(format)),
		zap.Int("messages", len(req.Messages)),
		zap.Int("bytes", len(data)),
	)

	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=transcript%s", f.FileExtension()))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *Handler) respondError(ctx context.Context, w http.ResponseWriter, status int, message string, err error) {
	ctxzap.Error(ctx, message, zap.Error(err))
	response.Error(w, status, message)
}
