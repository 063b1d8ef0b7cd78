package provider

import (
	"context"
	"strings"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockHandler is an in-process stand-in for a real provider, used for
// local development without API keys.
type MockHandler struct {
	logger *zap.Logger
}

func NewMockHandler(logger *zap.Logger) *MockHandler {
	return &MockHandler{
		logger: logger,
	}
}

func (m *MockHandler) Complete(ctx context.Context, req Request) (*Response, error) {
	ctxzap.Info(ctx, "[MOCK] completing",
		zap.String("model", req.Model.WireID()),
		zap.Int("messages", len(req.Messages)),
	)

	return &Response{Text: mockReply(req)}, nil
}

func (m *MockHandler) Stream(ctx context.Context, req Request) (<-chan entity.CompletionChunk, error) {
	ctxzap.Info(ctx, "[MOCK] streaming",
		zap.String("model", req.Model.WireID()),
	)

	ch := make(chan entity.CompletionChunk)
	go func() {
		defer close(ch)
		for _, word := range strings.SplitAfter(mockReply(req), " ") {
			if !emit(ctx, ch, entity.CompletionChunk{Text: word}) {
				return
			}
		}
	}()
	return ch, nil
}

func mockReply(req Request) string {
	idx := entity.LastUserMessageIndex(req.Messages)
	if idx < 0 {
		return "This is a mock reply for local development."
	}
	return "This is a mock reply to: " + req.Messages[idx].Text()
}
