package websearch

import (
	"context"
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector is an in-process stand-in for the web-search tool.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Execute(ctx context.Context, req *entity.WebSearchRequest) (*entity.WebSearchResponse, error) {
	ctxzap.Info(ctx, "[MOCK] executing web search", zap.String("query", req.Query))

	return &entity.WebSearchResponse{
		Text: fmt.Sprintf("Mock web search results for %q.", req.Query),
		Citations: []entity.Citation{
			{Number: 1, Title: "Mock result", URL: "https://example.com/result", Date: "2025-02-01"},
		},
	}, nil
}
