package search

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// MockConnector is an in-process stand-in for the knowledge-base service.
type MockConnector struct {
	logger *zap.Logger
}

func NewMockConnector(logger *zap.Logger) *MockConnector {
	return &MockConnector{
		logger: logger,
	}
}

func (m *MockConnector) Search(ctx context.Context, query *entity.SearchQuery) (*entity.SearchResponse, error) {
	ctxzap.Info(ctx, "[MOCK] querying knowledge base",
		zap.String("collection", query.Collection),
		zap.String("query", query.Query),
	)

	return &entity.SearchResponse{
		Results: []entity.SearchResult{
			{
				Title:   "Mock knowledge base article",
				URL:     "https://kb.example.com/articles/1",
				Date:    "2025-01-15",
				Content: "This is mock knowledge base content returned for local development.",
			},
		},
	}, nil
}
