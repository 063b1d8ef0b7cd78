package chat

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/provider"
)

// Enricher runs the enrichment pipeline over a chat context.
type Enricher interface {
	Run(ctx context.Context, c entity.ChatContext) entity.ChatContext
}

// HandlerResolver picks the provider handler serving a model.
type HandlerResolver interface {
	ForModel(m *entity.ModelConfig) (provider.Handler, error)
}
