package agent

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
)

// AgentStore is the persistence surface behind the admin endpoints.
type AgentStore interface {
	List(ctx context.Context) ([]*entity.RetrievalAgent, error)
	Upsert(ctx context.Context, agent entity.RetrievalAgent) (*entity.RetrievalAgent, error)
	Delete(ctx context.Context, botID string) error
}

// CacheInvalidator drops a bot id from the resolver cache after a write,
// so running conversations pick up the change within one request.
type CacheInvalidator interface {
	Invalidate(botID string)
}
