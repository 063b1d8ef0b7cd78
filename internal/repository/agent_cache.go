package repository

import (
	"context"
	"errors"
	"time"

	"github.com/futig/chat-backend/internal/entity"
	gocache "github.com/patrickmn/go-cache"
)

// CachedAgentResolver wraps the agent repository with a TTL cache so chat
// turns do not hit the database on every bot-id lookup. Misses are cached
// too, since most conversations have no agent at all.
type CachedAgentResolver struct {
	repo  AgentRepository
	cache *gocache.Cache
}

// notFoundMarker is stored for bot ids that resolved to nothing.
type notFoundMarker struct{}

func NewCachedAgentResolver(repo AgentRepository, ttl time.Duration) *CachedAgentResolver {
	return &CachedAgentResolver{
		repo:  repo,
		cache: gocache.New(ttl, 2*ttl),
	}
}

func (r *CachedAgentResolver) Resolve(ctx context.Context, botID string) (*entity.RetrievalAgent, error) {
	if cached, ok := r.cache.Get(botID); ok {
		if _, miss := cached.(notFoundMarker); miss {
			return nil, entity.ErrAgentNotFound
		}
		agent := cached.(entity.RetrievalAgent)
		return &agent, nil
	}

	agent, err := r.repo.GetByBotID(ctx, botID)
	if err != nil {
		if errors.Is(err, entity.ErrAgentNotFound) {
			r.cache.SetDefault(botID, notFoundMarker{})
		}
		return nil, err
	}

	r.cache.SetDefault(botID, *agent)
	return agent, nil
}

// Invalidate drops one bot id from the cache after an agent update.
func (r *CachedAgentResolver) Invalidate(botID string) {
	r.cache.Delete(botID)
}
