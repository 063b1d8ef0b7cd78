package search

import (
	"context"
	"fmt"
	"net/http"

	"github.com/avast/retry-go/v4"
	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/integration/common"
	pkghttp "github.com/futig/chat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

type Connector struct {
	config    config.SearchConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.SearchConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Search queries the knowledge-base service with the agent's retrieval settings
func (c *Connector) Search(ctx context.Context, query *entity.SearchQuery) (*entity.SearchResponse, error) {
	ctxzap.Info(ctx, "querying knowledge base",
		zap.String("collection", query.Collection),
		zap.Int("top_k", query.TopK),
	)

	var resp entity.SearchResponse
	err := retry.Do(func() error {
		return c.connector.DoRequest(ctx, http.MethodPost, c.config.SearchEndpoint, query, &resp)
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return nil, fmt.Errorf("knowledge base search failed: %w", err)
	}

	ctxzap.Info(ctx, "knowledge base responded", zap.Int("result_count", len(resp.Results)))

	return &resp, nil
}
