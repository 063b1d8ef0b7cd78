package websearch

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
	config    config.WebSearchConnectorConfig
	connector *pkghttp.Connector
	logger    *zap.Logger
}

func NewConnector(
	cfg config.WebSearchConnectorConfig,
	logger *zap.Logger,
) *Connector {
	return &Connector{
		connector: common.NewBaseConnector(cfg.HTTPClientConfig, logger),
		config:    cfg,
		logger:    logger,
	}
}

// Execute runs one web search and returns the result text with its citations
func (c *Connector) Execute(ctx context.Context, req *entity.WebSearchRequest) (*entity.WebSearchResponse, error) {
	ctxzap.Info(ctx, "executing web search", zap.String("query", req.Query))

	var resp entity.WebSearchResponse
	err := retry.Do(func() error {
		return c.connector.DoRequest(ctx, http.MethodPost, c.config.ExecuteEndpoint, req, &resp)
	}, append(c.config.Retry.ToRetryOptions(), retry.Context(ctx))...)
	if err != nil {
		return nil, fmt.Errorf("web search failed: %w", err)
	}

	if resp.Text == "" {
		return nil, fmt.Errorf("invalid web search response: empty result text")
	}

	ctxzap.Info(ctx, "web search completed",
		zap.Int("text_length", len(resp.Text)),
		zap.Int("citation_count", len(resp.Citations)),
	)

	return &resp, nil
}
