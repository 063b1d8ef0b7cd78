package chat

import (
	"context"
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pipeline"
	"github.com/futig/chat-backend/internal/provider"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// ChatUsecase orchestrates one chat turn: model resolution, enrichment,
// and the final provider call. Enrichment failures degrade the turn; a
// failed final call fails it.
type ChatUsecase struct {
	registry *ModelRegistry
	enricher Enricher
	handlers HandlerResolver
	logger   *zap.Logger
}

func NewUsecase(
	registry *ModelRegistry,
	enricher Enricher,
	handlers HandlerResolver,
	logger *zap.Logger,
) *ChatUsecase {
	return &ChatUsecase{
		registry: registry,
		enricher: enricher,
		handlers: handlers,
		logger:   logger,
	}
}

// Models returns the configured model catalog.
func (uc *ChatUsecase) Models() []entity.ModelDTO {
	return uc.registry.List()
}

// ChatTurn runs one buffered chat turn.
func (uc *ChatUsecase) ChatTurn(ctx context.Context, req entity.ChatRequest) (*entity.ChatResult, error) {
	c, handler, provReq, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := handler.Complete(ctx, provReq)
	if err != nil {
		return nil, fmt.Errorf("model completion: %w", err)
	}

	result := &entity.ChatResult{
		Text:     resp.Text,
		Thinking: resp.Thinking,
		Errors:   c.Errors,
	}
	if c.Processed != nil {
		result.Citations = c.Processed.Citations
	}
	return result, nil
}

// StreamResult carries the chunk stream together with everything the
// enrichment produced, which the transport emits alongside the tokens.
type StreamResult struct {
	Chunks    <-chan entity.CompletionChunk
	Citations []entity.Citation
	Errors    []entity.StageError
}

// ChatTurnStream runs one streaming chat turn.
func (uc *ChatUsecase) ChatTurnStream(ctx context.Context, req entity.ChatRequest) (*StreamResult, error) {
	c, handler, provReq, err := uc.prepare(ctx, req)
	if err != nil {
		return nil, err
	}

	chunks, err := handler.Stream(ctx, provReq)
	if err != nil {
		return nil, fmt.Errorf("model stream: %w", err)
	}

	result := &StreamResult{
		Chunks: chunks,
		Errors: c.Errors,
	}
	if c.Processed != nil {
		result.Citations = c.Processed.Citations
	}
	return result, nil
}

// prepare validates the request, runs enrichment and builds the final
// provider request.
func (uc *ChatUsecase) prepare(ctx context.Context, req entity.ChatRequest) (entity.ChatContext, provider.Handler, provider.Request, error) {
	var none provider.Request

	if len(req.Messages) == 0 {
		return entity.ChatContext{}, nil, none, fmt.Errorf("%w: messages", entity.ErrMissingField)
	}

	model, err := uc.registry.Resolve(req.Model)
	if err != nil {
		return entity.ChatContext{}, nil, none, err
	}

	searchMode, err := parseSearchMode(req.SearchMode)
	if err != nil {
		return entity.ChatContext{}, nil, none, err
	}

	systemPrompt, err := applyTone(req.SystemPrompt, req.Tone)
	if err != nil {
		return entity.ChatContext{}, nil, none, err
	}

	handler, err := uc.handlers.ForModel(model)
	if err != nil {
		return entity.ChatContext{}, nil, none, err
	}

	c := entity.ChatContext{
		Messages:     req.Messages,
		BotID:        req.BotID,
		SearchMode:   searchMode,
		Model:        model,
		User:         req.User,
		SystemPrompt: systemPrompt,
		Temperature:  req.Temperature,
	}

	c = uc.enricher.Run(ctx, c)

	// the retrieval stage folds file content itself; when it did not run
	// the fold happens here so ingested files still reach the model
	c = pipeline.FoldFileContext(c)

	ctxzap.Info(ctx, "chat turn prepared",
		zap.String("model", model.ID),
		zap.Int("messages", len(c.ActiveMessages())),
		zap.Int("stage_errors", len(c.Errors)),
	)

	return c, handler, provider.Request{
		Model:           model,
		Messages:        c.ActiveMessages(),
		SystemPrompt:    c.SystemPrompt,
		Temperature:     c.Temperature,
		MaxOutputTokens: model.MaxOutputTokens,
		ReasoningEffort: req.ReasoningEffort,
		Verbosity:       req.Verbosity,
		User:            req.User,
	}, nil
}
