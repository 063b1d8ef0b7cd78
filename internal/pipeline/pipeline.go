package pipeline

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

// Stage is one enrichment step. Execute must treat its input as immutable
// and return a new context (or the input unchanged when it has nothing to
// do). A returned error is recorded on the context by the pipeline; it
// never aborts the chat turn.
type Stage interface {
	Name() string
	ShouldRun(c entity.ChatContext) bool
	Execute(ctx context.Context, c entity.ChatContext) (entity.ChatContext, error)
}

// Pipeline runs enrichment stages in a fixed order. Each stage's ShouldRun
// is evaluated against the context produced by the stages before it, not
// against the original request.
type Pipeline struct {
	stages []Stage
	logger *zap.Logger
}

func New(logger *zap.Logger, stages ...Stage) *Pipeline {
	return &Pipeline{
		stages: stages,
		logger: logger,
	}
}

// Run executes the pipeline. Stage failures degrade gracefully: the failed
// stage's enrichment is skipped, the error is recorded, and the turn
// continues with the context from before that stage.
func (p *Pipeline) Run(ctx context.Context, c entity.ChatContext) entity.ChatContext {
	for _, stage := range p.stages {
		if !stage.ShouldRun(c) {
			ctxzap.Debug(ctx, "skipping enrichment stage", zap.String("stage", stage.Name()))
			continue
		}

		next, err := stage.Execute(ctx, c)
		if err != nil {
			ctxzap.Warn(ctx, "enrichment stage failed",
				zap.String("stage", stage.Name()),
				zap.Error(err),
			)
			c = c.WithError(stage.Name(), err)
			continue
		}

		c = next
	}

	return c
}
