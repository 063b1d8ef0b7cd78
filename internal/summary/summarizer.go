package summary

import (
	"context"
	"fmt"
	"unicode/utf8"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/chunk"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Completer is the generic LLM-completion port used for chunk and
// reduction calls.
type Completer interface {
	Complete(ctx context.Context, req entity.CompletionRequest) (string, error)
}

// Extractor converts raw file bytes into plain text.
type Extractor interface {
	ExtractText(data []byte, filename string) (string, error)
}

// Summarizer condenses documents that do not fit a model's context window
// using two-phase map-reduce: chunk-level summaries first, then one
// reduction pass over the partial summaries.
type Summarizer struct {
	completer Completer
	extractor Extractor
	logger    *zap.Logger
}

func New(completer Completer, extractor Extractor, logger *zap.Logger) *Summarizer {
	return &Summarizer{
		completer: completer,
		extractor: extractor,
		logger:    logger,
	}
}

// Request describes one summarization invocation. When PreExtracted is set
// the raw Data is ignored and no extraction happens, so callers that
// already hold the text do not pay for a second read.
type Request struct {
	Data         []byte
	Filename     string
	PreExtracted string
	Prompt       string
	Model        *entity.ModelConfig
	User         entity.User
}

// Summarize returns the document text unchanged when it fits a single
// chunk, and a map-reduce summary otherwise. Any chunk-call failure fails
// the whole summarization; a half-summarized document must not stand in
// for the whole one.
func (s *Summarizer) Summarize(ctx context.Context, req Request) (string, error) {
	text := req.PreExtracted
	if text == "" {
		extracted, err := s.extractor.ExtractText(req.Data, req.Filename)
		if err != nil {
			return "", fmt.Errorf("extract %s: %w", req.Filename, err)
		}
		text = extracted
	}

	charsPerToken := chunk.EstimateCharsPerToken(text, chunk.DefaultSampleSize)
	cfg := chunk.Plan(req.Model, charsPerToken)

	if utf8.RuneCountInString(text) <= cfg.ChunkSize {
		return text, nil
	}

	chunks := chunk.SplitText(text, cfg.ChunkSize)

	ctxzap.Info(ctx, "summarizing document",
		zap.String("filename", req.Filename),
		zap.Int("chunks", len(chunks)),
		zap.Int("chunk_size", cfg.ChunkSize),
		zap.Int("batch_size", cfg.BatchSize),
	)

	partials, err := s.mapPhase(ctx, chunks, cfg, req)
	if err != nil {
		return "", err
	}

	// The reduction pass runs even for a single partial summary so every
	// summarized document goes through the same two phases.
	final, err := s.reducePhase(ctx, partials, charsPerToken, cfg, req)
	if err != nil {
		return "", err
	}

	ctxzap.Info(ctx, "document summarized",
		zap.String("filename", req.Filename),
		zap.Int("summary_length", len(final)),
	)

	return final, nil
}

// mapPhase summarizes every chunk. Chunks within one batch run
// concurrently; batches run sequentially. Results land in their original
// chunk slots so ordering never depends on completion order.
func (s *Summarizer) mapPhase(ctx context.Context, chunks []string, cfg chunk.Config, req Request) ([]string, error) {
	partials := make([]string, len(chunks))

	for start := 0; start < len(chunks); start += cfg.BatchSize {
		end := start + cfg.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}

		g, gctx := errgroup.WithContext(ctx)
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				partial, err := s.summarizeChunk(gctx, chunks[i], i, len(chunks), cfg, req)
				if err != nil {
					return fmt.Errorf("summarize chunk %d/%d: %w", i+1, len(chunks), err)
				}
				partials[i] = partial
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	}

	return partials, nil
}

func (s *Summarizer) summarizeChunk(ctx context.Context, text string, index, total int, cfg chunk.Config, req Request) (string, error) {
	prompt := req.Prompt
	if prompt == "" {
		prompt = defaultChunkPrompt
	}

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: prompt},
		{Role: entity.RoleUser, Content: fmt.Sprintf("Part %d of %d of %q:\n\n%s", index+1, total, req.Filename, text)},
	}

	return s.completer.Complete(ctx, entity.CompletionRequest{
		Model:           req.Model,
		Messages:        messages,
		MaxOutputTokens: cfg.MaxCompletionTokens,
		User:            req.User,
	})
}

func (s *Summarizer) reducePhase(ctx context.Context, partials []string, charsPerToken float64, cfg chunk.Config, req Request) (string, error) {
	var joined string
	for i, p := range partials {
		joined += fmt.Sprintf("--- Part %d ---\n%s\n\n", i+1, p)
	}

	reduceTokens := int(float64(cfg.MaxSummaryLength) / charsPerToken)
	if req.Model != nil && req.Model.MaxOutputTokens > 0 && reduceTokens > req.Model.MaxOutputTokens {
		reduceTokens = req.Model.MaxOutputTokens
	}

	messages := []entity.Message{
		{Role: entity.RoleSystem, Content: fmt.Sprintf(reducePromptFmt, cfg.MaxSummaryLength)},
		{Role: entity.RoleUser, Content: joined},
	}

	final, err := s.completer.Complete(ctx, entity.CompletionRequest{
		Model:           req.Model,
		Messages:        messages,
		MaxOutputTokens: reduceTokens,
		User:            req.User,
	})
	if err != nil {
		return "", fmt.Errorf("reduce summaries: %w", err)
	}

	return final, nil
}

const defaultChunkPrompt = "Summarize the following document part. Preserve key facts, figures, names and conclusions. Answer with the summary only."

const reducePromptFmt = "The following are partial summaries of consecutive parts of one document. Merge them into a single coherent summary of at most %d characters. Answer with the summary only."
