package provider

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

// OpenAIHandler serves models speaking the chat-completions API.
type OpenAIHandler struct {
	client *openai.Client
	logger *zap.Logger
}

func NewOpenAIHandler(cfg config.OpenAIConfig, logger *zap.Logger) *OpenAIHandler {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	return &OpenAIHandler{
		client: openai.NewClientWithConfig(clientCfg),
		logger: logger,
	}
}

func (h *OpenAIHandler) Complete(ctx context.Context, req Request) (*Response, error) {
	apiReq := buildOpenAIRequest(req)

	ctxzap.Debug(ctx, "openai completion", zap.String("model", apiReq.Model))

	resp, err := h.client.CreateChatCompletion(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, entity.ErrEmptyCompletion
	}

	msg := resp.Choices[0].Message
	return &Response{Text: msg.Content, Thinking: msg.ReasoningContent}, nil
}

func (h *OpenAIHandler) Stream(ctx context.Context, req Request) (<-chan entity.CompletionChunk, error) {
	apiReq := buildOpenAIRequest(req)

	stream, err := h.client.CreateChatCompletionStream(ctx, apiReq)
	if err != nil {
		return nil, fmt.Errorf("openai stream: %w", err)
	}

	ch := make(chan entity.CompletionChunk)
	go func() {
		defer close(ch)
		defer stream.Close()
		for {
			resp, err := stream.Recv()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				emit(ctx, ch, entity.CompletionChunk{Err: fmt.Errorf("openai stream: %w", err)})
				return
			}
			if len(resp.Choices) == 0 {
				continue
			}
			delta := resp.Choices[0].Delta
			if delta.ReasoningContent != "" {
				if !emit(ctx, ch, entity.CompletionChunk{Thinking: delta.ReasoningContent}) {
					return
				}
			}
			if delta.Content != "" {
				if !emit(ctx, ch, entity.CompletionChunk{Text: delta.Content}) {
					return
				}
			}
		}
	}()
	return ch, nil
}

// buildOpenAIRequest maps the generic request onto the chat-completions
// wire shape. Reasoning models reject temperature and take their output
// budget through max_completion_tokens.
func buildOpenAIRequest(req Request) openai.ChatCompletionRequest {
	msgs := make([]openai.ChatCompletionMessage, 0, len(req.Messages)+1)
	if req.SystemPrompt != "" {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, m := range req.Messages {
		msgs = append(msgs, toOpenAIMessage(m))
	}

	out := openai.ChatCompletionRequest{
		Model:    req.Model.WireID(),
		Messages: msgs,
		User:     HashedUserID(req.User),
	}

	if req.Model.Reasoning {
		out.MaxCompletionTokens = req.MaxOutputTokens
		if req.Model.SupportsReasoningEffort && req.ReasoningEffort != "" {
			out.ReasoningEffort = req.ReasoningEffort
		}
	} else {
		out.MaxTokens = req.MaxOutputTokens
		if req.Temperature != nil {
			out.Temperature = *req.Temperature
		}
	}
	if req.Model.SupportsVerbosity && req.Verbosity != "" {
		out.Verbosity = req.Verbosity
	}
	return out
}

func toOpenAIMessage(m entity.Message) openai.ChatCompletionMessage {
	role := string(m.Role)
	if len(m.Parts) == 0 {
		return openai.ChatCompletionMessage{Role: role, Content: m.Content}
	}

	var parts []openai.ChatMessagePart
	for _, p := range m.Parts {
		switch p.Type {
		case entity.PartText:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeText,
				Text: p.Text,
			})
		case entity.PartImage:
			parts = append(parts, openai.ChatMessagePart{
				Type: openai.ChatMessagePartTypeImageURL,
				ImageURL: &openai.ChatMessageImageURL{
					URL:    p.ImageURL,
					Detail: openai.ImageURLDetailAuto,
				},
			})
		}
	}
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}

// emit sends a chunk unless the consumer is gone.
func emit(ctx context.Context, ch chan<- entity.CompletionChunk, chunk entity.CompletionChunk) bool {
	select {
	case ch <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
