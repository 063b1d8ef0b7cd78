package provider

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/futig/chat-backend/internal/config"
	"github.com/futig/chat-backend/internal/entity"
	pkgHTTP "github.com/futig/chat-backend/pkg/http"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	messagesEndpoint = "/v1/messages"

	// thinkingBudgetTokens is the reasoning budget granted to models with
	// extended thinking; max_tokens must leave room for the answer on top.
	thinkingBudgetTokens = 2048
	thinkingAnswerRoom   = 2048
)

// AnthropicHandler serves models speaking the messages API.
type AnthropicHandler struct {
	connector *pkgHTTP.Connector
	cfg       config.AnthropicConfig
	logger    *zap.Logger
}

func NewAnthropicHandler(cfg config.AnthropicConfig, logger *zap.Logger) *AnthropicHandler {
	connector := pkgHTTP.NewConnector(
		&pkgHTTP.ConnectorConfig{BaseURL: cfg.BaseURL, Logger: logger},
		pkgHTTP.WithRequestTimeout(cfg.Timeout),
		pkgHTTP.WithRequestLogging(),
	)
	return &AnthropicHandler{
		connector: connector,
		cfg:       cfg,
		logger:    logger,
	}
}

type messagesRequest struct {
	Model       string           `json:"model"`
	Messages    []wireMessage    `json:"messages"`
	System      string           `json:"system,omitempty"`
	MaxTokens   int              `json:"max_tokens"`
	Temperature *float32         `json:"temperature,omitempty"`
	Thinking    *thinkingParams  `json:"thinking,omitempty"`
	Metadata    *requestMetadata `json:"metadata,omitempty"`
	Stream      bool             `json:"stream,omitempty"`
}

type thinkingParams struct {
	Type         string `json:"type"`
	BudgetTokens int    `json:"budget_tokens"`
}

type requestMetadata struct {
	UserID string `json:"user_id,omitempty"`
}

type wireMessage struct {
	Role    string         `json:"role"`
	Content []contentBlock `json:"content"`
}

type contentBlock struct {
	Type     string       `json:"type"`
	Text     string       `json:"text,omitempty"`
	Thinking string       `json:"thinking,omitempty"`
	Source   *imageSource `json:"source,omitempty"`
}

type imageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type messagesResponse struct {
	Content []contentBlock `json:"content"`
	Error   *wireError     `json:"error,omitempty"`
}

type wireError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

func (h *AnthropicHandler) Complete(ctx context.Context, req Request) (*Response, error) {
	apiReq := h.buildRequest(req, false)

	ctxzap.Debug(ctx, "anthropic completion", zap.String("model", apiReq.Model))

	var apiResp messagesResponse
	err := h.connector.DoRequest(ctx, http.MethodPost, messagesEndpoint, apiReq, &apiResp,
		h.requestOpts()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic completion: %w", err)
	}
	if apiResp.Error != nil {
		return nil, fmt.Errorf("anthropic completion: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}

	var out Response
	for _, block := range apiResp.Content {
		switch block.Type {
		case "text":
			out.Text += block.Text
		case "thinking":
			out.Thinking += block.Thinking
		}
	}
	if out.Text == "" {
		return nil, entity.ErrEmptyCompletion
	}
	return &out, nil
}

func (h *AnthropicHandler) Stream(ctx context.Context, req Request) (<-chan entity.CompletionChunk, error) {
	apiReq := h.buildRequest(req, true)

	body, err := h.connector.DoStreamRequest(ctx, http.MethodPost, messagesEndpoint, apiReq,
		h.requestOpts()...)
	if err != nil {
		return nil, fmt.Errorf("anthropic stream: %w", err)
	}

	ch := make(chan entity.CompletionChunk)
	go func() {
		defer close(ch)
		defer body.Close()

		scanner := bufio.NewScanner(body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			chunk, done := parseStreamEvent(strings.TrimPrefix(line, "data: "))
			if done {
				return
			}
			if chunk == nil {
				continue
			}
			if !emit(ctx, ch, *chunk) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, ch, entity.CompletionChunk{Err: fmt.Errorf("anthropic stream: %w", err)})
		}
	}()
	return ch, nil
}

// streamEvent covers every messages-API stream payload this handler
// inspects; unknown event types fall through untouched.
type streamEvent struct {
	Type  string `json:"type"`
	Delta struct {
		Type     string `json:"type"`
		Text     string `json:"text"`
		Thinking string `json:"thinking"`
	} `json:"delta"`
	Error *wireError `json:"error"`
}

func parseStreamEvent(data string) (*entity.CompletionChunk, bool) {
	var ev streamEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		return nil, false
	}
	switch ev.Type {
	case "content_block_delta":
		switch ev.Delta.Type {
		case "text_delta":
			return &entity.CompletionChunk{Text: ev.Delta.Text}, false
		case "thinking_delta":
			return &entity.CompletionChunk{Thinking: ev.Delta.Thinking}, false
		}
		return nil, false
	case "error":
		msg := "unknown stream error"
		if ev.Error != nil {
			msg = fmt.Sprintf("%s: %s", ev.Error.Type, ev.Error.Message)
		}
		return &entity.CompletionChunk{Err: fmt.Errorf("anthropic stream: %s", msg)}, false
	case "message_stop":
		return nil, true
	}
	return nil, false
}

// buildRequest maps the generic request onto the messages-API wire shape.
// System-role messages in the sequence join the top-level system field
// because the API accepts only user and assistant turns.
func (h *AnthropicHandler) buildRequest(req Request, stream bool) messagesRequest {
	var systemParts []string
	if req.SystemPrompt != "" {
		systemParts = append(systemParts, req.SystemPrompt)
	}

	var msgs []wireMessage
	for _, m := range req.Messages {
		if m.Role == entity.RoleSystem {
			systemParts = append(systemParts, m.Text())
			continue
		}
		msgs = append(msgs, wireMessage{
			Role:    string(m.Role),
			Content: toAnthropicContent(m),
		})
	}

	maxTokens := req.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = req.Model.MaxOutputTokens
	}

	out := messagesRequest{
		Model:     req.Model.WireID(),
		Messages:  msgs,
		System:    strings.Join(systemParts, "\n\n"),
		MaxTokens: maxTokens,
		Stream:    stream,
	}

	if req.Model.SupportsThinking {
		// thinking rejects an explicit temperature, and the budget must
		// fit inside max_tokens with room for the answer
		out.Thinking = &thinkingParams{Type: "enabled", BudgetTokens: thinkingBudgetTokens}
		if out.MaxTokens < thinkingBudgetTokens+thinkingAnswerRoom {
			out.MaxTokens = thinkingBudgetTokens + thinkingAnswerRoom
		}
	} else if req.Temperature != nil {
		out.Temperature = req.Temperature
	}

	if id := HashedUserID(req.User); id != "" {
		out.Metadata = &requestMetadata{UserID: id}
	}
	return out
}

func toAnthropicContent(m entity.Message) []contentBlock {
	if len(m.Parts) == 0 {
		return []contentBlock{{Type: "text", Text: m.Content}}
	}

	var blocks []contentBlock
	for _, p := range m.Parts {
		switch p.Type {
		case entity.PartText:
			blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
		case entity.PartImage:
			mediaType, data, ok := parseDataURL(p.ImageURL)
			if !ok {
				continue
			}
			blocks = append(blocks, contentBlock{
				Type: "image",
				Source: &imageSource{
					Type:      "base64",
					MediaType: mediaType,
					Data:      data,
				},
			})
		}
	}
	return blocks
}

// parseDataURL splits a base64 data URL like "data:image/png;base64,AAAA"
// into its media type and payload.
func parseDataURL(url string) (mediaType, data string, ok bool) {
	const scheme = "data:"
	const marker = ";base64,"
	if !strings.HasPrefix(url, scheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(url, scheme)
	idx := strings.Index(rest, marker)
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+len(marker):], true
}

func (h *AnthropicHandler) requestOpts() []pkgHTTP.RequestOpt {
	return []pkgHTTP.RequestOpt{
		pkgHTTP.WithHeader("x-api-key", h.cfg.APIKey),
		pkgHTTP.WithHeader("anthropic-version", h.cfg.APIVersion),
	}
}
