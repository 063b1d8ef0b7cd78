package provider

import (
	"context"
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
)

// Request is the provider-level shape of one generation call. Messages may
// carry mixed content; adapters translate text and image parts and drop
// file parts, which earlier processing has already folded into text.
type Request struct {
	Model           *entity.ModelConfig
	Messages        []entity.Message
	SystemPrompt    string
	Temperature     *float32
	MaxOutputTokens int
	ReasoningEffort string
	Verbosity       string
	User            entity.User
}

// Response is a buffered generation result.
type Response struct {
	Text     string
	Thinking string
}

// Handler adapts one provider API family. Stream returns a channel closed
// when generation finishes; a chunk with Err set is always the last one.
type Handler interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	Stream(ctx context.Context, req Request) (<-chan entity.CompletionChunk, error)
}

// Factory dispatches models to the handler registered for their SDK family.
type Factory struct {
	handlers map[entity.SDKFamily]Handler
}

func NewFactory() *Factory {
	return &Factory{handlers: make(map[entity.SDKFamily]Handler)}
}

func (f *Factory) Register(sdk entity.SDKFamily, h Handler) {
	f.handlers[sdk] = h
}

// ForModel returns the handler serving the given model's SDK family.
func (f *Factory) ForModel(m *entity.ModelConfig) (Handler, error) {
	if m == nil {
		return nil, entity.ErrModelNotFound
	}
	h, ok := f.handlers[m.SDK]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnknownSDK, m.SDK)
	}
	return h, nil
}
