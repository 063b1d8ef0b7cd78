package provider

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
)

// CompleterAdapter exposes the factory through the narrow completion port
// that the summarizer and the tool router consume.
type CompleterAdapter struct {
	factory *Factory
}

func NewCompleterAdapter(factory *Factory) *CompleterAdapter {
	return &CompleterAdapter{factory: factory}
}

func (a *CompleterAdapter) Complete(ctx context.Context, req entity.CompletionRequest) (string, error) {
	handler, err := a.factory.ForModel(req.Model)
	if err != nil {
		return "", err
	}
	resp, err := handler.Complete(ctx, Request{
		Model:           req.Model,
		Messages:        req.Messages,
		Temperature:     req.Temperature,
		MaxOutputTokens: req.MaxOutputTokens,
		User:            req.User,
	})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}
