package chat

import (
	"context"

	"github.com/futig/chat-backend/internal/entity"
	chatuc "github.com/futig/chat-backend/internal/usecase/chat"
)

// ChatUsecase is the orchestration port consumed by the HTTP handlers.
type ChatUsecase interface {
	ChatTurn(ctx context.Context, req entity.ChatRequest) (*entity.ChatResult, error)
	ChatTurnStream(ctx context.Context, req entity.ChatRequest) (*chatuc.StreamResult, error)
	Models() []entity.ModelDTO
}
