package chat

import (
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
)

// toneInstructions maps a requested tone to the instruction appended to
// the system prompt.
var toneInstructions = map[string]string{
	"professional": "Keep a professional, businesslike tone.",
	"friendly":     "Keep a warm, friendly tone.",
	"concise":      "Answer as briefly as the question allows.",
	"detailed":     "Answer thoroughly, covering relevant background and caveats.",
}

// applyTone appends the tone instruction to the system prompt. An empty
// tone is a no-op; an unknown one is a caller error.
func applyTone(systemPrompt, tone string) (string, error) {
	if tone == "" {
		return systemPrompt, nil
	}
	instruction, ok := toneInstructions[tone]
	if !ok {
		return "", fmt.Errorf("%w: tone %q", entity.ErrInvalidParameter, tone)
	}
	if systemPrompt == "" {
		return instruction, nil
	}
	return systemPrompt + "\n\n" + instruction, nil
}

// parseSearchMode validates the caller-supplied search mode, defaulting
// to auto.
func parseSearchMode(mode string) (entity.SearchMode, error) {
	switch entity.SearchMode(mode) {
	case "":
		return entity.SearchModeAuto, nil
	case entity.SearchModeOff, entity.SearchModeAuto, entity.SearchModeForced, entity.SearchModeAgent:
		return entity.SearchMode(mode), nil
	default:
		return "", fmt.Errorf("%w: search mode %q", entity.ErrInvalidParameter, mode)
	}
}
