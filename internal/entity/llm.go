package entity

// CompletionRequest is the generic LLM-completion port used by the
// document summarizer and the tool-routing policy. The orchestrator's final
// generation call goes through the richer provider request instead.
type CompletionRequest struct {
	Model           *ModelConfig
	Messages        []Message
	MaxOutputTokens int
	Temperature     *float32
	User            User
}

// CompletionChunk is one streamed fragment of a completion.
type CompletionChunk struct {
	Text     string
	Thinking string
	Err      error
}
