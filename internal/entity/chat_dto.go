package entity

// ChatRequest is the chat-turn entry point payload.
type ChatRequest struct {
	Model           string    `json:"model"`
	Messages        []Message `json:"messages"`
	SystemPrompt    string    `json:"system_prompt,omitempty"`
	Temperature     *float32  `json:"temperature,omitempty"`
	BotID           string    `json:"bot_id,omitempty"`
	SearchMode      string    `json:"search_mode,omitempty"`
	ReasoningEffort string    `json:"reasoning_effort,omitempty"`
	Verbosity       string    `json:"verbosity,omitempty"`
	Tone            string    `json:"tone,omitempty"`
	User            User      `json:"user"`
}

// ChatResult is the buffered outcome of one chat turn.
type ChatResult struct {
	Text      string       `json:"text"`
	Thinking  string       `json:"thinking,omitempty"`
	Citations []Citation   `json:"citations,omitempty"`
	Errors    []StageError `json:"errors,omitempty"`
}

// ModelDTO is the public description of one configured model.
type ModelDTO struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	SDK              string `json:"sdk"`
	MaxContextTokens int    `json:"max_context_tokens"`
	MaxOutputTokens  int    `json:"max_output_tokens"`
	Reasoning        bool   `json:"reasoning"`
}

// ResultFormat selects a transcript export format.
type ResultFormat string

const (
	FormatMarkdown ResultFormat = "markdown"
	FormatDOCX     ResultFormat = "docx"
	FormatPDF      ResultFormat = "pdf"
)

// ExportRequest asks for a downloadable rendering of a conversation.
type ExportRequest struct {
	Format   ResultFormat `json:"format"`
	Title    string       `json:"title,omitempty"`
	Messages []Message    `json:"messages"`
}
