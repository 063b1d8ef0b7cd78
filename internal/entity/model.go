package entity

// SDKFamily selects which provider handler serves a model.
type SDKFamily string

const (
	SDKOpenAI    SDKFamily = "openai"
	SDKAnthropic SDKFamily = "anthropic"
)

// ModelConfig describes one configured model and the capabilities the
// orchestrator may rely on when building requests.
type ModelConfig struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	SDK        SDKFamily `json:"sdk"`
	APIModelID string    `json:"api_model_id,omitempty"`

	MaxContextTokens int `json:"max_context_tokens"`
	MaxOutputTokens  int `json:"max_output_tokens"`

	// Reasoning models reject a temperature parameter and take their output
	// budget through max_completion_tokens instead of max_tokens.
	Reasoning               bool `json:"reasoning"`
	SupportsThinking        bool `json:"supports_thinking"`
	SupportsReasoningEffort bool `json:"supports_reasoning_effort"`
	SupportsVerbosity       bool `json:"supports_verbosity"`
}

// WireID returns the identifier sent to the provider API.
func (m *ModelConfig) WireID() string {
	if m.APIModelID != "" {
		return m.APIModelID
	}
	return m.ID
}
