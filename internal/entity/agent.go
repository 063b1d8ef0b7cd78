package entity

// RetrievalAgent is a configured knowledge-base agent resolvable by bot id.
type RetrievalAgent struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	SystemPrompt   string `json:"system_prompt"`
	Collection     string `json:"collection"`
	TopK           int    `json:"top_k"`
	DateRangeDays  int    `json:"date_range_days"`
	AllowWebSearch bool   `json:"allow_web_search"`
}

// SearchResult is one knowledge-base or web-search hit.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Date    string `json:"date,omitempty"`
	Content string `json:"content"`
}

// SearchQuery is the request shape of the knowledge-base search port.
type SearchQuery struct {
	Collection string `json:"collection"`
	Query      string `json:"query"`
	TopK       int    `json:"top_k"`
	DateRange  string `json:"date_range,omitempty"`
}

// SearchResponse is the response shape of the knowledge-base search port.
type SearchResponse struct {
	Results  []SearchResult `json:"results"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// WebSearchRequest is the request shape of the web-search tool port.
type WebSearchRequest struct {
	Query string `json:"query"`
	Model string `json:"model,omitempty"`
	User  string `json:"user,omitempty"`
}

// WebSearchResponse is the response shape of the web-search tool port.
// Citations come back numbered from 1 by the tool; the tool-routing stage
// renumbers them to continue the pipeline-wide sequence.
type WebSearchResponse struct {
	Text      string     `json:"text"`
	Citations []Citation `json:"citations"`
}

// ASRTranscribeResponse is the response shape of the transcription port.
type ASRTranscribeResponse struct {
	Transcription string `json:"transcription"`
}
