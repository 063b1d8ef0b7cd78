package entity

// Role identifies the author of a conversation message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartType identifies the kind of a mixed-content message part.
type PartType string

const (
	PartText  PartType = "text"
	PartImage PartType = "image"
	PartFile  PartType = "file"
)

// ContentPart is one element of a mixed-content message.
type ContentPart struct {
	Type     PartType `json:"type"`
	Text     string   `json:"text,omitempty"`
	ImageURL string   `json:"image_url,omitempty"`
	FileURL  string   `json:"file_url,omitempty"`
	Filename string   `json:"filename,omitempty"`
}

// Message is a single conversation turn. Content holds plain text; when
// Parts is non-empty it takes precedence over Content.
type Message struct {
	Role    Role          `json:"role"`
	Content string        `json:"content,omitempty"`
	Parts   []ContentPart `json:"parts,omitempty"`
}

// Text returns the textual content of the message, concatenating text parts
// when the message carries mixed content.
func (m Message) Text() string {
	if len(m.Parts) == 0 {
		return m.Content
	}
	var out string
	for _, p := range m.Parts {
		if p.Type == PartText {
			if out != "" {
				out += "\n"
			}
			out += p.Text
		}
	}
	return out
}

// FileParts returns the file-reference parts of the message in order.
func (m Message) FileParts() []ContentPart {
	var files []ContentPart
	for _, p := range m.Parts {
		if p.Type == PartFile {
			files = append(files, p)
		}
	}
	return files
}

// SearchMode controls whether the tool-routing stage may run web search.
type SearchMode string

const (
	SearchModeOff    SearchMode = "off"
	SearchModeAuto   SearchMode = "auto"
	SearchModeForced SearchMode = "forced"
	// SearchModeAgent delegates searching to an external agent entirely;
	// the in-process tool router never runs in this mode.
	SearchModeAgent SearchMode = "agent"
)

// User identifies the caller of a chat turn. The raw email never leaves the
// process; providers receive a hashed identifier.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Citation is a numbered reference to a source usable for in-text attribution.
// Numbers form a contiguous ascending sequence starting at 1 across a whole
// pipeline run, regardless of which stages contributed them.
type Citation struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	URL    string `json:"url"`
	Date   string `json:"date,omitempty"`
}

// FileSummary is the condensed content of one oversized uploaded document.
type FileSummary struct {
	Filename string `json:"filename"`
	Summary  string `json:"summary"`
}

// InlineFile is the full content of one uploaded document small enough to
// fit the target model's context window.
type InlineFile struct {
	Filename string `json:"filename"`
	Content  string `json:"content"`
}

// Transcript is the ASR transcription of one uploaded audio file.
type Transcript struct {
	Filename   string `json:"filename"`
	Transcript string `json:"transcript"`
}

// RAGConfig records what the retrieval stage did for observability and for
// downstream stages that need the resolved agent settings.
type RAGConfig struct {
	AgentID        string         `json:"agent_id"`
	AgentName      string         `json:"agent_name"`
	Results        []SearchResult `json:"results"`
	DateRange      string         `json:"date_range,omitempty"`
	AllowWebSearch bool           `json:"allow_web_search"`
}

// ProcessedContent accumulates everything the enrichment stages produced.
type ProcessedContent struct {
	FileSummaries []FileSummary  `json:"file_summaries,omitempty"`
	InlineFiles   []InlineFile   `json:"inline_files,omitempty"`
	Transcripts   []Transcript   `json:"transcripts,omitempty"`
	Citations     []Citation     `json:"citations,omitempty"`
	RAGConfig     *RAGConfig     `json:"rag_config,omitempty"`
	Metadata      map[string]any `json:"metadata,omitempty"`
}

// StageError is a non-fatal failure recorded by an enrichment stage.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
}

// ChatContext is the enrichment pipeline's unit of work. Stages treat it as
// immutable: every stage returns a new value (or its input unchanged) and
// never mutates slices it did not allocate.
type ChatContext struct {
	Messages         []Message
	EnrichedMessages []Message
	Processed        *ProcessedContent
	Errors           []StageError

	BotID        string
	SearchMode   SearchMode
	Model        *ModelConfig
	User         User
	SystemPrompt string
	Temperature  *float32
}

// ActiveMessages returns the enriched message set when a stage has produced
// one, and the original messages otherwise.
func (c ChatContext) ActiveMessages() []Message {
	if c.EnrichedMessages != nil {
		return c.EnrichedMessages
	}
	return c.Messages
}

// WithEnriched returns a copy of the context carrying the given message set.
func (c ChatContext) WithEnriched(msgs []Message) ChatContext {
	c.EnrichedMessages = msgs
	return c
}

// WithError returns a copy of the context with a recorded stage failure.
func (c ChatContext) WithError(stage string, err error) ChatContext {
	errs := make([]StageError, 0, len(c.Errors)+1)
	errs = append(errs, c.Errors...)
	errs = append(errs, StageError{Stage: stage, Message: err.Error()})
	c.Errors = errs
	return c
}

// EnsureProcessed returns a copy of the context whose Processed bag is a
// fresh copy safe for the caller to extend.
func (c ChatContext) EnsureProcessed() ChatContext {
	var pc ProcessedContent
	if c.Processed != nil {
		pc = *c.Processed
	}
	c.Processed = &pc
	return c
}

// MaxCitationNumber returns the highest citation number already assigned,
// or zero when no stage has contributed citations yet.
func (c ChatContext) MaxCitationNumber() int {
	if c.Processed == nil {
		return 0
	}
	max := 0
	for _, ct := range c.Processed.Citations {
		if ct.Number > max {
			max = ct.Number
		}
	}
	return max
}

// LastUserMessageIndex returns the index of the last user-role message in
// the given message set, or -1 when there is none.
func LastUserMessageIndex(msgs []Message) int {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == RoleUser {
			return i
		}
	}
	return -1
}
