package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const (
	toolRoutingStageName = "tool_routing"

	webSearchTool = "web_search"

	routingMaxTokens = 300
)

const routingPrompt = `You decide whether answering the user's latest message requires a web search.
You see the conversation so far and the content of any attached files.
Respond with JSON only, no prose: {"tools": ["web_search"], "query": "<standalone search query>"}.
When no search is needed respond {"tools": [], "query": ""}.
Searches help with current events, facts likely to have changed, and anything the user explicitly asks to look up.`

// ToolRoutingStage decides, via a small LLM policy call, whether the turn
// needs a web search, executes it, and folds the findings into the last
// user message. Forced mode always searches and uses the policy only to
// reformulate the query.
type ToolRoutingStage struct {
	completer Completer
	webSearch WebSearchConnector
	logger    *zap.Logger
}

func NewToolRoutingStage(completer Completer, webSearch WebSearchConnector, logger *zap.Logger) *ToolRoutingStage {
	return &ToolRoutingStage{
		completer: completer,
		webSearch: webSearch,
		logger:    logger,
	}
}

func (s *ToolRoutingStage) Name() string {
	return toolRoutingStageName
}

func (s *ToolRoutingStage) ShouldRun(c entity.ChatContext) bool {
	if c.SearchMode != entity.SearchModeAuto && c.SearchMode != entity.SearchModeForced {
		return false
	}
	// A resolved retrieval agent can veto web search for its conversations.
	if c.Processed != nil && c.Processed.RAGConfig != nil && !c.Processed.RAGConfig.AllowWebSearch {
		return false
	}
	return true
}

// routingDecision is the JSON contract of the routing policy call.
type routingDecision struct {
	Tools []string `json:"tools"`
	Query string   `json:"query"`
}

func (s *ToolRoutingStage) Execute(ctx context.Context, c entity.ChatContext) (entity.ChatContext, error) {
	idx := entity.LastUserMessageIndex(c.ActiveMessages())
	if idx < 0 {
		return c, nil
	}
	userText := c.ActiveMessages()[idx].Text()

	query := userText
	decision, err := s.route(ctx, c)
	switch {
	case err != nil && c.SearchMode == entity.SearchModeForced:
		// Forced mode searches regardless, falling back to the raw
		// message text when the policy call cannot produce a query.
		ctxzap.Warn(ctx, "routing policy failed, searching with raw query", zap.Error(err))
	case err != nil:
		return c, fmt.Errorf("routing decision: %w", err)
	case c.SearchMode == entity.SearchModeAuto && !decisionWantsSearch(decision):
		ctxzap.Debug(ctx, "routing policy declined web search")
		return c, nil
	case decision.Query != "":
		query = decision.Query
	}

	resp, err := s.webSearch.Execute(ctx, &entity.WebSearchRequest{
		Query: query,
		User:  c.User.ID,
	})
	if err != nil {
		return c, fmt.Errorf("web search %q: %w", query, err)
	}

	ctxzap.Info(ctx, "web search executed",
		zap.String("query", query),
		zap.Int("citations", len(resp.Citations)))

	out := c.EnsureProcessed()

	// Tool citations are reassigned positionally so the combined sequence
	// stays contiguous even when the tool numbers with gaps or out of
	// order. Markers go through placeholders first so a rewritten number
	// can never be matched again by a later replacement.
	offset := out.MaxCitationNumber()
	text := resp.Text
	for i, ct := range resp.Citations {
		text = strings.ReplaceAll(text, fmt.Sprintf("[%d]", ct.Number), citationPlaceholder(i))
	}
	for i, ct := range resp.Citations {
		renumbered := ct
		renumbered.Number = offset + i + 1
		out.Processed.Citations = append(out.Processed.Citations, renumbered)
		text = strings.ReplaceAll(text, citationPlaceholder(i), fmt.Sprintf("[%d]", renumbered.Number))
	}

	active := out.ActiveMessages()
	enriched := make([]entity.Message, len(active))
	copy(enriched, active)
	enriched[idx] = appendToMessage(enriched[idx],
		fmt.Sprintf("\n\nWeb search findings (cite by bracketed number):\n%s", text))
	return out.WithEnriched(enriched), nil
}

// route asks the policy model whether the turn needs a search. The policy
// sees the whole active conversation, plus the ingested file content when
// it has not been folded into the messages yet.
func (s *ToolRoutingStage) route(ctx context.Context, c entity.ChatContext) (routingDecision, error) {
	active := c.ActiveMessages()
	msgs := make([]entity.Message, 0, len(active)+2)
	msgs = append(msgs, entity.Message{Role: entity.RoleSystem, Content: routingPrompt})
	if !FileContextFolded(c) {
		if block := renderFileContext(c.Processed); block != "" {
			msgs = append(msgs, entity.Message{Role: entity.RoleSystem, Content: block})
		}
	}
	for _, m := range active {
		msgs = append(msgs, entity.Message{Role: m.Role, Content: m.Text()})
	}

	raw, err := s.completer.Complete(ctx, entity.CompletionRequest{
		Model:           c.Model,
		Messages:        msgs,
		MaxOutputTokens: routingMaxTokens,
		User:            c.User,
	})
	if err != nil {
		return routingDecision{}, err
	}

	var decision routingDecision
	if err := json.Unmarshal([]byte(extractJSON(raw)), &decision); err != nil {
		return routingDecision{}, fmt.Errorf("%w: %q", entity.ErrInvalidFormat, raw)
	}
	return decision, nil
}

// citationPlaceholder marks the i-th tool citation during marker rewriting.
// NUL cannot appear in model output, so a placeholder never collides with text.
func citationPlaceholder(i int) string {
	return fmt.Sprintf("\x00%d\x00", i)
}

func decisionWantsSearch(d routingDecision) bool {
	for _, t := range d.Tools {
		if t == webSearchTool {
			return true
		}
	}
	return false
}

// appendToMessage adds text to a message, extending the last text part of
// mixed-content messages so file parts stay untouched.
func appendToMessage(m entity.Message, text string) entity.Message {
	if len(m.Parts) == 0 {
		m.Content += text
		return m
	}
	parts := make([]entity.ContentPart, len(m.Parts))
	copy(parts, m.Parts)
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i].Type == entity.PartText {
			parts[i].Text += text
			m.Parts = parts
			return m
		}
	}
	parts = append(parts, entity.ContentPart{Type: entity.PartText, Text: text})
	m.Parts = parts
	return m
}

// extractJSON tolerates models that wrap their JSON answer in code fences
// or prose by slicing from the first brace to the matching last one.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}
