package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/grpc-ecosystem/go-grpc-middleware/logging/zap/ctxzap"
	"go.uber.org/zap"
)

const retrievalStageName = "retrieval"

// RetrievalEnrichmentStage resolves the bot id to a configured agent,
// queries the knowledge base with the last user message and grounds the
// conversation with the numbered results. An unknown bot id leaves the
// context untouched; a resolved agent's persona overrides the caller's
// system prompt even when the search comes back empty.
type RetrievalEnrichmentStage struct {
	agents AgentResolver
	search SearchConnector
	logger *zap.Logger
	now    func() time.Time
}

func NewRetrievalEnrichmentStage(agents AgentResolver, search SearchConnector, logger *zap.Logger) *RetrievalEnrichmentStage {
	return &RetrievalEnrichmentStage{
		agents: agents,
		search: search,
		logger: logger,
		now:    time.Now,
	}
}

func (s *RetrievalEnrichmentStage) Name() string {
	return retrievalStageName
}

func (s *RetrievalEnrichmentStage) ShouldRun(c entity.ChatContext) bool {
	return c.BotID != ""
}

func (s *RetrievalEnrichmentStage) Execute(ctx context.Context, c entity.ChatContext) (entity.ChatContext, error) {
	agent, err := s.agents.Resolve(ctx, c.BotID)
	if err != nil {
		if errors.Is(err, entity.ErrAgentNotFound) {
			ctxzap.Debug(ctx, "bot id does not resolve to an agent", zap.String("bot_id", c.BotID))
			return c, nil
		}
		return c, fmt.Errorf("resolve agent %q: %w", c.BotID, err)
	}

	out := c.EnsureProcessed()
	if agent.SystemPrompt != "" {
		out.SystemPrompt = agent.SystemPrompt
	}

	var dateRange string
	if agent.DateRangeDays > 0 {
		dateRange = s.now().AddDate(0, 0, -agent.DateRangeDays).Format("2006-01-02")
	}
	out.Processed.RAGConfig = &entity.RAGConfig{
		AgentID:        agent.ID,
		AgentName:      agent.Name,
		DateRange:      dateRange,
		AllowWebSearch: agent.AllowWebSearch,
	}

	idx := entity.LastUserMessageIndex(out.ActiveMessages())
	if idx < 0 {
		return out, nil
	}
	query := out.ActiveMessages()[idx].Text()

	resp, err := s.search.Search(ctx, &entity.SearchQuery{
		Collection: agent.Collection,
		Query:      query,
		TopK:       agent.TopK,
		DateRange:  dateRange,
	})
	if err != nil {
		return out, fmt.Errorf("search collection %q: %w", agent.Collection, err)
	}
	out.Processed.RAGConfig.Results = resp.Results

	ctxzap.Info(ctx, "knowledge base searched",
		zap.String("agent", agent.Name),
		zap.Int("results", len(resp.Results)))

	if len(resp.Results) == 0 {
		return out, nil
	}

	next := out.MaxCitationNumber() + 1
	citations := make([]entity.Citation, 0, len(resp.Results))
	for i, r := range resp.Results {
		citations = append(citations, entity.Citation{
			Number: next + i,
			Title:  r.Title,
			URL:    r.URL,
			Date:   r.Date,
		})
	}
	out.Processed.Citations = append(out.Processed.Citations, citations...)

	grounding := entity.Message{
		Role:    entity.RoleSystem,
		Content: renderGrounding(resp.Results, citations),
	}

	out = FoldFileContext(out)
	active := out.ActiveMessages()
	enriched := make([]entity.Message, 0, len(active)+1)
	enriched = append(enriched, grounding)
	enriched = append(enriched, active...)
	return out.WithEnriched(enriched), nil
}

// renderGrounding formats search hits as a numbered source list with an
// instruction to cite them by bracketed number.
func renderGrounding(results []entity.SearchResult, citations []entity.Citation) string {
	var b strings.Builder
	b.WriteString("Use the following sources to answer. ")
	fmt.Fprintf(&b, "Cite a source with its bracketed number, for example [%d]. ", citations[0].Number)
	b.WriteString("When several sources support a statement, cite each in its own bracket group, never merged into one.\n\n")
	for i, r := range results {
		fmt.Fprintf(&b, "[%d] %s", citations[i].Number, r.Title)
		if r.Date != "" {
			fmt.Fprintf(&b, " (%s)", r.Date)
		}
		b.WriteString("\n")
		if r.URL != "" {
			b.WriteString(r.URL)
			b.WriteString("\n")
		}
		b.WriteString(r.Content)
		b.WriteString("\n\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
