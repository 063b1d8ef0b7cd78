package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeResolver struct {
	agents map[string]*entity.RetrievalAgent
	err    error
}

func (r *fakeResolver) Resolve(_ context.Context, botID string) (*entity.RetrievalAgent, error) {
	if r.err != nil {
		return nil, r.err
	}
	agent, ok := r.agents[botID]
	if !ok {
		return nil, entity.ErrAgentNotFound
	}
	return agent, nil
}

type fakeSearch struct {
	queries []*entity.SearchQuery
	results []entity.SearchResult
	err     error
}

func (s *fakeSearch) Search(_ context.Context, q *entity.SearchQuery) (*entity.SearchResponse, error) {
	s.queries = append(s.queries, q)
	if s.err != nil {
		return nil, s.err
	}
	return &entity.SearchResponse{Results: s.results}, nil
}

func supportAgent() *entity.RetrievalAgent {
	return &entity.RetrievalAgent{
		ID:           "agent-1",
		Name:         "support",
		SystemPrompt: "You are the support assistant.",
		Collection:   "kb-support",
		TopK:         5,
	}
}

func kbHits(n int) []entity.SearchResult {
	var hits []entity.SearchResult
	for i := 0; i < n; i++ {
		hits = append(hits, entity.SearchResult{
			Title:   fmt.Sprintf("Article %d", i+1),
			URL:     fmt.Sprintf("https://kb.example/%d", i+1),
			Date:    "2026-08-01",
			Content: fmt.Sprintf("body %d", i+1),
		})
	}
	return hits
}

func retrievalContext(botID string) entity.ChatContext {
	return entity.ChatContext{
		BotID:        botID,
		SystemPrompt: "original prompt",
		Messages: []entity.Message{
			{Role: entity.RoleUser, Content: "how do I reset my password?"},
		},
	}
}

func TestRetrievalShouldRunRequiresBotID(t *testing.T) {
	stage := NewRetrievalEnrichmentStage(&fakeResolver{}, &fakeSearch{}, zap.NewNop())
	assert.False(t, stage.ShouldRun(retrievalContext("")))
	assert.True(t, stage.ShouldRun(retrievalContext("bot-1")))
}

func TestRetrievalUnknownBotLeavesContextUntouched(t *testing.T) {
	search := &fakeSearch{}
	stage := NewRetrievalEnrichmentStage(&fakeResolver{agents: map[string]*entity.RetrievalAgent{}}, search, zap.NewNop())

	c := retrievalContext("nobody")
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, c, out)
	assert.Empty(t, search.queries)
}

func TestRetrievalResolverFailurePropagates(t *testing.T) {
	stage := NewRetrievalEnrichmentStage(&fakeResolver{err: errors.New("db down")}, &fakeSearch{}, zap.NewNop())

	_, err := stage.Execute(context.Background(), retrievalContext("bot-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db down")
}

func TestRetrievalGroundsConversation(t *testing.T) {
	search := &fakeSearch{results: kbHits(2)}
	stage := NewRetrievalEnrichmentStage(
		&fakeResolver{agents: map[string]*entity.RetrievalAgent{"bot-1": supportAgent()}},
		search, zap.NewNop())

	out, err := stage.Execute(context.Background(), retrievalContext("bot-1"))
	require.NoError(t, err)

	assert.Equal(t, "You are the support assistant.", out.SystemPrompt)

	require.Len(t, search.queries, 1)
	assert.Equal(t, "kb-support", search.queries[0].Collection)
	assert.Equal(t, "how do I reset my password?", search.queries[0].Query)
	assert.Equal(t, 5, search.queries[0].TopK)

	require.Len(t, out.Processed.Citations, 2)
	assert.Equal(t, 1, out.Processed.Citations[0].Number)
	assert.Equal(t, 2, out.Processed.Citations[1].Number)
	assert.Equal(t, "Article 1", out.Processed.Citations[0].Title)
	assert.Equal(t, "https://kb.example/1", out.Processed.Citations[0].URL)

	msgs := out.ActiveMessages()
	require.Len(t, msgs, 2)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "[1] Article 1")
	assert.Contains(t, msgs[0].Content, "[2] Article 2")
	assert.Contains(t, msgs[0].Content, "https://kb.example/1")
	assert.Contains(t, msgs[0].Content, "https://kb.example/2")
	assert.Contains(t, msgs[0].Content, "body 1")
	assert.Contains(t, msgs[0].Content, "its own bracket group")
	assert.Equal(t, "how do I reset my password?", msgs[1].Content)

	require.NotNil(t, out.Processed.RAGConfig)
	assert.Equal(t, "support", out.Processed.RAGConfig.AgentName)
	assert.Len(t, out.Processed.RAGConfig.Results, 2)
}

func TestRetrievalEmptyResultsStillOverridesPersona(t *testing.T) {
	search := &fakeSearch{}
	stage := NewRetrievalEnrichmentStage(
		&fakeResolver{agents: map[string]*entity.RetrievalAgent{"bot-1": supportAgent()}},
		search, zap.NewNop())

	c := retrievalContext("bot-1")
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Equal(t, "You are the support assistant.", out.SystemPrompt)
	assert.Empty(t, out.Processed.Citations)
	// no grounding message without results
	assert.Equal(t, c.Messages, out.ActiveMessages())
	require.NotNil(t, out.Processed.RAGConfig)
	assert.Empty(t, out.Processed.RAGConfig.Results)
}

func TestRetrievalContinuesCitationNumbering(t *testing.T) {
	search := &fakeSearch{results: kbHits(2)}
	stage := NewRetrievalEnrichmentStage(
		&fakeResolver{agents: map[string]*entity.RetrievalAgent{"bot-1": supportAgent()}},
		search, zap.NewNop())

	c := retrievalContext("bot-1")
	c.Processed = &entity.ProcessedContent{
		Citations: []entity.Citation{
			{Number: 1, Title: "earlier"},
			{Number: 2, Title: "earlier too"},
		},
	}

	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Processed.Citations, 4)
	assert.Equal(t, "earlier", out.Processed.Citations[0].Title)
	assert.Equal(t, 3, out.Processed.Citations[2].Number)
	assert.Equal(t, 4, out.Processed.Citations[3].Number)
	assert.Contains(t, out.ActiveMessages()[0].Content, "[3] Article 1")
}

func TestRetrievalFoldsFileContextAfterGrounding(t *testing.T) {
	search := &fakeSearch{results: kbHits(1)}
	stage := NewRetrievalEnrichmentStage(
		&fakeResolver{agents: map[string]*entity.RetrievalAgent{"bot-1": supportAgent()}},
		search, zap.NewNop())

	c := retrievalContext("bot-1")
	c.Processed = &entity.ProcessedContent{
		InlineFiles: []entity.InlineFile{{Filename: "notes.txt", Content: "meeting notes"}},
	}

	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	msgs := out.ActiveMessages()
	require.Len(t, msgs, 3)
	assert.Contains(t, msgs[0].Content, "[1] Article 1")
	assert.Contains(t, msgs[1].Content, "meeting notes")
	assert.Equal(t, "how do I reset my password?", msgs[2].Content)
	assert.True(t, FileContextFolded(out))
}

func TestRetrievalSearchFailureReturnsError(t *testing.T) {
	search := &fakeSearch{err: errors.New("search unavailable")}
	stage := NewRetrievalEnrichmentStage(
		&fakeResolver{agents: map[string]*entity.RetrievalAgent{"bot-1": supportAgent()}},
		search, zap.NewNop())

	_, err := stage.Execute(context.Background(), retrievalContext("bot-1"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kb-support")
}
