package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type scriptedCompleter struct {
	reply string
	err   error
	calls []entity.CompletionRequest
}

func (c *scriptedCompleter) Complete(_ context.Context, req entity.CompletionRequest) (string, error) {
	c.calls = append(c.calls, req)
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

type fakeWebSearch struct {
	requests []*entity.WebSearchRequest
	resp     *entity.WebSearchResponse
	err      error
}

func (s *fakeWebSearch) Execute(_ context.Context, req *entity.WebSearchRequest) (*entity.WebSearchResponse, error) {
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.resp, nil
}

func routingContext(mode entity.SearchMode) entity.ChatContext {
	return entity.ChatContext{
		SearchMode: mode,
		Messages: []entity.Message{
			{Role: entity.RoleAssistant, Content: "hello"},
			{Role: entity.RoleUser, Content: "what happened at the summit today?"},
		},
	}
}

func TestToolRoutingShouldRun(t *testing.T) {
	stage := NewToolRoutingStage(&scriptedCompleter{}, &fakeWebSearch{}, zap.NewNop())

	assert.False(t, stage.ShouldRun(routingContext(entity.SearchModeOff)))
	assert.False(t, stage.ShouldRun(routingContext(entity.SearchModeAgent)))
	assert.True(t, stage.ShouldRun(routingContext(entity.SearchModeAuto)))
	assert.True(t, stage.ShouldRun(routingContext(entity.SearchModeForced)))
}

func TestToolRoutingAgentCanVetoWebSearch(t *testing.T) {
	stage := NewToolRoutingStage(&scriptedCompleter{}, &fakeWebSearch{}, zap.NewNop())

	c := routingContext(entity.SearchModeAuto)
	c.Processed = &entity.ProcessedContent{RAGConfig: &entity.RAGConfig{AllowWebSearch: false}}
	assert.False(t, stage.ShouldRun(c))

	c.Processed.RAGConfig.AllowWebSearch = true
	assert.True(t, stage.ShouldRun(c))
}

func TestToolRoutingForcedUsesPolicyQuery(t *testing.T) {
	// The policy declines, but forced mode searches anyway and keeps the
	// reformulated standalone query.
	completer := &scriptedCompleter{reply: `{"tools": [], "query": "summit outcome today"}`}
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{Text: "found it"}}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	out, err := stage.Execute(context.Background(), routingContext(entity.SearchModeForced))
	require.NoError(t, err)

	assert.Len(t, completer.calls, 1)
	require.Len(t, web.requests, 1)
	assert.Equal(t, "summit outcome today", web.requests[0].Query)

	msgs := out.ActiveMessages()
	assert.Contains(t, msgs[len(msgs)-1].Content, "found it")
}

func TestToolRoutingForcedSearchesDespitePolicyFailure(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("llm timeout")}
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{Text: "found it"}}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	_, err := stage.Execute(context.Background(), routingContext(entity.SearchModeForced))
	require.NoError(t, err)

	require.Len(t, web.requests, 1)
	assert.Equal(t, "what happened at the summit today?", web.requests[0].Query)
}

func TestToolRoutingPolicySeesConversationAndFiles(t *testing.T) {
	completer := &scriptedCompleter{reply: `{"tools": ["web_search"], "query": "q"}`}
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{Text: "coverage"}}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	c := routingContext(entity.SearchModeAuto)
	c.Processed = &entity.ProcessedContent{
		InlineFiles: []entity.InlineFile{{Filename: "notes.txt", Content: "the quarterly numbers"}},
	}

	_, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, completer.calls, 1)
	msgs := completer.calls[0].Messages
	require.Len(t, msgs, 4)
	assert.Equal(t, entity.RoleSystem, msgs[0].Role)
	assert.Contains(t, msgs[1].Content, "notes.txt")
	assert.Contains(t, msgs[1].Content, "the quarterly numbers")
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Equal(t, "what happened at the summit today?", msgs[3].Content)
}

func TestToolRoutingAutoDeclines(t *testing.T) {
	completer := &scriptedCompleter{reply: `{"tools": [], "query": ""}`}
	web := &fakeWebSearch{}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	c := routingContext(entity.SearchModeAuto)
	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	assert.Len(t, completer.calls, 1)
	assert.Empty(t, web.requests)
	assert.Equal(t, c, out)
}

func TestToolRoutingAutoUsesRoutedQuery(t *testing.T) {
	completer := &scriptedCompleter{reply: "Sure:\n```json\n{\"tools\": [\"web_search\"], \"query\": \"summit outcome 2026\"}\n```"}
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{Text: "coverage"}}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	_, err := stage.Execute(context.Background(), routingContext(entity.SearchModeAuto))
	require.NoError(t, err)

	require.Len(t, web.requests, 1)
	assert.Equal(t, "summit outcome 2026", web.requests[0].Query)
}

func TestToolRoutingPolicyFailureIsRecoverable(t *testing.T) {
	completer := &scriptedCompleter{err: errors.New("llm timeout")}
	web := &fakeWebSearch{}
	stage := NewToolRoutingStage(completer, web, zap.NewNop())

	c := routingContext(entity.SearchModeAuto)
	out, err := stage.Execute(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, c, out)
	assert.Empty(t, web.requests)
}

func TestToolRoutingUnparsableDecisionFails(t *testing.T) {
	completer := &scriptedCompleter{reply: "I think searching would be wise."}
	stage := NewToolRoutingStage(completer, &fakeWebSearch{}, zap.NewNop())

	_, err := stage.Execute(context.Background(), routingContext(entity.SearchModeAuto))
	require.Error(t, err)
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}

func TestToolRoutingSearchFailureLeavesContextUnchanged(t *testing.T) {
	web := &fakeWebSearch{err: errors.New("engine down")}
	stage := NewToolRoutingStage(&scriptedCompleter{}, web, zap.NewNop())

	c := routingContext(entity.SearchModeForced)
	out, err := stage.Execute(context.Background(), c)
	require.Error(t, err)
	assert.Equal(t, c, out)
}

func TestToolRoutingContinuesCitationNumbering(t *testing.T) {
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{
		Text: "Per [1], confirmed by [2].",
		Citations: []entity.Citation{
			{Number: 1, Title: "Reuters", URL: "https://reuters.example/a", Date: "2026-08-29"},
			{Number: 2, Title: "AP", URL: "https://ap.example/b"},
		},
	}}
	stage := NewToolRoutingStage(&scriptedCompleter{}, web, zap.NewNop())

	c := routingContext(entity.SearchModeForced)
	c.Processed = &entity.ProcessedContent{
		Citations: []entity.Citation{
			{Number: 1, Title: "KB article", URL: "https://kb.example/1"},
			{Number: 2, Title: "KB article 2", URL: "https://kb.example/2"},
			{Number: 3, Title: "KB article 3", URL: "https://kb.example/3"},
		},
	}

	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	require.Len(t, out.Processed.Citations, 5)
	// earlier citations keep their numbers and fields
	assert.Equal(t, 1, out.Processed.Citations[0].Number)
	assert.Equal(t, "KB article", out.Processed.Citations[0].Title)
	// tool citations renumbered to continue the sequence
	assert.Equal(t, 4, out.Processed.Citations[3].Number)
	assert.Equal(t, "Reuters", out.Processed.Citations[3].Title)
	assert.Equal(t, "2026-08-29", out.Processed.Citations[3].Date)
	assert.Equal(t, 5, out.Processed.Citations[4].Number)

	msgs := out.ActiveMessages()
	last := msgs[len(msgs)-1].Content
	assert.Contains(t, last, "Per [4], confirmed by [5].")
	assert.NotContains(t, last, "[1],")
}

func TestToolRoutingRenumbersGappedToolCitations(t *testing.T) {
	// Tool numbering with gaps, out of order, and overlapping the final
	// numbers: [2] becomes [1] while the original [1] becomes [2].
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{
		Text: "Per [2], then [1], then [7].",
		Citations: []entity.Citation{
			{Number: 2, Title: "B"},
			{Number: 1, Title: "A"},
			{Number: 7, Title: "G"},
		},
	}}
	stage := NewToolRoutingStage(&scriptedCompleter{}, web, zap.NewNop())

	out, err := stage.Execute(context.Background(), routingContext(entity.SearchModeForced))
	require.NoError(t, err)

	require.Len(t, out.Processed.Citations, 3)
	assert.Equal(t, 1, out.Processed.Citations[0].Number)
	assert.Equal(t, "B", out.Processed.Citations[0].Title)
	assert.Equal(t, 2, out.Processed.Citations[1].Number)
	assert.Equal(t, "A", out.Processed.Citations[1].Title)
	assert.Equal(t, 3, out.Processed.Citations[2].Number)

	msgs := out.ActiveMessages()
	assert.Contains(t, msgs[len(msgs)-1].Content, "Per [1], then [2], then [3].")
}

func TestToolRoutingAppendsToMixedContentMessage(t *testing.T) {
	web := &fakeWebSearch{resp: &entity.WebSearchResponse{Text: "results here"}}
	stage := NewToolRoutingStage(&scriptedCompleter{}, web, zap.NewNop())

	c := entity.ChatContext{
		SearchMode: entity.SearchModeForced,
		Messages: []entity.Message{{
			Role: entity.RoleUser,
			Parts: []entity.ContentPart{
				{Type: entity.PartText, Text: "what is this?"},
				{Type: entity.PartFile, FileURL: "doc.pdf", Filename: "doc.pdf"},
			},
		}},
	}

	out, err := stage.Execute(context.Background(), c)
	require.NoError(t, err)

	msg := out.ActiveMessages()[0]
	require.Len(t, msg.Parts, 2)
	assert.Contains(t, msg.Parts[0].Text, "results here")
	assert.Equal(t, entity.PartFile, msg.Parts[1].Type)
	// the original message is untouched
	assert.Equal(t, "what is this?", c.Messages[0].Parts[0].Text)
}
