package summary

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/futig/chat-backend/internal/pkg/chunk"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCompleter struct {
	mu       sync.Mutex
	calls    []entity.CompletionRequest
	response string
	failOn   int // 1-based call number to fail on; 0 disables
}

func (f *fakeCompleter) Complete(_ context.Context, req entity.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.failOn > 0 && len(f.calls) == f.failOn {
		return "", errors.New("upstream completion failed")
	}
	if f.response != "" {
		return f.response, nil
	}
	return "partial summary", nil
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeExtractor struct{ err error }

func (f *fakeExtractor) ExtractText(data []byte, _ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return string(data), nil
}

func newSummarizer(c *fakeCompleter) *Summarizer {
	return New(c, &fakeExtractor{}, zap.NewNop())
}

// smallModel plans MinChunkChars chunks, so modest test inputs overflow.
func smallModel() *entity.ModelConfig {
	return &entity.ModelConfig{
		ID:               "test-model",
		MaxContextTokens: 2_000,
		MaxOutputTokens:  500,
	}
}

func TestSummarize_TextAtChunkSizeIsReturnedUnchanged(t *testing.T) {
	completer := &fakeCompleter{}
	s := newSummarizer(completer)
	text := strings.Repeat("a", chunk.MinChunkChars)

	got, err := s.Summarize(context.Background(), Request{PreExtracted: text, Model: smallModel()})

	require.NoError(t, err)
	assert.Equal(t, text, got)
	assert.Zero(t, completer.callCount(), "inlineable text must not trigger LLM calls")
}

func TestSummarize_OneCharOverChunkSizeIsSummarized(t *testing.T) {
	completer := &fakeCompleter{response: "condensed"}
	s := newSummarizer(completer)
	text := strings.Repeat("a", chunk.MinChunkChars+1)

	got, err := s.Summarize(context.Background(), Request{PreExtracted: text, Model: smallModel()})

	require.NoError(t, err)
	assert.Equal(t, "condensed", got)
	// Two chunk calls plus the reduction call.
	assert.Equal(t, 3, completer.callCount())
}

func TestSummarize_ReductionRunsForSingleBatch(t *testing.T) {
	completer := &fakeCompleter{response: "reduced"}
	s := newSummarizer(completer)
	// Two chunks fit within one batch, but the reduce pass still runs.
	text := strings.Repeat("b", chunk.MinChunkChars*2)

	got, err := s.Summarize(context.Background(), Request{PreExtracted: text, Model: smallModel()})

	require.NoError(t, err)
	assert.Equal(t, "reduced", got)
	assert.Equal(t, 3, completer.callCount())
}

func TestSummarize_ChunkFailureFailsWholeDocument(t *testing.T) {
	completer := &fakeCompleter{failOn: 1}
	s := newSummarizer(completer)
	text := strings.Repeat("c", chunk.MinChunkChars*3)

	_, err := s.Summarize(context.Background(), Request{PreExtracted: text, Model: smallModel()})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "summarize chunk")
}

func TestSummarize_ExtractionErrorPropagates(t *testing.T) {
	s := New(&fakeCompleter{}, &fakeExtractor{err: entity.ErrUnsupportedFormat}, zap.NewNop())

	_, err := s.Summarize(context.Background(), Request{Data: []byte("x"), Filename: "f.bin"})

	assert.ErrorIs(t, err, entity.ErrUnsupportedFormat)
}

func TestSummarize_PreExtractedSkipsExtractor(t *testing.T) {
	// An extractor that always fails proves it is never consulted.
	s := New(&fakeCompleter{}, &fakeExtractor{err: errors.New("must not be called")}, zap.NewNop())

	got, err := s.Summarize(context.Background(), Request{PreExtracted: "small text", Model: smallModel()})

	require.NoError(t, err)
	assert.Equal(t, "small text", got)
}

func TestSummarize_ChunkCallsCarryOutputBudget(t *testing.T) {
	completer := &fakeCompleter{}
	s := newSummarizer(completer)
	text := strings.Repeat("d", chunk.MinChunkChars+1)

	_, err := s.Summarize(context.Background(), Request{PreExtracted: text, Model: smallModel()})
	require.NoError(t, err)

	cfg := chunk.Plan(smallModel(), chunk.LatinCharsPerToken)
	for _, call := range completer.calls[:len(completer.calls)-1] {
		assert.Equal(t, cfg.MaxCompletionTokens, call.MaxOutputTokens)
	}
}
