package chunk

import (
	"math"

	"github.com/futig/chat-backend/internal/entity"
)

// Bounds keeping chunk plans sane for pathological model configurations:
// a tiny context window must not produce zero-size chunks and a huge one
// must not produce multi-megabyte LLM calls.
const (
	MinChunkChars = 10_000
	MaxChunkChars = 400_000

	MinBatchSize = 5

	MinSummaryLength = 2_000
	MaxSummaryLength = 32_000

	// promptOverhead covers the system/instruction tokens of a
	// summarization call.
	promptOverhead = 300

	maxCompletionTokensCap = 5000

	batchSizeContextDivisor = 50_000
)

// Fixed defaults used when no target model is supplied.
const (
	DefaultChunkSize           = 100_000
	DefaultBatchSize           = MinBatchSize
	DefaultMaxCompletionTokens = maxCompletionTokensCap
	DefaultMaxSummaryLength    = 8_000
)

// Config is the chunking plan for one document-processing invocation.
// Computed once, never mutated.
type Config struct {
	ChunkSize           int // characters per chunk
	BatchSize           int // chunks summarized per batch
	MaxCompletionTokens int // output budget of one chunk-summary call
	MaxSummaryLength    int // character budget of the final summary
}

// Plan derives a chunk configuration from the target model's context-window
// and output limits and a chars-per-token ratio. Summary depth and chunk
// granularity scale with the model's real capacity instead of one global
// constant. A nil model yields fixed defaults.
func Plan(model *entity.ModelConfig, charsPerToken float64) Config {
	if charsPerToken <= 0 {
		charsPerToken = LatinCharsPerToken
	}

	if model == nil || model.MaxContextTokens <= 0 || model.MaxOutputTokens <= 0 {
		return Config{
			ChunkSize:           DefaultChunkSize,
			BatchSize:           DefaultBatchSize,
			MaxCompletionTokens: DefaultMaxCompletionTokens,
			MaxSummaryLength:    DefaultMaxSummaryLength,
		}
	}

	maxCompletionTokens := model.MaxOutputTokens / 4
	if maxCompletionTokens > maxCompletionTokensCap {
		maxCompletionTokens = maxCompletionTokensCap
	}

	availableInputTokens := model.MaxContextTokens - maxCompletionTokens - promptOverhead
	chunkSize := clampInt(int(float64(availableInputTokens)*charsPerToken), MinChunkChars, MaxChunkChars)

	batchSize := int(math.Round(float64(model.MaxContextTokens) / batchSizeContextDivisor))
	if batchSize < MinBatchSize {
		batchSize = MinBatchSize
	}

	maxSummaryLength := clampInt(model.MaxOutputTokens*2, MinSummaryLength, MaxSummaryLength)

	return Config{
		ChunkSize:           chunkSize,
		BatchSize:           batchSize,
		MaxCompletionTokens: maxCompletionTokens,
		MaxSummaryLength:    maxSummaryLength,
	}
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
