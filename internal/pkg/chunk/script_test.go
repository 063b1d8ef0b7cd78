package chunk

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEstimateCharsPerToken_LatinText(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{"short", "hello world"},
		{"long", strings.Repeat("the quick brown fox ", 500)},
		{"with digits and punctuation", "Order #42 shipped on 2024-01-05, arriving soon!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, LatinCharsPerToken, EstimateCharsPerToken(tt.text, DefaultSampleSize))
		})
	}
}

func TestEstimateCharsPerToken_EmptyInput(t *testing.T) {
	assert.Equal(t, LatinCharsPerToken, EstimateCharsPerToken("", DefaultSampleSize))
}

func TestEstimateCharsPerToken_CJKDominant(t *testing.T) {
	text := strings.Repeat("日本語のテキスト", 100)
	assert.Equal(t, CJKCharsPerToken, EstimateCharsPerToken(text, DefaultSampleSize))
}

func TestEstimateCharsPerToken_CJKAboveThreshold(t *testing.T) {
	// 40% CJK within the sample window is enough to pick the CJK ratio.
	text := strings.Repeat("漢字漢字"+"latin!", 100)
	assert.Equal(t, CJKCharsPerToken, EstimateCharsPerToken(text, DefaultSampleSize))
}

func TestEstimateCharsPerToken_CyrillicDominant(t *testing.T) {
	text := strings.Repeat("привет мир ", 200)
	assert.Equal(t, DenseCharsPerToken, EstimateCharsPerToken(text, DefaultSampleSize))
}

func TestEstimateCharsPerToken_SampleWindowBoundsClassification(t *testing.T) {
	// The first 1000 characters are Latin; CJK beyond the window must not
	// affect the result.
	text := strings.Repeat("a", 1000) + strings.Repeat("漢", 5000)
	assert.Equal(t, LatinCharsPerToken, EstimateCharsPerToken(text, 1000))

	// Shrinking the window onto the CJK prefix flips the outcome.
	flipped := strings.Repeat("漢", 400) + strings.Repeat("a", 5000)
	assert.Equal(t, CJKCharsPerToken, EstimateCharsPerToken(flipped, 400))
}

func TestEstimateCharsPerToken_TieFavorsCJK(t *testing.T) {
	text := strings.Repeat("漢я", 300)
	assert.Equal(t, CJKCharsPerToken, EstimateCharsPerToken(text, DefaultSampleSize))
}
