package chunk

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitText_RoundTrip(t *testing.T) {
	texts := []string{
		"",
		"a",
		"hello world",
		strings.Repeat("abc", 1000),
		"漢字とひらがなが混ざったテキスト",
		"emoji 👩‍🚀 and combining: é ñ ü",
		"control\x00chars\ttabs\nnewlines",
	}
	sizes := []int{1, 2, 3, 7, 100, 10_000}

	for _, text := range texts {
		for _, size := range sizes {
			chunks := SplitText(text, size)
			assert.Equal(t, text, strings.Join(chunks, ""),
				"concatenation must reproduce input (size=%d)", size)
		}
	}
}

func TestSplitText_ChunkSizeBound(t *testing.T) {
	text := strings.Repeat("日本語text", 500)
	chunks := SplitText(text, 37)

	for i, c := range chunks {
		if i < len(chunks)-1 {
			assert.Equal(t, 37, utf8.RuneCountInString(c))
		} else {
			assert.LessOrEqual(t, utf8.RuneCountInString(c), 37)
		}
	}
}

func TestSplitText_SizeExceedingLength(t *testing.T) {
	chunks := SplitText("short", 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0])
}

func TestSplitText_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("héllo wörld 測試 ", 100)
	for _, c := range SplitText(text, 13) {
		assert.True(t, utf8.ValidString(c))
	}
}

func TestSplitText_EmptyInput(t *testing.T) {
	assert.Nil(t, SplitText("", 10))
}
