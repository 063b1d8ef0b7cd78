package chunk

import "unicode"

// Characters-per-token ratios by dominant script family. These are
// heuristics chosen so chunk sizing errs on the safe side; no tokenizer is
// consulted before chunking.
const (
	LatinCharsPerToken = 4.0
	CJKCharsPerToken   = 1.7
	DenseCharsPerToken = 2.5 // Arabic, Hebrew, Cyrillic

	DefaultSampleSize = 1000

	// nonLatinThreshold is the share of non-Latin characters in the sample
	// above which a non-Latin ratio is picked.
	nonLatinThreshold = 0.30
)

// EstimateCharsPerToken samples at most sampleSize leading characters of
// text and returns the chars-per-token ratio of the dominant script family.
// Ties between the non-Latin families favor CJK. Empty input and
// Latin-dominated samples return the Latin ratio.
func EstimateCharsPerToken(text string, sampleSize int) float64 {
	if sampleSize <= 0 {
		sampleSize = DefaultSampleSize
	}

	var total, cjk, dense int
	for _, r := range text {
		if total >= sampleSize {
			break
		}
		total++
		switch {
		case isCJK(r):
			cjk++
		case isDense(r):
			dense++
		}
	}

	if total == 0 {
		return LatinCharsPerToken
	}

	nonLatin := cjk + dense
	if float64(nonLatin)/float64(total) < nonLatinThreshold {
		return LatinCharsPerToken
	}

	if dense > cjk {
		return DenseCharsPerToken
	}
	return CJKCharsPerToken
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) ||
		unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) ||
		unicode.Is(unicode.Hangul, r)
}

func isDense(r rune) bool {
	return unicode.Is(unicode.Arabic, r) ||
		unicode.Is(unicode.Hebrew, r) ||
		unicode.Is(unicode.Cyrillic, r)
}
