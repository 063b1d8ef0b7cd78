package chunk

import "unicode/utf8"

// SplitText slices text into contiguous chunks of at most chunkSize
// characters each; the last chunk may be shorter. Splits land on rune
// boundaries and the concatenation of the returned chunks reproduces the
// input byte for byte. A non-positive chunkSize returns the whole text as
// a single chunk.
func SplitText(text string, chunkSize int) []string {
	if text == "" {
		return nil
	}
	if chunkSize <= 0 || utf8.RuneCountInString(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	count := 0
	for i := range text {
		if count == chunkSize {
			chunks = append(chunks, text[start:i])
			start = i
			count = 0
		}
		count++
	}
	chunks = append(chunks, text[start:])
	return chunks
}
