package textextract

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/ledongthuc/pdf"
	"github.com/unidoc/unioffice/document"
)

// SupportedExtensions lists the file formats the extractor can read.
var SupportedExtensions = map[string]bool{
	".txt":  true,
	".md":   true,
	".csv":  true,
	".json": true,
	".docx": true,
	".pdf":  true,
}

// AudioExtensions lists formats routed through ASR transcription instead of
// text extraction.
var AudioExtensions = map[string]bool{
	".mp3": true,
	".wav": true,
	".ogg": true,
	".m4a": true,
}

// Extractor turns uploaded file bytes into plain text.
type Extractor struct{}

func New() *Extractor {
	return &Extractor{}
}

// IsAudio reports whether the filename refers to an audio attachment.
func IsAudio(filename string) bool {
	return AudioExtensions[strings.ToLower(filepath.Ext(filename))]
}

// ExtractText extracts plain text from the given file content. Unreadable
// or unknown formats fail with entity.ErrUnsupportedFormat so callers can
// distinguish them from transient failures.
func (e *Extractor) ExtractText(data []byte, filename string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))

	switch ext {
	case ".txt", ".md", ".csv", ".json":
		if !utf8.Valid(data) {
			return "", fmt.Errorf("%w: %s is not valid UTF-8", entity.ErrUnsupportedFormat, filename)
		}
		return string(data), nil
	case ".docx":
		return extractDOCX(data)
	case ".pdf":
		return extractPDF(data)
	default:
		return "", fmt.Errorf("%w: %s", entity.ErrUnsupportedFormat, ext)
	}
}

func extractDOCX(data []byte) (string, error) {
	doc, err := document.Read(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: read docx: %v", entity.ErrUnsupportedFormat, err)
	}
	defer doc.Close()

	var sb strings.Builder
	for _, para := range doc.Paragraphs() {
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		sb.WriteString("\n")
	}

	return sb.String(), nil
}

func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: read pdf: %v", entity.ErrUnsupportedFormat, err)
	}

	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: extract pdf text: %v", entity.ErrUnsupportedFormat, err)
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", fmt.Errorf("copy pdf text: %w", err)
	}

	return buf.String(), nil
}
