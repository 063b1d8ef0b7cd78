package formatter

import (
	"testing"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func transcript() []entity.Message {
	return []entity.Message{
		{Role: entity.RoleUser, Content: "What is the refund policy?"},
		{Role: entity.RoleAssistant, Content: "Refunds take 5 business days [1]."},
	}
}

func TestFactoryCreatesEveryFormat(t *testing.T) {
	factory := NewFactory()

	for _, format := range []entity.ResultFormat{entity.FormatMarkdown, entity.FormatDOCX, entity.FormatPDF} {
		f, err := factory.Create(format)
		require.NoError(t, err)
		assert.NotNil(t, f)
	}

	_, err := factory.Create("xlsx")
	assert.ErrorIs(t, err, entity.ErrInvalidFormat)
}

func TestMarkdownFormatter(t *testing.T) {
	f := NewMarkdownFormatter()

	out, err := f.Format("Refund chat", transcript())
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "# Refund chat")
	assert.Contains(t, text, "**User:**")
	assert.Contains(t, text, "**Assistant:**")
	assert.Contains(t, text, "Refunds take 5 business days [1].")
	assert.Equal(t, ".md", f.FileExtension())
}

func TestMarkdownFormatterDefaultTitle(t *testing.T) {
	out, err := NewMarkdownFormatter().Format("", transcript())
	require.NoError(t, err)
	assert.Contains(t, string(out), defaultTitle)
}

func TestDOCXFormatterProducesDocument(t *testing.T) {
	f := NewDOCXFormatter()

	out, err := f.Format("Refund chat", transcript())
	require.NoError(t, err)
	assert.NotEmpty(t, out)
	// docx files are zip archives
	assert.Equal(t, []byte{'P', 'K'}, out[:2])
}

func TestPDFFormatterProducesDocument(t *testing.T) {
	f := NewPDFFormatter()

	out, err := f.Format("Refund chat", transcript())
	require.NoError(t, err)
	require.NotEmpty(t, out)
	assert.Equal(t, "%PDF", string(out[:4]))
}
