package formatter

import (
	"fmt"

	"github.com/futig/chat-backend/internal/entity"
)

const defaultTitle = "Conversation transcript"

type Formatter interface {
	Format(title string, messages []entity.Message) ([]byte, error)
	ContentType() string
	FileExtension() string
}

type Factory struct{}

func NewFactory() *Factory {
	return &Factory{}
}

func (f *Factory) Create(format entity.ResultFormat) (Formatter, error) {
	switch format {
	case entity.FormatMarkdown:
		return NewMarkdownFormatter(), nil
	case entity.FormatDOCX:
		return NewDOCXFormatter(), nil
	case entity.FormatPDF:
		return NewPDFFormatter(), nil
	default:
		return nil, fmt.Errorf("%w: %q", entity.ErrInvalidFormat, format)
	}
}

func resolveTitle(title string) string {
	if title == "" {
		return defaultTitle
	}
	return title
}

func roleLabel(role entity.Role) string {
	switch role {
	case entity.RoleUser:
		return "User"
	case entity.RoleAssistant:
		return "Assistant"
	case entity.RoleSystem:
		return "System"
	default:
		return string(role)
	}
}
