package formatter

import (
	"bytes"

	"github.com/futig/chat-backend/internal/entity"
	"github.com/unidoc/unioffice/document"
)

const (
	docxContentType   = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	docxFileExtension = ".docx"
)

type DOCXFormatter struct{}

func NewDOCXFormatter() *DOCXFormatter {
	return &DOCXFormatter{}
}

func (df *DOCXFormatter) Format(title string, messages []entity.Message) ([]byte, error) {
	doc := document.New()
	defer doc.Close()

	titlePar := doc.AddParagraph()
	titlePar.SetStyle("Heading1")
	titleRun := titlePar.AddRun()
	titleRun.AddText(resolveTitle(title))

	for _, m := range messages {
		doc.AddParagraph()

		rolePar := doc.AddParagraph()
		rolePar.SetStyle("Heading2")
		rolePar.AddRun().AddText(roleLabel(m.Role))

		bodyPar := doc.AddParagraph()
		bodyPar.AddRun().AddText(m.Text())
	}

	var buf bytes.Buffer
	if err := doc.Save(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (df *DOCXFormatter) ContentType() string {
	return docxContentType
}

func (df *DOCXFormatter) FileExtension() string {
	return docxFileExtension
}
