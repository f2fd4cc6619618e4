package ingest

import (
	"context"
	"fmt"
	"strings"

	"github.com/unidoc/unioffice/document"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// DOCXExtractor reads Word documents. DOCX has no fixed pagination, so
// every block carries page 1 and offsets locate paragraphs instead.
type DOCXExtractor struct{}

func NewDOCXExtractor() *DOCXExtractor {
	return &DOCXExtractor{}
}

func (e *DOCXExtractor) Extract(_ context.Context, path string) ([]entity.RawBlock, error) {
	doc, err := document.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", entity.ErrCorruptDocument, err)
	}
	defer doc.Close()

	var blocks []entity.RawBlock
	offset := 0
	for _, para := range doc.Paragraphs() {
		var sb strings.Builder
		for _, run := range para.Runs() {
			sb.WriteString(run.Text())
		}
		text := strings.TrimSpace(sb.String())
		if text == "" {
			continue
		}
		blocks = append(blocks, entity.RawBlock{
			Text:   text,
			Page:   1,
			Offset: offset,
		})
		offset += len(text) + 1
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", entity.ErrCorruptDocument)
	}
	return blocks, nil
}
