package ingest

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

var blankLineRe = regexp.MustCompile(`\n\s*\n`)

// PlainTextExtractor handles .txt and .md files. Paragraphs separated
// by blank lines become individual blocks so chunk boundaries respect
// the author's structure.
type PlainTextExtractor struct{}

func NewPlainTextExtractor() *PlainTextExtractor {
	return &PlainTextExtractor{}
}

func (e *PlainTextExtractor) Extract(_ context.Context, path string) ([]entity.RawBlock, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("%w: not valid UTF-8", entity.ErrCorruptDocument)
	}

	content := strings.ReplaceAll(string(data), "\r\n", "\n")
	paragraphs := blankLineRe.Split(content, -1)

	var blocks []entity.RawBlock
	offset := 0
	for _, para := range paragraphs {
		text := strings.TrimSpace(para)
		if text != "" {
			blocks = append(blocks, entity.RawBlock{
				Text:   text,
				Page:   1,
				Offset: offset,
			})
		}
		offset += len(para) + 2
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", entity.ErrCorruptDocument)
	}
	return blocks, nil
}
