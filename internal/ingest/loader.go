// Package ingest turns uploaded files into page-tagged text blocks and
// bounded chunks ready for embedding.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// Extractor pulls raw text blocks out of a single file on disk.
type Extractor interface {
	Extract(ctx context.Context, path string) ([]entity.RawBlock, error)
}

// Loader dispatches extraction by file extension.
type Loader struct {
	extractors map[string]Extractor
}

func NewLoader() *Loader {
	pdf := NewPDFExtractor(NewExecRunner())
	text := NewPlainTextExtractor()
	return &Loader{
		extractors: map[string]Extractor{
			".pdf":  pdf,
			".docx": NewDOCXExtractor(),
			".txt":  text,
			".md":   text,
		},
	}
}

// WithExtractor overrides the extractor for an extension. Used in tests
// to swap in doubles without touching the real parsers.
func (l *Loader) WithExtractor(ext string, e Extractor) *Loader {
	l.extractors[strings.ToLower(ext)] = e
	return l
}

// Load extracts raw blocks from the file at path. The filename decides
// the format; unknown extensions fail before any parsing happens.
func (l *Loader) Load(ctx context.Context, path string) ([]entity.RawBlock, error) {
	ext := strings.ToLower(filepath.Ext(path))
	extractor, ok := l.extractors[ext]
	if !ok {
		return nil, fmt.Errorf("%w: %q", entity.ErrUnsupportedFormat, ext)
	}

	blocks, err := extractor.Extract(ctx, path)
	if err != nil {
		return nil, err
	}
	return blocks, nil
}
