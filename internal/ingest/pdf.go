package ingest

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/apostol-ai/agent-backend/internal/entity"
)

// CommandRunner executes external commands. Abstracted so tests can
// stub pdftotext output without the binary installed.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

type ExecRunner struct{}

func NewExecRunner() *ExecRunner {
	return &ExecRunner{}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// PDFExtractor extracts text via pdftotext (poppler-utils). Pages in
// the output are separated by form feed characters, which is what
// gives chunks their page numbers.
type PDFExtractor struct {
	runner CommandRunner
}

func NewPDFExtractor(runner CommandRunner) *PDFExtractor {
	return &PDFExtractor{runner: runner}
}

func (e *PDFExtractor) Extract(ctx context.Context, path string) ([]entity.RawBlock, error) {
	out, err := e.runner.Run(ctx, "pdftotext", "-enc", "UTF-8", path, "-")
	if err != nil {
		if _, lookErr := exec.LookPath("pdftotext"); lookErr != nil {
			return nil, fmt.Errorf("pdftotext is not installed: %w", lookErr)
		}
		return nil, fmt.Errorf("%w: pdftotext failed: %v", entity.ErrCorruptDocument, err)
	}

	pages := strings.Split(string(out), "\f")
	blocks := make([]entity.RawBlock, 0, len(pages))
	offset := 0
	for i, page := range pages {
		text := strings.TrimSpace(page)
		if text == "" {
			continue
		}
		blocks = append(blocks, entity.RawBlock{
			Text:   text,
			Page:   i + 1,
			Offset: offset,
		})
		offset += len(page)
	}

	if len(blocks) == 0 {
		return nil, fmt.Errorf("%w: no extractable text", entity.ErrCorruptDocument)
	}
	return blocks, nil
}
