// Package extract converts uploaded documents into ordered text sections
// with page or position markers.
package extract

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnreadable marks documents that are empty, corrupt, or in an
// unsupported format.
var ErrUnreadable = errors.New("document is empty or unreadable")

// Section is one extracted slice of a document: a PDF page, a markdown
// heading block, or the whole body for flat formats.
type Section struct {
	Text   string
	Marker string
}

type Extractor interface {
	Extract(ctx context.Context, path string) ([]Section, error)
}

// DocumentFormat enumerates supported upload formats.
type DocumentFormat string

const (
	FormatUnknown  DocumentFormat = ""
	FormatPDF      DocumentFormat = "pdf"
	FormatDOCX     DocumentFormat = "docx"
	FormatMarkdown DocumentFormat = "markdown"
	FormatText     DocumentFormat = "text"
)

// DetectFormat infers a document format from the path's extension.
func DetectFormat(path string) DocumentFormat {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".pdf":
		return FormatPDF
	case ".docx":
		return FormatDOCX
	case ".md", ".markdown":
		return FormatMarkdown
	case ".txt", ".text":
		return FormatText
	default:
		return FormatUnknown
	}
}

// FileExtractor dispatches to a per-format extraction routine.
type FileExtractor struct{}

func NewFileExtractor() FileExtractor {
	return FileExtractor{}
}

func (FileExtractor) Extract(ctx context.Context, path string) ([]Section, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		sections []Section
		err      error
	)

	switch DetectFormat(path) {
	case FormatPDF:
		sections, err = extractPDF(path)
	case FormatDOCX:
		sections, err = extractDOCX(path)
	case FormatMarkdown:
		sections, err = extractMarkdown(path)
	case FormatText:
		sections, err = extractText(path)
	default:
		return nil, fmt.Errorf("%s: unsupported format: %w", filepath.Base(path), ErrUnreadable)
	}
	if err != nil {
		return nil, err
	}

	if len(sections) == 0 {
		return nil, fmt.Errorf("%s: no text content: %w", filepath.Base(path), ErrUnreadable)
	}
	return sections, nil
}

var _ Extractor = FileExtractor{}

func normalizePlainText(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Join(lines, "\n")
}
