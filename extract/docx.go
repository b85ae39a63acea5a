package extract

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// documentXML mirrors the parts of word/document.xml we read.
type documentXML struct {
	Body struct {
		Paragraphs []docxParagraph `xml:"p"`
	} `xml:"body"`
}

type docxParagraph struct {
	Runs []docxRun `xml:"r"`
}

type docxRun struct {
	Texts []string `xml:"t"`
}

// extractDOCX joins all non-empty paragraphs into a single section, the
// same shape the flat-text path produces.
func extractDOCX(path string) ([]Section, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open docx: %w", filepath.Base(path), ErrUnreadable)
	}
	defer archive.Close()

	var payload []byte
	for _, file := range archive.File {
		if file.Name != "word/document.xml" {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return nil, fmt.Errorf("%s: open document.xml: %w", filepath.Base(path), ErrUnreadable)
		}
		payload, err = io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%s: read document.xml: %w", filepath.Base(path), ErrUnreadable)
		}
		break
	}
	if payload == nil {
		return nil, fmt.Errorf("%s: missing document.xml: %w", filepath.Base(path), ErrUnreadable)
	}

	var doc documentXML
	if err := xml.Unmarshal(payload, &doc); err != nil {
		return nil, fmt.Errorf("%s: parse document.xml: %w", filepath.Base(path), ErrUnreadable)
	}

	paragraphs := make([]string, 0, len(doc.Body.Paragraphs))
	for _, para := range doc.Body.Paragraphs {
		var buf strings.Builder
		for _, run := range para.Runs {
			for _, t := range run.Texts {
				buf.WriteString(t)
			}
		}
		if text := strings.TrimSpace(buf.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	if len(paragraphs) == 0 {
		return nil, nil
	}

	return []Section{{
		Text:   strings.Join(paragraphs, "\n"),
		Marker: "1",
	}}, nil
}
