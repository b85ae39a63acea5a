package extract

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF returns one section per page that carries text. Pages that
// fail text extraction are skipped; an all-empty document is unreadable.
func extractPDF(path string) ([]Section, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%s: open pdf: %w", filepath.Base(path), ErrUnreadable)
	}
	defer f.Close()

	sections := make([]Section, 0, reader.NumPage())
	for num := 1; num <= reader.NumPage(); num++ {
		page := reader.Page(num)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		text = strings.TrimSpace(normalizePlainText(text))
		if text == "" {
			continue
		}

		sections = append(sections, Section{
			Text:   text,
			Marker: strconv.Itoa(num),
		})
	}

	return sections, nil
}
