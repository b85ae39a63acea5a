package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func extractText(path string) ([]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: read file: %w", filepath.Base(path), ErrUnreadable)
	}

	body := strings.TrimSpace(normalizePlainText(string(data)))
	if body == "" {
		return nil, nil
	}

	return []Section{{Text: body, Marker: "1"}}, nil
}
