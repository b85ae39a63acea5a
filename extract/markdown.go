package extract

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown walks the markdown AST and emits one section per
// heading block, markers numbered in document order.
func extractMarkdown(path string) ([]Section, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: read markdown: %w", filepath.Base(path), ErrUnreadable)
	}

	source := []byte(normalizePlainText(string(data)))
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(source))

	var (
		sections []Section
		current  strings.Builder
	)

	flush := func() {
		body := strings.TrimSpace(current.String())
		current.Reset()
		if body == "" {
			return
		}
		sections = append(sections, Section{
			Text:   body,
			Marker: strconv.Itoa(len(sections) + 1),
		})
	}

	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Heading:
				flush()
				current.WriteString(headingText(node, source))
				current.WriteString("\n")
				return ast.WalkSkipChildren, nil
			case *ast.Text:
				current.Write(node.Segment.Value(source))
			case *ast.String:
				current.Write(node.Value)
			}
		} else {
			switch n.(type) {
			case *ast.Paragraph, *ast.Heading, *ast.ListItem:
				current.WriteString("\n")
			}
		}
		return ast.WalkContinue, nil
	})
	flush()

	return sections, nil
}

func headingText(node ast.Node, source []byte) string {
	var buf strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		if textNode, ok := child.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
		}
	}
	return buf.String()
}
