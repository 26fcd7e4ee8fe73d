package extractor

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	gmtext "github.com/yuin/goldmark/text"
)

// extractMarkdown parses the markdown AST and keeps only the text nodes, so
// headings, emphasis and links come out as plain prose.
func extractMarkdown(filePath string) (string, error) {
	src, err := os.ReadFile(filePath)
	if err != nil {
		return "", fmt.Errorf("error extracting text from markdown: %w", err)
	}

	root := goldmark.DefaultParser().Parse(gmtext.NewReader(src))

	var text strings.Builder
	err = ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Text:
			text.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				text.WriteString("\n")
			}
		case *ast.Paragraph, *ast.Heading, *ast.ListItem:
			if text.Len() > 0 {
				text.WriteString("\n\n")
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("error extracting text from markdown: %w", err)
	}

	return strings.TrimSpace(text.String()), nil
}
