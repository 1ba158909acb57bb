package review

import (
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// DraftSignals is what gets lifted out of a draft's markdown for the
// reviewer prompt: quoted passages that must match the source material
// verbatim, and figures that must survive recomputation.
type DraftSignals struct {
	Quotes  []string
	Figures []string
}

var figurePattern = regexp.MustCompile(`\$[0-9][0-9,]*(?:\.[0-9]+)?|[0-9]+(?:\.[0-9]+)?%`)

// ExtractSignals parses the draft markdown and collects block quotes and
// monetary/percentage figures.
func ExtractSignals(content string) DraftSignals {
	src := []byte(content)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var signals DraftSignals
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if _, ok := n.(*ast.Blockquote); ok {
			if quote := nodeText(n, src); quote != "" {
				signals.Quotes = append(signals.Quotes, quote)
			}
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})

	seen := make(map[string]bool)
	for _, m := range figurePattern.FindAllString(content, -1) {
		if !seen[m] {
			seen[m] = true
			signals.Figures = append(signals.Figures, m)
		}
	}
	return signals
}

// nodeText flattens the text content of a node and its descendants.
func nodeText(n ast.Node, src []byte) string {
	var sb strings.Builder
	ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(src))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
