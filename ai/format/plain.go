// Package format converts agent markdown output into delivery-ready text.
package format

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Plain flattens markdown into plain text. Used when the personalization
// layer asks for simplified delivery and for voice channels that cannot
// render markup. Parse errors never happen with goldmark; malformed input
// degrades to literal text.
func Plain(markdown string) string {
	src := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch v := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(v.Segment.Value(src))
				if v.SoftLineBreak() || v.HardLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.AutoLink:
			if entering {
				sb.Write(v.URL(src))
			}
		case *ast.CodeSpan:
			// children are Text nodes, handled above
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				writeLines(&sb, n, src)
			}
		case *ast.Paragraph, *ast.Heading, *ast.Blockquote:
			if !entering {
				sb.WriteString("\n\n")
			}
		case *ast.ListItem:
			if !entering {
				sb.WriteByte('\n')
			}
		case *ast.ThematicBreak:
			if !entering {
				sb.WriteByte('\n')
			}
		}
		return ast.WalkContinue, nil
	})

	return normalize(sb.String())
}

func writeLines(sb *strings.Builder, n ast.Node, src []byte) {
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		segment := lines.At(i)
		sb.Write(segment.Value(src))
	}
	sb.WriteByte('\n')
}

// normalize collapses runs of blank lines and trims the edges.
func normalize(s string) string {
	lines := strings.Split(s, "\n")
	var out []string
	blank := true
	for _, line := range lines {
		trimmed := strings.TrimRight(line, " \t")
		if trimmed == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		out = append(out, trimmed)
		blank = false
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
