package embedding

import (
	"html"
	"regexp"
	"strings"

	"ai-notebook-companion/pkg/lexical"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/text"
)

const DefaultMaxChars = 8000

var htmlTagPattern = regexp.MustCompile(`(?s)<[^<>]+>`)

// Cleaner turns stored notebook content (plain text, Markdown, HTML or Lexical
// JSON) into the plain text sent to the embedding service.
type Cleaner struct {
	md       goldmark.Markdown
	maxChars int
}

func NewCleaner(maxChars int) *Cleaner {
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return &Cleaner{
		md:       goldmark.New(goldmark.WithExtensions(extension.Table, extension.Strikethrough)),
		maxChars: maxChars,
	}
}

func (c *Cleaner) Clean(raw string) string {
	content := lexical.Flatten(raw)
	content = htmlTagPattern.ReplaceAllString(content, " ")
	content = c.markdownText(content)
	content = html.UnescapeString(content)
	content = strings.Join(strings.Fields(content), " ")
	return truncateRunes(content, c.maxChars)
}

func (c *Cleaner) markdownText(content string) string {
	src := []byte(content)
	doc := c.md.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			if n.Type() == ast.TypeBlock {
				sb.WriteByte('\n')
			}
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Text:
			sb.Write(node.Segment.Value(src))
			if node.SoftLineBreak() || node.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(node.Value)
		case *ast.AutoLink:
			sb.Write(node.Label(src))
		case *ast.CodeBlock, *ast.FencedCodeBlock:
			lines := n.Lines()
			for i := 0; i < lines.Len(); i++ {
				segment := lines.At(i)
				sb.Write(segment.Value(src))
			}
			sb.WriteByte('\n')
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func truncateRunes(s string, limit int) string {
	if limit <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return strings.TrimSpace(string(runes[:limit]))
}
