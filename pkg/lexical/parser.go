package lexical

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IsLexical reports whether content looks like a serialized Lexical editor state.
func IsLexical(content string) bool {
	trimmed := strings.TrimSpace(content)
	return strings.HasPrefix(trimmed, "{") && strings.Contains(trimmed, `"root"`)
}

// Parse flattens Lexical JSON into plain text: one line per block, list items
// prefixed with "- " or their number, table cells joined by " | ".
func Parse(jsonContent string) (string, error) {
	var root LexicalRoot
	if err := json.Unmarshal([]byte(jsonContent), &root); err != nil {
		return "", fmt.Errorf("failed to parse lexical json: %w", err)
	}
	if root.Root.Type == "" {
		return "", fmt.Errorf("failed to parse lexical json: missing root node")
	}

	w := &writer{}
	w.block(root.Root, 0)
	return strings.TrimSpace(w.sb.String()), nil
}

// Flatten returns the plain text of Lexical content, or content unchanged
// when it is not Lexical JSON.
func Flatten(content string) string {
	if !IsLexical(content) {
		return content
	}
	text, err := Parse(strings.TrimSpace(content))
	if err != nil {
		return content
	}
	return text
}

type writer struct {
	sb strings.Builder
}

func (w *writer) line(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	w.sb.WriteString(s)
	w.sb.WriteString("\n")
}

func (w *writer) block(node Node, depth int) {
	switch node.Type {
	case "paragraph", "heading", "quote", "code":
		w.line(inline(node))
	case "list":
		w.list(node, depth)
	case "table":
		for _, row := range node.Children {
			cells := make([]string, 0, len(row.Children))
			for _, cell := range row.Children {
				cells = append(cells, strings.TrimSpace(inlineChildren(cell.Children)))
			}
			w.line(strings.Join(cells, " | "))
		}
	case "horizontalrule":
		// no text
	case "text", "link":
		w.line(inline(node))
	default:
		for _, child := range node.Children {
			w.block(child, depth)
		}
	}
}

func (w *writer) list(node Node, depth int) {
	index := 1
	if node.Start > 0 {
		index = node.Start
	}
	indent := strings.Repeat("  ", depth)

	for _, item := range node.Children {
		if item.Type != "listitem" {
			continue
		}

		var marker string
		switch node.ListType {
		case "number":
			marker = strconv.Itoa(index) + ". "
			index++
		case "check":
			if item.Checked {
				marker = "[x] "
			} else {
				marker = "[ ] "
			}
		default:
			marker = "- "
		}

		var nested []Node
		var own []Node
		for _, child := range item.Children {
			if child.Type == "list" {
				nested = append(nested, child)
			} else {
				own = append(own, child)
			}
		}

		if text := strings.TrimSpace(inlineChildren(own)); text != "" {
			w.sb.WriteString(indent + marker + text + "\n")
		}
		for _, n := range nested {
			w.list(n, depth+1)
		}
	}
}

func inline(node Node) string {
	if node.Type == "text" {
		return node.Text
	}
	if node.Type == "linebreak" {
		return " "
	}
	return inlineChildren(node.Children)
}

func inlineChildren(children []Node) string {
	var sb strings.Builder
	for _, child := range children {
		switch child.Type {
		case "paragraph", "list":
			// block inside a table cell or list item
			sb.WriteString(" ")
			sb.WriteString(inline(child))
		default:
			sb.WriteString(inline(child))
		}
	}
	return sb.String()
}
