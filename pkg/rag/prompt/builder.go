// Package prompt assembles the bounded context block and the message list
// sent to the completion service.
package prompt

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"ai-notebook-companion/pkg/llm"

	"github.com/google/uuid"
)

const SystemTemplate = `You are a personal notebook companion. Answer the user's question using ONLY the notebook entries provided in the context.
Rules:
- If the context does not contain the answer, say politely that you could not find it in their notebook. Do not invent facts.
- Prefer concise, structured answers (short paragraphs or bullet points).
- When you use an entry, cite it by its number and date, for example [2, 2024-04-02].`

const (
	DefaultExcerptChars    = 500
	DefaultContextMaxChars = 4000
	dateLayout             = "2006-01-02"
	ellipsis               = "…"
)

// Excerpt is one ranked notebook entry; Text is the full content before truncation.
type Excerpt struct {
	NotebookID uuid.UUID
	Title      string
	Text       string
	Score      float64
	Date       time.Time
}

type Config struct {
	ExcerptChars    int
	ContextMaxChars int
}

type Assembler struct {
	cfg Config
}

func NewAssembler(cfg Config) *Assembler {
	if cfg.ExcerptChars <= 0 {
		cfg.ExcerptChars = DefaultExcerptChars
	}
	if cfg.ContextMaxChars <= 0 {
		cfg.ContextMaxChars = DefaultContextMaxChars
	}
	return &Assembler{cfg: cfg}
}

// ExcerptChars is the per-excerpt rune budget after defaults.
func (a *Assembler) ExcerptChars() int {
	return a.cfg.ExcerptChars
}

type buildOptions struct {
	personaHint string
	history     []llm.Message
}

type BuildOption func(*buildOptions)

// WithPersonaHint appends a tone instruction to the system message.
func WithPersonaHint(hint string) BuildOption {
	return func(o *buildOptions) { o.personaHint = hint }
}

// WithHistory inserts earlier turns between the system and user messages.
func WithHistory(history []llm.Message) BuildOption {
	return func(o *buildOptions) { o.history = history }
}

// Build returns {system, [history...], user}.
func (a *Assembler) Build(query string, excerpts []Excerpt, opts ...BuildOption) []llm.Message {
	o := &buildOptions{}
	for _, opt := range opts {
		opt(o)
	}

	system := SystemTemplate
	if o.personaHint != "" {
		system += "\nTone: " + o.personaHint
	}

	var user strings.Builder
	user.WriteString("Context from my notebook:\n")
	if len(excerpts) == 0 {
		user.WriteString("(no matching entries)")
	} else {
		user.WriteString(a.ContextBlock(excerpts))
	}
	user.WriteString("\n\nQuestion: ")
	user.WriteString(strings.TrimSpace(query))

	messages := make([]llm.Message, 0, len(o.history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: system})
	messages = append(messages, o.history...)
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: user.String()})
	return messages
}

// ContextBlock numbers and annotates each excerpt. The result never exceeds
// ContextMaxChars runes.
func (a *Assembler) ContextBlock(excerpts []Excerpt) string {
	var sb strings.Builder
	remaining := a.cfg.ContextMaxChars

	for i, ex := range excerpts {
		entry := formatEntry(i+1, ex, a.cfg.ExcerptChars)
		if i > 0 {
			entry = "\n\n" + entry
		}

		n := utf8.RuneCountInString(entry)
		if n > remaining {
			sb.WriteString(TruncateRunes(entry, remaining))
			break
		}
		sb.WriteString(entry)
		remaining -= n
	}
	return sb.String()
}

func formatEntry(n int, ex Excerpt, excerptChars int) string {
	date := "undated"
	if !ex.Date.IsZero() {
		date = ex.Date.Format(dateLayout)
	}
	return fmt.Sprintf("[%d] %s (%s, %s match)\n%s",
		n, ex.Title, date, FormatPercent(ex.Score), TruncateRunes(collapse(ex.Text), excerptChars))
}

// FormatPercent renders a similarity score as a rounded percentage, e.g. 0.816 -> "82%".
func FormatPercent(score float64) string {
	return fmt.Sprintf("%d%%", int(math.Round(score*100)))
}

// TruncateRunes cuts s to at most max runes, ending with an ellipsis when cut.
func TruncateRunes(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	if max == 1 {
		return string(runes[:1])
	}
	return string(runes[:max-1]) + ellipsis
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
