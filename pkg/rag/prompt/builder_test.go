package prompt

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"ai-notebook-companion/pkg/llm"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuild_MessageShape(t *testing.T) {
	a := NewAssembler(Config{})
	excerpts := []Excerpt{{
		NotebookID: uuid.New(),
		Title:      "Kyoto trip",
		Text:       "Visited   Kyoto\n\nwith friends",
		Score:      0.816,
		Date:       time.Date(2024, 4, 2, 10, 0, 0, 0, time.UTC),
	}}

	msgs := a.Build("  Where did I travel?  ", excerpts)
	require.Len(t, msgs, 2)
	assert.Equal(t, llm.RoleSystem, msgs[0].Role)
	assert.Equal(t, SystemTemplate, msgs[0].Content)

	assert.Equal(t, llm.RoleUser, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "[1] Kyoto trip (2024-04-02, 82% match)")
	assert.Contains(t, msgs[1].Content, "Visited Kyoto with friends")
	assert.True(t, strings.HasSuffix(msgs[1].Content, "Question: Where did I travel?"))
}

func TestBuild_PersonaHintAndHistory(t *testing.T) {
	a := NewAssembler(Config{})
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
		{Role: llm.RoleAssistant, Content: "hello"},
	}

	msgs := a.Build("q", nil, WithPersonaHint("warm and calm"), WithHistory(history))
	require.Len(t, msgs, 4)
	assert.True(t, strings.HasSuffix(msgs[0].Content, "Tone: warm and calm"))
	assert.Equal(t, "hi", msgs[1].Content)
	assert.Equal(t, "hello", msgs[2].Content)
	assert.Contains(t, msgs[3].Content, "(no matching entries)")
}

func TestContextBlock_NeverExceedsMaximum(t *testing.T) {
	tests := []struct {
		name    string
		count   int
		textLen int
		cfg     Config
	}{
		{"many long entries", 50, 5000, Config{ExcerptChars: 500, ContextMaxChars: 4000}},
		{"tiny cap", 3, 100, Config{ExcerptChars: 500, ContextMaxChars: 10}},
		{"multibyte text", 20, 900, Config{ExcerptChars: 300, ContextMaxChars: 1000}},
		{"single short entry", 1, 10, Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			excerpts := make([]Excerpt, tt.count)
			for i := range excerpts {
				excerpts[i] = Excerpt{
					Title: "Entry",
					Text:  strings.Repeat("日記", tt.textLen/2),
					Score: 0.5,
					Date:  time.Now(),
				}
			}

			a := NewAssembler(tt.cfg)
			block := a.ContextBlock(excerpts)
			assert.LessOrEqual(t, utf8.RuneCountInString(block), a.cfg.ContextMaxChars)
			assert.True(t, utf8.ValidString(block))
		})
	}
}

func TestContextBlock_TruncatesEachExcerpt(t *testing.T) {
	a := NewAssembler(Config{ExcerptChars: 20, ContextMaxChars: 4000})
	block := a.ContextBlock([]Excerpt{{Title: "Long", Text: strings.Repeat("a", 100), Score: 1}})

	lines := strings.Split(block, "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, 20, utf8.RuneCountInString(lines[1]))
	assert.True(t, strings.HasSuffix(lines[1], "…"))
}

func TestAssembler_ExcerptChars(t *testing.T) {
	assert.Equal(t, DefaultExcerptChars, NewAssembler(Config{}).ExcerptChars())
	assert.Equal(t, 120, NewAssembler(Config{ExcerptChars: 120}).ExcerptChars())
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "82%", FormatPercent(0.82))
	assert.Equal(t, "41%", FormatPercent(0.41))
	assert.Equal(t, "5%", FormatPercent(0.05))
	assert.Equal(t, "-30%", FormatPercent(-0.3))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "abc", TruncateRunes("abc", 5))
	assert.Equal(t, "ab…", TruncateRunes("abcdef", 3))
	assert.Equal(t, "", TruncateRunes("abc", 0))
	assert.Equal(t, "a", TruncateRunes("abc", 1))
}
