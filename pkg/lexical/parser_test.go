package lexical

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleState = `{"root":{"type":"root","children":[
 {"type":"heading","tag":"h1","children":[{"type":"text","text":"Kyoto trip"}]},
 {"type":"paragraph","children":[{"type":"text","text":"Felt "},{"type":"text","text":"happy","format":1},{"type":"linebreak"},{"type":"text","text":"all week."}]},
 {"type":"list","listType":"number","start":1,"children":[
   {"type":"listitem","children":[{"type":"text","text":"Fushimi Inari"}]},
   {"type":"listitem","children":[{"type":"text","text":"Arashiyama"},
     {"type":"list","listType":"bullet","children":[{"type":"listitem","children":[{"type":"text","text":"bamboo"}]}]}]}
 ]},
 {"type":"list","listType":"check","children":[{"type":"listitem","checked":true,"children":[{"type":"text","text":"book hotel"}]}]},
 {"type":"table","children":[{"type":"tablerow","children":[
   {"type":"tablecell","children":[{"type":"paragraph","children":[{"type":"text","text":"Day"}]}]},
   {"type":"tablecell","children":[{"type":"paragraph","children":[{"type":"text","text":"Mood"}]}]}]}]},
 {"type":"paragraph","children":[{"type":"link","url":"https://example.com","children":[{"type":"text","text":"photos"}]}]}
]}}`

func TestParse(t *testing.T) {
	got, err := Parse(sampleState)
	require.NoError(t, err)

	want := "Kyoto trip\n" +
		"Felt happy all week.\n" +
		"1. Fushimi Inari\n" +
		"2. Arashiyama\n" +
		"  - bamboo\n" +
		"[x] book hotel\n" +
		"Day | Mood\n" +
		"photos"
	assert.Equal(t, want, got)
}

func TestFlatten(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain text untouched", "just words", "just words"},
		{"markdown untouched", "# Title\n- item", "# Title\n- item"},
		{"broken json falls back", `{"root": [`, `{"root": [`},
		{"lexical flattened", `{"root":{"type":"root","children":[{"type":"paragraph","children":[{"type":"text","text":"hi"}]}]}}`, "hi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Flatten(tt.input))
		})
	}
}
