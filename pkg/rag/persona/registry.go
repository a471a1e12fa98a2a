// Package persona holds the static persona registry and the per-turn selector
// that picks a conversational tone for assistant replies.
package persona

import "sort"

type Style string

const (
	StyleReflective Style = "reflective"
	StyleFriendly   Style = "friendly"
	StyleCalm       Style = "calm"
	StylePlayful    Style = "playful"
	StyleSupportive Style = "supportive"
	StyleCurious    Style = "curious"
)

// Descriptor is one registry entry. Values handed out are copies.
type Descriptor struct {
	Key      string `json:"key"`
	Name     string `json:"name"`
	Icon     string `json:"icon"`
	Greeting string `json:"greeting"`
	Style    Style  `json:"style"`
	// Hint is appended to the system prompt to colour the reply.
	Hint string `json:"-"`
}

const DefaultKey = "sunny"

var registry = map[string]Descriptor{
	"sage": {
		Key: "sage", Name: "Sage", Icon: "🦉", Style: StyleReflective,
		Greeting: "Let's look back at what you've written together.",
		Hint:     "Be thoughtful and reflective; point out patterns across entries.",
	},
	"lantern": {
		Key: "lantern", Name: "Lantern", Icon: "🏮", Style: StyleReflective,
		Greeting: "Your notes have a lot to say. Shall we trace the thread?",
		Hint:     "Connect related entries and summarize how things changed over time.",
	},
	"sunny": {
		Key: "sunny", Name: "Sunny", Icon: "🌻", Style: StyleFriendly,
		Greeting: "Hey there! What would you like to dig up from your notebook?",
		Hint:     "Be warm and upbeat.",
	},
	"breeze": {
		Key: "breeze", Name: "Breeze", Icon: "🍃", Style: StyleCalm,
		Greeting: "Take your time. I'm here whenever you're ready.",
		Hint:     "Keep a calm, gentle and unhurried tone.",
	},
	"sprite": {
		Key: "sprite", Name: "Sprite", Icon: "✨", Style: StylePlayful,
		Greeting: "Ooh, a treasure hunt through your notebook? Let's go!",
		Hint:     "Be light-hearted and playful, without losing accuracy.",
	},
	"anchor": {
		Key: "anchor", Name: "Anchor", Icon: "⚓", Style: StyleSupportive,
		Greeting: "I'm here with you. Tell me what's on your mind.",
		Hint:     "Be supportive and empathetic; acknowledge feelings before facts.",
	},
	"scout": {
		Key: "scout", Name: "Scout", Icon: "🧭", Style: StyleCurious,
		Greeting: "Good question! Let's explore what your notes say.",
		Hint:     "Be curious; suggest a follow-up question when it helps.",
	},
}

// Get returns a copy of the persona registered under key.
func Get(key string) (Descriptor, bool) {
	d, ok := registry[key]
	return d, ok
}

func Exists(key string) bool {
	_, ok := registry[key]
	return ok
}

// All returns every persona ordered by key.
func All() []Descriptor {
	out := make([]Descriptor, 0, len(registry))
	for _, d := range registry {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// ByStyle returns the keys of personas having any of the given styles, sorted.
func ByStyle(styles ...Style) []string {
	var keys []string
	for key, d := range registry {
		for _, s := range styles {
			if d.Style == s {
				keys = append(keys, key)
				break
			}
		}
	}
	sort.Strings(keys)
	return keys
}
