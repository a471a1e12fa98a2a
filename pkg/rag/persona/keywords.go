package persona

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/coregx/ahocorasick"
)

// KeywordClass is an emotional category detected in a user message.
type KeywordClass string

const (
	ClassJoy         KeywordClass = "joy"
	ClassDistress    KeywordClass = "distress"
	ClassCuriosity   KeywordClass = "curiosity"
	ClassComfort     KeywordClass = "comfort"
	ClassPlayfulness KeywordClass = "playfulness"
)

var classKeywords = map[KeywordClass][]string{
	ClassJoy:         {"happy", "excited", "great day", "wonderful", "amazing", "grateful", "proud", "thrilled", "celebrate"},
	ClassDistress:    {"sad", "anxious", "stressed", "worried", "upset", "depressed", "overwhelmed", "lonely", "angry", "scared", "hurt"},
	ClassCuriosity:   {"why", "how come", "wonder", "curious", "what if", "explain", "figure out"},
	ClassComfort:     {"tired", "exhausted", "need a break", "calm down", "relax", "can't sleep", "rest"},
	ClassPlayfulness: {"lol", "haha", "funny", "joke", "silly", "game", "fun"},
}

var classPersona = map[KeywordClass]string{
	ClassJoy:         "sunny",
	ClassDistress:    "anchor",
	ClassCuriosity:   "scout",
	ClassComfort:     "breeze",
	ClassPlayfulness: "sprite",
}

// classifier finds the earliest whole-word keyword in a message.
type classifier struct {
	ac      *ahocorasick.Automaton
	classes []KeywordClass // indexed by pattern id
}

func newClassifier() (*classifier, error) {
	var patterns []string
	var classes []KeywordClass
	for _, class := range []KeywordClass{ClassJoy, ClassDistress, ClassCuriosity, ClassComfort, ClassPlayfulness} {
		for _, kw := range classKeywords[class] {
			patterns = append(patterns, kw)
			classes = append(classes, class)
		}
	}

	automaton, err := ahocorasick.NewBuilder().
		AddStrings(patterns).
		SetMatchKind(ahocorasick.LeftmostLongest).
		SetPrefilter(true).
		Build()
	if err != nil {
		return nil, err
	}

	return &classifier{ac: automaton, classes: classes}, nil
}

func (c *classifier) classify(message string) (KeywordClass, bool) {
	text := strings.ToLower(message)
	matches := c.ac.FindAllOverlapping([]byte(text))

	best := -1
	bestStart, bestLen := 0, 0
	for i, m := range matches {
		if !isWordBoundary(text, m.Start, m.End) {
			continue
		}
		length := m.End - m.Start
		if best == -1 || m.Start < bestStart || (m.Start == bestStart && length > bestLen) {
			best, bestStart, bestLen = i, m.Start, length
		}
	}
	if best == -1 {
		return "", false
	}
	return c.classes[matches[best].PatternID], true
}

func isWordBoundary(text string, start, end int) bool {
	if start > 0 {
		prev, _ := utf8.DecodeLastRuneInString(text[:start])
		if isWordRune(prev) {
			return false
		}
	}
	if end < len(text) {
		next, _ := utf8.DecodeRuneInString(text[end:])
		if isWordRune(next) {
			return false
		}
	}
	return true
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'
}
