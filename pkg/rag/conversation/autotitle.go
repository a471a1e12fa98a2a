package conversation

import (
	"strings"
	"unicode"

	"github.com/orsinium-labs/stopwords"
)

const autoTitleMaxWords = 6

var english = stopwords.MustGet("en")

// AutoTitle derives a short session title from the first user message: up to
// six words with stop words removed, first letter capitalized. Returns "" when
// nothing meaningful remains.
func AutoTitle(message string) string {
	fields := strings.FieldsFunc(message, func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' || r == '-')
	})

	words := make([]string, 0, autoTitleMaxWords)
	for _, f := range fields {
		w := strings.Trim(f, "'-")
		if w == "" || english.Contains(strings.ToLower(w)) {
			continue
		}
		words = append(words, w)
		if len(words) == autoTitleMaxWords {
			break
		}
	}
	if len(words) == 0 {
		return ""
	}

	title := strings.Join(words, " ")
	runes := []rune(title)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
