package response

import (
	"bytes"
	"encoding/json"
	"strings"
	"unicode/utf8"

	"ai-notebook-companion/internal/pkg/apperror"
)

// MinLongStringRunes is the shortest string accepted by the last-resort branch.
const MinLongStringRunes = 20

// Kind tags which completion layout a body was decoded from.
type Kind int

const (
	KindUnknown Kind = iota
	// "text" or non-JSON plain text
	KindDirectString
	// {"response": "..."} or {"result": {"response": "..."}}
	KindResponseField
	// {"text": "..."}, {"result": {"text": "..."}} or {"output": {"text": "..."}}
	KindTextField
	// {"choices": [{"message": {"content": "..."}}]}
	KindChatChoices
	// {"message": {"content": "..."}}
	KindChatMessage
	// first string of at least MinLongStringRunes runes, in document order
	KindLongString
)

func (k Kind) String() string {
	switch k {
	case KindDirectString:
		return "direct_string"
	case KindResponseField:
		return "response_field"
	case KindTextField:
		return "text_field"
	case KindChatChoices:
		return "chat_choices"
	case KindChatMessage:
		return "chat_message"
	case KindLongString:
		return "long_string"
	default:
		return "unknown"
	}
}

type Completion struct {
	Kind Kind
	Text string
}

type textHolder struct {
	Response *string `json:"response"`
	Text     *string `json:"text"`
}

type completionEnvelope struct {
	Response *string     `json:"response"`
	Text     *string     `json:"text"`
	Result   *textHolder `json:"result"`
	Output   *textHolder `json:"output"`
	Choices  []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Message *struct {
		Content *string `json:"content"`
	} `json:"message"`
}

// Decode normalizes a completion body into text. Each known layout is tried in
// a fixed order; a body matching none yields apperror.ErrMalformedCompletionResponse.
func Decode(body []byte) (*Completion, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, apperror.ErrMalformedCompletionResponse
	}

	if !json.Valid(body) {
		return &Completion{Kind: KindDirectString, Text: string(body)}, nil
	}

	if body[0] == '"' {
		var s string
		if err := json.Unmarshal(body, &s); err == nil && strings.TrimSpace(s) != "" {
			return &Completion{Kind: KindDirectString, Text: s}, nil
		}
		return nil, apperror.ErrMalformedCompletionResponse
	}

	if body[0] == '{' {
		var env completionEnvelope
		// A field of an unexpected type fails the whole struct; fall through
		// to the document-order scan in that case.
		if err := json.Unmarshal(body, &env); err == nil {
			if c, ok := fromEnvelope(&env); ok {
				return c, nil
			}
		}
	}

	if s, ok := firstLongString(body, MinLongStringRunes); ok {
		return &Completion{Kind: KindLongString, Text: s}, nil
	}

	return nil, apperror.ErrMalformedCompletionResponse
}

func fromEnvelope(env *completionEnvelope) (*Completion, bool) {
	if s, ok := nonEmpty(env.Response); ok {
		return &Completion{Kind: KindResponseField, Text: s}, true
	}
	if env.Result != nil {
		if s, ok := nonEmpty(env.Result.Response); ok {
			return &Completion{Kind: KindResponseField, Text: s}, true
		}
	}

	if s, ok := nonEmpty(env.Text); ok {
		return &Completion{Kind: KindTextField, Text: s}, true
	}
	for _, holder := range []*textHolder{env.Result, env.Output} {
		if holder == nil {
			continue
		}
		if s, ok := nonEmpty(holder.Text); ok {
			return &Completion{Kind: KindTextField, Text: s}, true
		}
	}

	if len(env.Choices) > 0 {
		if s, ok := nonEmpty(env.Choices[0].Message.Content); ok {
			return &Completion{Kind: KindChatChoices, Text: s}, true
		}
	}

	if env.Message != nil {
		if s, ok := nonEmpty(env.Message.Content); ok {
			return &Completion{Kind: KindChatMessage, Text: s}, true
		}
	}

	return nil, false
}

func nonEmpty(s *string) (string, bool) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return "", false
	}
	return *s, true
}

type scanFrame struct {
	object    bool
	expectKey bool
}

// firstLongString walks the token stream and returns the first string value
// (object keys excluded) with at least min runes.
func firstLongString(body []byte, min int) (string, bool) {
	dec := json.NewDecoder(bytes.NewReader(body))
	var stack []scanFrame

	valueDone := func() {
		if n := len(stack); n > 0 && stack[n-1].object {
			stack[n-1].expectKey = true
		}
	}

	for {
		tok, err := dec.Token()
		if err != nil {
			return "", false
		}

		switch v := tok.(type) {
		case json.Delim:
			switch v {
			case '{', '[':
				valueDone()
				stack = append(stack, scanFrame{object: v == '{', expectKey: v == '{'})
			case '}', ']':
				if len(stack) > 0 {
					stack = stack[:len(stack)-1]
				}
			}
		case string:
			if n := len(stack); n > 0 && stack[n-1].object && stack[n-1].expectKey {
				stack[n-1].expectKey = false
				continue
			}
			if utf8.RuneCountInString(strings.TrimSpace(v)) >= min {
				return v, true
			}
			valueDone()
		default:
			valueDone()
		}
	}
}
