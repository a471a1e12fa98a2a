package persona

import (
	"math/rand/v2"
)

const (
	DefaultKeepProbability     = 0.6
	DefaultReflectiveThreshold = 3
)

// Reason records which rule produced a selection.
type Reason string

const (
	ReasonPreference Reason = "preference"
	ReasonKeyword    Reason = "keyword"
	ReasonRichResult Reason = "many_excerpts"
	ReasonNoResult   Reason = "no_excerpts"
	ReasonDefault    Reason = "default"
)

type Input struct {
	Message      string
	Preference   string
	ExcerptCount int
}

type Selection struct {
	Persona Descriptor
	Reason  Reason
	Class   KeywordClass
}

// Selector is safe for concurrent use only if rng is; give each goroutine its
// own Selector or a locked source.
type Selector struct {
	rng                 *rand.Rand
	classifier          *classifier
	keepProbability     float64
	reflectiveThreshold int
	defaultSubset       []string
}

type Option func(*Selector)

func WithKeepProbability(p float64) Option {
	return func(s *Selector) {
		s.keepProbability = p
	}
}

func NewSelector(rng *rand.Rand, opts ...Option) (*Selector, error) {
	cls, err := newClassifier()
	if err != nil {
		return nil, err
	}
	s := &Selector{
		rng:                 rng,
		classifier:          cls,
		keepProbability:     DefaultKeepProbability,
		reflectiveThreshold: DefaultReflectiveThreshold,
		defaultSubset:       ByStyle(StyleFriendly, StyleCurious, StyleReflective),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Selector) Select(in Input) Selection {
	if in.Preference != "" && Exists(in.Preference) && s.rng.Float64() < s.keepProbability {
		return s.selection(in.Preference, ReasonPreference, "")
	}

	if class, ok := s.classifier.classify(in.Message); ok {
		return s.selection(classPersona[class], ReasonKeyword, class)
	}

	switch {
	case in.ExcerptCount > s.reflectiveThreshold:
		return s.selection(s.pick(ByStyle(StyleReflective)), ReasonRichResult, "")
	case in.ExcerptCount == 0:
		return s.selection(s.pick(ByStyle(StyleFriendly, StyleCalm)), ReasonNoResult, "")
	default:
		return s.selection(s.pick(s.defaultSubset), ReasonDefault, "")
	}
}

func (s *Selector) pick(keys []string) string {
	if len(keys) == 0 {
		return DefaultKey
	}
	return keys[s.rng.IntN(len(keys))]
}

func (s *Selector) selection(key string, reason Reason, class KeywordClass) Selection {
	d, ok := Get(key)
	if !ok {
		d, _ = Get(DefaultKey)
	}
	return Selection{Persona: d, Reason: reason, Class: class}
}
