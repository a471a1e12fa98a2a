package persona

import (
	"fmt"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSelector(t *testing.T, seed uint64, opts ...Option) *Selector {
	t.Helper()
	s, err := NewSelector(rand.New(rand.NewPCG(seed, seed+1)), opts...)
	require.NoError(t, err)
	return s
}

func TestRegistry_ReturnsCopies(t *testing.T) {
	d, ok := Get("sage")
	require.True(t, ok)
	d.Name = "changed"

	again, _ := Get("sage")
	assert.Equal(t, "Sage", again.Name)

	all := All()
	all[0].Key = "mutated"
	assert.NotEqual(t, "mutated", All()[0].Key)
}

func TestRegistry_All(t *testing.T) {
	all := All()
	require.Len(t, all, 7)
	for i := 1; i < len(all); i++ {
		assert.Less(t, all[i-1].Key, all[i].Key)
	}
	assert.Equal(t, []string{"lantern", "sage"}, ByStyle(StyleReflective))
}

func TestSelector_Keywords(t *testing.T) {
	tests := []struct {
		name    string
		message string
		want    string
		class   KeywordClass
	}{
		{name: "joy", message: "I felt so HAPPY in January", want: "sunny", class: ClassJoy},
		{name: "distress", message: "Work has me stressed lately", want: "anchor", class: ClassDistress},
		{name: "curiosity phrase", message: "How come I stopped running?", want: "scout", class: ClassCuriosity},
		{name: "comfort", message: "so exhausted this week", want: "breeze", class: ClassComfort},
		{name: "playfulness", message: "haha what was that silly trip", want: "sprite", class: ClassPlayfulness},
		{name: "earliest match wins", message: "I was worried but then happy", want: "anchor", class: ClassDistress},
		{name: "longest at same position", message: "what a wonderful week", want: "sunny", class: ClassJoy},
	}

	s := newTestSelector(t, 1, WithKeepProbability(0))
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := s.Select(Input{Message: tt.message, ExcerptCount: 2})
			assert.Equal(t, ReasonKeyword, got.Reason)
			assert.Equal(t, tt.class, got.Class)
			assert.Equal(t, tt.want, got.Persona.Key)
		})
	}
}

func TestSelector_KeywordsRespectWordBoundaries(t *testing.T) {
	s := newTestSelector(t, 1)

	got := s.Select(Input{Message: "an unhappy, restless evening", ExcerptCount: 2})

	assert.Equal(t, ReasonDefault, got.Reason)
	assert.Empty(t, got.Class)
}

func TestSelector_Preference(t *testing.T) {
	always := newTestSelector(t, 1, WithKeepProbability(1))
	got := always.Select(Input{Message: "I am so sad", Preference: "sprite"})
	assert.Equal(t, ReasonPreference, got.Reason)
	assert.Equal(t, "sprite", got.Persona.Key)

	never := newTestSelector(t, 1, WithKeepProbability(0))
	got = never.Select(Input{Message: "I am so sad", Preference: "sprite"})
	assert.Equal(t, ReasonKeyword, got.Reason)
	assert.Equal(t, "anchor", got.Persona.Key)

	unknown := always.Select(Input{Message: "notes on the garden", Preference: "ghost", ExcerptCount: 0})
	assert.Equal(t, ReasonNoResult, unknown.Reason)
}

func TestSelector_PreferenceKeptAboutSixtyPercent(t *testing.T) {
	s := newTestSelector(t, 42)

	kept := 0
	const turns = 2000
	for i := 0; i < turns; i++ {
		if s.Select(Input{Message: "notes", Preference: "sage", ExcerptCount: 1}).Reason == ReasonPreference {
			kept++
		}
	}
	assert.InDelta(t, 0.6, float64(kept)/turns, 0.05)
}

func TestSelector_ExcerptCountRules(t *testing.T) {
	s := newTestSelector(t, 7)

	for i := 0; i < 50; i++ {
		rich := s.Select(Input{Message: "summarize my year", ExcerptCount: 4})
		assert.Equal(t, ReasonRichResult, rich.Reason)
		assert.Equal(t, StyleReflective, rich.Persona.Style)

		empty := s.Select(Input{Message: "summarize my year", ExcerptCount: 0})
		assert.Equal(t, ReasonNoResult, empty.Reason)
		assert.Contains(t, []Style{StyleFriendly, StyleCalm}, empty.Persona.Style)

		some := s.Select(Input{Message: "summarize my year", ExcerptCount: 3})
		assert.Equal(t, ReasonDefault, some.Reason)
		assert.Contains(t, s.defaultSubset, some.Persona.Key)
	}
}

func TestSelector_AlwaysReturnsRegistryMember(t *testing.T) {
	s := newTestSelector(t, 99)
	rng := rand.New(rand.NewPCG(3, 4))
	prefs := []string{"", "sage", "ghost", "sprite", "anchor"}
	messages := []string{"", "happy", "so sad", "why?", "lol", "plain words", "ＨＡＰＰＹ", "tired and curious"}

	for i := 0; i < 1000; i++ {
		in := Input{
			Message:      messages[rng.IntN(len(messages))],
			Preference:   prefs[rng.IntN(len(prefs))],
			ExcerptCount: rng.IntN(8),
		}
		got := s.Select(in)
		assert.True(t, Exists(got.Persona.Key), fmt.Sprintf("%+v -> %s", in, got.Persona.Key))
	}
}

func TestSelector_ReproducibleWithSameSeed(t *testing.T) {
	a := newTestSelector(t, 5)
	b := newTestSelector(t, 5)

	for i := 0; i < 100; i++ {
		in := Input{Message: "what happened", Preference: "sage", ExcerptCount: i % 6}
		assert.Equal(t, a.Select(in), b.Select(in))
	}
}
