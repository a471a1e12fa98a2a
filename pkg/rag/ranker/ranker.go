// Package ranker scores notebook vectors against a query vector and keeps the
// best K by cosine similarity.
package ranker

import (
	"container/heap"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Candidate is a notebook that already passed owner/date/notebook filtering.
type Candidate struct {
	ID        uuid.UUID
	Title     string
	Content   string
	Vector    []float32
	UpdatedAt time.Time
}

type Ranked struct {
	Candidate
	Score float64
}

type Options struct {
	Limit int
	// MinScore drops results below the threshold. Values <= -1 disable it.
	MinScore float64
}

// Cosine returns dot(a,b)/(|a|*|b|) clamped to [-1, 1]. ok is false for
// mismatched lengths, empty input and zero-norm vectors.
func Cosine(a, b []float32) (score float64, ok bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0, false
	}

	score = dot / denom
	if score > 1 {
		score = 1
	} else if score < -1 {
		score = -1
	}
	return score, true
}

// better defines the total order: higher score, then more recent, then lower id.
func better(a, b Ranked) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if !a.UpdatedAt.Equal(b.UpdatedAt) {
		return a.UpdatedAt.After(b.UpdatedAt)
	}
	return a.ID.String() < b.ID.String()
}

// worstFirst is a min-heap under better; the root is the weakest kept result.
type worstFirst []Ranked

func (h worstFirst) Len() int           { return len(h) }
func (h worstFirst) Less(i, j int) bool { return better(h[j], h[i]) }
func (h worstFirst) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *worstFirst) Push(x interface{}) { *h = append(*h, x.(Ranked)) }

func (h *worstFirst) Pop() interface{} {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Rank scores every candidate once and returns at most opts.Limit results in
// descending order. Output is deterministic for a given input set.
func Rank(query []float32, candidates []Candidate, opts Options) []Ranked {
	if opts.Limit <= 0 || len(candidates) == 0 {
		return []Ranked{}
	}

	h := make(worstFirst, 0, opts.Limit)
	heap.Init(&h)

	for _, c := range candidates {
		score, ok := Cosine(query, c.Vector)
		if !ok {
			continue
		}
		if opts.MinScore > -1 && score < opts.MinScore {
			continue
		}

		r := Ranked{Candidate: c, Score: score}
		if h.Len() < opts.Limit {
			heap.Push(&h, r)
			continue
		}
		if better(r, h[0]) {
			h[0] = r
			heap.Fix(&h, 0)
		}
	}

	out := make([]Ranked, h.Len())
	copy(out, h)
	sort.Slice(out, func(i, j int) bool { return better(out[i], out[j]) })
	return out
}
