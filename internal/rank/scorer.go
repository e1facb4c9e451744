package rank

import (
	"context"
	"strings"
	"time"

	"github.com/hession/coco/internal/fetch"
	"github.com/hession/coco/internal/query"
	"github.com/hession/coco/internal/websearch"
)

// DefaultFetchTimeout bounds a single candidate download.
const DefaultFetchTimeout = 3 * time.Second

// Visit is what the scorer learned about one candidate.
type Visit struct {
	Result *websearch.Result
	Weight int
	Terms  map[string]int // terms with a positive count
	Err    error          // non-nil when the fetch failed; the candidate was skipped
}

// Scorer weighs candidates by how often the query terms appear in their pages.
type Scorer struct {
	fetcher fetch.Fetcher
	timeout time.Duration
	k       int
	onVisit func(context.Context, Visit)
}

// ScorerOption configures a Scorer.
type ScorerOption func(*Scorer)

// WithK sets the size of the lists the scorer produces.
func WithK(k int) ScorerOption {
	return func(s *Scorer) {
		if k > 0 {
			s.k = k
		}
	}
}

// WithFetchTimeout sets the per-candidate download timeout.
func WithFetchTimeout(d time.Duration) ScorerOption {
	return func(s *Scorer) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// WithVisitHandler is called after every candidate. Score runs on several
// goroutines at once, so fn must be safe for concurrent use.
func WithVisitHandler(fn func(context.Context, Visit)) ScorerOption {
	return func(s *Scorer) { s.onVisit = fn }
}

func NewScorer(fetcher fetch.Fetcher, opts ...ScorerOption) *Scorer {
	s := &Scorer{
		fetcher: fetcher,
		timeout: DefaultFetchTimeout,
		k:       DefaultK,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// K returns the list size the scorer produces.
func (s *Scorer) K() int {
	return s.k
}

// Score fetches every candidate in order and returns the best K. Candidates
// that cannot be fetched, or whose pages contain none of the terms, are
// left out.
func (s *Scorer) Score(ctx context.Context, candidates []*websearch.Result, q query.Query) *TopK {
	top := NewTopK(s.k)
	terms := q.Terms()

	for _, c := range candidates {
		body, err := s.fetcher.FetchText(ctx, c.Link, s.timeout)
		if err != nil {
			s.visit(ctx, Visit{Result: c, Err: err})
			continue
		}

		weight, counts := TermWeight(strings.ToLower(body), terms)
		s.visit(ctx, Visit{Result: c, Weight: weight, Terms: counts})
		if len(counts) > 0 {
			top.Consider(weight, c)
		}
	}
	return top
}

func (s *Scorer) visit(ctx context.Context, v Visit) {
	if s.onVisit != nil {
		s.onVisit(ctx, v)
	}
}

// TermWeight counts non-overlapping occurrences of each term in content and
// returns their sum along with the terms that occurred at least once.
// content and terms are expected to be lowercase already.
func TermWeight(content string, terms []string) (int, map[string]int) {
	counts := make(map[string]int)
	total := 0
	for _, term := range terms {
		if term == "" {
			continue
		}
		n := strings.Count(content, term)
		if n > 0 {
			counts[term] = n
		}
		total += n
	}
	return total, counts
}
