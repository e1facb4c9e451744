package rank

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hession/coco/internal/query"
	"github.com/hession/coco/internal/websearch"
	"github.com/panjf2000/ants/v2"
)

const (
	// DefaultPartitions is the number of scoring workers per RankAll call.
	DefaultPartitions = 2
	// DefaultConcurrentCalls is how many RankAll calls can score at once
	// before later calls wait for free workers.
	DefaultConcurrentCalls = 4
)

// ErrScoringFailed is reported when a scoring worker could not finish.
var ErrScoringFailed = errors.New("scoring failed")

// Orchestrator scores partitions of the candidates concurrently and merges
// the partial lists once every worker is done.
type Orchestrator struct {
	scorer     *Scorer
	partitions int
	concurrent int
	pool       *ants.Pool
	onFailure  func(context.Context, error)
}

// OrchestratorOption configures an Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithPartitions sets how many partitions are scored in parallel.
func WithPartitions(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.partitions = n
		}
	}
}

// WithConcurrentCalls sets how many RankAll calls get a full set of workers
// at the same time. The pool holds partitions*n workers.
func WithConcurrentCalls(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.concurrent = n
		}
	}
}

// WithFailureHandler receives worker failures before RankAll gives up.
func WithFailureHandler(fn func(context.Context, error)) OrchestratorOption {
	return func(o *Orchestrator) { o.onFailure = fn }
}

// NewOrchestrator creates an orchestrator with a worker pool of
// partitions*concurrent-calls workers. Call Close to release the pool.
func NewOrchestrator(scorer *Scorer, opts ...OrchestratorOption) (*Orchestrator, error) {
	o := &Orchestrator{
		scorer:     scorer,
		partitions: DefaultPartitions,
		concurrent: DefaultConcurrentCalls,
	}
	for _, opt := range opts {
		opt(o)
	}

	pool, err := ants.NewPool(o.partitions * o.concurrent)
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring pool: %w", err)
	}
	o.pool = pool
	return o, nil
}

// Workers returns the size of the worker pool.
func (o *Orchestrator) Workers() int {
	return o.pool.Cap()
}

// Close releases the worker pool.
func (o *Orchestrator) Close() {
	if o.pool != nil {
		o.pool.Release()
	}
}

// RankAll returns the merged best K over all candidates, or nil when there
// are no candidates, when nothing scored above zero, or when a worker failed.
func (o *Orchestrator) RankAll(ctx context.Context, candidates []*websearch.Result, q query.Query) *TopK {
	if len(candidates) == 0 {
		return nil
	}

	parts := Partition(candidates, o.partitions)
	partial := make([]*TopK, len(parts))
	errs := make([]error, len(parts))

	var wg sync.WaitGroup
	for i, part := range parts {
		wg.Add(1)
		err := o.pool.Submit(func() {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					errs[i] = fmt.Errorf("%w: partition %d panicked: %v\n%s", ErrScoringFailed, i, r, debug.Stack())
				}
			}()
			partial[i] = o.scorer.Score(ctx, part, q)
		})
		if err != nil {
			wg.Done()
			errs[i] = fmt.Errorf("%w: partition %d not scheduled: %w", ErrScoringFailed, i, err)
		}
	}
	wg.Wait()

	if err := errors.Join(errs...); err != nil {
		if o.onFailure != nil {
			o.onFailure(ctx, err)
		}
		return nil
	}

	merged := partial[len(partial)-1]
	for i := len(partial) - 2; i >= 0; i-- {
		merged = Merge(partial[i], merged)
	}

	if merged.Top().Weight == 0 {
		return nil
	}
	return merged
}

// Partition splits items into at most n contiguous parts. Sizes differ by at
// most one and the larger parts come last, so two parts have sizes
// floor(len/2) and len-floor(len/2).
func Partition[T any](items []T, n int) [][]T {
	if n < 1 {
		n = 1
	}
	if n > len(items) {
		n = len(items)
	}
	if n == 0 {
		return nil
	}

	base, extra := len(items)/n, len(items)%n
	parts := make([][]T, 0, n)
	start := 0
	for i := 0; i < n; i++ {
		size := base
		if i >= n-extra {
			size++
		}
		parts = append(parts, items[start:start+size])
		start += size
	}
	return parts
}
