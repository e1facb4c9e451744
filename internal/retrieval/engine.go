// Package retrieval runs a request through normalization, harvesting,
// hostname filtering and parallel ranking.
package retrieval

import (
	"context"
	"fmt"
	"time"

	"github.com/hession/coco/internal/config"
	"github.com/hession/coco/internal/fetch"
	"github.com/hession/coco/internal/query"
	"github.com/hession/coco/internal/rank"
	"github.com/hession/coco/internal/telemetry"
	"github.com/hession/coco/internal/websearch"
)

// Status is the terminal state of a retrieval.
type Status string

const (
	StatusFound             Status = "found"
	StatusNoResults         Status = "no_results"
	StatusNoRelevantResults Status = "no_relevant_results"
)

// Outcome is what a caller gets back. Entries is empty unless Status is
// StatusFound, and then holds only filled slots in rank order.
type Outcome struct {
	RequestID  string                  `json:"request_id"`
	Query      query.Query             `json:"query"`
	Status     Status                  `json:"status"`
	Entries    []rank.Entry            `json:"entries"`
	Harvest    websearch.HarvestReport `json:"-"`
	Candidates int                     `json:"candidates"`
}

// Options tunes an Engine.
type Options struct {
	StopwordsPath string
	Qualifier     string
	MaxCalls      int
	Denylist      []string
	K             int
	Partitions    int
	// ConcurrentRequests is how many Retrieve calls score at full
	// parallelism at once; later calls wait for free workers.
	ConcurrentRequests int
	FetchTimeout       time.Duration
}

// OptionsFromConfig maps the application config onto engine options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		StopwordsPath:      cfg.Query.StopwordsPath,
		Qualifier:          cfg.Query.LocaleQualifier,
		MaxCalls:           cfg.Search.MaxCalls,
		Denylist:           cfg.Ranking.Denylist,
		K:                  cfg.Ranking.TopK,
		Partitions:         cfg.Ranking.Partitions,
		ConcurrentRequests: cfg.Ranking.ConcurrentRequests,
		FetchTimeout:       time.Duration(cfg.Fetch.TimeoutSeconds) * time.Second,
	}
}

// Engine answers retrieval requests. It is safe for concurrent use.
type Engine struct {
	opts         Options
	recorder     telemetry.Recorder
	harvester    *websearch.Harvester
	orchestrator *rank.Orchestrator
}

// New wires an engine. recorder may be nil.
func New(provider websearch.Provider, fetcher fetch.Fetcher, recorder telemetry.Recorder, opts Options) (*Engine, error) {
	if provider == nil {
		return nil, fmt.Errorf("search provider is required")
	}
	if fetcher == nil {
		return nil, fmt.Errorf("page fetcher is required")
	}
	if recorder == nil {
		recorder = telemetry.Nop{}
	}
	if opts.MaxCalls <= 0 {
		opts.MaxCalls = 1
	}
	if opts.K <= 0 {
		opts.K = rank.DefaultK
	}
	if opts.Partitions <= 0 {
		opts.Partitions = rank.DefaultPartitions
	}
	if opts.ConcurrentRequests <= 0 {
		opts.ConcurrentRequests = rank.DefaultConcurrentCalls
	}

	e := &Engine{opts: opts, recorder: recorder}
	e.harvester = websearch.NewHarvester(provider, websearch.WithErrorHandler(e.onHarvestError))

	scorer := rank.NewScorer(fetcher,
		rank.WithK(opts.K),
		rank.WithFetchTimeout(opts.FetchTimeout),
		rank.WithVisitHandler(e.onVisit),
	)
	orchestrator, err := rank.NewOrchestrator(scorer,
		rank.WithPartitions(opts.Partitions),
		rank.WithConcurrentCalls(opts.ConcurrentRequests),
		rank.WithFailureHandler(e.onRankingFailure),
	)
	if err != nil {
		return nil, err
	}
	e.orchestrator = orchestrator
	return e, nil
}

// Close releases the scoring workers.
func (e *Engine) Close() {
	e.orchestrator.Close()
}

// Retrieve runs req to completion. The only error it returns is a failure to
// build the query, which wraps query.ErrConfig; every other problem is
// absorbed by its stage and reflected in the Outcome status.
func (e *Engine) Retrieve(ctx context.Context, req *Request) (*Outcome, error) {
	started := time.Now()
	ctx = ContextWithRequest(ctx, req)

	q, err := query.Build(req.Subject, req.Place, req.Extra, e.opts.StopwordsPath, e.opts.Qualifier)
	if err != nil {
		e.record(ctx, telemetry.Event{Kind: telemetry.KindConfigError, Message: err.Error()})
		return nil, &telemetry.StageError{Stage: "normalize", RequestID: req.ID, Err: err}
	}
	e.record(ctx, telemetry.Event{Kind: telemetry.KindQueryBuilt, Query: q.String()})

	out := &Outcome{RequestID: req.ID, Query: q, Entries: []rank.Entry{}}
	defer func() {
		telemetry.RetrievalDuration.WithLabelValues(string(out.Status)).Observe(time.Since(started).Seconds())
	}()

	items, report := e.harvester.Harvest(ctx, q.String(), e.opts.MaxCalls)
	out.Harvest = report
	telemetry.HarvestItems.Observe(float64(report.Items))
	if items == nil {
		out.Status = StatusNoResults
		e.record(ctx, telemetry.Event{Kind: telemetry.KindHarvestEmpty, Query: q.String(), Count: report.Failed,
			Message: fmt.Sprintf("%d of %d calls failed", report.Failed, report.Calls)})
		return out, nil
	}

	candidates := websearch.FilterHosts(items, e.opts.Denylist)
	out.Candidates = len(candidates)

	top := e.orchestrator.RankAll(ctx, candidates, q)
	if top == nil {
		out.Status = StatusNoRelevantResults
		e.record(ctx, telemetry.Event{Kind: telemetry.KindNoRelevant, Query: q.String(), Count: len(candidates)})
		return out, nil
	}

	out.Status = StatusFound
	out.Entries = top.Filled()
	e.record(ctx, telemetry.Event{Kind: telemetry.KindResultsFound, Query: q.String(), Count: len(out.Entries)})
	return out, nil
}

func (e *Engine) record(ctx context.Context, ev telemetry.Event) {
	req := RequestFromContext(ctx)
	ev.RequestID = req.ID
	ev.User = req.User
	// Telemetry failures never change the outcome of a request.
	_ = e.recorder.Record(ctx, ev)
}

func (e *Engine) onHarvestError(ctx context.Context, call, start int, err error) {
	e.record(ctx, telemetry.Event{Kind: telemetry.KindHarvestCallFailed, Count: call, Message: err.Error()})
}

func (e *Engine) onVisit(ctx context.Context, v rank.Visit) {
	if v.Err == nil {
		return
	}
	e.record(ctx, telemetry.Event{Kind: telemetry.KindFetchFailed, Message: v.Result.Link + ": " + v.Err.Error()})
}

func (e *Engine) onRankingFailure(ctx context.Context, err error) {
	e.record(ctx, telemetry.Event{Kind: telemetry.KindRankingFailed, Message: err.Error()})
}
