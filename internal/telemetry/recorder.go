// Package telemetry records what happened during each retrieval request.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hession/coco/internal/logger"
)

// Kind names an event.
type Kind string

const (
	KindQueryBuilt        Kind = "query_built"
	KindConfigError       Kind = "config_error"
	KindHarvestCallFailed Kind = "harvest_call_failed"
	KindHarvestEmpty      Kind = "harvest_empty"
	KindFetchFailed       Kind = "fetch_failed"
	KindRankingFailed     Kind = "ranking_failed"
	KindNoRelevant        Kind = "no_relevant_results"
	KindResultsFound      Kind = "results_found"
)

// Event is one structured telemetry record.
type Event struct {
	ID        int64     `json:"id,omitempty"`
	RequestID string    `json:"request_id"`
	User      string    `json:"user"`
	Kind      Kind      `json:"kind"`
	Query     string    `json:"query,omitempty"`
	Message   string    `json:"message,omitempty"`
	Count     int       `json:"count,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Recorder receives events. Implementations must be safe for concurrent use:
// scoring workers report fetch failures in parallel.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) error { return nil }

// Multi fans an event out to several recorders and joins their errors.
type Multi []Recorder

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range m {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogRecorder writes events to the leveled logger.
type LogRecorder struct {
	log *logger.Logger
}

func NewLogRecorder(l *logger.Logger) *LogRecorder {
	return &LogRecorder{log: l}
}

func (r *LogRecorder) Record(_ context.Context, ev Event) error {
	if r.log == nil {
		return nil
	}
	rl := r.log.Request(ev.RequestID, ev.User)
	line := fmt.Sprintf("%s query=%q count=%d %s", ev.Kind, ev.Query, ev.Count, ev.Message)
	switch ev.Kind {
	case KindConfigError, KindRankingFailed:
		rl.Error("%s", line)
	case KindHarvestCallFailed:
		rl.Warn("%s", line)
	case KindFetchFailed:
		rl.Debug("%s", line)
	default:
		rl.Info("%s", line)
	}
	return nil
}

// StageError ties a failure to the pipeline stage and request it came from.
type StageError struct {
	Stage     string
	RequestID string
	Err       error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s failed for request %s: %v", e.Stage, e.RequestID, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
