package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hession/coco/internal/logger"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(filepath.Join(t.TempDir(), "nested", "events.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordAndQuery(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	require.NoError(t, store.Record(ctx, Event{RequestID: "r1", User: "dani", Kind: KindQueryBuilt, Query: "pizza en sabana Costa Rica "}))
	require.NoError(t, store.Record(ctx, Event{RequestID: "r2", User: "ana", Kind: KindHarvestEmpty}))
	require.NoError(t, store.Record(ctx, Event{RequestID: "r1", User: "dani", Kind: KindResultsFound, Count: 5}))

	recent, err := store.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, KindResultsFound, recent[0].Kind)
	assert.Equal(t, KindHarvestEmpty, recent[1].Kind)

	events, err := store.ForRequest(ctx, "r1")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, KindQueryBuilt, events[0].Kind)
	assert.Equal(t, "pizza en sabana Costa Rica ", events[0].Query)
	assert.Equal(t, 5, events[1].Count)
	assert.Equal(t, "dani", events[1].User)
	assert.False(t, events[1].CreatedAt.IsZero())
}

func TestSQLiteStore_ConcurrentRecord(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			assert.NoError(t, store.Record(ctx, Event{RequestID: "r", User: "u", Kind: KindFetchFailed, Message: fmt.Sprint(i)}))
		}(i)
	}
	wg.Wait()

	events, err := store.ForRequest(ctx, "r")
	require.NoError(t, err)
	assert.Len(t, events, 20)
}

func TestLogRecorder(t *testing.T) {
	dir := t.TempDir()
	l, err := logger.NewLogger(logger.Config{LogDir: dir, Level: logger.DEBUG})
	require.NoError(t, err)

	r := NewLogRecorder(l)
	require.NoError(t, r.Record(context.Background(), Event{RequestID: "r1", User: "dani", Kind: KindHarvestCallFailed, Message: "quota exceeded"}))
	require.NoError(t, r.Record(context.Background(), Event{RequestID: "r1", User: "dani", Kind: KindResultsFound, Count: 3}))
	l.Close()

	content, err := os.ReadFile(filepath.Join(dir, "coco-"+time.Now().Format("2006-01-02")+".log"))
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "[WARN] request=r1 user=dani harvest_call_failed")
	assert.Contains(t, text, "quota exceeded")
	assert.Contains(t, text, "[INFO] request=r1 user=dani results_found")
	assert.True(t, strings.Contains(text, "count=3"))

	assert.NoError(t, NewLogRecorder(nil).Record(context.Background(), Event{}))
}

type failingRecorder struct{ err error }

func (f failingRecorder) Record(context.Context, Event) error { return f.err }

type countingRecorder struct {
	mu sync.Mutex
	n  int
}

func (c *countingRecorder) Record(context.Context, Event) error {
	c.mu.Lock()
	c.n++
	c.mu.Unlock()
	return nil
}

func TestMulti(t *testing.T) {
	boom := errors.New("disk full")
	counter := &countingRecorder{}

	m := Multi{counter, nil, failingRecorder{err: boom}, Nop{}, counter}
	err := m.Record(context.Background(), Event{Kind: KindQueryBuilt})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 2, counter.n)
}

func TestMetricsRecorder(t *testing.T) {
	RegisterMetrics()
	RegisterMetrics()

	before := testutil.ToFloat64(EventsTotal.WithLabelValues(string(KindNoRelevant)))
	require.NoError(t, MetricsRecorder{}.Record(context.Background(), Event{Kind: KindNoRelevant}))
	after := testutil.ToFloat64(EventsTotal.WithLabelValues(string(KindNoRelevant)))

	assert.Equal(t, before+1, after)
}

func TestStageError(t *testing.T) {
	inner := errors.New("timeout")
	err := &StageError{Stage: "harvest", RequestID: "r1", Err: inner}

	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "harvest failed for request r1: timeout", err.Error())
}
