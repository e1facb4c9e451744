package retrieval

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hession/coco/internal/config"
	"github.com/hession/coco/internal/fetch"
	"github.com/hession/coco/internal/query"
	"github.com/hession/coco/internal/telemetry"
	"github.com/hession/coco/internal/websearch"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	mu      sync.Mutex
	pages   map[int][]*websearch.Result
	fail    map[int]error
	queries []string
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Search(_ context.Context, q string, start int) (websearch.Page, error) {
	p.mu.Lock()
	p.queries = append(p.queries, q)
	p.mu.Unlock()
	if err := p.fail[start]; err != nil {
		return websearch.Page{}, err
	}
	return websearch.Page{Query: q, Provider: p.Name(), Start: start, Results: p.pages[start]}, nil
}

type stubFetcher map[string]string

func (f stubFetcher) FetchText(_ context.Context, rawURL string, _ time.Duration) (string, error) {
	body, ok := f[rawURL]
	if !ok {
		return "", errors.Join(fetch.ErrFetch, errors.New("connection refused"))
	}
	return body, nil
}

type captureRecorder struct {
	mu     sync.Mutex
	events []telemetry.Event
}

func (c *captureRecorder) Record(_ context.Context, ev telemetry.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return nil
}

func (c *captureRecorder) kinds() []telemetry.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]telemetry.Kind, len(c.events))
	for i, ev := range c.events {
		out[i] = ev.Kind
	}
	return out
}

func site(host string) *websearch.Result {
	return &websearch.Result{Title: host, DisplayHost: host, Link: "https://" + host + "/"}
}

func testOptions(t *testing.T) Options {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stopwords.txt")
	require.NoError(t, os.WriteFile(path, []byte("el\nla\nen\nde\n"), 0644))
	return Options{
		StopwordsPath: path,
		Qualifier:     query.DefaultQualifier,
		MaxCalls:      3,
		Denylist:      []string{"yelp", "facebook"},
		K:             5,
		Partitions:    2,
		FetchTimeout:  time.Second,
	}
}

func newEngine(t *testing.T, p websearch.Provider, f fetch.Fetcher, rec telemetry.Recorder, opts Options) *Engine {
	t.Helper()
	e, err := New(p, f, rec, opts)
	require.NoError(t, err)
	t.Cleanup(e.Close)
	return e
}

func TestRetrieve_Found(t *testing.T) {
	p := &stubProvider{
		fail: map[int]error{1: errors.New("quota exceeded")},
		pages: map[int][]*websearch.Result{
			11: {site("pizzasabana.cr"), site("www.yelp.com"), site("sodalaesquina.cr")},
			21: {site("pizzasabana.cr"), site("trattoria.cr"), site("caido.cr")},
		},
	}
	f := stubFetcher{
		"https://pizzasabana.cr/":   "Pizza artesanal en La Sabana, San José, Costa Rica. Pizza!",
		"https://sodalaesquina.cr/": "Casados y gallo pinto",
		"https://trattoria.cr/":     "pizza napolitana",
		"https://www.yelp.com/":     "pizza pizza pizza pizza pizza pizza",
	}
	rec := &captureRecorder{}
	e := newEngine(t, p, f, rec, testOptions(t))

	req := NewRequest("dani", "El Pizza", "La Sabana", "")
	out, err := e.Retrieve(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, StatusFound, out.Status)
	assert.Equal(t, req.ID, out.RequestID)
	assert.Equal(t, query.Query("pizza en sabana Costa Rica "), out.Query)
	assert.Equal(t, "pizza en sabana Costa Rica ", p.queries[0])
	assert.Equal(t, 4, out.Candidates, "duplicate host and denied host are dropped")
	assert.Equal(t, 1, out.Harvest.Failed)

	require.Len(t, out.Entries, 2)
	assert.Equal(t, "pizzasabana.cr", out.Entries[0].Result.DisplayHost)
	assert.Equal(t, 5, out.Entries[0].Weight) // pizza 2, sabana 1, costa 1, rica 1
	assert.Equal(t, "trattoria.cr", out.Entries[1].Result.DisplayHost)
	assert.Equal(t, 1, out.Entries[1].Weight)

	kinds := rec.kinds()
	assert.Equal(t, telemetry.KindQueryBuilt, kinds[0])
	assert.Contains(t, kinds, telemetry.KindHarvestCallFailed)
	assert.Contains(t, kinds, telemetry.KindFetchFailed)
	assert.Equal(t, telemetry.KindResultsFound, kinds[len(kinds)-1])
	for _, ev := range rec.events {
		assert.Equal(t, req.ID, ev.RequestID)
		assert.Equal(t, "dani", ev.User)
	}
}

func TestRetrieve_NoResults(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := &stubProvider{fail: map[int]error{1: boom, 11: boom, 21: boom}}
	rec := &captureRecorder{}
	e := newEngine(t, p, stubFetcher{}, rec, testOptions(t))

	out, err := e.Retrieve(context.Background(), NewRequest("ana", "sushi", "heredia", ""))
	require.NoError(t, err)

	assert.Equal(t, StatusNoResults, out.Status)
	assert.Empty(t, out.Entries)
	assert.Equal(t, 3, out.Harvest.Failed)
	assert.Equal(t, telemetry.KindHarvestEmpty, rec.kinds()[len(rec.kinds())-1])
}

func TestRetrieve_NoRelevantResults(t *testing.T) {
	p := &stubProvider{pages: map[int][]*websearch.Result{1: {site("a.cr"), site("b.cr"), site("c.cr")}}}
	f := stubFetcher{
		"https://a.cr/": "nada que ver",
		"https://b.cr/": "tampoco",
	}
	rec := &captureRecorder{}
	e := newEngine(t, p, f, rec, testOptions(t))

	out, err := e.Retrieve(context.Background(), NewRequest("ana", "ramen", "cartago", ""))
	require.NoError(t, err)

	assert.Equal(t, StatusNoRelevantResults, out.Status)
	assert.Empty(t, out.Entries)
	assert.Equal(t, telemetry.KindNoRelevant, rec.kinds()[len(rec.kinds())-1])
}

func TestRetrieve_AllHostsDenied(t *testing.T) {
	p := &stubProvider{pages: map[int][]*websearch.Result{1: {site("www.yelp.com"), site("m.facebook.com")}}}
	e := newEngine(t, p, stubFetcher{}, nil, testOptions(t))

	out, err := e.Retrieve(context.Background(), NewRequest("", "pizza", "sabana", ""))
	require.NoError(t, err)
	assert.Equal(t, StatusNoRelevantResults, out.Status)
	assert.Zero(t, out.Candidates)
}

func TestRetrieve_MissingStopwordsIsConfigError(t *testing.T) {
	opts := testOptions(t)
	opts.StopwordsPath = filepath.Join(t.TempDir(), "missing.txt")
	p := &stubProvider{}
	rec := &captureRecorder{}
	e := newEngine(t, p, stubFetcher{}, rec, opts)

	out, err := e.Retrieve(context.Background(), NewRequest("dani", "pizza", "sabana", ""))

	assert.Nil(t, out)
	require.Error(t, err)
	assert.ErrorIs(t, err, query.ErrConfig)
	var stageErr *telemetry.StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "normalize", stageErr.Stage)
	assert.Empty(t, p.queries, "no search is attempted")
	assert.Equal(t, []telemetry.Kind{telemetry.KindConfigError}, rec.kinds())
}

func TestNew_Validation(t *testing.T) {
	_, err := New(nil, stubFetcher{}, nil, Options{})
	assert.Error(t, err)

	_, err = New(&stubProvider{}, nil, nil, Options{})
	assert.Error(t, err)

	e, err := New(&stubProvider{}, stubFetcher{}, nil, Options{})
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, 1, e.opts.MaxCalls)
	assert.Equal(t, 5, e.opts.K)
	assert.Equal(t, 2, e.opts.Partitions)
	assert.Equal(t, 4, e.opts.ConcurrentRequests)
	assert.Equal(t, 8, e.orchestrator.Workers())
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	opts := OptionsFromConfig(cfg)

	assert.Equal(t, 3*time.Second, opts.FetchTimeout)
	assert.Equal(t, "Costa Rica", opts.Qualifier)
	assert.Equal(t, 3, opts.MaxCalls)
	assert.Equal(t, 4, opts.ConcurrentRequests)
	assert.Equal(t, cfg.Ranking.Denylist, opts.Denylist)
}

func TestNewRequest(t *testing.T) {
	a := NewRequest("", "Gallo PINTO", "Heredia", "Con Parqueo")
	b := NewRequest("dani", "x", "y", "z")

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, "anonymous", a.User)
	assert.Equal(t, "gallo pinto", a.Subject)
	assert.Equal(t, "heredia", a.Place)
	assert.Equal(t, "con parqueo", a.Extra)
	assert.True(t, strings.Count(a.ID, "-") == 4)

	ctx := ContextWithRequest(context.Background(), b)
	assert.Same(t, b, RequestFromContext(ctx))
	assert.Equal(t, "-", RequestFromContext(context.Background()).ID)
}
