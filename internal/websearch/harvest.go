package websearch

import (
	"context"
	"fmt"
)

// HarvestReport describes what a Harvest run did.
type HarvestReport struct {
	Calls  int     // calls attempted
	Failed int     // calls that returned an error
	Items  int     // items collected
	Errors []error // one per failed call, each wrapping ErrUpstreamCall
}

// Harvester collects paginated search results.
//
// A failed call is recorded and skipped; the cursor still advances by one page.
type Harvester struct {
	provider Provider
	onError  func(ctx context.Context, call, start int, err error)
}

// HarvesterOption configures a Harvester.
type HarvesterOption func(*Harvester)

// WithErrorHandler is called synchronously for every failed call.
func WithErrorHandler(fn func(ctx context.Context, call, start int, err error)) HarvesterOption {
	return func(h *Harvester) { h.onError = fn }
}

func NewHarvester(provider Provider, opts ...HarvesterOption) *Harvester {
	h := &Harvester{provider: provider}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Harvest performs up to maxCalls sequential calls starting at cursor 1 and
// concatenates every successful page. It returns nil when nothing was
// collected, either because every call failed or because the upstream had
// no items.
func (h *Harvester) Harvest(ctx context.Context, query string, maxCalls int) ([]*Result, HarvestReport) {
	var (
		items  []*Result
		report HarvestReport
		start  = 1
	)

	for call := 1; call <= maxCalls; call++ {
		if ctx.Err() != nil {
			break
		}
		report.Calls++

		page, err := h.provider.Search(ctx, query, start)
		if err != nil {
			err = fmt.Errorf("%w (%s, call %d, start %d): %w", ErrUpstreamCall, h.provider.Name(), call, start, err)
			report.Failed++
			report.Errors = append(report.Errors, err)
			if h.onError != nil {
				h.onError(ctx, call, start, err)
			}
		} else {
			items = append(items, page.Results...)
		}
		start += PageSize
	}

	report.Items = len(items)
	if len(items) == 0 {
		return nil, report
	}
	return items, report
}
