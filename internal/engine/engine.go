// Package engine drives the reconciliation loop: it serializes every store
// mutation onto a single goroutine, schedules periodic bulk refreshes, and
// exposes the paginated projection and summary stats the renderer consumes.
package engine

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/fetch"
	"solana-token-screener/internal/observability"
	"solana-token-screener/internal/query"
	"solana-token-screener/internal/reconcile"
	"solana-token-screener/internal/stats"
	"solana-token-screener/internal/storage"
)

// DefaultRefreshInterval is the period between bulk refreshes.
const DefaultRefreshInterval = 30 * time.Second

// Fetcher retrieves a full token snapshot from the transport.
type Fetcher interface {
	FetchTokens(ctx context.Context, p fetch.Params) ([]*domain.Token, error)
}

// Options contains configuration for creating an Engine.
type Options struct {
	Store      storage.TokenStore
	Reconciler *reconcile.Reconciler
	Fetcher    Fetcher
	Logger     *log.Logger
	Metrics    *observability.Metrics // optional

	RefreshInterval time.Duration // default 30s
	PageSize        int           // default 25

	// Initial fetch parameters.
	SortBy string
	Order  string
	Period string
}

// fetchResult carries one completed bulk fetch back onto the run loop,
// tagged with the monotonic sequence assigned when the fetch was issued.
type fetchResult struct {
	seq    uint64
	tokens []*domain.Token
	err    error
}

// Engine owns the live view. All store mutations happen on the run loop
// goroutine; View and Stats read point-in-time snapshots and are safe to
// call from anywhere.
type Engine struct {
	store      storage.TokenStore
	reconciler *reconcile.Reconciler
	fetcher    Fetcher
	logger     *log.Logger
	metrics    *observability.Metrics

	refreshInterval time.Duration
	pageSize        int

	events       chan reconcile.Event
	fetchResults chan fetchResult
	highlights   chan []string

	// Fetch sequencing guards against a stale in-flight response
	// overwriting a newer one. Issued on request, compared on apply.
	fetchSeq       atomic.Uint64
	lastAppliedSeq uint64 // run loop only

	updateCount atomic.Uint64

	// View state owned by callers, guarded separately from the store.
	viewMu sync.Mutex
	page   int
	params fetch.Params

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New creates an engine. Start must be called before Intake or SetSort.
func New(opts Options) *Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[engine] ", log.LstdFlags)
	}
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = DefaultRefreshInterval
	}
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = query.DefaultPageSize
	}

	return &Engine{
		store:           opts.Store,
		reconciler:      opts.Reconciler,
		fetcher:         opts.Fetcher,
		logger:          logger,
		metrics:         opts.Metrics,
		refreshInterval: refresh,
		pageSize:        pageSize,
		events:          make(chan reconcile.Event, 256),
		fetchResults:    make(chan fetchResult, 4),
		highlights:      make(chan []string, 16),
		page:            1,
		params: fetch.Params{
			Limit:  fetch.DefaultLimit,
			SortBy: opts.SortBy,
			Order:  opts.Order,
			Period: opts.Period,
		},
	}
}

// Start launches the run loop and issues the initial bulk fetch.
func (e *Engine) Start(ctx context.Context) {
	e.ctx, e.cancel = context.WithCancel(ctx)

	e.requestFetch()

	e.wg.Add(1)
	go e.run()
}

// Stop shuts down the run loop and waits for it to finish.
func (e *Engine) Stop() {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// Intake accepts a classified event from the stream router. Events are
// queued and reconciled in arrival order on the run loop.
func (e *Engine) Intake(ev reconcile.Event) {
	if e.ctx == nil {
		return
	}
	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}

// SetSort changes the server-side sort parameters, resets the page to 1,
// and triggers a fresh fetch. Changing sort always means a new snapshot.
func (e *Engine) SetSort(sortBy string, order string, period string) {
	e.viewMu.Lock()
	e.params.SortBy = sortBy
	e.params.Order = order
	e.params.Period = period
	e.page = 1
	e.viewMu.Unlock()

	e.requestFetch()
}

// SetPage moves to page n of the currently held snapshot, clamped to the
// displayable range. No fetch is triggered: paging only re-slices.
func (e *Engine) SetPage(n int) {
	clamped := query.ClampPage(n, e.store.Len(), e.pageSize)
	e.viewMu.Lock()
	e.page = clamped
	e.viewMu.Unlock()
}

// View returns the current display page of the held snapshot.
func (e *Engine) View() query.Projection {
	e.viewMu.Lock()
	page := e.page
	e.viewMu.Unlock()

	return query.Page(e.store.Snapshot(), page, e.pageSize)
}

// SortedView returns a locally re-sorted display page without refetching.
func (e *Engine) SortedView(key query.SortKey, order query.Order) query.Projection {
	e.viewMu.Lock()
	page := e.page
	e.viewMu.Unlock()

	return query.Page(query.Sort(e.store.Snapshot(), key, order), page, e.pageSize)
}

// Stats returns summary metrics over the current snapshot.
func (e *Engine) Stats() stats.Summary {
	return stats.Compute(e.store.Snapshot(), e.updateCount.Load())
}

// Highlights delivers batches of addresses to flash in the rendering layer.
// Publication is non-blocking: a renderer that does not drain the channel
// loses highlights, never events.
func (e *Engine) Highlights() <-chan []string {
	return e.highlights
}

func (e *Engine) run() {
	defer e.wg.Done()

	ticker := time.NewTicker(e.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case ev := <-e.events:
			e.apply(ev)
		case res := <-e.fetchResults:
			e.applyFetch(res)
		case <-ticker.C:
			e.requestFetch()
		}
	}
}

// requestFetch issues an asynchronous bulk fetch tagged with the next
// sequence number. The run loop never blocks on the transport.
func (e *Engine) requestFetch() {
	if e.ctx == nil {
		return
	}
	seq := e.fetchSeq.Add(1)

	e.viewMu.Lock()
	params := e.params
	e.viewMu.Unlock()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		tokens, err := e.fetcher.FetchTokens(e.ctx, params)
		select {
		case e.fetchResults <- fetchResult{seq: seq, tokens: tokens, err: err}:
		case <-e.ctx.Done():
		}
	}()
}

// applyFetch reconciles a completed bulk fetch. Responses arriving out of
// order are dropped when a newer one has already been applied; a failed
// fetch degrades the view to empty rather than halting the loop.
func (e *Engine) applyFetch(res fetchResult) {
	if res.seq <= e.lastAppliedSeq {
		e.logger.Printf("dropping stale fetch response (seq %d <= %d)", res.seq, e.lastAppliedSeq)
		if e.metrics != nil {
			e.metrics.StaleFetchesDropped.Inc()
		}
		return
	}
	e.lastAppliedSeq = res.seq

	tokens := res.tokens
	if res.err != nil {
		e.logger.Printf("bulk fetch failed, degrading to empty snapshot: %v", res.err)
		if e.metrics != nil {
			e.metrics.FetchErrors.Inc()
		}
		tokens = nil
	}

	e.apply(reconcile.Event{Kind: reconcile.KindSnapshot, Tokens: tokens})
}

// apply reconciles one event and publishes its side effects.
func (e *Engine) apply(ev reconcile.Event) {
	res := e.reconciler.Apply(ev)

	if res.Applied > 0 {
		e.updateCount.Add(1)
	}

	if e.metrics != nil {
		e.metrics.EventsApplied.WithLabelValues(ev.Kind.String()).Inc()
		e.metrics.ItemsApplied.Add(float64(res.Applied))
		e.metrics.ItemsDropped.Add(float64(res.Dropped))
		e.metrics.TokensEvicted.Add(float64(res.Evicted))
		e.metrics.TokenCount.Set(float64(e.store.Len()))
		if ev.Kind == reconcile.KindSnapshot {
			e.metrics.SnapshotsLoaded.Inc()
		}
		if res.Applied > 0 {
			e.metrics.UpdateCount.Inc()
		}
	}

	if len(res.Highlights) > 0 {
		select {
		case e.highlights <- res.Highlights:
		default:
			// Renderer not draining; highlights are transient anyway.
		}
	}
}
