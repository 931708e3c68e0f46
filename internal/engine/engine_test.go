package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/fetch"
	"solana-token-screener/internal/query"
	"solana-token-screener/internal/reconcile"
	"solana-token-screener/internal/storage/memory"
)

// mockFetcher implements a controllable bulk-fetch source.
type mockFetcher struct {
	mu     sync.Mutex
	tokens []*domain.Token
	err    error
	calls  atomic.Int32
}

func newMockFetcher(tokens []*domain.Token) *mockFetcher {
	return &mockFetcher{tokens: tokens}
}

func (m *mockFetcher) FetchTokens(ctx context.Context, p fetch.Params) ([]*domain.Token, error) {
	m.calls.Add(1)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return m.tokens, nil
}

func (m *mockFetcher) setErr(err error) {
	m.mu.Lock()
	m.err = err
	m.mu.Unlock()
}

func newTestEngine(t *testing.T, fetcher Fetcher) (*Engine, *memory.TokenStore) {
	t.Helper()
	store := memory.NewTokenStore()
	logger := log.New(os.Stdout, "[engine-test] ", log.LstdFlags)
	eng := New(Options{
		Store:      store,
		Reconciler: reconcile.NewReconciler(reconcile.Options{Store: store, Logger: logger}),
		Fetcher:    fetcher,
		Logger:     logger,
	})
	return eng, store
}

func makeTokens(n int) []*domain.Token {
	out := make([]*domain.Token, n)
	for i := range out {
		out[i] = &domain.Token{Address: fmt.Sprintf("addr-%03d", i), VolumeSol: float64(i)}
	}
	return out
}

func TestEngine_InitialFetchPopulatesStore(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(3))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool {
		return store.Len() == 3
	}, 2*time.Second, 10*time.Millisecond, "initial fetch never applied")

	view := eng.View()
	assert.Len(t, view.Items, 3)
	assert.Equal(t, 1, view.TotalPages)
}

func TestEngine_StreamEventUpdatesStoreAndStats(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(2))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 2 }, 2*time.Second, 10*time.Millisecond)

	price := 9.5
	eng.Intake(reconcile.Event{Kind: reconcile.KindPriceTick, Patches: []reconcile.Patch{
		{Address: "addr-001", Fields: domain.TokenPatch{PriceSol: &price}},
	}})

	require.Eventually(t, func() bool {
		got, err := store.Get("addr-001")
		return err == nil && got.PriceSol == 9.5
	}, 2*time.Second, 10*time.Millisecond, "price tick never applied")

	s := eng.Stats()
	assert.Equal(t, 2, s.TokenCount)
	assert.GreaterOrEqual(t, s.UpdateCount, uint64(2), "snapshot + tick should both count")
}

func TestEngine_FailedFetchDegradesToEmpty(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(5))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 5 }, 2*time.Second, 10*time.Millisecond)

	fetcher.setErr(fmt.Errorf("connection refused"))
	eng.SetSort("volumeSol", "desc", "24h")

	require.Eventually(t, func() bool { return store.Len() == 0 }, 2*time.Second, 10*time.Millisecond,
		"failed fetch should degrade the view to empty, not crash")

	// Self-heals on the next successful fetch.
	fetcher.setErr(nil)
	eng.SetSort("volumeSol", "asc", "24h")
	require.Eventually(t, func() bool { return store.Len() == 5 }, 2*time.Second, 10*time.Millisecond)
}

func TestEngine_StaleFetchResponseDropped(t *testing.T) {
	eng, store := newTestEngine(t, newMockFetcher(nil))

	// Applied directly on the loop thread: newer response first.
	eng.applyFetch(fetchResult{seq: 2, tokens: []*domain.Token{{Address: "addr-new"}}})
	eng.applyFetch(fetchResult{seq: 1, tokens: []*domain.Token{{Address: "addr-old"}}})

	require.Equal(t, 1, store.Len())
	_, err := store.Get("addr-new")
	assert.NoError(t, err, "newer response must survive")
	_, err = store.Get("addr-old")
	assert.Error(t, err, "stale response must be dropped")
}

func TestEngine_SetPageReslicesWithoutFetch(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(26))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 26 }, 2*time.Second, 10*time.Millisecond)
	fetches := fetcher.calls.Load()

	eng.SetPage(2)
	view := eng.View()
	assert.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.TotalPages)

	// Out-of-range page clamps to the last page.
	eng.SetPage(99)
	assert.Equal(t, 2, eng.View().Page)

	assert.Equal(t, fetches, fetcher.calls.Load(), "paging must not trigger a fetch")
}

func TestEngine_SetSortResetsPageAndRefetches(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(26))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 26 }, 2*time.Second, 10*time.Millisecond)

	eng.SetPage(2)
	fetches := fetcher.calls.Load()

	eng.SetSort("priceSol", "desc", "1h")

	require.Eventually(t, func() bool {
		return fetcher.calls.Load() > fetches
	}, 2*time.Second, 10*time.Millisecond, "sort change must trigger a fetch")
	assert.Equal(t, 1, eng.View().Page, "sort change must reset to page 1")
}

func TestEngine_HighlightsPublished(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(1))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 10*time.Millisecond)

	eng.Intake(reconcile.Event{Kind: reconcile.KindNewToken, Tokens: []*domain.Token{
		{Address: "addr-fresh"},
	}})

	select {
	case batch := <-eng.Highlights():
		assert.Contains(t, batch, "addr-fresh")
	case <-time.After(2 * time.Second):
		t.Fatal("highlight batch never published")
	}
}

func TestEngine_LocalSortedView(t *testing.T) {
	fetcher := newMockFetcher(makeTokens(3))
	eng, store := newTestEngine(t, fetcher)

	eng.Start(context.Background())
	defer eng.Stop()

	require.Eventually(t, func() bool { return store.Len() == 3 }, 2*time.Second, 10*time.Millisecond)

	view := eng.SortedView(query.SortByVolume, query.OrderDesc)
	require.Len(t, view.Items, 3)
	assert.Equal(t, "addr-002", view.Items[0].Address, "highest volume first")
}
