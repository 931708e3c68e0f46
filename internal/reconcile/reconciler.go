package reconcile

import (
	"log"

	"solana-token-screener/internal/domain"
	"solana-token-screener/internal/storage"
)

// Result reports what a single Apply did. Highlights lists addresses whose
// records were touched and should flash in the rendering layer; it is a side
// signal, not state.
type Result struct {
	Applied    int
	Dropped    int
	Evicted    int
	Highlights []string
}

// Options configures a Reconciler.
type Options struct {
	Store  storage.TokenStore
	Logger *log.Logger

	// ValidateAddress, when set, rejects items whose address fails it.
	// Production wiring passes solana.ValidAddress; tests may leave it nil.
	ValidateAddress func(string) bool
}

// Reconciler translates classified events into store mutations with
// per-event-kind merge policy. It never fails: malformed input degrades to
// fewer records reflected, and the next good snapshot self-heals the view.
type Reconciler struct {
	store    storage.TokenStore
	logger   *log.Logger
	validate func(string) bool
}

// NewReconciler creates a reconciler over the given store.
func NewReconciler(opts Options) *Reconciler {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[reconcile] ", log.LstdFlags)
	}
	return &Reconciler{
		store:    opts.Store,
		logger:   logger,
		validate: opts.ValidateAddress,
	}
}

// Apply reconciles one event into the store. Within an event, items apply
// in payload order; a later item for the same address overwrites the
// earlier one's fields, consistent with patch-over-base semantics applied
// sequentially.
func (r *Reconciler) Apply(ev Event) Result {
	var res Result
	res.Dropped = ev.Malformed

	switch ev.Kind {
	case KindSnapshot:
		res = r.applySnapshot(ev, res)
	case KindBulkPatch, KindPriceTick, KindVolumeTick:
		res = r.applyPatches(ev, res)
	case KindNewToken:
		res = r.applyNewTokens(ev, res)
	default:
		r.logger.Printf("dropping event of unknown kind %d", ev.Kind)
	}

	if ev.Malformed > 0 {
		r.logger.Printf("%s: %d malformed item(s) skipped", ev.Kind, ev.Malformed)
	}
	return res
}

// applySnapshot replaces the whole collection. A malformed payload already
// decoded to zero tokens, so the view degrades to empty rather than failing.
func (r *Reconciler) applySnapshot(ev Event, res Result) Result {
	records := make([]*domain.Token, 0, len(ev.Tokens))
	for _, t := range ev.Tokens {
		if !r.validAddress(t.Address) {
			res.Dropped++
			continue
		}
		t.Normalize()
		records = append(records, t)
	}
	r.store.ReplaceAll(records)
	res.Applied = len(records)
	return res
}

// applyPatches applies partial updates in payload order. Unknown addresses
// are a defined no-op: bulk patches and ticks are update-only and never
// create records.
func (r *Reconciler) applyPatches(ev Event, res Result) Result {
	for _, p := range ev.Patches {
		if !r.validAddress(p.Address) {
			res.Dropped++
			continue
		}
		if !r.store.UpsertPatch(p.Address, p.Fields) {
			res.Dropped++
			continue
		}
		res.Applied++
		res.Highlights = append(res.Highlights, p.Address)
	}
	return res
}

func (r *Reconciler) applyNewTokens(ev Event, res Result) Result {
	for _, t := range ev.Tokens {
		if !r.validAddress(t.Address) {
			res.Dropped++
			continue
		}
		t.Normalize()

		_, err := r.store.Get(t.Address)
		isNew := err != nil
		before := r.store.Len()

		r.store.InsertNew(t)

		// A genuinely new record that did not grow the collection means
		// the bound was hit and the tail record was evicted.
		if isNew && r.store.Len() == before {
			res.Evicted++
		}
		res.Applied++
		res.Highlights = append(res.Highlights, t.Address)
	}
	return res
}

func (r *Reconciler) validAddress(addr string) bool {
	if addr == "" {
		return false
	}
	if r.validate != nil {
		return r.validate(addr)
	}
	return true
}
