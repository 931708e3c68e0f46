package stream

import (
	"errors"
	"log"
	"sync/atomic"

	"solana-token-screener/internal/reconcile"
)

// Intake receives every successfully classified event, in arrival order.
type Intake func(ev reconcile.Event)

// RouterStats contains runtime counters.
type RouterStats struct {
	MessagesReceived int64
	EventsRouted     int64
	UnknownEvents    int64
}

// Router classifies named channel messages into the tagged event union and
// hands them to a single intake function. Shape variance is resolved by
// reconcile.DecodeEvent before anything reaches the reconciler; unknown
// event names are counted and dropped, never an error.
type Router struct {
	intake Intake
	logger *log.Logger

	received atomic.Int64
	routed   atomic.Int64
	unknown  atomic.Int64
}

// NewRouter creates a router delivering to intake.
func NewRouter(intake Intake, logger *log.Logger) *Router {
	if logger == nil {
		logger = log.New(log.Writer(), "[stream] ", log.LstdFlags)
	}
	return &Router{intake: intake, logger: logger}
}

// Route classifies one message and forwards it.
func (r *Router) Route(msg Message) {
	r.received.Add(1)

	ev, err := reconcile.DecodeEvent(msg.Event, msg.Data)
	if err != nil {
		if errors.Is(err, reconcile.ErrUnknownEvent) {
			r.unknown.Add(1)
			return
		}
		r.logger.Printf("drop message %q: %v", msg.Event, err)
		return
	}

	r.routed.Add(1)
	r.intake(ev)
}

// Run routes every message from ch until it is closed.
func (r *Router) Run(ch <-chan Message) {
	for msg := range ch {
		r.Route(msg)
	}
}

// Stats returns current counters.
func (r *Router) Stats() RouterStats {
	return RouterStats{
		MessagesReceived: r.received.Load(),
		EventsRouted:     r.routed.Load(),
		UnknownEvents:    r.unknown.Load(),
	}
}
