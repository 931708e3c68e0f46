// Package stats computes summary metrics over a token snapshot.
package stats

import (
	"solana-token-screener/internal/domain"
)

// Summary holds the header metrics displayed above the token list.
type Summary struct {
	TokenCount     int     // records currently held
	TotalVolumeSol float64 // cumulative volume across all records
	UpdateCount    uint64  // events applied since session start
}

// Compute derives a Summary from a point-in-time snapshot plus the external
// update counter. The counter is owned by the event-processing driver and
// increments once per applied event regardless of how many records it
// touched; it is passed through, not derived here.
func Compute(snapshot []*domain.Token, updateCount uint64) Summary {
	s := Summary{
		TokenCount:  len(snapshot),
		UpdateCount: updateCount,
	}
	for _, t := range snapshot {
		if t == nil {
			continue
		}
		s.TotalVolumeSol += t.VolumeSol
	}
	return s
}
