// Package query derives read-only projections from a token snapshot.
// Every function is pure over its inputs and safe to call concurrently.
package query

import (
	"sort"
	"strings"

	"solana-token-screener/internal/domain"
)

// DefaultPageSize is the number of records per display page.
const DefaultPageSize = 25

// SortKey selects the field a local sort orders by.
type SortKey string

const (
	SortByPrice     SortKey = "priceSol"
	SortByChange    SortKey = "priceChangePercent"
	SortByVolume    SortKey = "volumeSol"
	SortByLiquidity SortKey = "liquiditySol"
	SortByName      SortKey = "name"
)

// Order is the sort direction.
type Order string

const (
	OrderAsc  Order = "asc"
	OrderDesc Order = "desc"
)

// Projection is one display page of the collection.
type Projection struct {
	Items      []*domain.Token
	Page       int
	TotalPages int
}

// Page slices the snapshot into the requested page. Callers own page-number
// state and are expected to clamp it to [1, max(1, totalPages)] before
// calling; an out-of-range page yields an empty item slice rather than a
// panic. TotalPages is ceil(len(snapshot)/pageSize) and never less than 1.
func Page(snapshot []*domain.Token, page, pageSize int) Projection {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	totalPages := (len(snapshot) + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}

	p := Projection{Page: page, TotalPages: totalPages}

	start := (page - 1) * pageSize
	if page < 1 || start >= len(snapshot) {
		return p
	}
	end := start + pageSize
	if end > len(snapshot) {
		end = len(snapshot)
	}
	p.Items = snapshot[start:end]
	return p
}

// ClampPage clamps a requested page number to the displayable range for a
// collection of n records.
func ClampPage(page, n, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	totalPages := (n + pageSize - 1) / pageSize
	if totalPages < 1 {
		totalPages = 1
	}
	if page < 1 {
		return 1
	}
	if page > totalPages {
		return totalPages
	}
	return page
}

// Sort re-derives display order locally without mutating the snapshot.
// The server already sorts bulk responses; this covers re-sorting the held
// snapshot between fetches. The sort is stable so equal keys keep their
// insertion order.
func Sort(snapshot []*domain.Token, key SortKey, order Order) []*domain.Token {
	out := make([]*domain.Token, len(snapshot))
	copy(out, snapshot)

	less := lessFunc(key)
	if less == nil {
		return out
	}
	sort.SliceStable(out, func(i, j int) bool {
		if order == OrderDesc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func lessFunc(key SortKey) func(a, b *domain.Token) bool {
	switch key {
	case SortByPrice:
		return func(a, b *domain.Token) bool { return a.PriceSol < b.PriceSol }
	case SortByChange:
		return func(a, b *domain.Token) bool { return a.PriceChangePercent < b.PriceChangePercent }
	case SortByVolume:
		return func(a, b *domain.Token) bool { return a.VolumeSol < b.VolumeSol }
	case SortByLiquidity:
		return func(a, b *domain.Token) bool { return a.LiquiditySol < b.LiquiditySol }
	case SortByName:
		return func(a, b *domain.Token) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	default:
		return nil
	}
}
