package reconcile

import (
	"encoding/json"
	"errors"
	"fmt"

	"solana-token-screener/internal/domain"
)

// Channel event names recognized by DecodeEvent.
const (
	EventInitialData   = "initial_data"
	EventTokensUpdated = "tokens_updated"
	EventPriceUpdate   = "price_update"
	EventVolumeUpdate  = "volume_update"
	EventNewToken      = "new_token"
)

// ErrUnknownEvent is returned for event names outside the taxonomy.
var ErrUnknownEvent = errors.New("unknown event")

// Kind classifies a normalized inbound event.
type Kind int

const (
	KindUnknown Kind = iota
	KindSnapshot
	KindBulkPatch
	KindPriceTick
	KindVolumeTick
	KindNewToken
)

// String returns the kind name for logging.
func (k Kind) String() string {
	switch k {
	case KindSnapshot:
		return "snapshot"
	case KindBulkPatch:
		return "bulk_patch"
	case KindPriceTick:
		return "price_tick"
	case KindVolumeTick:
		return "volume_tick"
	case KindNewToken:
		return "new_token"
	default:
		return "unknown"
	}
}

// Patch is a partial update addressed to one existing token.
type Patch struct {
	Address string
	Fields  domain.TokenPatch
}

// Event is the tagged union every inbound payload is normalized into before
// it reaches the reconciler. Exactly one of Tokens/Patches is populated,
// depending on Kind. Malformed counts items dropped during decoding.
type Event struct {
	Kind      Kind
	Tokens    []*domain.Token
	Patches   []Patch
	Malformed int
}

// wireUpdate is the shape of a single partial update on the wire.
type wireUpdate struct {
	Address            string   `json:"address"`
	Name               *string  `json:"name"`
	Ticker             *string  `json:"ticker"`
	Protocol           *string  `json:"protocol"`
	PriceSol           *float64 `json:"priceSol"`
	PriceChangePercent *float64 `json:"priceChangePercent"`
	VolumeSol          *float64 `json:"volumeSol"`
	LiquiditySol       *float64 `json:"liquiditySol"`
}

// DecodeEvent normalizes a named channel payload into an Event. Payloads
// arrive in more than one historical envelope shape; all shape variance is
// handled here so the reconciler only ever sees the tagged union.
// Individual malformed items are dropped and counted, never fatal; only an
// unrecognized event name yields an error.
func DecodeEvent(name string, data json.RawMessage) (Event, error) {
	switch name {
	case EventInitialData:
		return decodeSnapshot(data), nil
	case EventTokensUpdated:
		return decodeBulkPatch(data), nil
	case EventPriceUpdate:
		return decodeTick(KindPriceTick, data), nil
	case EventVolumeUpdate:
		return decodeTick(KindVolumeTick, data), nil
	case EventNewToken:
		return decodeNewToken(data), nil
	default:
		return Event{}, fmt.Errorf("%w: %q", ErrUnknownEvent, name)
	}
}

// decodeSnapshot accepts either a bare token array or an envelope object
// whose first array-valued field holds the tokens. A malformed or null
// payload degrades to an empty snapshot rather than failing the pipeline.
func decodeSnapshot(data json.RawMessage) Event {
	ev := Event{Kind: KindSnapshot}

	raw, ok := UnwrapTokenArray(data)
	if !ok {
		ev.Malformed++
		return ev
	}

	for _, item := range raw {
		var t domain.Token
		if err := json.Unmarshal(item, &t); err != nil || t.Address == "" {
			ev.Malformed++
			continue
		}
		ev.Tokens = append(ev.Tokens, &t)
	}
	return ev
}

func decodeBulkPatch(data json.RawMessage) Event {
	ev := Event{Kind: KindBulkPatch}

	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil || items == nil {
		ev.Malformed++
		return ev
	}

	for _, item := range items {
		var u wireUpdate
		if err := json.Unmarshal(item, &u); err != nil || u.Address == "" {
			ev.Malformed++
			continue
		}
		ev.Patches = append(ev.Patches, Patch{
			Address: u.Address,
			Fields: domain.TokenPatch{
				Name:               u.Name,
				Ticker:             u.Ticker,
				Protocol:           u.Protocol,
				PriceSol:           u.PriceSol,
				PriceChangePercent: u.PriceChangePercent,
				VolumeSol:          u.VolumeSol,
				LiquiditySol:       u.LiquiditySol,
			},
		})
	}
	return ev
}

// decodeTick accepts a single object or an array of objects and restricts
// the resulting patches to the fields the tick is defined over. All other
// fields stay untouched by construction.
func decodeTick(kind Kind, data json.RawMessage) Event {
	ev := Event{Kind: kind}

	items, ok := objectOrArray(data)
	if !ok {
		ev.Malformed++
		return ev
	}

	for _, item := range items {
		var u wireUpdate
		if err := json.Unmarshal(item, &u); err != nil || u.Address == "" {
			ev.Malformed++
			continue
		}
		p := Patch{Address: u.Address}
		switch kind {
		case KindPriceTick:
			p.Fields.PriceSol = u.PriceSol
			p.Fields.PriceChangePercent = u.PriceChangePercent
		case KindVolumeTick:
			p.Fields.VolumeSol = u.VolumeSol
		}
		if p.Fields.IsZero() {
			ev.Malformed++
			continue
		}
		ev.Patches = append(ev.Patches, p)
	}
	return ev
}

func decodeNewToken(data json.RawMessage) Event {
	ev := Event{Kind: KindNewToken}

	var t domain.Token
	if err := json.Unmarshal(data, &t); err != nil || t.Address == "" {
		ev.Malformed++
		return ev
	}
	ev.Tokens = append(ev.Tokens, &t)
	return ev
}

// UnwrapTokenArray locates the token array inside a payload that is either
// the array itself or an envelope object nesting it one level deep. Two
// historically different envelope shapes exist; rather than enumerating
// field names, the first array-valued field wins, recursing one level into
// object-valued fields.
func UnwrapTokenArray(data json.RawMessage) ([]json.RawMessage, bool) {
	return unwrapTokenArray(data, 2)
}

func unwrapTokenArray(data json.RawMessage, depth int) ([]json.RawMessage, bool) {
	if isNull(data) {
		return nil, false
	}
	var arr []json.RawMessage
	if err := json.Unmarshal(data, &arr); err == nil && arr != nil {
		return arr, true
	}
	if depth == 0 {
		return nil, false
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, false
	}
	// Array-valued fields first, then descend into object-valued ones.
	for _, v := range obj {
		arr = nil
		if err := json.Unmarshal(v, &arr); err == nil && arr != nil {
			return arr, true
		}
	}
	for _, v := range obj {
		if inner, ok := unwrapTokenArray(v, depth-1); ok {
			return inner, true
		}
	}
	return nil, false
}

// objectOrArray normalizes a payload that may be one object or a sequence
// of objects into a slice.
func objectOrArray(data json.RawMessage) ([]json.RawMessage, bool) {
	if isNull(data) {
		return nil, false
	}
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err == nil && items != nil {
		return items, true
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err == nil && obj != nil {
		return []json.RawMessage{data}, true
	}
	return nil, false
}

func isNull(data json.RawMessage) bool {
	trimmed := string(data)
	return trimmed == "" || trimmed == "null"
}
