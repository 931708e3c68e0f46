package domain

// Display defaults applied to records ingested with missing descriptive fields.
const (
	DefaultName     = "Unknown"
	DefaultTicker   = "Unknown"
	DefaultProtocol = "N/A"
)

// Token represents a tradable token in the live view.
// Uniquely identified by its mint address; mutable fields are updated in
// place by patch events.
type Token struct {
	Address            string  `json:"address"`            // token mint address (base58), stable identity
	Name               string  `json:"name"`               // display name
	Ticker             string  `json:"ticker"`             // trading symbol
	Protocol           string  `json:"protocol"`           // launch protocol / DEX
	PriceSol           float64 `json:"priceSol"`           // last price in SOL, non-negative
	PriceChangePercent float64 `json:"priceChangePercent"` // signed change in percentage points
	VolumeSol          float64 `json:"volumeSol"`          // traded volume in SOL, non-negative
	LiquiditySol       float64 `json:"liquiditySol"`       // pool liquidity in SOL, non-negative
}

// Normalize fills absent descriptive fields with display defaults and clamps
// the non-negative numeric fields to zero. PriceChangePercent keeps its sign.
func (t *Token) Normalize() {
	if t.Name == "" {
		t.Name = DefaultName
	}
	if t.Ticker == "" {
		t.Ticker = DefaultTicker
	}
	if t.Protocol == "" {
		t.Protocol = DefaultProtocol
	}
	if t.PriceSol < 0 {
		t.PriceSol = 0
	}
	if t.VolumeSol < 0 {
		t.VolumeSol = 0
	}
	if t.LiquiditySol < 0 {
		t.LiquiditySol = 0
	}
}

// TokenPatch is a partial update for an existing Token. A nil field means
// "not present in this patch" and leaves the stored value untouched.
type TokenPatch struct {
	Name               *string  `json:"name,omitempty"`
	Ticker             *string  `json:"ticker,omitempty"`
	Protocol           *string  `json:"protocol,omitempty"`
	PriceSol           *float64 `json:"priceSol,omitempty"`
	PriceChangePercent *float64 `json:"priceChangePercent,omitempty"`
	VolumeSol          *float64 `json:"volumeSol,omitempty"`
	LiquiditySol       *float64 `json:"liquiditySol,omitempty"`
}

// IsZero reports whether the patch carries no fields at all.
func (p TokenPatch) IsZero() bool {
	return p.Name == nil && p.Ticker == nil && p.Protocol == nil &&
		p.PriceSol == nil && p.PriceChangePercent == nil &&
		p.VolumeSol == nil && p.LiquiditySol == nil
}

// ApplyTo merges the patch into t field by field. Fields absent from the
// patch are never cleared.
func (p TokenPatch) ApplyTo(t *Token) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Ticker != nil {
		t.Ticker = *p.Ticker
	}
	if p.Protocol != nil {
		t.Protocol = *p.Protocol
	}
	if p.PriceSol != nil {
		t.PriceSol = *p.PriceSol
	}
	if p.PriceChangePercent != nil {
		t.PriceChangePercent = *p.PriceChangePercent
	}
	if p.VolumeSol != nil {
		t.VolumeSol = *p.VolumeSol
	}
	if p.LiquiditySol != nil {
		t.LiquiditySol = *p.LiquiditySol
	}
}
