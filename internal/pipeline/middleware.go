package pipeline

import (
	"strings"

	"github.com/staywatch/staywatch/internal/types"
)

// --- Built-in Middleware ---

// NormalizeMoneyMiddleware trims stray whitespace out of the raw money
// strings and upper-cases ISO currency codes so the exported cells
// compare cleanly across runs. The parsed Money values are never mutated;
// the quote gets normalized copies.
type NormalizeMoneyMiddleware struct{}

func (m *NormalizeMoneyMiddleware) Name() string { return "normalize_money" }

func (m *NormalizeMoneyMiddleware) Process(quote *types.PriceQuote) (*types.PriceQuote, error) {
	quote.NightlyPrice = normalizeMoney(quote.NightlyPrice)
	quote.CleaningFee = normalizeMoney(quote.CleaningFee)
	quote.ServiceFee = normalizeMoney(quote.ServiceFee)
	quote.Taxes = normalizeMoney(quote.Taxes)
	quote.Total = normalizeMoney(quote.Total)
	return quote, nil
}

func normalizeMoney(money *types.Money) *types.Money {
	if money == nil {
		return nil
	}
	out := *money
	out.Raw = strings.Join(strings.Fields(out.Raw), " ")
	if len(out.Currency) == 3 {
		out.Currency = strings.ToUpper(out.Currency)
	}
	return &out
}

// UsableQuoteMiddleware drops quotes missing either the nightly price or
// the total. Pre-filtering here keeps the fail-closed exporter from ever
// seeing an incomplete row.
type UsableQuoteMiddleware struct{}

func (m *UsableQuoteMiddleware) Name() string { return "usable_quote" }

func (m *UsableQuoteMiddleware) Process(quote *types.PriceQuote) (*types.PriceQuote, error) {
	if !quote.Usable() {
		return nil, nil
	}
	return quote, nil
}

// DedupCheckInMiddleware drops quotes whose check-in date was already
// seen. First occurrence wins, matching the calendar dedup rule.
type DedupCheckInMiddleware struct {
	seen map[string]bool
}

func NewDedupCheckInMiddleware() *DedupCheckInMiddleware {
	return &DedupCheckInMiddleware{seen: make(map[string]bool)}
}

func (m *DedupCheckInMiddleware) Name() string { return "dedup_check_in" }

func (m *DedupCheckInMiddleware) Process(quote *types.PriceQuote) (*types.PriceQuote, error) {
	key := quote.CheckIn.Format("2006-01-02")
	if m.seen[key] {
		return nil, nil
	}
	m.seen[key] = true
	return quote, nil
}

// DefaultQuotePipeline wires the standard chain: normalize, filter to
// usable, dedup by check-in.
func DefaultQuotePipeline(p *Pipeline) *Pipeline {
	p.Use(&NormalizeMoneyMiddleware{})
	p.Use(&UsableQuoteMiddleware{})
	p.Use(NewDedupCheckInMiddleware())
	return p
}
