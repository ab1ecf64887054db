package pipeline

import (
	"log/slog"

	"github.com/staywatch/staywatch/internal/types"
)

// Middleware processes a quote and returns the (possibly modified)
// quote. Return nil to drop the quote from the pipeline.
type Middleware interface {
	// Name returns the middleware's identifier.
	Name() string

	// Process transforms a quote. Return nil to drop the quote.
	Process(quote *types.PriceQuote) (*types.PriceQuote, error)
}

// Pipeline chains middleware processors together. Quotes pass through
// it between extraction and export.
type Pipeline struct {
	middlewares []Middleware
	logger      *slog.Logger
	dropped     int
}

// New creates a new Pipeline.
func New(logger *slog.Logger) *Pipeline {
	return &Pipeline{
		logger: logger.With("component", "pipeline"),
	}
}

// Use adds a middleware to the pipeline chain.
func (p *Pipeline) Use(mw Middleware) {
	p.middlewares = append(p.middlewares, mw)
	p.logger.Debug("middleware added", "name", mw.Name(), "position", len(p.middlewares))
}

// Process runs the quote through all middleware in order. A nil result
// with nil error means the quote was dropped.
func (p *Pipeline) Process(quote *types.PriceQuote) (*types.PriceQuote, error) {
	current := quote

	for _, mw := range p.middlewares {
		result, err := mw.Process(current)
		if err != nil {
			return nil, err
		}
		if result == nil {
			p.dropped++
			p.logger.Debug("quote dropped",
				"stage", mw.Name(), "check_in", quote.CheckIn.Format("2006-01-02"))
			return nil, nil
		}
		current = result
	}
	return current, nil
}

// ProcessAll runs a batch of quotes through the chain and returns the
// survivors in order.
func (p *Pipeline) ProcessAll(quotes []types.PriceQuote) ([]types.PriceQuote, error) {
	kept := make([]types.PriceQuote, 0, len(quotes))
	for i := range quotes {
		result, err := p.Process(&quotes[i])
		if err != nil {
			return nil, err
		}
		if result != nil {
			kept = append(kept, *result)
		}
	}
	return kept, nil
}

// Dropped returns the number of quotes dropped so far.
func (p *Pipeline) Dropped() int { return p.dropped }

// Len returns the number of middleware in the chain.
func (p *Pipeline) Len() int { return len(p.middlewares) }
