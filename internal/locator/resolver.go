package locator

import (
	"context"
	"log/slog"
	"time"
)

// Element is a located page element. Implementations wrap a live browser
// node; the three click variants are the tiers of the click cascade.
type Element interface {
	// Click performs a direct input click.
	Click(ctx context.Context) error

	// ScriptClick clicks the element from injected JavaScript.
	ScriptClick(ctx context.Context) error

	// PointerClick moves the pointer onto the element and clicks.
	PointerClick(ctx context.Context) error

	// Text returns the element's visible text.
	Text(ctx context.Context) (string, error)

	// Enabled reports whether the element accepts interaction.
	Enabled(ctx context.Context) (bool, error)

	// ScrollIntoView scrolls the element into the viewport.
	ScrollIntoView(ctx context.Context) error
}

// Finder probes for a single strategy with a bounded wait. A probe that
// finds nothing within the timeout returns an error; the resolver treats
// that as an ordinary miss, not a failure.
type Finder interface {
	Probe(ctx context.Context, strategy Strategy, timeout time.Duration) (Element, error)
}

// Result is the outcome of resolving a cascade. Absence is an ordinary
// branch: Found=false signals exhaustion of every candidate, which callers
// handle as a recoverable condition.
type Result struct {
	Found    bool
	Element  Element
	Strategy Strategy
	Attempts int
}

// Resolver tries candidate strategies strictly in listed order and
// returns the first match. It never ranks or aggregates matches across
// strategies, and a single candidate's failure is swallowed. Only total
// exhaustion surfaces, as a not-found result.
type Resolver struct {
	logger       *slog.Logger
	fallbackHook func()
}

// NewResolver creates a Resolver.
func NewResolver(logger *slog.Logger) *Resolver {
	return &Resolver{
		logger: logger.With("component", "locator_resolver"),
	}
}

// OnFallback registers a hook invoked whenever a non-primary candidate
// wins a resolution. Used for fallback-rate accounting.
func (r *Resolver) OnFallback(fn func()) {
	r.fallbackHook = fn
}

// Resolve walks the cascade in order, waiting up to perCandidate for each
// strategy before moving on.
func (r *Resolver) Resolve(ctx context.Context, finder Finder, candidates []Strategy, perCandidate time.Duration) Result {
	for i, strategy := range candidates {
		if ctx.Err() != nil {
			return Result{Attempts: i}
		}

		el, err := finder.Probe(ctx, strategy, perCandidate)
		if err != nil {
			r.logger.Debug("candidate miss", "strategy", strategy.String(), "position", i, "error", err)
			continue
		}

		if i > 0 {
			r.logger.Debug("fallback candidate matched", "strategy", strategy.String(), "position", i)
			if r.fallbackHook != nil {
				r.fallbackHook()
			}
		}
		return Result{Found: true, Element: el, Strategy: strategy, Attempts: i + 1}
	}

	r.logger.Debug("cascade exhausted", "candidates", len(candidates))
	return Result{Attempts: len(candidates)}
}

// Click runs the three-tier click cascade: direct input click, scripted
// click, then simulated pointer click. Each tier is attempted only if the
// previous one returned an error.
func (r *Resolver) Click(ctx context.Context, el Element) error {
	_ = el.ScrollIntoView(ctx)

	err := el.Click(ctx)
	if err == nil {
		return nil
	}
	r.logger.Debug("direct click failed, trying scripted click", "error", err)

	err = el.ScriptClick(ctx)
	if err == nil {
		return nil
	}
	r.logger.Debug("scripted click failed, trying pointer click", "error", err)

	return el.PointerClick(ctx)
}
