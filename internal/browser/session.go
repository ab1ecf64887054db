package browser

import (
	"context"
	"time"

	"github.com/staywatch/staywatch/internal/locator"
)

// Provider supplies controllable browser sessions. It abstracts over a
// locally launched browser and a remote pooled-browser backend; the
// provider alone owns session lifecycle (open, lease, release, close).
type Provider interface {
	// Session leases a fresh session. Sessions are never shared between
	// workers; each lease belongs to exactly one caller until Close.
	Session(ctx context.Context) (Session, error)

	// Close releases every leased session and shuts the backend down.
	Close() error
}

// Session is one controllable page. All extraction components borrow a
// session; they never own it beyond their call scope.
type Session interface {
	locator.Finder

	// Navigate loads the URL and waits for the navigation to commit.
	Navigate(ctx context.Context, url string) error

	// WaitReady polls document readiness up to timeout. A timeout error
	// is a soft failure: some widgets render progressively, so callers
	// log it and proceed.
	WaitReady(ctx context.Context, timeout time.Duration) error

	// HTML returns a snapshot of the rendered page markup.
	HTML(ctx context.Context) (string, error)

	// Eval executes JavaScript in the page, discarding the result.
	Eval(ctx context.Context, js string) error

	// Close returns the session to its provider.
	Close() error
}
