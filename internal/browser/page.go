package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/staywatch/staywatch/internal/locator"
	"github.com/staywatch/staywatch/internal/types"
)

// pageSession wraps one Rod page as a Session. The release hook returns
// the underlying lease to the owning provider.
type pageSession struct {
	page       *rod.Page
	backend    string
	navTimeout time.Duration
	logger     *slog.Logger
	release    func()
	closeOnce  sync.Once
	closed     bool
	mu         sync.Mutex
}

func newPageSession(page *rod.Page, backend string, navTimeout time.Duration, logger *slog.Logger, release func()) *pageSession {
	return &pageSession{
		page:       page,
		backend:    backend,
		navTimeout: navTimeout,
		logger:     logger.With("component", "session", "backend", backend),
		release:    release,
	}
}

func (s *pageSession) Navigate(ctx context.Context, url string) error {
	if s.isClosed() {
		return &types.SessionError{Backend: s.backend, Err: types.ErrSessionClosed}
	}
	err := s.page.Context(ctx).Timeout(s.navTimeout).Navigate(url)
	if err != nil {
		return &types.SessionError{Backend: s.backend, Err: fmt.Errorf("navigate %s: %w", url, err), Retryable: true}
	}
	s.logger.Debug("navigated", "url", url)
	return nil
}

func (s *pageSession) WaitReady(ctx context.Context, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		result, err := s.page.Context(ctx).Eval(`() => document.readyState`)
		if err == nil && result.Value.Str() == "complete" {
			return nil
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("document not ready after %s", timeout)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
}

func (s *pageSession) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", &types.SessionError{Backend: s.backend, Err: fmt.Errorf("page html: %w", err), Retryable: true}
	}
	return html, nil
}

func (s *pageSession) Eval(ctx context.Context, js string) error {
	_, err := s.page.Context(ctx).Eval(js)
	return err
}

// Probe waits up to timeout for a single locator strategy to be present.
// Not finding the element within the timeout is reported as an error and
// interpreted by the resolver as an ordinary miss.
func (s *pageSession) Probe(ctx context.Context, strategy locator.Strategy, timeout time.Duration) (locator.Element, error) {
	page := s.page.Context(ctx).Timeout(timeout)

	var el *rod.Element
	var err error
	switch strategy.Kind {
	case locator.KindXPath:
		el, err = page.ElementX(strategy.Value)
	default:
		el, err = page.Element(strategy.Value)
	}
	if err != nil {
		return nil, err
	}
	return &rodElement{el: el, page: s.page}, nil
}

func (s *pageSession) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		err = s.page.Close()
		if s.release != nil {
			s.release()
		}
	})
	return err
}

func (s *pageSession) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// rodElement adapts a Rod element to the locator.Element contract.
type rodElement struct {
	el   *rod.Element
	page *rod.Page
}

func (e *rodElement) Click(ctx context.Context) error {
	return e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) ScriptClick(ctx context.Context) error {
	_, err := e.el.Context(ctx).Eval(`() => this.click()`)
	return err
}

func (e *rodElement) PointerClick(ctx context.Context) error {
	if err := e.el.Context(ctx).Hover(); err != nil {
		return err
	}
	return e.page.Context(ctx).Mouse.Click(proto.InputMouseButtonLeft, 1)
}

func (e *rodElement) Text(ctx context.Context) (string, error) {
	return e.el.Context(ctx).Text()
}

// Enabled checks both the disabled property and the aria-disabled
// attribute, since booking controls flag unavailability either way.
func (e *rodElement) Enabled(ctx context.Context) (bool, error) {
	el := e.el.Context(ctx)
	if disabled, err := el.Attribute("disabled"); err == nil && disabled != nil {
		return false, nil
	}
	aria, err := el.Attribute("aria-disabled")
	if err != nil {
		return false, err
	}
	if aria != nil && *aria == "true" {
		return false, nil
	}
	return true, nil
}

func (e *rodElement) ScrollIntoView(ctx context.Context) error {
	return e.el.Context(ctx).ScrollIntoView()
}
