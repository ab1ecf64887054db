package browser

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/types"
)

// LocalProvider launches a headless Chromium instance and leases pages
// from it. One page per session; workers never share a page.
type LocalProvider struct {
	browser *rod.Browser
	cfg     *config.BrowserConfig
	logger  *slog.Logger
	mu      sync.Mutex
	leased  int
}

// NewLocalProvider launches the browser and connects to it.
func NewLocalProvider(cfg *config.BrowserConfig, logger *slog.Logger) (*LocalProvider, error) {
	p := &LocalProvider{
		cfg:    cfg,
		logger: logger.With("component", "local_provider"),
	}

	launchURL, err := p.launchBrowser()
	if err != nil {
		return nil, &types.SessionError{Backend: "local", Err: fmt.Errorf("launch browser: %w", err)}
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, &types.SessionError{Backend: "local", Err: fmt.Errorf("connect browser: %w", err)}
	}
	p.browser = browser

	p.logger.Info("local browser ready", "headless", cfg.Headless, "stealth", cfg.Stealth)
	return p, nil
}

// launchBrowser starts Chromium with the flags the target site tolerates.
func (p *LocalProvider) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(p.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("disable-blink-features", "AutomationControlled")

	if p.cfg.WindowSize != "" {
		l = l.Set("window-size", p.cfg.WindowSize)
	}
	if p.cfg.UserDataDir != "" {
		l = l.UserDataDir(p.cfg.UserDataDir)
	}
	if p.cfg.ProxyURL != "" {
		l = l.Proxy(p.cfg.ProxyURL)
	}

	return l.Launch()
}

// Session leases a fresh page. With stealth enabled the page carries the
// anti-automation patches before any navigation happens.
func (p *LocalProvider) Session(ctx context.Context) (Session, error) {
	var page *rod.Page
	var err error

	if p.cfg.Stealth {
		page, err = stealth.Page(p.browser)
	} else {
		page, err = p.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	}
	if err != nil {
		return nil, &types.SessionError{Backend: "local", Err: fmt.Errorf("open page: %w", err), Retryable: true}
	}

	p.mu.Lock()
	p.leased++
	count := p.leased
	p.mu.Unlock()
	p.logger.Debug("session leased", "open_sessions", count)

	release := func() {
		p.mu.Lock()
		p.leased--
		p.mu.Unlock()
	}
	return newPageSession(page, "local", p.cfg.NavigateTimeout, p.logger, release), nil
}

// Close shuts the browser down, revoking every open page.
func (p *LocalProvider) Close() error {
	if p.browser == nil {
		return nil
	}
	p.logger.Info("closing local browser")
	return p.browser.Close()
}
