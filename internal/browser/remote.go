package browser

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/staywatch/staywatch/internal/config"
	"github.com/staywatch/staywatch/internal/types"
)

// RemoteProvider leases sessions from a pooled-browser backend exposing a
// small HTTP control API: list active instances, open/attach by id, close
// by id. Each instance is leased to at most one worker at a time; a
// session is a transient tab on the leased instance, revoked on close.
type RemoteProvider struct {
	controlURL string
	client     *http.Client
	cfg        *config.BrowserConfig
	logger     *slog.Logger

	mu       sync.Mutex
	attached map[string]*rod.Browser // instance id -> connected browser
	leased   map[string]bool
}

// NewRemoteProvider creates a provider for the pool at cfg.ControlURL.
func NewRemoteProvider(cfg *config.BrowserConfig, logger *slog.Logger) *RemoteProvider {
	return &RemoteProvider{
		controlURL: cfg.ControlURL,
		client:     &http.Client{Timeout: 15 * time.Second},
		cfg:        cfg,
		logger:     logger.With("component", "remote_provider"),
		attached:   make(map[string]*rod.Browser),
		leased:     make(map[string]bool),
	}
}

// controlResponse is the envelope every control endpoint answers with.
type controlResponse struct {
	Success bool            `json:"success"`
	Msg     string          `json:"msg"`
	Data    json.RawMessage `json:"data"`
}

// post sends a JSON body to a control endpoint and decodes the envelope.
func (p *RemoteProvider) post(ctx context.Context, path string, body any) (json.RawMessage, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.controlURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("control api %s: %w", path, err)
	}
	defer resp.Body.Close()

	var envelope controlResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("control api %s: decode: %w", path, err)
	}
	if !envelope.Success {
		return nil, fmt.Errorf("control api %s: %s", path, envelope.Msg)
	}
	return envelope.Data, nil
}

// listInstances returns the ids of the pool's live browser instances.
func (p *RemoteProvider) listInstances(ctx context.Context) ([]string, error) {
	data, err := p.post(ctx, "/browser/list", map[string]any{})
	if err != nil {
		return nil, err
	}

	// The pool answers with a map of instance id -> process id.
	var byID map[string]int
	if err := json.Unmarshal(data, &byID); err != nil {
		return nil, fmt.Errorf("control api instance list: %w", err)
	}

	ids := make([]string, 0, len(byID))
	for id := range byID {
		ids = append(ids, id)
	}
	return ids, nil
}

// openInstance asks the pool to open the instance and returns its
// DevTools address.
func (p *RemoteProvider) openInstance(ctx context.Context, id string) (string, error) {
	data, err := p.post(ctx, "/browser/open", map[string]any{"id": id, "queue": true})
	if err != nil {
		return "", err
	}

	var opened struct {
		HTTP string `json:"http"`
		WS   string `json:"ws"`
	}
	if err := json.Unmarshal(data, &opened); err != nil {
		return "", fmt.Errorf("control api open: %w", err)
	}
	if opened.WS != "" {
		return opened.WS, nil
	}
	return opened.HTTP, nil
}

// closeInstance asks the pool to shut the instance down.
func (p *RemoteProvider) closeInstance(ctx context.Context, id string) error {
	_, err := p.post(ctx, "/browser/close", map[string]any{"id": id})
	return err
}

// Session leases an unleased pool instance, attaches to it and opens a
// fresh tab. Exhaustion of the pool is a batch-fatal condition.
func (p *RemoteProvider) Session(ctx context.Context) (Session, error) {
	ids, err := p.listInstances(ctx)
	if err != nil {
		return nil, &types.SessionError{Backend: "remote", Err: err, Retryable: true}
	}

	p.mu.Lock()
	var id string
	for _, candidate := range ids {
		if !p.leased[candidate] {
			id = candidate
			p.leased[candidate] = true
			break
		}
	}
	p.mu.Unlock()

	if id == "" {
		return nil, &types.SessionError{Backend: "remote", Err: types.ErrPoolExhausted}
	}

	browser, err := p.attach(ctx, id)
	if err != nil {
		p.unlease(id)
		return nil, &types.SessionError{Backend: "remote", SessionID: id, Err: err, Retryable: true}
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		p.unlease(id)
		return nil, &types.SessionError{Backend: "remote", SessionID: id, Err: fmt.Errorf("open tab: %w", err), Retryable: true}
	}

	p.logger.Debug("session leased", "instance", id)
	release := func() { p.unlease(id) }
	return newPageSession(page, "remote", p.cfg.NavigateTimeout, p.logger, release), nil
}

// attach connects to the instance's DevTools endpoint, reusing an
// existing connection when the instance was attached before.
func (p *RemoteProvider) attach(ctx context.Context, id string) (*rod.Browser, error) {
	p.mu.Lock()
	if browser, ok := p.attached[id]; ok {
		p.mu.Unlock()
		return browser, nil
	}
	p.mu.Unlock()

	addr, err := p.openInstance(ctx, id)
	if err != nil {
		return nil, err
	}

	wsURL, err := launcher.ResolveURL(addr)
	if err != nil {
		return nil, fmt.Errorf("resolve devtools url %q: %w", addr, err)
	}

	browser := rod.New().ControlURL(wsURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect instance %s: %w", id, err)
	}

	p.mu.Lock()
	p.attached[id] = browser
	p.mu.Unlock()
	return browser, nil
}

func (p *RemoteProvider) unlease(id string) {
	p.mu.Lock()
	delete(p.leased, id)
	p.mu.Unlock()
}

// Close detaches from every instance and asks the pool to close them.
func (p *RemoteProvider) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	p.mu.Lock()
	attached := make(map[string]*rod.Browser, len(p.attached))
	for id, browser := range p.attached {
		attached[id] = browser
	}
	p.attached = make(map[string]*rod.Browser)
	p.leased = make(map[string]bool)
	p.mu.Unlock()

	var firstErr error
	for id, browser := range attached {
		if err := browser.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		if err := p.closeInstance(ctx, id); err != nil {
			p.logger.Warn("close instance failed", "instance", id, "error", err)
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	p.logger.Info("remote provider closed", "instances", len(attached))
	return firstErr
}

// NewProvider builds the provider selected by the configuration.
func NewProvider(cfg *config.BrowserConfig, logger *slog.Logger) (Provider, error) {
	switch cfg.Backend {
	case "remote":
		return NewRemoteProvider(cfg, logger), nil
	default:
		return NewLocalProvider(cfg, logger)
	}
}
