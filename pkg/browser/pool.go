// Package browser owns the process-wide Chromium engine and a registry of
// isolated browsing contexts, one per target-system identifier. Each context
// carries its own cookies and origin storage, persisted to disk so an
// authenticated session survives application restarts.
package browser

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/playwright-community/playwright-go"
)

// ErrNotStarted is returned when a context or page is requested before
// Start has launched the browser engine.
var ErrNotStarted = fmt.Errorf("browser pool not started")

// ContextPool manages one shared browser engine and one isolated browsing
// context per target-system identifier. The pool is the single source of
// truth for contexts: callers must never construct contexts directly.
type ContextPool struct {
	mu         sync.Mutex
	playwright *playwright.Playwright
	browser    playwright.Browser
	contexts   map[string]playwright.BrowserContext
	dataDir    string
	started    bool
}

// NewContextPool creates a pool that persists session state under dataDir.
func NewContextPool(dataDir string) *ContextPool {
	return &ContextPool{
		contexts: make(map[string]playwright.BrowserContext),
		dataDir:  dataDir,
	}
}

// Start launches the browser engine. It must be called exactly once before
// any context is requested; a launch failure is fatal to the whole pool and
// is not retried here.
func (p *ContextPool) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.started {
		return nil
	}

	if err := os.MkdirAll(p.sessionsDir(), 0750); err != nil {
		return fmt.Errorf("failed to create sessions directory: %w", err)
	}

	opts := &playwright.RunOptions{
		Verbose: false,
		Stdout:  io.Discard,
		Stderr:  io.Discard,
	}

	if err := playwright.Install(opts); err != nil {
		return fmt.Errorf("failed to install playwright: %w", err)
	}

	pw, err := playwright.Run(opts)
	if err != nil {
		return fmt.Errorf("failed to start playwright: %w", err)
	}

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
		Args:     launchArgs,
	})
	if err != nil {
		_ = pw.Stop()
		return fmt.Errorf("failed to launch browser: %w", err)
	}

	p.playwright = pw
	p.browser = browser
	p.started = true
	return nil
}

// GetContext returns the browsing context for systemID, creating it on first
// use. A new context restores the previously saved session state from disk
// when a state file exists; its presence does not guarantee the session is
// still valid server-side.
func (p *ContextPool) GetContext(systemID string) (playwright.BrowserContext, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.getContextLocked(systemID)
}

func (p *ContextPool) getContextLocked(systemID string) (playwright.BrowserContext, error) {
	if ctx, ok := p.contexts[systemID]; ok {
		return ctx, nil
	}

	if !p.started {
		return nil, ErrNotStarted
	}

	opts := playwright.BrowserNewContextOptions{
		Viewport: &playwright.Size{
			Width:  DefaultViewportWidth,
			Height: DefaultViewportHeight,
		},
		IgnoreHttpsErrors: playwright.Bool(true),
		UserAgent:         playwright.String(DefaultUserAgent),
		Locale:            playwright.String(DefaultLocale),
	}

	statePath := p.SessionPath(systemID)
	if _, err := os.Stat(statePath); err == nil {
		opts.StorageStatePath = playwright.String(statePath)
	}

	ctx, err := p.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to create context for %q: %w", systemID, err)
	}

	p.contexts[systemID] = ctx
	return ctx, nil
}

// NewPage opens a new page in the context for systemID with the pool's
// bounded default timeouts, so no single step can hang the pipeline.
func (p *ContextPool) NewPage(systemID string) (playwright.Page, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, err := p.getContextLocked(systemID)
	if err != nil {
		return nil, err
	}

	page, err := ctx.NewPage()
	if err != nil {
		return nil, fmt.Errorf("failed to open page for %q: %w", systemID, err)
	}

	page.SetDefaultTimeout(DefaultTimeout)
	page.SetDefaultNavigationTimeout(DefaultNavigationTimeout)
	return page, nil
}

// SaveSession flushes the context's current storage state to disk,
// overwriting any prior state file. No-op when no context exists yet.
func (p *ContextPool) SaveSession(systemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.saveSessionLocked(systemID)
}

func (p *ContextPool) saveSessionLocked(systemID string) error {
	ctx, ok := p.contexts[systemID]
	if !ok {
		return nil
	}

	if _, err := ctx.StorageState(p.SessionPath(systemID)); err != nil {
		return fmt.Errorf("failed to save session for %q: %w", systemID, err)
	}
	return nil
}

// ClearSession clears cookies and permission grants for the context and
// immediately persists, so a cleared session survives restart as logged out.
func (p *ContextPool) ClearSession(systemID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	ctx, ok := p.contexts[systemID]
	if !ok {
		return nil
	}

	if err := ctx.ClearCookies(); err != nil {
		return fmt.Errorf("failed to clear cookies for %q: %w", systemID, err)
	}
	if err := ctx.ClearPermissions(); err != nil {
		return fmt.Errorf("failed to clear permissions for %q: %w", systemID, err)
	}
	return p.saveSessionLocked(systemID)
}

// SessionPath returns the on-disk storage-state file for systemID. The file
// format is whatever playwright's storage-state export produces; the pool
// treats it as opaque and only reads or writes it wholesale.
func (p *ContextPool) SessionPath(systemID string) string {
	return filepath.Join(p.sessionsDir(), systemID+".json")
}

func (p *ContextPool) sessionsDir() string {
	return filepath.Join(p.dataDir, "sessions")
}

// Shutdown persists every live context's session, closes all contexts and
// the browser engine, and drops all in-memory state. Must run before process
// exit to keep session continuity for the next run.
func (p *ContextPool) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for id, ctx := range p.contexts {
		if err := p.saveSessionLocked(id); err != nil {
			errs = append(errs, err)
		}
		if err := ctx.Close(); err != nil {
			errs = append(errs, err)
		}
		delete(p.contexts, id)
	}

	if p.browser != nil {
		if err := p.browser.Close(); err != nil {
			errs = append(errs, err)
		}
		p.browser = nil
	}

	if p.playwright != nil {
		if err := p.playwright.Stop(); err != nil {
			errs = append(errs, err)
		}
		p.playwright = nil
	}

	p.started = false
	if len(errs) > 0 {
		return fmt.Errorf("errors during pool shutdown: %v", errs)
	}
	return nil
}
