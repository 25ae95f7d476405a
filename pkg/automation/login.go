// Package automation implements the login orchestration, the per-system
// form-filling workflows, and the gateway that exposes them as a single
// boundary operation. Workflows receive an authenticated page from the
// login manager and a normalized invoice, and return a structured result
// with evidence attached.
package automation

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/browser"
	"github.com/entrhq/invoicefill/pkg/invoice"
	"github.com/entrhq/invoicefill/pkg/logging"
)

const (
	// probeTimeout bounds the initial navigation to the login URL.
	probeTimeout = 15000.0

	// submitTimeout bounds the post-submit networkidle wait.
	submitTimeout = 20000.0
)

// loginURLTokens mark a URL as belonging to a login flow. Matched
// case-insensitively against the current page URL.
var loginURLTokens = []string{"login", "cas", "sso", "auth", "signin"}

// loginMarkerSelector matches DOM controls that only appear on login pages.
const loginMarkerSelector = `input[type="password"], #username, #password, .login-btn`

// CredentialSource supplies decrypted credentials for a target system.
// Credentials are held in memory only for the duration of a login attempt
// and are never persisted by this package.
type CredentialSource interface {
	Credential(systemID string) (username, password string, ok bool)
}

// LoginManager ensures an authenticated page exists for a target system:
// it reuses a live session when the login URL no longer classifies as a
// login page, and otherwise executes the system's login strategy.
type LoginManager struct {
	pool    *browser.ContextPool
	creds   CredentialSource
	systems map[string]invoice.SystemConfig
	log     *logging.Logger
}

// NewLoginManager creates a login manager over the given pool, credential
// source, and target-system registry.
func NewLoginManager(pool *browser.ContextPool, creds CredentialSource, systems []invoice.SystemConfig) *LoginManager {
	byID := make(map[string]invoice.SystemConfig, len(systems))
	for _, s := range systems {
		byID[s.ID] = s
	}
	log, _ := logging.NewLogger("login")
	return &LoginManager{
		pool:    pool,
		creds:   creds,
		systems: byID,
		log:     log,
	}
}

// System returns the descriptor for systemID.
func (m *LoginManager) System(systemID string) (invoice.SystemConfig, bool) {
	s, ok := m.systems[systemID]
	return s, ok
}

// Login opens a page for systemID and guarantees it is authenticated,
// logging in first when the stored session is no longer valid. On any
// failure the page is closed and the error propagates; retries are the
// caller's policy, not this layer's.
func (m *LoginManager) Login(systemID string) (playwright.Page, error) {
	system, ok := m.systems[systemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, systemID)
	}

	page, err := m.pool.NewPage(systemID)
	if err != nil {
		return nil, err
	}

	if err := m.ensureAuthenticated(page, system); err != nil {
		_ = page.Close()
		return nil, err
	}
	return page, nil
}

// ensureAuthenticated probes the system's login URL and performs the login
// strategy when the page classifies as a login page. A still-valid session
// passes straight through with the page unchanged.
func (m *LoginManager) ensureAuthenticated(page playwright.Page, system invoice.SystemConfig) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	if _, err := page.Goto(system.LoginURL, playwright.PageGotoOptions{
		WaitUntil: &waitUntil,
		Timeout:   playwright.Float(probeTimeout),
	}); err != nil {
		return fmt.Errorf("failed to reach %s: %w", system.Name, err)
	}

	if !isLoginPage(page) {
		return nil
	}

	username, password, ok := m.creds.Credential(system.ID)
	if !ok {
		return fmt.Errorf("%w for %s", ErrNoCredential, system.Name)
	}

	m.log.Infof("logging into %s (%s)", system.Name, system.LoginProtocol)
	if err := performLogin(page, system, username, password); err != nil {
		return err
	}

	// Re-run the classifier after the post-submit navigation: a rejected
	// login lands back on the login page and must not be treated as success.
	if isLoginPage(page) {
		return fmt.Errorf("%w by %s", ErrLoginRejected, system.Name)
	}

	if err := m.pool.SaveSession(system.ID); err != nil {
		m.log.Warnf("failed to persist session for %s: %v", system.ID, err)
	}
	return nil
}

// isLoginPage reports whether the current page is a login page. Two
// independent signals, OR-combined: login-related tokens in the URL, or
// login-control markers in the DOM. A classifier error counts as "not a
// login page" so a half-loaded target page falls through to session reuse
// rather than hard-failing the attempt.
func isLoginPage(page playwright.Page) bool {
	url := strings.ToLower(page.URL())
	for _, token := range loginURLTokens {
		if strings.Contains(url, token) {
			return true
		}
	}

	element, err := page.QuerySelector(loginMarkerSelector)
	if err != nil {
		return false
	}
	return element != nil
}

// performLogin fills and submits the login form using the strategy for the
// system's protocol, then waits for the post-submit navigation to settle.
func performLogin(page playwright.Page, system invoice.SystemConfig, username, password string) error {
	strategy, ok := loginStrategies[system.LoginProtocol]
	if !ok {
		return fmt.Errorf("unsupported login protocol %q for %s", system.LoginProtocol, system.ID)
	}

	usernameSelector, err := strategy.resolve(page, strategy.usernameSelectors)
	if err != nil {
		return err
	}
	if err := page.Fill(usernameSelector, username); err != nil {
		return fmt.Errorf("failed to fill username: %w", err)
	}

	passwordSelector, err := strategy.resolve(page, strategy.passwordSelectors)
	if err != nil {
		return err
	}
	if err := page.Fill(passwordSelector, password); err != nil {
		return fmt.Errorf("failed to fill password: %w", err)
	}

	submitSelector, err := strategy.resolve(page, strategy.submitSelectors)
	if err != nil {
		return err
	}
	if err := page.Click(submitSelector); err != nil {
		return fmt.Errorf("failed to submit login form: %w", err)
	}

	state := playwright.LoadState("networkidle")
	if err := page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   &state,
		Timeout: playwright.Float(submitTimeout),
	}); err != nil {
		return fmt.Errorf("login navigation did not settle: %w", err)
	}
	return nil
}
