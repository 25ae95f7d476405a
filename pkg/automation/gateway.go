package automation

import (
	"fmt"
	"sync"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/invoice"
	"github.com/entrhq/invoicefill/pkg/logging"
)

// Authenticator yields an authenticated page for a target system.
// Satisfied by LoginManager.
type Authenticator interface {
	Login(systemID string) (playwright.Page, error)
}

// Gateway is the single entry point for fill requests. It maps a
// target-system identifier to its workflow variant, serializes requests per
// identifier, and normalizes every lower-layer error into a failure
// FillResult. It is the only layer allowed to convert errors into data.
type Gateway struct {
	login     Authenticator
	workflows map[string]Workflow
	log       *logging.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewGateway builds a gateway over the login manager, registering the
// workflow variant matching each system's category. Systems with a category
// no variant serves are left unregistered and fail as unknown.
func NewGateway(login Authenticator, evidence *Evidence, systems []invoice.SystemConfig) *Gateway {
	workflows := make(map[string]Workflow, len(systems))
	for _, system := range systems {
		switch system.Category {
		case invoice.CategoryERP:
			workflows[system.ID] = NewERPWorkflow(evidence)
		case invoice.CategoryReimburse:
			workflows[system.ID] = NewReimburseWorkflow(evidence)
		case invoice.CategoryTax:
			workflows[system.ID] = NewTaxWorkflow(evidence)
		}
	}

	log, _ := logging.NewLogger("gateway")
	return &Gateway{
		login:     login,
		workflows: workflows,
		log:       log,
		locks:     make(map[string]*sync.Mutex),
	}
}

// RegisterWorkflow installs or replaces the workflow for a system
// identifier. Used for custom systems and by tests.
func (g *Gateway) RegisterWorkflow(systemID string, wf Workflow) {
	g.workflows[systemID] = wf
}

// FillInvoice dispatches the invoice to the workflow for systemID and
// returns its structured outcome. A single shared browsing context backs
// each identifier, so requests for the same identifier queue behind each
// other; requests for different identifiers run concurrently.
func (g *Gateway) FillInvoice(systemID string, inv *invoice.Field) *invoice.FillResult {
	lock := g.systemLock(systemID)
	lock.Lock()
	defer lock.Unlock()

	workflow, ok := g.workflows[systemID]
	if !ok {
		return g.failure(systemID, fmt.Errorf("%w: %s", ErrUnknownSystem, systemID))
	}

	if err := inv.Validate(); err != nil {
		return g.failure(systemID, err)
	}

	page, err := g.login.Login(systemID)
	if err != nil {
		return g.failure(systemID, err)
	}
	defer page.Close()

	result := workflow.Fill(page, inv)
	g.log.Infof("fill %s invoice=%s/%s success=%t draft=%q",
		systemID, inv.InvoiceCode, inv.InvoiceNumber, result.Success, result.DraftID)
	return result
}

// failure normalizes an error into the boundary result shape.
func (g *Gateway) failure(systemID string, err error) *invoice.FillResult {
	g.log.Errorf("fill %s failed: %v", systemID, err)
	return &invoice.FillResult{
		Success: false,
		Message: err.Error(),
		Detail:  fmt.Sprintf("%+v", err),
	}
}

// systemLock returns the mutual-exclusion gate for one identifier, so at
// most one login-or-fill sequence is in flight per target system.
func (g *Gateway) systemLock(systemID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()

	lock, ok := g.locks[systemID]
	if !ok {
		lock = &sync.Mutex{}
		g.locks[systemID] = lock
	}
	return lock
}
