package automation

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// fakeAuth hands out pre-built pages without touching a browser.
type fakeAuth struct {
	pages map[string]*fakePage
}

func (a *fakeAuth) Login(systemID string) (playwright.Page, error) {
	page, ok := a.pages[systemID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownSystem, systemID)
	}
	return page, nil
}

// stubWorkflow records invocations and returns a canned result.
type stubWorkflow struct {
	inFlight atomic.Int32
	maxSeen  atomic.Int32
	calls    atomic.Int32
	delay    time.Duration
	result   *invoice.FillResult
}

func (w *stubWorkflow) Fill(page playwright.Page, inv *invoice.Field) *invoice.FillResult {
	n := w.inFlight.Add(1)
	if seen := w.maxSeen.Load(); n > seen {
		w.maxSeen.Store(n)
	}
	if w.delay > 0 {
		time.Sleep(w.delay)
	}
	w.inFlight.Add(-1)
	w.calls.Add(1)
	return w.result
}

func newTestGateway(t *testing.T, auth Authenticator) *Gateway {
	t.Helper()
	return NewGateway(auth, NewEvidence(t.TempDir()), testSystems())
}

func TestGateway_UnknownSystem(t *testing.T) {
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{}})

	result := gw.FillInvoice("mystery_system", testInvoice())

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown target system")
	assert.Contains(t, result.Message, "mystery_system")
	assert.Empty(t, result.Screenshot)
}

func TestGateway_InvalidInvoice(t *testing.T) {
	page := newFakePage()
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{"erp_sap": page}})

	inv := testInvoice()
	inv.Items = nil

	result := gw.FillInvoice("erp_sap", inv)

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "invalid invoice")
	assert.Empty(t, page.clicks, "validation failures must not reach the page")
}

func TestGateway_NormalizesLoginError(t *testing.T) {
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{}})

	result := gw.FillInvoice("erp_sap", testInvoice())

	require.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown target system")
	assert.NotEmpty(t, result.Detail)
}

func TestGateway_DispatchAndPageClose(t *testing.T) {
	page := erpReadyPage("草稿编号：D77")
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{"erp_sap": page}})

	result := gw.FillInvoice("erp_sap", testInvoice())

	require.True(t, result.Success, result.Message)
	assert.Equal(t, "D77", result.DraftID)
	assert.True(t, page.closed, "the page must be closed after the fill")
}

func TestGateway_RegisterWorkflowOverride(t *testing.T) {
	page := newFakePage()
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{"erp_sap": page}})

	stub := &stubWorkflow{result: &invoice.FillResult{Success: true, Message: "ok"}}
	gw.RegisterWorkflow("erp_sap", stub)

	result := gw.FillInvoice("erp_sap", testInvoice())
	require.True(t, result.Success)
	assert.Equal(t, int32(1), stub.calls.Load())
}

func TestGateway_SerializesPerSystem(t *testing.T) {
	page := newFakePage()
	gw := newTestGateway(t, &fakeAuth{pages: map[string]*fakePage{"erp_sap": page}})

	stub := &stubWorkflow{
		delay:  5 * time.Millisecond,
		result: &invoice.FillResult{Success: true, Message: "ok"},
	}
	gw.RegisterWorkflow("erp_sap", stub)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			gw.FillInvoice("erp_sap", testInvoice())
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(8), stub.calls.Load())
	assert.Equal(t, int32(1), stub.maxSeen.Load(),
		"at most one in-flight sequence per target system")
}
