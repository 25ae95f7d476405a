package automation

import (
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// DefaultERPFormURL is the invoice entry form of the ERP system.
const DefaultERPFormURL = "https://erp.internal.sgcc.com.cn/invoice/create"

// ERPWorkflow enters an invoice into the ERP system as a draft: header
// fields by known selector, line items into a dynamically growing table,
// then a draft save with the issued draft number extracted from the
// success message.
type ERPWorkflow struct {
	FormURL  string
	evidence *Evidence
}

// NewERPWorkflow creates the ERP workflow writing evidence through e.
func NewERPWorkflow(e *Evidence) *ERPWorkflow {
	return &ERPWorkflow{FormURL: DefaultERPFormURL, evidence: e}
}

// Fill runs the ERP entry sequence. Any error after the page is open yields
// a failure result carrying a best-effort failure screenshot.
func (w *ERPWorkflow) Fill(page playwright.Page, inv *invoice.Field) *invoice.FillResult {
	result, err := w.fill(page, inv)
	if err != nil {
		return &invoice.FillResult{
			Success:    false,
			Message:    fmt.Sprintf("ERP填写失败: %v", err),
			Screenshot: w.evidence.CaptureQuiet(page, "erp_error"),
			Detail:     err.Error(),
		}
	}
	return result
}

func (w *ERPWorkflow) fill(page playwright.Page, inv *invoice.Field) (*invoice.FillResult, error) {
	if err := gotoNetworkIdle(page, w.FormURL); err != nil {
		return nil, err
	}

	if _, err := page.WaitForSelector("#invoiceForm", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("invoice form did not appear: %w", err)
	}

	if err := selectOne(page, "#invoiceType", invoiceTypeOption(inv.InvoiceType)); err != nil {
		return nil, err
	}

	header := []struct {
		selector string
		value    string
	}{
		{"#invoiceCode", inv.InvoiceCode},
		{"#invoiceNumber", inv.InvoiceNumber},
		{"#invoiceDate", inv.InvoiceDate},
		{"#buyerName", inv.BuyerName},
		{"#buyerTaxId", inv.BuyerTaxID},
		{"#sellerName", inv.SellerName},
		{"#sellerTaxId", inv.SellerTaxID},
		{"#totalAmount", formatNumber(inv.TotalAmount)},
		{"#taxAmount", formatNumber(inv.TaxAmount)},
		{"#totalWithTax", formatNumber(inv.TotalWithTax)},
	}
	for _, field := range header {
		if err := page.Fill(field.selector, field.value); err != nil {
			return nil, fmt.Errorf("failed to fill %s: %w", field.selector, err)
		}
	}
	if inv.CheckCode != "" {
		if err := page.Fill("#checkCode", inv.CheckCode); err != nil {
			return nil, fmt.Errorf("failed to fill #checkCode: %w", err)
		}
	}

	for i, item := range inv.Items {
		if i > 0 {
			if err := page.Click("#addItemRow"); err != nil {
				return nil, fmt.Errorf("failed to add item row %d: %w", i+1, err)
			}
			page.WaitForTimeout(rowRenderDelay)
		}
		if err := fillItemRow(page, i, item); err != nil {
			return nil, err
		}
	}

	screenshot, err := w.evidence.Capture(page, "erp")
	if err != nil {
		return nil, err
	}

	// Draft only, never final submission.
	if err := page.Click("#saveDraft"); err != nil {
		return nil, fmt.Errorf("failed to trigger draft save: %w", err)
	}
	if _, err := page.WaitForSelector(".success-message", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("draft save did not confirm: %w", err)
	}

	message, err := elementText(page, ".success-message")
	if err != nil {
		return nil, err
	}

	return &invoice.FillResult{
		Success:    true,
		Message:    "ERP发票录入成功（草稿）",
		Screenshot: screenshot,
		DraftID:    extractToken(draftIDPattern, message),
	}, nil
}
