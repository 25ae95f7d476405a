package automation

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// DefaultTaxFormURL is the input-invoice certification page of the tax
// platform.
const DefaultTaxFormURL = "https://tax.internal.sgcc.com.cn/certify"

// certifyResultTimeout bounds the wait for the certification result panel.
// Certification round-trips to the upstream tax authority and takes longer
// than a plain form save.
const certifyResultTimeout = 30000.0

// TaxWorkflow certifies an input invoice on the tax platform. Unlike the
// draft-save workflows, the platform reports its verdict in a result panel:
// "the call completed" and "the platform accepted the data" are distinct,
// so a negative panel text is a failure even without any local error.
type TaxWorkflow struct {
	FormURL  string
	evidence *Evidence
}

// NewTaxWorkflow creates the tax workflow writing evidence through e.
func NewTaxWorkflow(e *Evidence) *TaxWorkflow {
	return &TaxWorkflow{FormURL: DefaultTaxFormURL, evidence: e}
}

// Fill runs the certification sequence.
func (w *TaxWorkflow) Fill(page playwright.Page, inv *invoice.Field) *invoice.FillResult {
	result, err := w.fill(page, inv)
	if err != nil {
		return &invoice.FillResult{
			Success:    false,
			Message:    fmt.Sprintf("税务系统操作失败: %v", err),
			Screenshot: w.evidence.CaptureQuiet(page, "tax_error"),
			Detail:     err.Error(),
		}
	}
	return result
}

func (w *TaxWorkflow) fill(page playwright.Page, inv *invoice.Field) (*invoice.FillResult, error) {
	if err := gotoNetworkIdle(page, w.FormURL); err != nil {
		return nil, err
	}

	if _, err := page.WaitForSelector("#inputCertify", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("certification page did not appear: %w", err)
	}

	if err := page.Click("#inputCertify"); err != nil {
		return nil, fmt.Errorf("failed to choose input certification: %w", err)
	}

	header := []struct {
		selector string
		value    string
	}{
		{"#invoiceCode", inv.InvoiceCode},
		{"#invoiceNumber", inv.InvoiceNumber},
		{"#invoiceDate", inv.InvoiceDate},
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
	if err := selectOne(page, "#invoiceType", invoiceTypeOption(inv.InvoiceType)); err != nil {
		return nil, err
	}
	if inv.CheckCode != "" {
		if err := page.Fill("#checkCode", inv.CheckCode); err != nil {
			return nil, fmt.Errorf("failed to fill #checkCode: %w", err)
		}
	}

	if err := page.Click("#certifyBtn"); err != nil {
		return nil, fmt.Errorf("failed to trigger certification: %w", err)
	}
	if _, err := page.WaitForSelector(".certify-result", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(certifyResultTimeout),
	}); err != nil {
		return nil, fmt.Errorf("certification result did not appear: %w", err)
	}

	resultText, err := elementText(page, ".certify-result")
	if err != nil {
		return nil, err
	}

	screenshot, err := w.evidence.Capture(page, "tax")
	if err != nil {
		return nil, err
	}

	if !certificationAccepted(resultText) {
		return &invoice.FillResult{
			Success:    false,
			Message:    fmt.Sprintf("税务认证失败: %s", resultText),
			Screenshot: screenshot,
		}, nil
	}

	if err := page.Click("#saveRecord"); err != nil {
		return nil, fmt.Errorf("failed to save certification record: %w", err)
	}
	if _, err := page.WaitForSelector(".save-success", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("certification record save did not confirm: %w", err)
	}

	return &invoice.FillResult{
		Success:    true,
		Message:    "税务系统认证成功",
		Screenshot: screenshot,
	}, nil
}

// certificationAccepted reports whether the result-panel text states a
// successful certification.
func certificationAccepted(text string) bool {
	return strings.Contains(text, "认证成功") || strings.Contains(text, "一致")
}
