package automation

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// DefaultReimburseFormURL is the new-application form of the expense
// reimbursement portal.
const DefaultReimburseFormURL = "https://expense.internal.sgcc.com.cn/apply/new"

// ReimburseWorkflow files an invoice-backed reimbursement application as a
// draft. The expense category is a best-effort heuristic over the first
// line item's name, not a safety-critical classification.
type ReimburseWorkflow struct {
	FormURL  string
	evidence *Evidence
}

// NewReimburseWorkflow creates the reimbursement workflow writing evidence
// through e.
func NewReimburseWorkflow(e *Evidence) *ReimburseWorkflow {
	return &ReimburseWorkflow{FormURL: DefaultReimburseFormURL, evidence: e}
}

// Fill runs the reimbursement entry sequence.
func (w *ReimburseWorkflow) Fill(page playwright.Page, inv *invoice.Field) *invoice.FillResult {
	result, err := w.fill(page, inv)
	if err != nil {
		return &invoice.FillResult{
			Success:    false,
			Message:    fmt.Sprintf("报销系统录入失败: %v", err),
			Screenshot: w.evidence.CaptureQuiet(page, "reimburse_error"),
			Detail:     err.Error(),
		}
	}
	return result
}

func (w *ReimburseWorkflow) fill(page playwright.Page, inv *invoice.Field) (*invoice.FillResult, error) {
	if err := gotoNetworkIdle(page, w.FormURL); err != nil {
		return nil, err
	}

	if _, err := page.WaitForSelector("#expenseType", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("application form did not appear: %w", err)
	}

	if err := selectOne(page, "#expenseType", "invoice"); err != nil {
		return nil, err
	}

	header := []struct {
		selector string
		value    string
	}{
		{"#invoiceCode", inv.InvoiceCode},
		{"#invoiceNumber", inv.InvoiceNumber},
		{"#invoiceDate", inv.InvoiceDate},
		{"#vendorName", inv.SellerName},
		{"#vendorTaxId", inv.SellerTaxID},
		{"#totalAmount", formatNumber(inv.TotalWithTax)},
	}
	for _, field := range header {
		if err := page.Fill(field.selector, field.value); err != nil {
			return nil, fmt.Errorf("failed to fill %s: %w", field.selector, err)
		}
	}

	if err := selectOne(page, "#expenseCategory", classifyExpense(inv.Items)); err != nil {
		return nil, err
	}

	if err := page.Fill("#description", describeExpense(inv)); err != nil {
		return nil, fmt.Errorf("failed to fill #description: %w", err)
	}

	screenshot, err := w.evidence.Capture(page, "reimburse")
	if err != nil {
		return nil, err
	}

	if err := page.Click("#saveDraft"); err != nil {
		return nil, fmt.Errorf("failed to trigger draft save: %w", err)
	}
	if _, err := page.WaitForSelector(".toast-success", playwright.PageWaitForSelectorOptions{
		Timeout: playwright.Float(formReadyTimeout),
	}); err != nil {
		return nil, fmt.Errorf("draft save did not confirm: %w", err)
	}

	message, err := elementText(page, ".toast-success")
	if err != nil {
		return nil, err
	}

	return &invoice.FillResult{
		Success:    true,
		Message:    "报销系统录入成功（草稿）",
		Screenshot: screenshot,
		DraftID:    extractToken(receiptNoPattern, message),
	}, nil
}

// classifyExpense picks the expense category from the first line item's
// name. Unrecognized names fall back to the generic category.
func classifyExpense(items []invoice.Item) string {
	if len(items) == 0 {
		return "other"
	}
	name := strings.ToLower(items[0].Name)
	switch {
	case strings.Contains(name, "电费") || strings.Contains(name, "电力"):
		return "electricity"
	case strings.Contains(name, "设备") || strings.Contains(name, "器材"):
		return "equipment"
	case strings.Contains(name, "服务") || strings.Contains(name, "维修"):
		return "service"
	default:
		return "other"
	}
}

// describeExpense synthesizes the application description from the invoice
// type and the line-item names.
func describeExpense(inv *invoice.Field) string {
	names := make([]string, len(inv.Items))
	for i, item := range inv.Items {
		names[i] = item.Name
	}
	return fmt.Sprintf("%s - %s", inv.InvoiceType, strings.Join(names, "、"))
}
