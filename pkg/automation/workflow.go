package automation

import (
	"fmt"
	"regexp"
	"strconv"

	"github.com/playwright-community/playwright-go"

	"github.com/entrhq/invoicefill/pkg/invoice"
)

// Workflow performs the fill sequence for one target system on a page the
// login manager has already authenticated. Implementations never return a
// soft failure silently: a remote interaction error surfaces as a failure
// FillResult with forensic evidence attached.
type Workflow interface {
	Fill(page playwright.Page, inv *invoice.Field) *invoice.FillResult
}

// formReadyTimeout bounds the wait for a form-ready marker element, and for
// the post-save success indicator. A missing marker is a hard failure.
const formReadyTimeout = 10000.0

// rowRenderDelay is the pause after triggering the add-row action, giving
// the table UI time to render the new row before it is addressed.
const rowRenderDelay = 500.0

// itemRowSelector addresses a line-item row by position. index is the
// zero-based item index; the first table row is the header and is skipped.
func itemRowSelector(index int) string {
	return fmt.Sprintf("#itemsTable tr:nth-child(%d)", index+2)
}

// formatNumber renders a monetary or quantity value the way the form
// expects, without a forced number of decimals.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

var (
	draftIDPattern   = regexp.MustCompile(`草稿编号[：:]?\s*(\w+)`)
	receiptNoPattern = regexp.MustCompile(`单号[：:]?\s*(\w+)`)
)

// extractToken pulls a system-issued identifier out of a success message by
// localized label. Extraction is best-effort: no match yields an empty
// identifier, not a failure.
func extractToken(pattern *regexp.Regexp, text string) string {
	m := pattern.FindStringSubmatch(text)
	if len(m) == 2 {
		return m[1]
	}
	return ""
}

// elementText returns the text content of the first element matching
// selector.
func elementText(page playwright.Page, selector string) (string, error) {
	element, err := page.QuerySelector(selector)
	if err != nil {
		return "", fmt.Errorf("failed to query %q: %w", selector, err)
	}
	if element == nil {
		return "", fmt.Errorf("no element found matching selector: %s", selector)
	}
	text, err := element.TextContent()
	if err != nil {
		return "", fmt.Errorf("failed to read text of %q: %w", selector, err)
	}
	return text, nil
}

// gotoNetworkIdle navigates the page and waits for the network to settle.
func gotoNetworkIdle(page playwright.Page, url string) error {
	waitUntil := playwright.WaitUntilState("networkidle")
	if _, err := page.Goto(url, playwright.PageGotoOptions{WaitUntil: &waitUntil}); err != nil {
		return fmt.Errorf("navigation to %s failed: %w", url, err)
	}
	return nil
}

// invoiceTypeOption maps the invoice-type tag onto the option value shared
// by the ERP and tax entry forms.
func invoiceTypeOption(invoiceType string) string {
	if invoiceType == "增值税专用发票" {
		return "special"
	}
	return "normal"
}

// selectOne selects a single option value on a select control.
func selectOne(page playwright.Page, selector, value string) error {
	if _, err := page.SelectOption(selector, playwright.SelectOptionValues{
		Values: &[]string{value},
	}); err != nil {
		return fmt.Errorf("failed to select %q on %q: %w", value, selector, err)
	}
	return nil
}

// fillItemRow populates one line-item row. Conditionally present fields are
// only written when the source value is non-empty or non-zero, so blanks
// never overwrite form-side defaults.
func fillItemRow(page playwright.Page, index int, item invoice.Item) error {
	row := itemRowSelector(index)

	if err := page.Fill(row+` input[name="itemName"]`, item.Name); err != nil {
		return fmt.Errorf("failed to fill item name in row %d: %w", index+1, err)
	}
	if item.Specification != "" {
		if err := page.Fill(row+` input[name="specification"]`, item.Specification); err != nil {
			return fmt.Errorf("failed to fill specification in row %d: %w", index+1, err)
		}
	}
	if item.Unit != "" {
		if err := page.Fill(row+` input[name="unit"]`, item.Unit); err != nil {
			return fmt.Errorf("failed to fill unit in row %d: %w", index+1, err)
		}
	}
	if item.Quantity > 0 {
		if err := page.Fill(row+` input[name="quantity"]`, formatNumber(item.Quantity)); err != nil {
			return fmt.Errorf("failed to fill quantity in row %d: %w", index+1, err)
		}
	}
	if item.UnitPrice > 0 {
		if err := page.Fill(row+` input[name="unitPrice"]`, formatNumber(item.UnitPrice)); err != nil {
			return fmt.Errorf("failed to fill unit price in row %d: %w", index+1, err)
		}
	}
	if err := page.Fill(row+` input[name="amount"]`, formatNumber(item.Amount)); err != nil {
		return fmt.Errorf("failed to fill amount in row %d: %w", index+1, err)
	}
	if item.TaxRate != "" {
		if err := selectOne(page, row+` select[name="taxRate"]`, item.TaxRate); err != nil {
			return err
		}
	}
	return nil
}
