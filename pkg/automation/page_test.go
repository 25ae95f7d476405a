package automation

import (
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// fakePage is a scripted stand-in for playwright.Page. It embeds the real
// interface so only the methods the code under test touches need fakes;
// calling anything else panics loudly.
type fakePage struct {
	playwright.Page

	url           string
	redirectTo    string // Goto lands here instead of the requested URL
	afterSubmitTo string // WaitForLoadState lands here, simulating submit

	dom   map[string]bool   // selectors present in the fake DOM
	texts map[string]string // selector -> text content

	fills     map[string]string
	fillOrder []string
	clicks    []string
	selects   map[string]string

	gotoErr       error
	queryErr      error
	screenshotErr error
	screenshots   []string
	closed        bool
}

func newFakePage() *fakePage {
	return &fakePage{
		dom:     make(map[string]bool),
		texts:   make(map[string]string),
		fills:   make(map[string]string),
		selects: make(map[string]string),
	}
}

func (p *fakePage) URL() string {
	return p.url
}

func (p *fakePage) Goto(url string, options ...playwright.PageGotoOptions) (playwright.Response, error) {
	if p.gotoErr != nil {
		return nil, p.gotoErr
	}
	if p.redirectTo != "" {
		p.url = p.redirectTo
	} else {
		p.url = url
	}
	return nil, nil
}

func (p *fakePage) QuerySelector(selector string, options ...playwright.PageQuerySelectorOptions) (playwright.ElementHandle, error) {
	if p.queryErr != nil {
		return nil, p.queryErr
	}
	if p.dom[selector] {
		return &fakeElement{text: p.texts[selector]}, nil
	}
	return nil, nil
}

func (p *fakePage) Fill(selector string, value string, options ...playwright.PageFillOptions) error {
	p.fills[selector] = value
	p.fillOrder = append(p.fillOrder, selector)
	return nil
}

func (p *fakePage) Click(selector string, options ...playwright.PageClickOptions) error {
	p.clicks = append(p.clicks, selector)
	return nil
}

func (p *fakePage) SelectOption(selector string, values playwright.SelectOptionValues, options ...playwright.PageSelectOptionOptions) ([]string, error) {
	var value string
	if values.Values != nil && len(*values.Values) > 0 {
		value = (*values.Values)[0]
	}
	p.selects[selector] = value
	return []string{value}, nil
}

func (p *fakePage) WaitForSelector(selector string, options ...playwright.PageWaitForSelectorOptions) (playwright.ElementHandle, error) {
	if p.dom[selector] {
		return &fakeElement{text: p.texts[selector]}, nil
	}
	return nil, fmt.Errorf("timeout waiting for %s", selector)
}

func (p *fakePage) WaitForLoadState(options ...playwright.PageWaitForLoadStateOptions) error {
	if p.afterSubmitTo != "" {
		p.url = p.afterSubmitTo
	}
	return nil
}

func (p *fakePage) WaitForTimeout(timeout float64) {}

func (p *fakePage) Screenshot(options ...playwright.PageScreenshotOptions) ([]byte, error) {
	if p.screenshotErr != nil {
		return nil, p.screenshotErr
	}
	if len(options) > 0 && options[0].Path != nil {
		p.screenshots = append(p.screenshots, *options[0].Path)
	}
	return []byte("png"), nil
}

func (p *fakePage) Close(options ...playwright.PageCloseOptions) error {
	p.closed = true
	return nil
}

// clickCount returns how many times selector was clicked.
func (p *fakePage) clickCount(selector string) int {
	n := 0
	for _, c := range p.clicks {
		if c == selector {
			n++
		}
	}
	return n
}

type fakeElement struct {
	playwright.ElementHandle
	text string
}

func (e *fakeElement) TextContent() (string, error) {
	return e.text, nil
}

// fakeCreds is an in-memory CredentialSource.
type fakeCreds map[string][2]string

func (f fakeCreds) Credential(systemID string) (string, string, bool) {
	cred, ok := f[systemID]
	if !ok {
		return "", "", false
	}
	return cred[0], cred[1], true
}
