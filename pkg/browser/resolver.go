package browser

import (
	"fmt"
	"strings"

	"github.com/playwright-community/playwright-go"
)

// ElementQuerier is the slice of playwright.Page the resolver needs.
type ElementQuerier interface {
	QuerySelector(selector string, options ...playwright.PageQuerySelectorOptions) (playwright.ElementHandle, error)
}

// NoMatchError reports that none of an ordered selector-candidate list
// matched any element in the live DOM. It names every candidate tried so
// operators can diagnose UI drift from the error message alone.
type NoMatchError struct {
	Candidates []string
}

func (e *NoMatchError) Error() string {
	return fmt.Sprintf("no matching element for any of: %s", strings.Join(e.Candidates, ", "))
}

// FindFirstSelector probes candidates in order and returns the first selector
// with at least one matching element in the current page. Candidate order is
// priority order, so probing stops at the first match.
func FindFirstSelector(page ElementQuerier, candidates []string) (string, error) {
	for _, selector := range candidates {
		element, err := page.QuerySelector(selector)
		if err != nil {
			continue
		}
		if element != nil {
			return selector, nil
		}
	}
	return "", &NoMatchError{Candidates: candidates}
}
