package healing

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/resolver"
)

// distrustFloor is the success rate below which a learned mapping with a
// real track record is no longer offered.
const distrustFloor = 0.2

// minHistory is how many recorded outcomes a mapping needs before its
// success rate is trusted enough to demote it.
const minHistory = 5

// Healer serves learned selectors to the resolver and folds the resolver's
// outcome reports back into the store. It implements the resolver's
// SelectorHealer contract.
type Healer struct {
	store  *Store
	logger *logging.Logger

	// probe checks that a selector currently matches a visible element.
	// Swapped out in tests.
	probe func(page playwright.Page, selector string) (playwright.Locator, error)
}

func NewHealer(store *Store, logger *logging.Logger) *Healer {
	return &Healer{
		store:  store,
		logger: logger,
		probe:  probeVisible,
	}
}

// FindElement returns a previously-learned substitute for hint when one
// exists, still looks trustworthy, and resolves to a visible element right
// now. Returning nil with no error means the healer has nothing to offer.
func (h *Healer) FindElement(page playwright.Page, hint string) (*resolver.Candidate, error) {
	m, ok, err := h.store.Lookup(context.Background(), hint)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	if m.SuccessCount+m.FailureCount >= minHistory && m.SuccessRate() < distrustFloor {
		h.debugf("mapping %q -> %q demoted (rate %.2f)", hint, m.Selector, m.SuccessRate())
		return nil, nil
	}

	loc, err := h.probe(page, m.Selector)
	if err != nil {
		h.debugf("learned selector %q for %q not visible: %v", m.Selector, hint, err)
		return nil, nil
	}
	return &resolver.Candidate{Locator: loc, Selector: m.Selector}, nil
}

// LearnSelector stores a fresh mapping from hint to a discovered selector.
func (h *Healer) LearnSelector(hint, discovered string) error {
	return h.store.Learn(context.Background(), hint, discovered)
}

// RecordSuccess notes that the selector used for hint worked on url.
func (h *Healer) RecordSuccess(hint, usedSelector, url string) error {
	return h.store.RecordSuccess(context.Background(), hint, usedSelector, url)
}

// RecordFailure notes that resolving hint failed on url.
func (h *Healer) RecordFailure(hint, url, reason string) error {
	return h.store.RecordFailure(context.Background(), hint, url, reason)
}

func probeVisible(page playwright.Page, selector string) (playwright.Locator, error) {
	loc := page.Locator(selector).First()
	visible, err := loc.IsVisible()
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, fmt.Errorf("selector %q matched nothing visible", selector)
	}
	return loc, nil
}

func (h *Healer) debugf(format string, v ...interface{}) {
	if h.logger != nil {
		h.logger.Debugf(format, v...)
	}
}
