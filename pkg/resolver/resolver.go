// Package resolver turns logical interaction targets into concrete element
// handles by cascading through resolution strategies, and performs actions
// on the resolved elements with a learning feedback loop.
package resolver

import (
	"context"
	"fmt"

	"github.com/playwright-community/playwright-go"

	"github.com/evanramirez88/toast-automation/pkg/logging"
)

// Resolver resolves targets against a page. Strategies run in a fixed
// order: selector healing, fallback selectors, semantic lookup, recovery.
// First success wins.
type Resolver struct {
	healer   SelectorHealer
	semantic SemanticFinder
	recovery RecoveryOrchestrator
	logger   *logging.Logger

	// probe checks that a selector resolves to a currently-visible element.
	// Indirected so the cascade can be tested without a page.
	probe func(page playwright.Page, selector string) (playwright.Locator, error)
}

// New creates a Resolver. Any collaborator may be nil; its cascade step is
// skipped.
func New(healer SelectorHealer, semantic SemanticFinder, recovery RecoveryOrchestrator, logger *logging.Logger) *Resolver {
	return &Resolver{
		healer:   healer,
		semantic: semantic,
		recovery: recovery,
		logger:   logger,
		probe:    probeVisible,
	}
}

// Resolve runs the cascade for target and returns the first successful
// resolution, or ErrElementNotFound once every strategy is exhausted.
func (r *Resolver) Resolve(ctx context.Context, page playwright.Page, target Target) (*Resolution, error) {
	// 1. Selector healing: the collaborator may substitute a selector it
	// learned previously.
	if target.Selector != "" && r.healer != nil {
		cand, err := r.healer.FindElement(page, target.Selector)
		if err != nil {
			r.debugf("self-heal lookup for %q failed: %v", target.Selector, err)
		} else if cand != nil {
			return &Resolution{Locator: cand.Locator, UsedSelector: cand.Selector, Source: SourceSelfHealer}, nil
		}
	}

	// 2. Fallback selectors, in order, first visible match wins.
	for _, fb := range target.Fallbacks {
		loc, err := r.probe(page, fb)
		if err != nil {
			r.debugf("fallback %q: %v", fb, err)
			continue
		}
		return &Resolution{Locator: loc, UsedSelector: fb, Source: SourceFallback}, nil
	}

	// 3. Semantic lookup from the natural-language description. A hit is
	// fed back to the healer as a learned mapping for the original hint.
	if target.Description != "" && r.semantic != nil {
		cand, err := r.semantic.FindElement(ctx, page, target.Description)
		if err != nil {
			r.debugf("semantic lookup for %q failed: %v", target.Description, err)
		} else if cand != nil {
			if target.Selector != "" && r.healer != nil {
				if err := r.healer.LearnSelector(target.Selector, cand.Selector); err != nil {
					r.debugf("learn %q -> %q failed: %v", target.Selector, cand.Selector, err)
				}
			}
			return &Resolution{Locator: cand.Locator, UsedSelector: cand.Selector, Source: SourceSemantic}, nil
		}
	}

	// 4. Hand the unresolved target to recovery as a generic element-not-
	// found failure.
	if r.recovery != nil {
		cause := fmt.Errorf("%w: %s", ErrElementNotFound, describeTarget(target))
		res, err := r.recovery.Recover(ctx, cause, RecoveryContext{
			Page:        page,
			Selector:    target.Selector,
			Description: target.Description,
		})
		if err != nil {
			r.debugf("recovery for %s failed: %v", describeTarget(target), err)
		} else if res != nil && res.Recovered && res.Candidate != nil {
			return &Resolution{Locator: res.Candidate.Locator, UsedSelector: res.Candidate.Selector, Source: SourceRecovery}, nil
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrElementNotFound, describeTarget(target))
}

// Perform resolves the target and executes the named action on it. The
// outcome is reported back to the selector healer keyed by the original
// hint; that recording is best-effort and never fails the action.
func (r *Resolver) Perform(ctx context.Context, page playwright.Page, target Target, action, value string) error {
	if !knownAction(action) {
		return &UnknownActionError{Action: action}
	}

	res, err := r.Resolve(ctx, page, target)
	if err != nil {
		return err
	}

	hint := target.Selector
	if hint == "" {
		hint = res.UsedSelector
	}

	if err := r.act(res.Locator, action, value); err != nil {
		r.recordFailure(hint, page.URL(), err.Error())
		return fmt.Errorf("%s on %q (via %s): %w", action, res.UsedSelector, res.Source, err)
	}

	r.recordSuccess(hint, res.UsedSelector, page.URL())
	return nil
}

func (r *Resolver) act(loc playwright.Locator, action, value string) error {
	switch action {
	case ActionClick:
		return loc.Click()
	case ActionType:
		// Clear-then-type so stale input never survives.
		if err := loc.Clear(); err != nil {
			return fmt.Errorf("clear before type: %w", err)
		}
		return loc.PressSequentially(value)
	case ActionFill:
		return loc.Fill(value)
	case ActionSelect:
		_, err := loc.SelectOption(playwright.SelectOptionValues{
			Values: playwright.StringSlice(value),
		})
		return err
	case ActionCheck:
		return loc.Check()
	case ActionUncheck:
		return loc.Uncheck()
	case ActionHover:
		return loc.Hover()
	case ActionFocus:
		return loc.Focus()
	default:
		return &UnknownActionError{Action: action}
	}
}

func knownAction(action string) bool {
	switch action {
	case ActionClick, ActionType, ActionFill, ActionSelect, ActionCheck, ActionUncheck, ActionHover, ActionFocus:
		return true
	}
	return false
}

func (r *Resolver) recordSuccess(hint, usedSelector, url string) {
	if r.healer == nil {
		return
	}
	if err := r.healer.RecordSuccess(hint, usedSelector, url); err != nil {
		r.debugf("record success for %q failed: %v", hint, err)
	}
}

func (r *Resolver) recordFailure(hint, url, reason string) {
	if r.healer == nil {
		return
	}
	if err := r.healer.RecordFailure(hint, url, reason); err != nil {
		r.debugf("record failure for %q failed: %v", hint, err)
	}
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

func describeTarget(t Target) string {
	switch {
	case t.Selector != "" && t.Description != "":
		return fmt.Sprintf("selector=%q description=%q", t.Selector, t.Description)
	case t.Selector != "":
		return fmt.Sprintf("selector=%q", t.Selector)
	case t.Description != "":
		return fmt.Sprintf("description=%q", t.Description)
	default:
		return fmt.Sprintf("%d fallback selector(s)", len(t.Fallbacks))
	}
}

func (r *Resolver) debugf(format string, v ...interface{}) {
	if r.logger != nil {
		r.logger.Debugf(format, v...)
	}
}
