package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/playwright-community/playwright-go"
)

// Target describes the element an operation needs, in order of preference:
// a durable selector hint, an ordered list of fallback selectors, and a
// natural-language description of last resort.
type Target struct {
	// Selector is the durable, human-authored locator hint.
	Selector string `json:"selector,omitempty"`

	// Description is the natural-language fallback used by the semantic
	// finder when every selector fails.
	Description string `json:"description,omitempty"`

	// Fallbacks are tried in order after the selector hint.
	Fallbacks []string `json:"fallbacks,omitempty"`
}

// Source identifies which cascade strategy produced a resolution.
type Source string

const (
	SourceSelfHealer Source = "self_healer"
	SourceFallback   Source = "fallback"
	SourceSemantic   Source = "semantic"
	SourceRecovery   Source = "recovery"
)

// Resolution is a concrete, actionable element handle.
type Resolution struct {
	Locator      playwright.Locator
	UsedSelector string
	Source       Source
}

// Candidate is an element handle proposed by a collaborator.
type Candidate struct {
	Locator  playwright.Locator
	Selector string
}

// Action names supported by Perform.
const (
	ActionClick   = "click"
	ActionType    = "type"
	ActionFill    = "fill"
	ActionSelect  = "select"
	ActionCheck   = "check"
	ActionUncheck = "uncheck"
	ActionHover   = "hover"
	ActionFocus   = "focus"
)

// ErrElementNotFound is returned when the full resolution cascade is
// exhausted without producing an element.
var ErrElementNotFound = errors.New("element not found")

// UnknownActionError reports an action name Perform does not support.
// This is a programmer error and is surfaced immediately.
type UnknownActionError struct {
	Action string
}

func (e *UnknownActionError) Error() string {
	return fmt.Sprintf("unknown action %q", e.Action)
}

// SelectorHealer maintains the mapping from durable selector hints to
// currently-working selectors. FindElement may return a different selector
// than the hint, reflecting past learning. A nil Candidate with nil error
// means the healer has nothing for this hint.
type SelectorHealer interface {
	FindElement(page playwright.Page, selectorHint string) (*Candidate, error)
	LearnSelector(hint, discoveredSelector string) error
	RecordSuccess(hint, usedSelector, url string) error
	RecordFailure(hint, url, reason string) error
}

// SemanticFinder locates an element from a natural-language description.
type SemanticFinder interface {
	FindElement(ctx context.Context, page playwright.Page, description string) (*Candidate, error)
}

// RecoveryContext carries everything the recovery orchestrator needs to
// classify and repair a failure.
type RecoveryContext struct {
	Page          playwright.Page
	ClientID      string
	JobID         string
	OperationType string
	Selector      string
	Description   string
}

// RecoveryResult reports whether a corrective action was taken. Candidate
// is set when recovery produced the element itself.
type RecoveryResult struct {
	Recovered bool
	Candidate *Candidate
}

// RecoveryOrchestrator turns a classified failure into a corrective action.
type RecoveryOrchestrator interface {
	Recover(ctx context.Context, cause error, rctx RecoveryContext) (*RecoveryResult, error)
}
