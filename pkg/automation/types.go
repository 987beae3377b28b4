// Package automation composes session management, interaction resolution
// and recovery into a job-level API against the Toast back office.
package automation

import (
	"encoding/json"
	"fmt"
	"time"
)

// OperationType names one kind of job step.
type OperationType string

const (
	OpNavigate    OperationType = "navigate"
	OpCreateItem  OperationType = "createItem"
	OpUpdateItem  OperationType = "updateItem"
	OpHealthCheck OperationType = "healthCheck"
	OpScreenshot  OperationType = "screenshot"
	OpCustom      OperationType = "custom"
)

// JobStatus is the terminal state of a job. It is assigned exactly once.
type JobStatus string

const (
	StatusRunning   JobStatus = "running"
	StatusCompleted JobStatus = "completed"
	StatusPartial   JobStatus = "partial"
	StatusFailed    JobStatus = "failed"
)

// Credentials authenticate a client's back-office account.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Operation is one step of a job. Params are free-form and interpreted per
// operation type; DecodeParams projects them onto a typed struct.
type Operation struct {
	Type   OperationType  `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}

// DecodeParams unmarshals the operation's params into out, which should be
// a pointer to the param struct for the operation's type.
func (op Operation) DecodeParams(out any) error {
	data, err := json.Marshal(op.Params)
	if err != nil {
		return fmt.Errorf("encode %s params: %w", op.Type, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode %s params: %w", op.Type, err)
	}
	return nil
}

// JobOptions tune job-level behavior.
type JobOptions struct {
	// ContinueOnError keeps the job iterating after a failed operation
	// instead of stopping at the first failure.
	ContinueOnError bool `json:"continueOnError"`
}

// Job is one execution request against a single client tenant.
type Job struct {
	ID          string      `json:"jobId"`
	ClientID    string      `json:"clientId"`
	ToastGUID   string      `json:"toastGuid,omitempty"`
	Credentials Credentials `json:"credentials"`
	Operations  []Operation `json:"operations"`
	Options     JobOptions  `json:"options"`
}

// OperationResult records the outcome of one executed operation. It is
// written once; a recovery-driven retry replaces the whole record.
type OperationResult struct {
	Type            OperationType `json:"type"`
	Success         bool          `json:"success"`
	Data            any           `json:"data,omitempty"`
	Error           string        `json:"error,omitempty"`
	ErrorScreenshot string        `json:"errorScreenshot,omitempty"`
	Duration        time.Duration `json:"duration"`
	// Attempts counts envelope entries, so a recovered-then-retried
	// operation reports 2.
	Attempts int `json:"attempts"`
}

// JobResult is the structured outcome a job always returns. Operations
// holds one entry per executed step; steps skipped after an early stop are
// absent.
type JobResult struct {
	JobID       string            `json:"jobId"`
	ClientID    string            `json:"clientId"`
	Status      JobStatus         `json:"status"`
	StartTime   time.Time         `json:"startTime"`
	EndTime     time.Time         `json:"endTime"`
	Duration    time.Duration     `json:"duration"`
	Operations  []OperationResult `json:"operations"`
	Errors      []string          `json:"errors,omitempty"`
	Screenshots []string          `json:"screenshots,omitempty"`
}

// AuthenticationError marks a failed login sequence. It is fatal to the
// job; the executor never routes it through recovery.
type AuthenticationError struct {
	ClientID string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication failed for client %s: %v", e.ClientID, e.Err)
}

func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// NavigationError marks a navigation that did not land where it should,
// including the session-expired case of landing on a login page.
type NavigationError struct {
	Destination string
	URL         string
	Err         error
}

func (e *NavigationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("navigation to %q failed: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("navigation to %q landed on %s", e.Destination, e.URL)
}

func (e *NavigationError) Unwrap() error {
	return e.Err
}
