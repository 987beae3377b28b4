package automation

import (
	"context"
	"fmt"
	"time"

	"github.com/evanramirez88/toast-automation/pkg/events"
	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/resolver"
	"github.com/evanramirez88/toast-automation/pkg/session"
)

// Runner performs the browser-facing work of a job against one session.
// The controller is the production implementation; tests substitute fakes.
type Runner interface {
	// Session returns a usable session for the client, constructing or
	// restoring one as needed.
	Session(ctx context.Context, clientID string) (*session.Session, error)

	// Login runs the credential login sequence for the job's client.
	Login(ctx context.Context, sess *session.Session, job *Job) error

	// Run dispatches one operation on the session's page.
	Run(ctx context.Context, sess *session.Session, op Operation) (any, error)

	// Screenshot captures the page for evidence and returns the file path.
	Screenshot(sess *session.Session, label string) (string, error)
}

// Executor runs jobs: it gates on authentication, iterates operations in
// order inside a retry-once-on-recovery envelope, and always returns a
// structured result.
type Executor struct {
	runner   Runner
	sessions *session.Manager
	recovery resolver.RecoveryOrchestrator
	emitter  *events.Emitter
	logger   *logging.Logger
	diag     session.Diagnostics

	// retryBudget is how many recovery-driven retries one operation gets.
	retryBudget int
}

// NewExecutor wires an executor. recovery, emitter and diag may be nil.
func NewExecutor(runner Runner, sessions *session.Manager, recovery resolver.RecoveryOrchestrator, emitter *events.Emitter, logger *logging.Logger, diag session.Diagnostics) *Executor {
	return &Executor{
		runner:      runner,
		sessions:    sessions,
		recovery:    recovery,
		emitter:     emitter,
		logger:      logger,
		diag:        diag,
		retryBudget: 1,
	}
}

// ExecuteJob runs the job to completion and returns its structured result.
// Only authentication failure produces status failed; operation failures
// produce partial with per-operation detail. The session is persisted at
// the end regardless of outcome, best-effort.
func (e *Executor) ExecuteJob(ctx context.Context, job *Job) *JobResult {
	res := &JobResult{
		JobID:     job.ID,
		ClientID:  job.ClientID,
		Status:    StatusRunning,
		StartTime: time.Now(),
	}
	e.emit(events.JobStart, job)
	e.infof("job %s started for client %s (%d operations)", job.ID, job.ClientID, len(job.Operations))

	sess, err := e.runner.Session(ctx, job.ClientID)
	if err != nil {
		res.Errors = append(res.Errors, fmt.Sprintf("session: %v", err))
		return e.finish(res, StatusFailed, nil)
	}

	if !sess.Authenticated {
		if err := e.runner.Login(ctx, sess, job); err != nil {
			authErr := &AuthenticationError{ClientID: job.ClientID, Err: err}
			res.Errors = append(res.Errors, authErr.Error())
			return e.finish(res, StatusFailed, sess)
		}
		if err := e.sessions.MarkAuthenticated(job.ClientID, job.ToastGUID); err != nil {
			e.report("mark-authenticated", err)
		}
	}

	failures := 0
	for i, op := range job.Operations {
		opRes := e.executeOperation(ctx, sess, job, op)
		res.Operations = append(res.Operations, opRes)
		if opRes.ErrorScreenshot != "" {
			res.Screenshots = append(res.Screenshots, opRes.ErrorScreenshot)
		}
		if opRes.Success {
			continue
		}
		failures++
		res.Errors = append(res.Errors, fmt.Sprintf("operation %d (%s): %s", i, op.Type, opRes.Error))
		if !job.Options.ContinueOnError {
			break
		}
	}

	status := StatusCompleted
	if failures > 0 {
		status = StatusPartial
	}
	return e.finish(res, status, sess)
}

// executeOperation wraps one operation in the recovery envelope. A failed
// attempt is offered to the recovery collaborator; if it reports the
// situation repaired, the identical operation is retried, bounded by the
// explicit retry budget.
func (e *Executor) executeOperation(ctx context.Context, sess *session.Session, job *Job, op Operation) OperationResult {
	var res OperationResult
	var cause error

	for attempt := 1; ; attempt++ {
		res, cause = e.attempt(ctx, sess, job, op, attempt)
		if res.Success || attempt > e.retryBudget {
			return res
		}
		if !e.tryRecover(ctx, sess, job, op, cause) {
			return res
		}
		e.infof("operation %s recovered for client %s, retrying", op.Type, job.ClientID)
	}
}

func (e *Executor) attempt(ctx context.Context, sess *session.Session, job *Job, op Operation, attempt int) (OperationResult, error) {
	start := time.Now()
	data, err := e.runner.Run(ctx, sess, op)
	res := OperationResult{
		Type:     op.Type,
		Duration: time.Since(start),
		Attempts: attempt,
	}
	if err == nil {
		res.Success = true
		res.Data = data
		return res, nil
	}

	res.Error = err.Error()
	label := fmt.Sprintf("%s-%s-attempt%d", job.ID, op.Type, attempt)
	if path, shotErr := e.runner.Screenshot(sess, label); shotErr != nil {
		e.report("error-screenshot", shotErr)
	} else {
		res.ErrorScreenshot = path
	}
	return res, err
}

func (e *Executor) tryRecover(ctx context.Context, sess *session.Session, job *Job, op Operation, cause error) bool {
	if e.recovery == nil {
		return false
	}
	result, err := e.recovery.Recover(ctx, cause, resolver.RecoveryContext{
		Page:          sess.Page,
		ClientID:      job.ClientID,
		JobID:         job.ID,
		OperationType: string(op.Type),
	})
	if err != nil {
		e.report("recovery", err)
		return false
	}
	return result != nil && result.Recovered
}

// finish assigns the terminal status, persists the session best-effort,
// and emits the completion event.
func (e *Executor) finish(res *JobResult, status JobStatus, sess *session.Session) *JobResult {
	res.Status = status
	res.EndTime = time.Now()
	res.Duration = res.EndTime.Sub(res.StartTime)

	if sess != nil {
		if err := e.sessions.PersistSession(res.ClientID); err != nil {
			e.report("persist-after-job", err)
		}
	}

	e.infof("job %s finished with status %s in %s", res.JobID, res.Status, res.Duration)
	e.emit(events.JobComplete, res)
	return res
}

func (e *Executor) emit(event string, payload any) {
	if e.emitter != nil {
		e.emitter.Emit(event, payload)
	}
}

func (e *Executor) report(stage string, err error) {
	e.warnf("%s: %v", stage, err)
	if e.diag != nil {
		e.diag(stage, err)
	}
}

func (e *Executor) infof(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Infof(format, v...)
	}
}

func (e *Executor) warnf(format string, v ...interface{}) {
	if e.logger != nil {
		e.logger.Warnf(format, v...)
	}
}
