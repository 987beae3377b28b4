// Package recovery turns classified automation failures into corrective
// actions. The default orchestrator handles the two failure families the
// executor depends on: expired sessions, repaired by re-authenticating, and
// transient timeouts, repaired by waiting the page out. Everything else is
// reported as not recovered and the original failure stands.
package recovery

import (
	"context"
	"strings"
	"time"

	"github.com/evanramirez88/toast-automation/pkg/logging"
	"github.com/evanramirez88/toast-automation/pkg/resolver"
)

// failureKind classifies a cause into the corrective action it admits.
type failureKind int

const (
	kindUnrecoverable failureKind = iota
	kindSessionExpired
	kindTransientTimeout
)

// ReloginFunc re-authenticates the session behind a recovery context.
type ReloginFunc func(ctx context.Context, rctx resolver.RecoveryContext) error

// Orchestrator is the default recovery collaborator.
type Orchestrator struct {
	relogin ReloginFunc
	logger  *logging.Logger

	// retryWait is how long a transient timeout is given to settle.
	retryWait time.Duration

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// Option configures the Orchestrator.
type Option func(*Orchestrator)

// WithRetryWait overrides the settle time for transient timeouts.
func WithRetryWait(d time.Duration) Option {
	return func(o *Orchestrator) {
		o.retryWait = d
	}
}

// New builds an orchestrator. relogin may be nil, in which case expired
// sessions are reported as not recovered.
func New(relogin ReloginFunc, logger *logging.Logger, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		relogin:   relogin,
		logger:    logger,
		retryWait: 3 * time.Second,
		sleep:     sleepCtx,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Recover inspects cause and attempts the matching corrective action.
// Recovered=true tells the caller the situation was repaired and the failed
// step is worth one retry; no replacement element is produced.
func (o *Orchestrator) Recover(ctx context.Context, cause error, rctx resolver.RecoveryContext) (*resolver.RecoveryResult, error) {
	switch classify(cause) {
	case kindSessionExpired:
		if o.relogin == nil {
			o.debugf("session expired for client %s but no re-login hook is configured", rctx.ClientID)
			return &resolver.RecoveryResult{Recovered: false}, nil
		}
		o.infof("session expired for client %s, re-authenticating", rctx.ClientID)
		if err := o.relogin(ctx, rctx); err != nil {
			return nil, err
		}
		return &resolver.RecoveryResult{Recovered: true}, nil

	case kindTransientTimeout:
		o.infof("transient timeout for client %s, waiting %s before retry", rctx.ClientID, o.retryWait)
		if err := o.sleep(ctx, o.retryWait); err != nil {
			return nil, err
		}
		return &resolver.RecoveryResult{Recovered: true}, nil

	default:
		return &resolver.RecoveryResult{Recovered: false}, nil
	}
}

func classify(cause error) failureKind {
	if cause == nil {
		return kindUnrecoverable
	}
	msg := strings.ToLower(cause.Error())
	switch {
	case strings.Contains(msg, "session expired"),
		strings.Contains(msg, "login page"),
		strings.Contains(msg, "not authenticated"):
		return kindSessionExpired
	case strings.Contains(msg, "timeout"),
		strings.Contains(msg, "timed out"):
		return kindTransientTimeout
	default:
		return kindUnrecoverable
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (o *Orchestrator) infof(format string, v ...interface{}) {
	if o.logger != nil {
		o.logger.Infof(format, v...)
	}
}

func (o *Orchestrator) debugf(format string, v ...interface{}) {
	if o.logger != nil {
		o.logger.Debugf(format, v...)
	}
}
