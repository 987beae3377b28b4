package session

import (
	"errors"
	"fmt"
)

// ErrNoActiveSession is returned when an operation requires a live session
// for a client that has none. This indicates a caller bug.
var ErrNoActiveSession = errors.New("no active session for client")

// ErrNoRecord is returned by the store when no persisted record exists for
// a client (including records discarded because they expired).
var ErrNoRecord = errors.New("no persisted session record")

// ErrCorruptRecord indicates a persisted record could not be decoded or
// decrypted. The file is not trusted and is removed.
var ErrCorruptRecord = errors.New("session record corrupt")

// ErrLockTimeout is returned when a per-client construction lock could not
// be acquired within the configured timeout.
var ErrLockTimeout = errors.New("session lock acquisition timed out")

// StorageError wraps a failure to use the on-disk session store. It is
// fatal at startup.
type StorageError struct {
	Op   string
	Path string
	Err  error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("session storage %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
