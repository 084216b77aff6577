package transaction

import (
	"errors"
	"fmt"
)

// ErrAlreadyCompleted signals that Finalize was called on a session the
// store has already assembled. The prior completion stands; callers
// must not treat the session as corrupt.
var ErrAlreadyCompleted = errors.New("transaction: already finalized")

// ErrTransactionNotExists signals that the session is unknown to the
// store, typically because it was aborted or swept.
var ErrTransactionNotExists = errors.New("transaction: session does not exist")

// InitError wraps a failure to open a multi-part session. Initiation
// failures are retryable.
type InitError struct {
	Key string
	Err error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("transaction: initiate for key %q: %v", e.Key, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// AuthorizationError wraps a failure to obtain a part authorization.
// Authorization failures are retryable.
type AuthorizationError struct {
	TransactionID string
	PartNumber    int32
	Err           error
}

func (e *AuthorizationError) Error() string {
	return fmt.Sprintf(
		"transaction: authorize part %d of %s: %v",
		e.PartNumber, e.TransactionID, e.Err,
	)
}

func (e *AuthorizationError) Unwrap() error { return e.Err }

// IncompletePartsError reports a gap, duplicate, or tag mismatch in the
// part sequence handed to Finalize. It is never retried automatically:
// the caller must re-verify its completed-part bookkeeping first.
type IncompletePartsError struct {
	Expected int32
	Got      int32
}

func (e *IncompletePartsError) Error() string {
	return fmt.Sprintf(
		"transaction: part sequence has a gap, expected part %d but got %d",
		e.Expected, e.Got,
	)
}

// FinalizeError wraps any other failure to assemble the final object.
type FinalizeError struct {
	TransactionID string
	Err           error
}

func (e *FinalizeError) Error() string {
	return fmt.Sprintf("transaction: finalize %s: %v", e.TransactionID, e.Err)
}

func (e *FinalizeError) Unwrap() error { return e.Err }
