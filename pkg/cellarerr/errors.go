// Package cellarerr defines the structured error taxonomy that crosses
// every public boundary in the cluster (spec §7). Each error carries a
// stable code, a human message, and a bag of attributes (path, txn id,
// offending key, ...) so callers can branch on Code without parsing text.
package cellarerr

import (
	"errors"
	"fmt"
)

// Code is a stable, comparable error classification.
type Code string

const (
	CodeResolve                Code = "ResolveError"
	CodeAlreadyExists           Code = "AlreadyExists"
	CodeAuthorization           Code = "AuthorizationError"
	CodeTransactionState        Code = "TransactionStateError"
	CodeLockConflict            Code = "ConcurrentTransactionLockConflict"
	CodeArchive                 Code = "ArchiveError"
	CodeCancellation             Code = "CancellationError"
	CodePrerequisiteCheckFailed  Code = "PrerequisiteCheckFailed"
	CodeNoSuchTransaction        Code = "NoSuchTransaction"
)

// Error is the structured error type used across package boundaries.
type Error struct {
	Code    Code
	Message string
	Attrs   map[string]string
	Inner   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Inner
}

// WithAttr returns a copy of e with the given attribute set; it does not
// mutate e, so callers may safely build a prototype error and specialize it.
func (e *Error) WithAttr(key, value string) *Error {
	out := *e
	out.Attrs = make(map[string]string, len(e.Attrs)+1)
	for k, v := range e.Attrs {
		out.Attrs[k] = v
	}
	out.Attrs[key] = value
	return &out
}

func new_(code Code, format string, args ...any) *Error {
	return &Error{Code: code, Message: fmt.Sprintf(format, args...)}
}

// Resolve builds a ResolveError for a path that could not be walked.
func Resolve(path string, inner error) *Error {
	return new_(CodeResolve, "path resolution failed for %q", path).withInner(inner).WithAttr("path", path)
}

// AlreadyExists builds an AlreadyExists error for a path that already holds
// a node and neither force nor ignore_existing was set.
func AlreadyExists(path string) *Error {
	return new_(CodeAlreadyExists, "node already exists at %q", path).WithAttr("path", path)
}

// Authorization builds an AuthorizationError for a denied ACL check.
func Authorization(subject, permission, path string) *Error {
	e := new_(CodeAuthorization, "%q is not permitted to %q on %q", subject, permission, path)
	return e.WithAttr("subject", subject).WithAttr("permission", permission).WithAttr("path", path)
}

// TransactionState builds a TransactionStateError for an invalid state
// transition or structural rule violation (depth limit, foreign parent,
// upload nesting).
func TransactionState(format string, args ...any) *Error {
	return new_(CodeTransactionState, format, args...)
}

// LockConflict builds a ConcurrentTransactionLockConflict, reporting the
// holder transaction id and lock mode that caused the conflict.
func LockConflict(path, holderTxnID, holderMode string) *Error {
	e := new_(CodeLockConflict, "lock on %q conflicts with %s held by %s", path, holderMode, holderTxnID)
	return e.WithAttr("path", path).WithAttr("holder_transaction_id", holderTxnID).WithAttr("holder_mode", holderMode)
}

// Archive builds an ArchiveError for a storage-layer write failure or a
// value-weight violation.
func Archive(format string, args ...any) *Error {
	return new_(CodeArchive, format, args...)
}

// Cancellation builds a CancellationError for a cooperative cancel during
// restart or shutdown.
func Cancellation(format string, args ...any) *Error {
	return new_(CodeCancellation, format, args...)
}

// PrerequisiteCheckFailed builds an error for a referenced transaction that
// is missing or not Active.
func PrerequisiteCheckFailed(txnID string) *Error {
	return new_(CodePrerequisiteCheckFailed, "prerequisite transaction %s is missing or not active", txnID).WithAttr("transaction_id", txnID)
}

// NoSuchTransaction builds an error for a transaction id unknown to this
// cell; used by external-node forwarding to translate a remote miss.
func NoSuchTransaction(txnID string) *Error {
	return new_(CodeNoSuchTransaction, "no such transaction %s", txnID).WithAttr("transaction_id", txnID)
}

func (e *Error) withInner(inner error) *Error {
	e.Inner = inner
	return e
}

// CodeOf extracts the Code of err if it is (or wraps) a *Error, and reports
// whether one was found.
func CodeOf(err error) (Code, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Code, true
	}
	return "", false
}

// Is reports whether err is a *Error with the given code.
func Is(err error, code Code) bool {
	c, ok := CodeOf(err)
	return ok && c == code
}
