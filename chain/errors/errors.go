// Package errors implements the error taxonomy of the state machine: the
// kinds that CheckTx/DeliverTx recover as non-zero response codes, and the
// Fatal kind that halts the process. Modeled on klaytn's kerrors package,
// built on github.com/pkg/errors for wrapping and cause-unwrapping.
package errors

import (
	pkgerrors "github.com/pkg/errors"
)

// Kind classifies an error for ABCI response-code mapping (§7).
type Kind uint8

const (
	// KindParse: malformed wire transaction.
	KindParse Kind = iota
	// KindInvalidInput: precondition violated (double-spend, underfunded, wrong chain id, ...).
	KindInvalidInput
	// KindValidation: signature or account-state check failed.
	KindValidation
	// KindEnclaveRejected: the enclave returned an error response.
	KindEnclaveRejected
	// KindStorage: I/O failure against the key-value store.
	KindStorage
	// KindFatal: invariant violation, hash mismatch, enclave sanity-check
	// failure, or panic. The node must halt.
	KindFatal
)

func (k Kind) String() string {
	switch k {
	case KindParse:
		return "ParseError"
	case KindInvalidInput:
		return "InvalidInput"
	case KindValidation:
		return "ValidationError"
	case KindEnclaveRejected:
		return "EnclaveRejected"
	case KindStorage:
		return "StorageError"
	case KindFatal:
		return "Fatal"
	default:
		return "Unknown"
	}
}

// Recoverable reports whether this kind is recovered as a response code by
// CheckTx/DeliverTx, as opposed to halting the node.
func (k Kind) Recoverable() bool {
	switch k {
	case KindParse, KindInvalidInput, KindValidation, KindEnclaveRejected:
		return true
	default:
		return false
	}
}

// Error carries a Kind alongside the usual message/cause chain.
type Error struct {
	Kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return e.msg + ": " + e.err.Error()
	}
	return e.msg
}

func (e *Error) Cause() error { return e.err }
func (e *Error) Unwrap() error { return e.err }

// New constructs a Kind-tagged error with a message.
func New(k Kind, msg string) error {
	return &Error{Kind: k, msg: msg}
}

// Wrap tags an existing error with a Kind, preserving it as the cause.
func Wrap(k Kind, err error, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: k, msg: msg, err: err}
}

// KindOf extracts the Kind of err, defaulting to KindFatal for errors that
// were never classified — an unclassified error is a programming mistake,
// not a tolerated input, so it must not be silently recovered.
func KindOf(err error) Kind {
	var e *Error
	for err != nil {
		if ce, ok := err.(*Error); ok {
			e = ce
			break
		}
		err = pkgerrors.Unwrap(err)
	}
	if e == nil {
		return KindFatal
	}
	return e.Kind
}

// Code maps an error to the ABCI response code (§6): 0 only for nil.
func Code(err error) uint32 {
	if err == nil {
		return 0
	}
	return 1
}
