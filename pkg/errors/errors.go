// Package errors provides the error taxonomy for wallet, RPC, and contract
// interactions. Every terminal failure an operation can report maps to one of
// the kinds below so callers can choose the right user guidance.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// Kind is a machine-readable error classification.
type Kind string

const (
	// KindUnknown is the fail-open classification.
	KindUnknown Kind = "UNKNOWN"
	// KindWalletNotFound indicates the signer capability is unavailable.
	KindWalletNotFound Kind = "WALLET_NOT_FOUND"
	// KindTransactionRejected indicates the user declined signing.
	KindTransactionRejected Kind = "TRANSACTION_REJECTED"
	// KindInsufficientBalance indicates a failed pre-flight balance check.
	KindInsufficientBalance Kind = "INSUFFICIENT_BALANCE"
	// KindSimulationFailed indicates the remote refused before any cost was
	// incurred. Safe to retry after fixing the input.
	KindSimulationFailed Kind = "SIMULATION_FAILED"
	// KindSubmissionError indicates the remote rejected the envelope at
	// submit time. Not retryable without rebuilding.
	KindSubmissionError Kind = "SUBMISSION_ERROR"
	// KindOnChainFailed indicates the ledger executed the transaction and
	// the outcome was failure.
	KindOnChainFailed Kind = "ON_CHAIN_FAILED"
	// KindTimeout indicates confirmation polling exhausted its attempts
	// without a terminal verdict. Ambiguous: the caller should re-query
	// later and must not assume failure.
	KindTimeout Kind = "TIMEOUT"
	// KindNetworkError indicates a transport-level failure.
	KindNetworkError Kind = "NETWORK_ERROR"
	// KindInvalidArgument indicates a local validation failure that never
	// reached the network boundary.
	KindInvalidArgument Kind = "INVALID_ARGUMENT"
	// KindNotFound indicates a missing remote entity (account, campaign).
	KindNotFound Kind = "NOT_FOUND"
)

// Error is a classified error. It wraps an optional cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error

	// Required and Available carry amounts (in XLM, decimal strings) for
	// KindInsufficientBalance.
	Required  string
	Available string

	// StatusCode carries the remote verdict for KindOnChainFailed.
	StatusCode string
}

func (e *Error) Error() string {
	if e.Cause != nil && e.Message != "" {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// New creates a classified error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// WalletNotFound reports a missing wallet extension or signing bridge.
func WalletNotFound(walletName string) *Error {
	return Newf(KindWalletNotFound,
		"%s wallet not found; install it or start the signing bridge", walletName)
}

// TransactionRejected reports a user decline inside the wallet.
func TransactionRejected() *Error {
	return New(KindTransactionRejected, "transaction was rejected by the user in their wallet")
}

// InsufficientBalance reports a failed pre-flight balance check with the
// required and available amounts in XLM.
func InsufficientBalance(required, available string) *Error {
	return &Error{
		Kind:      KindInsufficientBalance,
		Message:   fmt.Sprintf("insufficient balance: required %s XLM, available %s XLM", required, available),
		Required:  required,
		Available: available,
	}
}

// OnChainFailed reports a transaction the ledger executed and failed,
// carrying the remote status code.
func OnChainFailed(statusCode string) *Error {
	return &Error{
		Kind:       KindOnChainFailed,
		Message:    fmt.Sprintf("transaction failed on-chain (status: %s)", statusCode),
		StatusCode: statusCode,
	}
}

// KindOf extracts the kind from err, or KindUnknown when err carries none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Classify maps an arbitrary error onto the taxonomy. Errors that already
// carry a kind pass through untouched; everything else is matched on known
// message substrings. The matching is best-effort and fails open to
// KindUnknown rather than ever erroring itself.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}

	lower := strings.ToLower(err.Error())

	switch {
	case containsAny(lower, "not installed", "no extension", "unable to find", "connection refused"):
		return Wrap(KindWalletNotFound, "wallet unavailable", err)
	case containsAny(lower, "declined", "rejected", "cancelled", "denied", "user refused"):
		return Wrap(KindTransactionRejected, "signing declined", err)
	case containsAny(lower, "insufficient", "underfunded", "not enough"):
		return Wrap(KindInsufficientBalance, "insufficient balance", err)
	case containsAny(lower, "not found", "404"):
		return Wrap(KindNotFound, "not found", err)
	case containsAny(lower, "timeout", "deadline exceeded"):
		return Wrap(KindTimeout, "timed out", err)
	case containsAny(lower, "connection reset", "no such host", "network", "eof"):
		return Wrap(KindNetworkError, "network failure", err)
	}

	return Wrap(KindUnknown, "", err)
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
