package faults

import (
	"errors"
	"fmt"
	"strings"
)

// Kind represents the category of failure that occurred.
type Kind int

const (
	// KindNotFound indicates the configuration record is absent.
	// This is a valid empty state, not an operational error.
	KindNotFound Kind = iota
	// KindIO indicates a storage mount/read/write failure.
	KindIO
	// KindParse indicates a corrupt or undecodable persisted record.
	KindParse
	// KindRadio indicates a WiFi connect, access point or scan failure.
	KindRadio
	// KindDiscovery indicates the discovery responder could not be started.
	KindDiscovery
	// KindAuth indicates bad or missing credentials on a protected route.
	KindAuth
	// KindValidation indicates missing or invalid fields on a mutating route.
	KindValidation
	// KindTimeout indicates a bounded wait ran out of time.
	KindTimeout
)

// String returns a human-readable name for the kind.
func (k Kind) String() string {
	switch k {
	case KindNotFound:
		return "Not Found"
	case KindIO:
		return "I/O Failure"
	case KindParse:
		return "Parse Failure"
	case KindRadio:
		return "Radio Failure"
	case KindDiscovery:
		return "Discovery Failure"
	case KindAuth:
		return "Authentication Failure"
	case KindValidation:
		return "Validation Failure"
	case KindTimeout:
		return "Timeout"
	default:
		return fmt.Sprintf("Kind(%d)", k)
	}
}

// Error is the error type shared by the store, the orchestrator and the router.
type Error struct {
	Kind    Kind   // Category of failure
	Op      string // Operation that failed (e.g. "load", "connect")
	Message string // Human-readable message
	Code    int    // Driver status code (radio failures only)
	Err     error  // Underlying error (if any)
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.String())
	if e.Op != "" {
		b.WriteString(" [")
		b.WriteString(e.Op)
		b.WriteString("]")
	}
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Err != nil {
		fmt.Fprintf(&b, " (caused by: %v)", e.Err)
	}
	return b.String()
}

// Unwrap returns the underlying error for error chain inspection.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewNotFound creates a not-found error for a missing record.
func NewNotFound(op, path string) *Error {
	return &Error{
		Kind:    KindNotFound,
		Op:      op,
		Message: fmt.Sprintf("%s does not exist", path),
	}
}

// NewIOError creates a storage error.
func NewIOError(op, message string, err error) *Error {
	return &Error{Kind: KindIO, Op: op, Message: message, Err: err}
}

// NewParseError creates a decoding error.
func NewParseError(op, message string, err error) *Error {
	return &Error{Kind: KindParse, Op: op, Message: message, Err: err}
}

// NewRadioError creates a radio error carrying the driver status code.
func NewRadioError(op, message string, code int, err error) *Error {
	return &Error{Kind: KindRadio, Op: op, Message: message, Code: code, Err: err}
}

// NewDiscoveryError creates a discovery responder error.
func NewDiscoveryError(message string, err error) *Error {
	return &Error{Kind: KindDiscovery, Op: "discovery", Message: message, Err: err}
}

// NewAuthError creates an authentication error.
func NewAuthError(message string) *Error {
	return &Error{Kind: KindAuth, Op: "authenticate", Message: message}
}

// NewValidationError creates a validation error.
func NewValidationError(message string) *Error {
	return &Error{Kind: KindValidation, Message: message}
}

// NewTimeoutError creates a timeout error for bounded waits.
func NewTimeoutError(op, message string, err error) *Error {
	return &Error{Kind: KindTimeout, Op: op, Message: message, Err: err}
}

// KindOf returns the kind of err, and false if err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind, true
	}
	return 0, false
}

func is(err error, kind Kind) bool {
	k, ok := KindOf(err)
	return ok && k == kind
}

// IsNotFound checks if an error reports a missing record.
func IsNotFound(err error) bool { return is(err, KindNotFound) }

// IsIOError checks if an error is a storage error.
func IsIOError(err error) bool { return is(err, KindIO) }

// IsParseError checks if an error is a parse error.
func IsParseError(err error) bool { return is(err, KindParse) }

// IsRadioError checks if an error is a radio error.
func IsRadioError(err error) bool { return is(err, KindRadio) }

// IsDiscoveryError checks if an error is a discovery error.
func IsDiscoveryError(err error) bool { return is(err, KindDiscovery) }

// IsAuthError checks if an error is an authentication error.
func IsAuthError(err error) bool { return is(err, KindAuth) }

// IsValidationError checks if an error is a validation error.
func IsValidationError(err error) bool { return is(err, KindValidation) }

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool { return is(err, KindTimeout) }

// StatusCode returns the radio status code carried by err, or -1.
func StatusCode(err error) int {
	var fe *Error
	if errors.As(err, &fe) && fe.Kind == KindRadio {
		return fe.Code
	}
	return -1
}

// ShortMessage returns a concise, user-facing message for an error.
func ShortMessage(err error) string {
	var fe *Error
	if !errors.As(err, &fe) {
		return err.Error()
	}

	switch fe.Kind {
	case KindNotFound:
		return "Settings not found"
	case KindIO:
		return "Storage is not available"
	case KindParse:
		return "Settings are corrupted"
	case KindAuth:
		return "Authentication failed"
	case KindTimeout:
		return "Operation timed out"
	default:
		return fe.Message
	}
}
