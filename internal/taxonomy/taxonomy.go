// Package taxonomy defines the error-kind taxonomy shared across the
// reconciliation engine, so that callers can distinguish fatal
// configuration failures from per-address or per-op failures without
// parsing error strings.
package taxonomy

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies an Error. These are not Go error types in their own
// right; Kind is carried alongside a wrapped cause so that the original
// error chain (for %+v / errors.Is / errors.Unwrap) survives.
type Kind int

const (
	// InvalidConnectorSpec: failure to recognise a connector spec or
	// binding name.
	InvalidConnectorSpec Kind = iota
	// InvalidAddress: path not resolvable to any prefix, or rejected by
	// the connector that claimed it.
	InvalidAddress
	// InvalidOp: an op definition emitted by Plan was rejected by OpExec.
	InvalidOp
	// Transport: RPC failure, worker crash, or timeout.
	Transport
	// Configuration: malformed autoschematic.ron, illegal prefix, or any
	// other config-validation failure.
	Configuration
	// IO: repository or output-file I/O failure.
	IO
	// Crypto: sealing or key material failure.
	Crypto
	// Deferred is not an error: it classifies a plan outcome as blocked
	// on missing outputs. Callers should check for it explicitly rather
	// than surfacing it as a failure.
	Deferred
)

func (k Kind) String() string {
	switch k {
	case InvalidConnectorSpec:
		return "InvalidConnectorSpec"
	case InvalidAddress:
		return "InvalidAddress"
	case InvalidOp:
		return "InvalidOp"
	case Transport:
		return "Transport"
	case Configuration:
		return "Configuration"
	case IO:
		return "IO"
	case Crypto:
		return "Crypto"
	case Deferred:
		return "Deferred"
	default:
		return "Unknown"
	}
}

// Error is a taxonomy-classified error. It wraps an underlying cause
// (which may be nil for sourceless errors) and carries enough context
// to be rendered either as a CLI single-line message or as a server
// templated tag.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// New builds a sourceless Error of the given kind.
func New(kind Kind, message string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(message, args...)}
}

// Wrap attaches kind and message context to an existing cause: the
// cause is preserved for %+v and errors.Unwrap, and a caller-facing
// message is layered on top.
func Wrap(kind Kind, cause error, message string, args ...any) *Error {
	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf(message, args...),
		Cause:   errors.Wrap(cause, ""),
	}
}

// Of reports the Kind of err if it is (or wraps) a *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

// IsDeferred reports whether err represents a Deferred plan outcome
// rather than a true failure.
func IsDeferred(err error) bool {
	kind, ok := Of(err)
	return ok && kind == Deferred
}

// CLILine renders err the way the CLI collaborator is expected to: a
// single line with a distinguishing kind prefix.
func CLILine(err error) string {
	if kind, ok := Of(err); ok {
		return fmt.Sprintf("[%s] %s", kind, err.Error())
	}
	return err.Error()
}

// ServerTag renders err as the templated-message tag the server
// collaborator embeds at the start of a line: "<!--- [Kind] -->".
func ServerTag(err error) string {
	kind, ok := Of(err)
	if !ok {
		kind = IO
	}
	return fmt.Sprintf("<!--- [%s] -->", kind)
}
