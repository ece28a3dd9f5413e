package types

import (
	"context"
	"errors"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strings"
)

// Kind classifies a failure so callers can tell network, protocol and data
// problems apart.
type Kind int

// Failure kinds.
const (
	KindUnknown Kind = iota
	KindNetwork
	KindProtocol
	KindIntegrity
	KindFileSystem
	KindCanceled
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindProtocol:
		return "protocol"
	case KindIntegrity:
		return "integrity"
	case KindFileSystem:
		return "filesystem"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// Sentinel causes. Match them with errors.Is.
var (
	ErrHTTPStatus      = errors.New("unexpected http status")
	ErrContentType     = errors.New("unexpected content type")
	ErrVersionMismatch = errors.New("manifest version mismatch")
	ErrSchema          = errors.New("document does not match schema")
	ErrMalformed       = errors.New("malformed document")
	ErrMalformedStatus = errors.New("malformed status response")
	ErrHashMismatch    = errors.New("content hash mismatch")
	ErrUnsafePath      = errors.New("path leaves the client root")
)

// Error is a classified failure with a human-readable message.
type Error struct {
	// Kind is the failure class.
	Kind Kind

	// Op is a short description of what was being done, e.g. "fetch client manifest".
	Op string

	// Target is the URL, path or address involved.
	Target string

	// Err is the underlying cause.
	Err error
}

// Error implements error.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
	}
	if e.Target != "" {
		if b.Len() > 0 {
			b.WriteString(" ")
		}
		b.WriteString(e.Target)
	}
	if e.Kind != KindUnknown {
		b.WriteString(" (")
		b.WriteString(e.Kind.String())
		b.WriteString(" error)")
	}
	if e.Err != nil {
		if b.Len() > 0 {
			b.WriteString(": ")
		}
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds an *Error. When kind is KindUnknown it is derived from err.
func NewError(kind Kind, op, target string, err error) *Error {
	if kind == KindUnknown {
		kind = KindOf(err)
	}
	return &Error{Kind: kind, Op: op, Target: target, Err: err}
}

// KindOf classifies err. Classified errors keep their kind; context
// cancellation, network and file system errors are recognized from the
// standard library error types.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}

	var e *Error
	if errors.As(err, &e) && e.Kind != KindUnknown {
		return e.Kind
	}

	switch {
	case errors.Is(err, context.Canceled):
		return KindCanceled
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, os.ErrDeadlineExceeded):
		return KindNetwork
	case errors.Is(err, ErrHTTPStatus):
		return KindNetwork
	case errors.Is(err, ErrContentType), errors.Is(err, ErrVersionMismatch),
		errors.Is(err, ErrSchema), errors.Is(err, ErrMalformed), errors.Is(err, ErrMalformedStatus),
		errors.Is(err, ErrUnsafePath):
		return KindProtocol
	case errors.Is(err, ErrHashMismatch):
		return KindIntegrity
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return KindNetwork
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return KindFileSystem
	}

	return KindUnknown
}
