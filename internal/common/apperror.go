package common

import "fmt"

// Kind classifies a service error. The REST layer maps each kind to a status
// code; services never deal with transport codes directly.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindConflict
)

func (k Kind) String() string {
	switch k {
	case KindBadRequest:
		return "bad_request"
	case KindUnauthorized:
		return "unauthorized"
	case KindConflict:
		return "conflict"
	default:
		return "internal"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindBadRequest:
		return ErrorBadRequest
	case KindUnauthorized:
		return ErrorUnauthorized
	case KindConflict:
		return ErrorConflict
	default:
		return ErrorInternal
	}
}

// Error is a classified service error with a stable machine code and a
// human-readable message that is safe to show to clients.
type Error struct {
	Kind    Kind
	Code    string // machine-readable, e.g. "otp_expired"
	Message string // user-facing
	Detail  string // optional machine detail
	Err     error  // wrapped cause, never shown to clients
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches another *Error by kind and code, or a kind sentinel such as
// ErrorUnauthorized.
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Kind == t.Kind && e.Code == t.Code
	}
	return target == e.Kind.sentinel()
}

// WithDetail returns a copy of e carrying the given detail.
func (e *Error) WithDetail(detail string) *Error {
	c := *e
	c.Detail = detail
	return &c
}

// WithCause returns a copy of e wrapping err.
func (e *Error) WithCause(err error) *Error {
	c := *e
	c.Err = err
	return &c
}

func NewError(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

func Unauthorized(code, message string) *Error {
	return NewError(KindUnauthorized, code, message)
}

func BadRequest(code, message string) *Error {
	return NewError(KindBadRequest, code, message)
}

func Conflict(code, message string) *Error {
	return NewError(KindConflict, code, message)
}

// Internal wraps an unexpected failure. The cause is kept for logging only.
func Internal(message string, cause error) *Error {
	return &Error{Kind: KindInternal, Code: "internal_error", Message: message, Err: cause}
}
