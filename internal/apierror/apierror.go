// Package apierror defines the error taxonomy shared by the panel and the
// daemon, and the HTTP status each kind maps to. It is adapted from the
// teacher's ComplexError (pkg/commands/errors.go): a typed code carried
// alongside a message, so calling code can branch on the kind without
// string-matching, here wrapping github.com/go-errors/errors for the stack
// trace instead of golang.org/x/xerrors, since the latter is not otherwise
// used anywhere in this module.
package apierror

import (
	"fmt"
	"net/http"

	goerrors "github.com/go-errors/errors"
)

// Kind is the taxonomy named in spec.md §7.
type Kind int

const (
	KindInternal Kind = iota
	KindDatabase
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindBadRequest
	KindAgentError
)

func (k Kind) httpStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindBadRequest:
		return http.StatusBadRequest
	case KindAgentError:
		return http.StatusBadGateway
	case KindDatabase, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func (k Kind) String() string {
	switch k {
	case KindDatabase:
		return "database"
	case KindNotFound:
		return "not_found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindBadRequest:
		return "bad_request"
	case KindAgentError:
		return "agent_error"
	default:
		return "internal"
	}
}

// Error carries a Kind alongside a message and the underlying cause, with a
// stack trace attached at the point it was first wrapped.
type Error struct {
	Kind    Kind
	Message string
	cause   error
	stack   *goerrors.Error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s", e.Message, e.cause.Error())
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.cause }

// StackTrace renders the stack captured when this error was constructed,
// useful in logged fields without printing it on every response.
func (e *Error) StackTrace() string {
	if e.stack == nil {
		return ""
	}
	return string(e.stack.Stack())
}

// HTTPStatus maps the error's Kind to the status code the API layer writes.
func (e *Error) HTTPStatus() int { return e.Kind.httpStatus() }

func wrap(kind Kind, message string, cause error) *Error {
	return &Error{
		Kind:    kind,
		Message: message,
		cause:   cause,
		stack:   goerrors.Wrap(fmt.Errorf("%s", message), 1).(*goerrors.Error),
	}
}

func Internal(message string, cause error) *Error     { return wrap(KindInternal, message, cause) }
func Database(message string, cause error) *Error     { return wrap(KindDatabase, message, cause) }
func NotFound(message string) *Error                  { return wrap(KindNotFound, message, nil) }
func Unauthorized(message string) *Error              { return wrap(KindUnauthorized, message, nil) }
func Forbidden(message string) *Error                 { return wrap(KindForbidden, message, nil) }
func BadRequest(message string) *Error                { return wrap(KindBadRequest, message, nil) }
func AgentError(message string, cause error) *Error   { return wrap(KindAgentError, message, cause) }

// As extracts an *Error from err, matching errors.As semantics.
func As(err error) (*Error, bool) {
	var target *Error
	for err != nil {
		if e, ok := err.(*Error); ok {
			return e, true
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return target, false
}
