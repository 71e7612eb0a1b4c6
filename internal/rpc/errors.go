package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Codes assigned to failures detected on the client side.
const (
	CodeParseError    = -32700
	CodeInternalError = -32000
)

type Kind int

const (
	// KindInternal means the call could not be completed: the request did
	// not serialize or the transport failed.
	KindInternal Kind = iota
	// KindParse means the node answered with something that is not a valid
	// envelope or does not fit the expected result type.
	KindParse
	// KindServer means the node rejected the request with an error object.
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindInternal:
		return "internal error"
	case KindParse:
		return "parse error"
	case KindServer:
		return "server error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error is the single error type returned by a call. For KindServer the
// node's error object is copied verbatim; for the other kinds Err holds the
// *TransportError or *CodecError that caused it.
type Error struct {
	Kind    Kind
	Method  string
	Code    int64
	Message string
	Data    json.RawMessage
	Name    string
	Cause   *ErrorCause
	Err     error
}

func (e *Error) Error() string {
	if e.Kind == KindServer {
		if e.Cause != nil && e.Cause.Name != "" {
			return fmt.Sprintf("rpc %s: %s %d: %s (%s)", e.Method, e.Kind, e.Code, e.Message, e.Cause.Name)
		}
		return fmt.Sprintf("rpc %s: %s %d: %s", e.Method, e.Kind, e.Code, e.Message)
	}
	return fmt.Sprintf("rpc %s: %s: %v", e.Method, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func internalError(method string, err error) *Error {
	return &Error{Kind: KindInternal, Method: method, Code: CodeInternalError, Message: err.Error(), Err: err}
}

func parseError(method string, err error) *Error {
	return &Error{Kind: KindParse, Method: method, Code: CodeParseError, Message: err.Error(), Err: err}
}

func serverError(method string, se *ServerError) *Error {
	return &Error{
		Kind:    KindServer,
		Method:  method,
		Code:    se.Code,
		Message: se.Message,
		Data:    se.Data,
		Name:    se.Name,
		Cause:   se.Cause,
		Err:     se,
	}
}

// IsServerError reports whether err was reported by the node itself.
func IsServerError(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == KindServer
}

// IsTimeout reports whether err is a transport timeout.
func IsTimeout(err error) bool {
	var te *TransportError
	return errors.As(err, &te) && te.Kind == TransportTimeout
}
