package rpc

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Version is the only protocol version the client speaks.
const Version = "2.0"

// HTTP is the subset of *http.Client the transport needs.
type HTTP interface {
	Do(req *http.Request) (*http.Response, error)
}

// NoParams serializes as an empty JSON array. Servers reject `null` params
// for nullary methods.
type NoParams [0]struct{}

type Request struct {
	Version string `json:"jsonrpc"`
	ID      string `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params"`
}

// Response is a decoded response envelope. Exactly one of Result and Error
// is set after a successful Decode.
type Response struct {
	Version string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ServerError    `json:"error,omitempty"`
}

// ServerError is the error object reported by the node.
//
// Newer nodes add Name and Cause alongside the legacy code/message/data triple,
// e.g. {"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_BLOCK","info":{}}}.
type ServerError struct {
	Code    int64           `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
}

type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *ServerError) Error() string {
	if e.Cause != nil && e.Cause.Name != "" {
		return fmt.Sprintf("%d %s: %s", e.Code, e.Message, e.Cause.Name)
	}
	return fmt.Sprintf("%d %s", e.Code, e.Message)
}
