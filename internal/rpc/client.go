package rpc

import (
	"context"
	"encoding/json"
	"reflect"
	"time"

	"github.com/stellar/go/support/errors"
	"github.com/stellar/go/support/log"
)

// Client implements remote calls to a JSON-RPC 2.0 http server. A Client is
// safe for concurrent use; calls share nothing but the transport.
type Client struct {
	URL string
	Log *log.Entry

	transport *Transport
}

// NewClient returns a client posting to url over a transport built from cfg.
func NewClient(url string, cfg Config) (*Client, error) {
	t, err := NewTransport(cfg)
	if err != nil {
		return nil, errors.Wrap(err, "rpc, transport")
	}
	return &Client{
		URL:       url,
		Log:       log.DefaultLogger.WithField("pkg", "nearrpc"),
		transport: t,
	}, nil
}

// Close releases the transport's idle connections.
func (c *Client) Close() {
	c.transport.Close()
}

// RawCall calls method with params and returns the undecoded result. Nil
// params are sent as [].
func (c *Client) RawCall(ctx context.Context, method string, params any) (json.RawMessage, error) {
	start := time.Now()
	l := c.Log.WithField("method", method)

	b, id, err := Encode(method, params)
	if err != nil {
		return nil, internalError(method, err)
	}
	l = l.WithField("id", id)

	body, sendErr := c.transport.Send(ctx, c.URL, b)
	if sendErr != nil && !isStatus(sendErr) {
		l.WithFields(log.F{"err": sendErr, "duration": time.Since(start)}).Warn("rpc, transport failure")
		return nil, internalError(method, sendErr)
	}

	resp, err := Decode(body)
	if err != nil {
		if sendErr != nil {
			return nil, internalError(method, sendErr)
		}
		return nil, parseError(method, err)
	}
	if err := correlate(resp, id); err != nil {
		return nil, parseError(method, err)
	}

	l = l.WithField("duration", time.Since(start))
	if resp.Error != nil {
		l.WithField("code", resp.Error.Code).Debug("rpc, server error")
		return nil, serverError(method, resp.Error)
	}
	l.Debug("rpc, ok")
	return resp.Result, nil
}

// Call is the typed form of RawCall: the result is decoded into R.
func Call[P, R any](ctx context.Context, c *Client, method string, params P) (R, error) {
	var zero R
	raw, err := c.RawCall(ctx, method, params)
	if err != nil {
		return zero, err
	}
	r, err := DecodeResult[R](raw)
	if err != nil {
		return zero, parseError(method, err)
	}
	return r, nil
}

// CallResult executes a call, with params if any, and saves the result into
// the pointer passed as result. result is only written when the whole call
// succeeds.
func (c *Client) CallResult(ctx context.Context, method string, result any, params any) error {
	rv := reflect.ValueOf(result)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return internalError(method, &CodecError{Kind: CodecInvalid, Err: errors.Errorf("result must be a non-nil pointer, got %T", result)})
	}
	raw, err := c.RawCall(ctx, method, params)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		raw = null
	}
	t := rv.Elem().Type()
	out := reflect.New(t)
	if err := json.Unmarshal(raw, out.Interface()); err != nil {
		return parseError(method, &CodecError{Kind: CodecShapeMismatch, Err: err})
	}
	if field := missingField(t, raw); field != "" {
		return parseError(method, &CodecError{Kind: CodecShapeMismatch, Field: field})
	}
	rv.Elem().Set(out.Elem())
	return nil
}

// correlate checks the response id against the request id. Only failure
// envelopes may omit the id or send null, as servers do for parse errors.
func correlate(resp *Response, id string) error {
	if len(resp.ID) == 0 || isNull(resp.ID) {
		if resp.Error != nil {
			return nil
		}
		return &CodecError{Kind: CodecMalformed, Err: errors.New("response carries a result but no id")}
	}
	var got string
	if err := json.Unmarshal(resp.ID, &got); err != nil || got != id {
		return &CodecError{Kind: CodecMalformed, Err: errors.Errorf("response id %s does not match request id %q", resp.ID, id)}
	}
	return nil
}

func isStatus(err error) bool {
	te, ok := err.(*TransportError)
	return ok && te.Kind == TransportStatus
}
