package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/time/rate"
)

const (
	DefaultConnectTimeout = 30 * time.Second
	DefaultKeepAlive      = 30 * time.Second
)

// Config configures a Transport. The zero value of every field except
// ConnectTimeout and KeepAlive disables the feature.
type Config struct {
	// ConnectTimeout bounds establishing the TCP connection and TLS handshake.
	// It does not bound the request as a whole.
	ConnectTimeout time.Duration
	// KeepAlive is the TCP keep-alive probe interval of pooled connections.
	KeepAlive time.Duration

	// RateLimit caps outgoing requests per second, shared by every call on
	// the transport.
	RateLimit float64
	Burst     int

	// Headers are added to every request, e.g. an API key for hosted nodes.
	Headers map[string]string

	// HTTP replaces the built-in client. Timeouts and keep-alive are then the
	// caller's business.
	HTTP HTTP

	// DialContext replaces the default dialer. ConnectTimeout still applies.
	DialContext func(ctx context.Context, network, addr string) (net.Conn, error)
}

func DefaultConfig() Config {
	return Config{
		ConnectTimeout: DefaultConnectTimeout,
		KeepAlive:      DefaultKeepAlive,
	}
}

type TransportErrorKind int

const (
	TransportConnectFailed TransportErrorKind = iota
	TransportTimeout
	TransportIO
	// TransportStatus is a non-2xx reply whose body is not a JSON-RPC envelope.
	TransportStatus
)

func (k TransportErrorKind) String() string {
	switch k {
	case TransportConnectFailed:
		return "connect failed"
	case TransportTimeout:
		return "timeout"
	case TransportIO:
		return "io"
	case TransportStatus:
		return "bad status"
	}
	return fmt.Sprintf("transport(%d)", int(k))
}

// TransportError is a failure to exchange bytes with the node.
type TransportError struct {
	Kind       TransportErrorKind
	Op         string
	StatusCode int
	Err        error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport %s: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Transport performs one HTTP POST per Send over a shared client. It is safe
// for concurrent use.
type Transport struct {
	http    HTTP
	headers http.Header
	limiter *rate.Limiter
}

// NewTransport builds the shared HTTP client described by cfg.
func NewTransport(cfg Config) (*Transport, error) {
	t := &Transport{
		http:    cfg.HTTP,
		headers: make(http.Header, len(cfg.Headers)),
	}
	for k, v := range cfg.Headers {
		t.headers.Set(k, v)
	}
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	if t.http != nil {
		return t, nil
	}

	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.KeepAlive == 0 {
		cfg.KeepAlive = DefaultKeepAlive
	}
	dialer := &net.Dialer{Timeout: cfg.ConnectTimeout, KeepAlive: cfg.KeepAlive}
	dial := dialer.DialContext
	if cfg.DialContext != nil {
		dial = cfg.DialContext
	}
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			ctx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
			defer cancel()
			return dial(ctx, network, addr)
		},
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   cfg.ConnectTimeout,
		ExpectContinueTimeout: time.Second,
	}
	// a custom DialContext turns off net/http's implicit HTTP/2
	if _, err := http2.ConfigureTransports(tr); err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}
	t.http = &http.Client{Transport: tr}
	return t, nil
}

// Send posts body to url and returns the full response body. A non-2xx reply
// returns both the body and a TransportStatus error, since nodes also report
// JSON-RPC errors with 4xx/5xx codes.
func (t *Transport) Send(ctx context.Context, url string, body []byte) ([]byte, error) {
	if t.limiter != nil {
		if err := t.limiter.Wait(ctx); err != nil {
			// Wait fails early when the deadline would pass before a token frees up
			kind := TransportTimeout
			if errors.Is(err, context.Canceled) {
				kind = TransportIO
			}
			return nil, &TransportError{Kind: kind, Op: "throttle", Err: err}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, &TransportError{Kind: TransportIO, Op: "new request", Err: err}
	}
	for k, v := range t.headers {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Accept", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return nil, &TransportError{Kind: classify(err), Op: "post", Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Kind: classify(err), Op: "read body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return b, &TransportError{
			Kind:       TransportStatus,
			Op:         "post",
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("bad status %s: %q", resp.Status, snippet(b)),
		}
	}
	return b, nil
}

// Close releases idle pooled connections.
func (t *Transport) Close() {
	if c, ok := t.http.(interface{ CloseIdleConnections() }); ok {
		c.CloseIdleConnections()
	}
}

const snippetLen = 128

// snippet returns the start of a response body for error messages.
func snippet(b []byte) []byte {
	b = bytes.TrimSpace(b)
	if len(b) > snippetLen {
		return b[:snippetLen]
	}
	return b
}

func classify(err error) TransportErrorKind {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TransportTimeout
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TransportTimeout
	}
	var op *net.OpError
	if errors.As(err, &op) && op.Op == "dial" {
		return TransportConnectFailed
	}
	return TransportIO
}
