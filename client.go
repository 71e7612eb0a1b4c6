// Package nearrpc is a typed client for the JSON-RPC 2.0 interface of a NEAR
// node.
//
// Every remote method is a plain Go method on Client returning a typed result
// or an *Error:
//
//	client, err := nearrpc.NewClient("https://rpc.mainnet.near.org")
//	if err != nil {
//		return err
//	}
//	defer client.Close()
//	block, err := client.Block(ctx, nearrpc.BlockRefFinality(nearrpc.FinalityFinal))
//
// Errors distinguish calls that could not be completed (KindInternal),
// unreadable replies (KindParse) and errors reported by the node (KindServer).
// The client never retries.
package nearrpc

import (
	"time"

	"github.com/sebamiro/nearrpc/internal/rpc"
	"github.com/stellar/go/support/log"
)

// Client wrapper of rpc.Client
type Client struct {
	*rpc.Client
}

type (
	Config         = rpc.Config
	HTTP           = rpc.HTTP
	Error          = rpc.Error
	ErrorKind      = rpc.Kind
	ErrorCause     = rpc.ErrorCause
	TransportError = rpc.TransportError
	CodecError     = rpc.CodecError
	NoParams       = rpc.NoParams
)

const (
	KindInternal = rpc.KindInternal
	KindParse    = rpc.KindParse
	KindServer   = rpc.KindServer

	TransportConnectFailed = rpc.TransportConnectFailed
	TransportTimeout       = rpc.TransportTimeout
	TransportIO            = rpc.TransportIO
	TransportStatus        = rpc.TransportStatus

	CodecInvalid       = rpc.CodecInvalid
	CodecMalformed     = rpc.CodecMalformed
	CodecShapeMismatch = rpc.CodecShapeMismatch
)

var (
	IsTimeout     = rpc.IsTimeout
	IsServerError = rpc.IsServerError
)

type options struct {
	cfg rpc.Config
	log *log.Entry
}

type Option func(*options)

// WithConnectTimeout bounds connection establishment. Defaults to 30s.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *options) { o.cfg.ConnectTimeout = d }
}

// WithKeepAlive sets the TCP keep-alive interval. Defaults to 30s.
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) { o.cfg.KeepAlive = d }
}

// WithRateLimit throttles the client to perSecond requests with the given burst.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *options) {
		o.cfg.RateLimit = perSecond
		o.cfg.Burst = burst
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(o *options) {
		if o.cfg.Headers == nil {
			o.cfg.Headers = map[string]string{}
		}
		o.cfg.Headers[key] = value
	}
}

// WithHTTP makes the client send requests through h instead of its own
// http.Client.
func WithHTTP(h HTTP) Option {
	return func(o *options) { o.cfg.HTTP = h }
}

func WithConfig(cfg Config) Option {
	return func(o *options) { o.cfg = cfg }
}

func WithLogger(l *log.Entry) Option {
	return func(o *options) { o.log = l }
}

// NewClient returns a client for the node at url.
func NewClient(url string, opts ...Option) (*Client, error) {
	o := options{cfg: rpc.DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}
	c, err := rpc.NewClient(url, o.cfg)
	if err != nil {
		return nil, err
	}
	if o.log != nil {
		c.Log = o.log
	}
	return &Client{Client: c}, nil
}
