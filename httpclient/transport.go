package httpclient

import (
	"context"
	"net/http"
	"time"

	"golang.org/x/net/http2"
)

// Transport sends a prepared HTTP request and returns the raw response.
// The caller owns the response body and must close it.
type Transport interface {
	Send(ctx context.Context, req *http.Request) (*http.Response, error)
}

// TransportFunc adapts a function to Transport.
type TransportFunc func(ctx context.Context, req *http.Request) (*http.Response, error)

// Send implements Transport.
func (f TransportFunc) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return f(ctx, req)
}

// HTTPTransport is the net/http backed Transport.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport builds a transport from the TLS and HTTP/2 settings of cfg.
// Timeouts are applied per request by the client, not here, so that
// streaming responses are bounded only by their context.
func NewHTTPTransport(cfg Config) (*HTTPTransport, error) {
	base := http.DefaultTransport.(*http.Transport).Clone()

	if cfg.TLS != nil {
		tlsCfg, err := cfg.TLS.Build()
		if err != nil {
			return nil, err
		}
		if tlsCfg != nil {
			base.TLSClientConfig = tlsCfg
		}
	}

	if cfg.HTTP2 {
		if err := http2.ConfigureTransport(base); err != nil {
			return nil, NewInvalidRequestError("configure http2", err)
		}
	}

	return &HTTPTransport{client: &http.Client{Transport: base}}, nil
}

// NewHTTPTransportFromClient wraps an existing *http.Client.
func NewHTTPTransportFromClient(c *http.Client) *HTTPTransport {
	return &HTTPTransport{client: c}
}

// Send implements Transport.
func (t *HTTPTransport) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	return t.client.Do(req.WithContext(ctx))
}

// Unwrap returns the underlying *http.Client for advanced use cases.
func (t *HTTPTransport) Unwrap() *http.Client {
	return t.client
}

// Close releases idle connections.
func (t *HTTPTransport) Close() {
	t.client.CloseIdleConnections()
}

// withTimeout derives a request context bounded by d. A non-positive d
// returns ctx unchanged.
func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}
