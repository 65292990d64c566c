package httpclient

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/apikit/logger"
	"github.com/kbukum/apikit/observability"
	"github.com/kbukum/apikit/version"
)

const (
	acceptJSON   = "application/json"
	acceptStream = "application/json, application/x-ndjson, text/event-stream"
)

// Client is the request dispatcher shared by every resource section.
// It is safe for concurrent use; calls share no mutable state.
type Client struct {
	config    Config
	transport Transport
	tokens    TokenSource
	log       *logger.Logger
	metrics   *observability.Metrics
	userAgent string
}

// Option configures a Client.
type Option func(*Client)

// WithTransport replaces the default net/http transport.
func WithTransport(t Transport) Option {
	return func(c *Client) { c.transport = t }
}

// WithTokenSource sets the bearer credential provider.
func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

// WithLogger sets the logger used for request diagnostics.
func WithLogger(l *logger.Logger) Option {
	return func(c *Client) { c.log = l }
}

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client with the given configuration.
func New(cfg Config, opts ...Option) (*Client, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	c := &Client{
		config:    cfg,
		userAgent: version.UserAgent(),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.transport == nil {
		t, err := NewHTTPTransport(cfg)
		if err != nil {
			return nil, err
		}
		c.transport = t
	}
	if c.log == nil {
		c.log = logger.Get("httpclient").WithFields(logger.Fields(logger.FieldClient, cfg.Name))
	}

	return c, nil
}

// Section returns a resource section whose requests to any of
// anonymousPaths are sent without credentials.
func (c *Client) Section(name string, anonymousPaths ...string) *Section {
	return &Section{
		client:    c,
		name:      name,
		anonymous: NewAnonymousPaths(anonymousPaths...),
	}
}

// Config returns the client's effective configuration.
func (c *Client) Config() Config {
	return c.config
}

// Transport returns the transport requests are sent through.
func (c *Client) Transport() Transport {
	return c.transport
}

// Close releases idle connections held by the default transport.
func (c *Client) Close(_ context.Context) error {
	if t, ok := c.transport.(*HTTPTransport); ok {
		t.Close()
	}
	return nil
}

// dispatch sends req and classifies the response. Every call shape goes
// through here. On success the returned envelope must be closed by the
// caller; on error nothing is left open.
func (c *Client) dispatch(ctx context.Context, anonymous AnonymousPaths, req Request, want Kind) (envelope, error) {
	if err := ctx.Err(); err != nil {
		return envelope{}, NewCancelledError(err)
	}

	start := time.Now()
	requestID := uuid.NewString()

	ctx, span := observability.StartSpan(ctx, observability.SpanHTTPRequest)
	defer span.End()
	span.SetAttributes(
		attribute.String("http.method", req.Method),
		attribute.String("http.path", req.Path),
		attribute.String(observability.AttrClient, c.config.Name),
		attribute.String(observability.AttrRequestID, requestID),
	)
	c.metrics.RecordRequestStart(ctx, c.config.Name)

	// Streams are bounded by the caller's context only.
	reqCtx, cancel := ctx, context.CancelFunc(func() {})
	if want != KindSequence {
		reqCtx, cancel = withTimeout(ctx, c.config.Timeout)
	}

	httpReq, buildErr := c.buildRequest(reqCtx, req, requestID, want)
	if buildErr != nil {
		cancel()
		return envelope{}, c.fail(ctx, span, req, requestID, start, buildErr)
	}
	observability.InjectHeaders(ctx, propagation.HeaderCarrier(httpReq.Header))

	if ShouldAttach(req.Path, anonymous) && c.tokens != nil {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return envelope{}, c.fail(ctx, span, req, requestID, start, NewCancelledError(ctx.Err()))
			}
			return envelope{}, c.fail(ctx, span, req, requestID, start, NewTokenError(err))
		}
		if !applyToken(httpReq, token) {
			c.log.Debug("no credential available, sending unauthenticated", logger.Fields(
				logger.FieldOperation, req.Method+" "+req.Path,
				logger.FieldRequestID, requestID,
			))
		}
	}

	resp, err := c.transport.Send(reqCtx, httpReq)
	if err != nil {
		cancel()
		return envelope{}, c.fail(ctx, span, req, requestID, start, classifySendError(ctx, err))
	}

	env := readEnvelope(ctx, resp, want, cancel)
	span.SetAttributes(attribute.Int("http.status_code", env.StatusCode))
	if env.Kind == KindFailed {
		return envelope{}, c.fail(ctx, span, req, requestID, start, env.Err)
	}

	c.finish(ctx, req, start, strconv.Itoa(env.StatusCode))
	c.log.Debug("request completed", logger.Fields(
		logger.FieldOperation, req.Method+" "+req.Path,
		logger.FieldStatus, env.StatusCode,
		logger.FieldRequestID, requestID,
		logger.FieldDuration, time.Since(start).Milliseconds(),
		"kind", env.Kind.String(),
	))
	return env, nil
}

// buildRequest constructs an *http.Request from the client config and request.
func (c *Client) buildRequest(ctx context.Context, req Request, requestID string, want Kind) (*http.Request, *Error) {
	url, err := resolveURL(c.config.BaseURL, req.Path, req.Query)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("resolve url: %v", err), err)
	}

	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("encode body: %v", err), err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, url, body)
	if err != nil {
		return nil, NewInvalidRequestError(fmt.Sprintf("create request: %v", err), err)
	}

	accept := acceptJSON
	if want == KindSequence {
		accept = acceptStream
	}
	httpReq.Header.Set("Accept", accept)
	httpReq.Header.Set("User-Agent", c.userAgent)
	httpReq.Header.Set(c.config.ClientIDHeader, c.config.ClientID)
	httpReq.Header.Set(c.config.RequestIDHeader, requestID)

	for k, v := range c.config.Headers {
		httpReq.Header.Set(k, v)
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	if body != nil && httpReq.Header.Get("Content-Type") == "" && contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}

	return httpReq, nil
}

// fail records a failed call and returns err unchanged.
func (c *Client) fail(ctx context.Context, span trace.Span, req Request, requestID string, start time.Time, err *Error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Code.String())

	status := err.Code.String()
	if err.StatusCode > 0 {
		status = strconv.Itoa(err.StatusCode)
	}
	c.finish(context.WithoutCancel(ctx), req, start, status)

	fields := logger.Fields(
		logger.FieldOperation, req.Method+" "+req.Path,
		logger.FieldStatus, status,
		logger.FieldRequestID, requestID,
		logger.FieldDuration, time.Since(start).Milliseconds(),
		logger.FieldError, err.Error(),
	)
	if err.Code == ErrCodeCancelled {
		c.log.Debug("request cancelled", fields)
	} else {
		c.log.Warn("request failed", fields)
	}
	return err
}

func (c *Client) finish(ctx context.Context, req Request, start time.Time, status string) {
	c.metrics.RecordRequestEnd(ctx, c.config.Name, req.Method, status, time.Since(start))
}
