// Package token provides credential sources for the API client.
//
// Cached wraps a fetch function (a login call, a refresh-token exchange, a
// secret store lookup) and reuses its result until the token is close to
// expiry. Expiry is read from the "exp" claim of JWTs; opaque tokens are
// reused until Invalidate is called.
package token

import (
	"context"
	"fmt"
	"sync"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"golang.org/x/sync/singleflight"

	"github.com/kbukum/apikit/httpclient"
	"github.com/kbukum/apikit/logger"
)

const (
	// DefaultLeeway is how long before expiry a token is refreshed.
	DefaultLeeway = 30 * time.Second
	// DefaultFetchTimeout bounds a single fetch.
	DefaultFetchTimeout = 30 * time.Second

	flightKey = "token"
)

// Static returns a source that always yields value. An empty value means
// requests are sent without credentials.
func Static(value string) httpclient.TokenSource {
	return httpclient.StaticToken(value)
}

// FetchFunc obtains a fresh token. Returning "" with a nil error means no
// credential is available.
type FetchFunc func(ctx context.Context) (string, error)

// Cached is a TokenSource that caches the result of a FetchFunc.
// It is safe for concurrent use; concurrent refreshes share one fetch.
type Cached struct {
	fetch        FetchFunc
	leeway       time.Duration
	fetchTimeout time.Duration
	now          func() time.Time
	log          *logger.Logger
	parser       *gojwt.Parser
	flight       singleflight.Group

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

var _ httpclient.TokenSource = (*Cached)(nil)

// Option configures a Cached source.
type Option func(*Cached)

// WithLeeway sets how long before expiry a token is considered stale.
func WithLeeway(d time.Duration) Option {
	return func(c *Cached) { c.leeway = d }
}

// WithFetchTimeout bounds each fetch.
func WithFetchTimeout(d time.Duration) Option {
	return func(c *Cached) { c.fetchTimeout = d }
}

// WithClock replaces time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(c *Cached) { c.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(c *Cached) { c.log = l }
}

// NewCached creates a caching source around fetch.
func NewCached(fetch FetchFunc, opts ...Option) *Cached {
	c := &Cached{
		fetch:        fetch,
		leeway:       DefaultLeeway,
		fetchTimeout: DefaultFetchTimeout,
		now:          time.Now,
		parser:       gojwt.NewParser(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = logger.Get("token")
	}
	return c
}

// Token returns the cached token, fetching a new one when there is none or
// it expires within the leeway. A fetch error is returned and not cached.
func (c *Cached) Token(ctx context.Context) (string, error) {
	if tok, ok := c.cached(); ok {
		return tok, nil
	}

	ch := c.flight.DoChan(flightKey, func() (any, error) {
		if tok, ok := c.cached(); ok {
			return tok, nil
		}
		return c.refresh(ctx)
	})
	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token so the next call fetches again,
// for example after the server rejected it with 401.
func (c *Cached) Invalidate() {
	c.mu.Lock()
	c.token = ""
	c.expiresAt = time.Time{}
	c.mu.Unlock()
}

// ExpiresAt returns the expiry of the cached token, or the zero time if
// there is none or it carries no expiry.
func (c *Cached) ExpiresAt() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.expiresAt
}

func (c *Cached) cached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" {
		return "", false
	}
	if !c.expiresAt.IsZero() && !c.now().Add(c.leeway).Before(c.expiresAt) {
		return "", false
	}
	return c.token, true
}

func (c *Cached) refresh(ctx context.Context) (string, error) {
	fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
	defer cancel()

	tok, err := c.fetch(fetchCtx)
	if err != nil {
		c.log.Warn("token fetch failed", logger.ErrorFields("token fetch", err))
		return "", fmt.Errorf("token: fetch: %w", err)
	}
	if tok == "" {
		c.log.Debug("token source returned no credential")
		return "", nil
	}

	exp := c.expiry(tok)
	if !exp.IsZero() && !c.now().Add(c.leeway).Before(exp) {
		// Usable for this call only; the next call fetches again.
		c.log.Warn("fetched token is already within its expiry leeway", logger.Fields(
			"expires_at", exp.Format(time.RFC3339),
		))
		return tok, nil
	}

	c.mu.Lock()
	c.token = tok
	c.expiresAt = exp
	c.mu.Unlock()
	return tok, nil
}

// expiry reads the exp claim without verifying the signature; the client
// only needs to know when to refresh. Opaque tokens have no expiry.
func (c *Cached) expiry(tok string) time.Time {
	var claims gojwt.RegisteredClaims
	if _, _, err := c.parser.ParseUnverified(tok, &claims); err != nil {
		return time.Time{}
	}
	if claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time
}
