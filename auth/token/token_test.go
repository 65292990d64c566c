package token

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/kbukum/apikit/apitest"
	"github.com/kbukum/apikit/httpclient"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func signJWT(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := gojwt.RegisteredClaims{Subject: "user-1"}
	if !exp.IsZero() {
		claims.ExpiresAt = gojwt.NewNumericDate(exp)
	}
	tok, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func TestStatic(t *testing.T) {
	tok, err := Static("abc").Token(context.Background())
	if err != nil || tok != "abc" {
		t.Errorf("Static().Token() = %q, %v", tok, err)
	}
}

func TestCached_OpaqueUntilInvalidate(t *testing.T) {
	var fetches atomic.Int32
	c := NewCached(func(context.Context) (string, error) {
		fetches.Add(1)
		return "opaque-token", nil
	})

	for i := 0; i < 3; i++ {
		tok, err := c.Token(context.Background())
		if err != nil || tok != "opaque-token" {
			t.Fatalf("Token() = %q, %v", tok, err)
		}
	}
	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", fetches.Load())
	}
	if !c.ExpiresAt().IsZero() {
		t.Errorf("ExpiresAt() = %v, want zero for opaque token", c.ExpiresAt())
	}

	c.Invalidate()
	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches after Invalidate = %d, want 2", fetches.Load())
	}
}

func TestCached_RefreshesNearExpiry(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	exp := clk.Now().Add(time.Hour)

	var fetches atomic.Int32
	c := NewCached(func(context.Context) (string, error) {
		fetches.Add(1)
		return signJWT(t, exp), nil
	}, WithClock(clk.Now))

	if _, err := c.Token(context.Background()); err != nil {
		t.Fatalf("Token() error = %v", err)
	}
	if !c.ExpiresAt().Equal(exp) {
		t.Errorf("ExpiresAt() = %v, want %v", c.ExpiresAt(), exp)
	}

	clk.Advance(59 * time.Minute)
	_, _ = c.Token(context.Background())
	if fetches.Load() != 1 {
		t.Errorf("fetches before leeway = %d, want 1", fetches.Load())
	}

	clk.Advance(31 * time.Second)
	_, _ = c.Token(context.Background())
	if fetches.Load() != 2 {
		t.Errorf("fetches inside leeway = %d, want 2", fetches.Load())
	}
}

func TestCached_ExpiredTokenNotCached(t *testing.T) {
	clk := &clock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	var fetches atomic.Int32
	c := NewCached(func(context.Context) (string, error) {
		fetches.Add(1)
		return signJWT(t, clk.Now().Add(-time.Minute)), nil
	}, WithClock(clk.Now))

	for i := 0; i < 2; i++ {
		tok, err := c.Token(context.Background())
		if err != nil || tok == "" {
			t.Fatalf("Token() = %q, %v", tok, err)
		}
	}
	if fetches.Load() != 2 {
		t.Errorf("fetches = %d, want 2", fetches.Load())
	}
}

func TestCached_ErrorsAndAbsence(t *testing.T) {
	boom := errors.New("login failed")
	results := []struct {
		tok string
		err error
	}{
		{"", boom},
		{"", nil},
		{"good", nil},
	}
	var i atomic.Int32
	c := NewCached(func(context.Context) (string, error) {
		r := results[i.Add(1)-1]
		return r.tok, r.err
	})

	if _, err := c.Token(context.Background()); !errors.Is(err, boom) {
		t.Errorf("first Token() error = %v, want %v", err, boom)
	}
	if tok, err := c.Token(context.Background()); tok != "" || err != nil {
		t.Errorf("second Token() = %q, %v; want absent", tok, err)
	}
	if tok, err := c.Token(context.Background()); tok != "good" || err != nil {
		t.Errorf("third Token() = %q, %v", tok, err)
	}
}

func TestCached_ConcurrentRefreshShared(t *testing.T) {
	release := make(chan struct{})
	var fetches atomic.Int32
	c := NewCached(func(context.Context) (string, error) {
		fetches.Add(1)
		<-release
		return "shared", nil
	})

	var wg sync.WaitGroup
	results := make([]string, 10)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = c.Token(context.Background())
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	if fetches.Load() != 1 {
		t.Errorf("fetches = %d, want 1", fetches.Load())
	}
	for i, r := range results {
		if r != "shared" {
			t.Errorf("caller %d got %q", i, r)
		}
	}
}

func TestCached_CallerCancelled(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	c := NewCached(func(context.Context) (string, error) {
		<-release
		return "late", nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := c.Token(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Token() error = %v, want deadline exceeded", err)
	}
}

func TestCached_WithClient(t *testing.T) {
	srv := apitest.NewServer(t)
	srv.JSON(http.MethodGet, "/me", http.StatusOK, map[string]string{"name": "a"})

	source := NewCached(func(context.Context) (string, error) { return "from-login", nil })
	client, err := httpclient.New(httpclient.Config{BaseURL: srv.URL}, httpclient.WithTokenSource(source))
	if err != nil {
		t.Fatalf("httpclient.New() error = %v", err)
	}

	if _, err := httpclient.Get[map[string]string](context.Background(), client.Section("me"), "/me"); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got := srv.LastHeader(http.MethodGet, "/me").Get("Authorization"); got != "Bearer from-login" {
		t.Errorf("Authorization = %q", got)
	}
}
