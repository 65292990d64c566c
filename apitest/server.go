// Package apitest provides a fake API server for exercising clients in
// tests. Routes are registered on a gin engine served by httptest.
package apitest

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/kbukum/apikit/errors"
)

// HealthPath is the liveness route served by every Server.
const HealthPath = "/health"

// Server is a fake API with a liveness endpoint and per-route hit counters.
// Register routes before issuing requests.
type Server struct {
	*httptest.Server

	engine *gin.Engine

	mu           sync.Mutex
	hits         map[string]int
	headers      map[string]http.Header
	healthStatus string
	healthDelay  time.Duration
}

// NewServer starts a server that reports itself Healthy. It is closed
// when the test ends.
func NewServer(t testing.TB) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	s := &Server{
		engine:       gin.New(),
		hits:         make(map[string]int),
		headers:      make(map[string]http.Header),
		healthStatus: "Healthy",
	}
	s.engine.Use(s.record)
	s.engine.GET(HealthPath, s.serveHealth)

	s.Server = httptest.NewServer(s.engine)
	t.Cleanup(s.Close)
	return s
}

func key(method, path string) string {
	return method + " " + path
}

func (s *Server) record(c *gin.Context) {
	k := key(c.Request.Method, c.Request.URL.Path)
	s.mu.Lock()
	s.hits[k]++
	s.headers[k] = c.Request.Header.Clone()
	s.mu.Unlock()
	c.Next()
}

func (s *Server) serveHealth(c *gin.Context) {
	s.mu.Lock()
	status, delay := s.healthStatus, s.healthDelay
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-c.Request.Context().Done():
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// SetHealth changes the status reported by the liveness endpoint.
func (s *Server) SetHealth(status string) {
	s.mu.Lock()
	s.healthStatus = status
	s.mu.Unlock()
}

// SetHealthDelay makes the liveness endpoint wait d before answering.
func (s *Server) SetHealthDelay(d time.Duration) {
	s.mu.Lock()
	s.healthDelay = d
	s.mu.Unlock()
}

// Hits returns how many requests reached method and path.
func (s *Server) Hits(method, path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[key(method, path)]
}

// HealthHits returns how many liveness requests were served.
func (s *Server) HealthHits() int {
	return s.Hits(http.MethodGet, HealthPath)
}

// LastHeader returns the header of the most recent request to method and
// path, or nil if there was none.
func (s *Server) LastHeader(method, path string) http.Header {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.headers[key(method, path)]
}

// Handle registers a custom handler.
func (s *Server) Handle(method, path string, h gin.HandlerFunc) {
	s.engine.Handle(method, path, h)
}

// JSON registers a route answering with status and body encoded as JSON.
func (s *Server) JSON(method, path string, status int, body any) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		c.JSON(status, body)
	})
}

// NoContent registers a route answering 204.
func (s *Server) NoContent(method, path string) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
}

// Raw registers a route answering with a verbatim body.
func (s *Server) Raw(method, path string, status int, contentType, body string) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		c.Data(status, contentType, []byte(body))
	})
}

// Problem registers a route answering with the structured error body of err.
func (s *Server) Problem(method, path string, err error) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		var appErr *apperrors.AppError
		if errors.As(err, &appErr) {
			c.JSON(appErr.HTTPStatus, appErr.ToResponse())
			return
		}
		c.JSON(http.StatusInternalServerError, apperrors.Internal(err).ToResponse())
	})
}

// StreamOption configures a streamed route.
type StreamOption func(*streamConfig)

type streamConfig struct {
	holdAfter int
	released  chan struct{}
}

// HoldAfter makes the route stop after writing n items and keep the
// connection open until the client goes away. The returned channel is
// closed once the handler has observed the disconnect.
func HoldAfter(n int, released chan struct{}) StreamOption {
	return func(c *streamConfig) {
		c.holdAfter = n
		c.released = released
	}
}

// Stream registers a route writing items as a chunked JSON array, one
// flushed element at a time.
func (s *Server) Stream(method, path string, items []any, opts ...StreamOption) {
	cfg := streamConfig{holdAfter: -1}
	for _, opt := range opts {
		opt(&cfg)
	}

	s.engine.Handle(method, path, func(c *gin.Context) {
		c.Header("Content-Type", "application/json")
		c.Status(http.StatusOK)
		w := c.Writer

		_, _ = w.WriteString("[")
		w.Flush()
		for i, item := range items {
			if i == cfg.holdAfter {
				<-c.Request.Context().Done()
				if cfg.released != nil {
					close(cfg.released)
				}
				return
			}
			if i > 0 {
				_, _ = w.WriteString(",")
			}
			data, err := json.Marshal(item)
			if err != nil {
				return
			}
			_, _ = w.Write(data)
			w.Flush()
		}
		_, _ = w.WriteString("]")
		w.Flush()
	})
}

// Events registers a route writing each item as a text/event-stream event.
func (s *Server) Events(method, path string, items []any) {
	s.engine.Handle(method, path, func(c *gin.Context) {
		c.Header("Content-Type", "text/event-stream")
		c.Status(http.StatusOK)
		w := c.Writer
		for _, item := range items {
			data, err := json.Marshal(item)
			if err != nil {
				return
			}
			_, _ = w.WriteString("data: " + string(data) + "\n\n")
			w.Flush()
		}
	})
}
