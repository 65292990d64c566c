package httpclient

import (
	"context"
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/kbukum/apikit/security"
	"github.com/kbukum/apikit/security/tlstest"
)

func TestHTTPTransport_TLS(t *testing.T) {
	certs := tlstest.GenerateTLSCerts(t)

	srv := httptest.NewUnstartedServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":7}`))
	}))
	srv.TLS = &tls.Config{Certificates: []tls.Certificate{certs.ServerTLS}}
	srv.EnableHTTP2 = true
	srv.StartTLS()
	defer srv.Close()

	for _, h2 := range []bool{false, true} {
		c, err := New(Config{
			BaseURL: srv.URL,
			TLS:     &security.TLSConfig{CAFile: certs.CAFile},
			HTTP2:   h2,
		})
		if err != nil {
			t.Fatalf("New(http2=%v) error = %v", h2, err)
		}
		u, err := Get[user](context.Background(), c.Section("s"), "/users/7")
		if err != nil {
			t.Fatalf("Get(http2=%v) error = %v", h2, err)
		}
		if u.ID != 7 {
			t.Errorf("id = %d, want 7", u.ID)
		}
		_ = c.Close(context.Background())
	}
}

func TestHTTPTransport_UnknownCA(t *testing.T) {
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer srv.Close()

	c, err := New(Config{BaseURL: srv.URL, Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	err = c.Section("s").Send(context.Background(), Request{Method: http.MethodGet, Path: "/"})
	if !IsTransport(err) {
		t.Errorf("expected transport error for untrusted certificate, got %v", err)
	}
}

func TestHTTPTransport_BadCAFile(t *testing.T) {
	_, err := New(Config{BaseURL: "https://localhost", TLS: &security.TLSConfig{CAFile: "/does/not/exist.pem"}})
	if err == nil {
		t.Fatal("expected error for missing CA file")
	}
}

func TestHTTPTransport_FromClient(t *testing.T) {
	hc := &http.Client{}
	tr := NewHTTPTransportFromClient(hc)
	if tr.Unwrap() != hc {
		t.Error("Unwrap() does not return the wrapped client")
	}
}
