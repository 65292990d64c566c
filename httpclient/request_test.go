package httpclient

import (
	"io"
	"strings"
	"testing"
)

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base  string
		path  string
		query map[string]string
		want  string
	}{
		{"https://api.example.com", "/users", nil, "https://api.example.com/users"},
		{"https://api.example.com/", "users", nil, "https://api.example.com/users"},
		{"https://api.example.com/v1", "/users/1", nil, "https://api.example.com/v1/users/1"},
		{"https://api.example.com", "https://other.example.com/x", nil, "https://other.example.com/x"},
		{"", "/users", nil, "/users"},
		{"https://api.example.com", "/search", map[string]string{"q": "a b"}, "https://api.example.com/search?q=a+b"},
	}
	for _, tt := range tests {
		got, err := resolveURL(tt.base, tt.path, tt.query)
		if err != nil {
			t.Errorf("resolveURL(%q, %q) error = %v", tt.base, tt.path, err)
			continue
		}
		if got != tt.want {
			t.Errorf("resolveURL(%q, %q) = %q, want %q", tt.base, tt.path, got, tt.want)
		}
	}
}

func TestEncodeBody(t *testing.T) {
	tests := []struct {
		name     string
		body     any
		wantType string
		wantBody string
	}{
		{"nil", nil, "", ""},
		{"string", "hello", "text/plain", "hello"},
		{"bytes", []byte("raw"), "", "raw"},
		{"reader", strings.NewReader("stream"), "", "stream"},
		{"struct", user{ID: 1, Name: "a"}, "application/json", `{"id":1,"name":"a"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, ct, err := encodeBody(tt.body)
			if err != nil {
				t.Fatalf("encodeBody() error = %v", err)
			}
			if ct != tt.wantType {
				t.Errorf("content type = %q, want %q", ct, tt.wantType)
			}
			if r == nil {
				if tt.wantBody != "" {
					t.Errorf("nil reader, want %q", tt.wantBody)
				}
				return
			}
			data, _ := io.ReadAll(r)
			if string(data) != tt.wantBody {
				t.Errorf("body = %q, want %q", data, tt.wantBody)
			}
		})
	}
}

func TestRequestOptions(t *testing.T) {
	req := newRequest("GET", "/x", nil, []RequestOption{
		WithHeader("A", "1"),
		WithQueryParam("p", "2"),
		WithBody("b"),
	})
	if req.Headers["A"] != "1" || req.Query["p"] != "2" || req.Body != "b" {
		t.Errorf("options not applied: %+v", req)
	}
}
