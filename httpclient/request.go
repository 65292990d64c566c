package httpclient

import (
	"bytes"
	"encoding/json"
	"io"
	"net/url"
	"strings"
)

// Request describes an outbound API call. It is built per call and not
// retained after dispatch.
type Request struct {
	// Method is the HTTP method (GET, POST, PUT, PATCH, DELETE, etc).
	Method string
	// Path is relative to the client's BaseURL. Credential decisions are
	// made against this exact value.
	Path string
	// Query are URL query parameters.
	Query map[string]string
	// Headers are request-specific headers (merged over client defaults).
	Headers map[string]string
	// Body is the request payload. Accepts io.Reader, []byte, string, or any
	// value that will be JSON-encoded.
	Body any
}

// RequestOption configures a single request.
type RequestOption func(*Request)

// WithHeader adds a header to the request.
func WithHeader(key, value string) RequestOption {
	return func(r *Request) {
		if r.Headers == nil {
			r.Headers = make(map[string]string)
		}
		r.Headers[key] = value
	}
}

// WithQueryParam adds a query parameter to the request.
func WithQueryParam(key, value string) RequestOption {
	return func(r *Request) {
		if r.Query == nil {
			r.Query = make(map[string]string)
		}
		r.Query[key] = value
	}
}

// WithBody sets the request payload.
func WithBody(body any) RequestOption {
	return func(r *Request) {
		r.Body = body
	}
}

// resolveURL joins the base URL and the request path, then applies query
// parameters.
func resolveURL(base, path string, query map[string]string) (string, error) {
	raw := path
	if base != "" && !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		raw = strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if len(query) == 0 {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, v := range query {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// encodeBody converts a body value into an io.Reader and content type.
func encodeBody(body any) (io.Reader, string, error) {
	if body == nil {
		return nil, "", nil
	}
	switch v := body.(type) {
	case io.Reader:
		return v, "", nil
	case []byte:
		return bytes.NewReader(v), "", nil
	case string:
		return strings.NewReader(v), "text/plain", nil
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return nil, "", err
		}
		return bytes.NewReader(data), "application/json", nil
	}
}
