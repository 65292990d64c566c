package httpclient

import (
	"context"
	"net/http"
)

// newRequest builds a request and applies options.
func newRequest(method, path string, body any, opts []RequestOption) Request {
	req := Request{
		Method: method,
		Path:   path,
		Body:   body,
	}
	for _, opt := range opts {
		opt(&req)
	}
	return req
}

// Get performs a GET request and decodes the JSON response into type T.
func Get[T any](ctx context.Context, s *Section, path string, opts ...RequestOption) (*T, error) {
	return Value[T](ctx, s, newRequest(http.MethodGet, path, nil, opts))
}

// GetList performs a GET request and decodes a JSON array of T.
func GetList[T any](ctx context.Context, s *Section, path string, opts ...RequestOption) ([]T, error) {
	return List[T](ctx, s, newRequest(http.MethodGet, path, nil, opts))
}

// GetStream performs a GET request and streams a JSON array of T.
func GetStream[T any](ctx context.Context, s *Section, path string, opts ...RequestOption) (*Sequence[T], error) {
	return Stream[T](ctx, s, newRequest(http.MethodGet, path, nil, opts))
}

// Post performs a POST request with a JSON body and decodes the response into type T.
func Post[T any](ctx context.Context, s *Section, path string, body any, opts ...RequestOption) (*T, error) {
	return Value[T](ctx, s, newRequest(http.MethodPost, path, body, opts))
}

// Put performs a PUT request with a JSON body and decodes the response into type T.
func Put[T any](ctx context.Context, s *Section, path string, body any, opts ...RequestOption) (*T, error) {
	return Value[T](ctx, s, newRequest(http.MethodPut, path, body, opts))
}

// Patch performs a PATCH request with a JSON body and decodes the response into type T.
func Patch[T any](ctx context.Context, s *Section, path string, body any, opts ...RequestOption) (*T, error) {
	return Value[T](ctx, s, newRequest(http.MethodPatch, path, body, opts))
}

// Delete performs a DELETE request, discarding any response body.
func Delete(ctx context.Context, s *Section, path string, opts ...RequestOption) error {
	return s.Send(ctx, newRequest(http.MethodDelete, path, nil, opts))
}
