package httpclient

import (
	"context"
	"io"
)

// Section is a group of related API operations sharing one set of
// anonymous paths. Sections are cheap; create one per resource area.
type Section struct {
	client    *Client
	name      string
	anonymous AnonymousPaths
}

// Name returns the section name.
func (s *Section) Name() string {
	return s.name
}

// Client returns the dispatcher the section sends through.
func (s *Section) Client() *Client {
	return s.client
}

// RequiresAuth reports whether a request to path carries credentials.
func (s *Section) RequiresAuth(path string) bool {
	return ShouldAttach(path, s.anonymous)
}

// Send performs a call whose response body is not needed. It succeeds
// for any 2xx response, including 204.
func (s *Section) Send(ctx context.Context, req Request) error {
	env, err := s.client.dispatch(ctx, s.anonymous, req, KindRaw)
	if err != nil {
		return err
	}
	defer env.close()
	if env.Body != nil {
		_, _ = io.Copy(io.Discard, env.Body)
	}
	return nil
}

// Bytes performs a call and returns the raw response body. An empty
// response yields an empty, non-nil slice.
func (s *Section) Bytes(ctx context.Context, req Request) ([]byte, error) {
	env, err := s.client.dispatch(ctx, s.anonymous, req, KindRaw)
	if err != nil {
		return nil, err
	}
	return readRaw(ctx, &env)
}

// Text performs a call and returns the response body as a string.
func (s *Section) Text(ctx context.Context, req Request) (string, error) {
	data, err := s.Bytes(ctx, req)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Value performs a call and decodes a single JSON value. A response with
// no content yields (nil, nil).
func Value[T any](ctx context.Context, s *Section, req Request) (*T, error) {
	env, err := s.client.dispatch(ctx, s.anonymous, req, KindValue)
	if err != nil {
		return nil, err
	}
	return decodeValue[T](ctx, &env)
}

// List performs a call and decodes a JSON array. A response with no
// content, or a JSON null, yields an empty non-nil slice.
func List[T any](ctx context.Context, s *Section, req Request) ([]T, error) {
	v, err := Value[[]T](ctx, s, req)
	if err != nil {
		return nil, err
	}
	if v == nil || *v == nil {
		return []T{}, nil
	}
	return *v, nil
}

// Stream performs a call and returns a lazily decoded sequence over the
// response body. The caller must Close the sequence or drain it.
func Stream[T any](ctx context.Context, s *Section, req Request) (*Sequence[T], error) {
	env, err := s.client.dispatch(ctx, s.anonymous, req, KindSequence)
	if err != nil {
		return nil, err
	}
	return newSequence[T](ctx, env), nil
}
