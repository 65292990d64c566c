package httpclient

import (
	"context"
	"net/http"
)

// TokenSource produces the bearer credential for outbound requests.
// An empty token with a nil error means no credential is available.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// TokenSourceFunc adapts a function to TokenSource.
type TokenSourceFunc func(ctx context.Context) (string, error)

// Token implements TokenSource.
func (f TokenSourceFunc) Token(ctx context.Context) (string, error) {
	return f(ctx)
}

// StaticToken returns a TokenSource that always yields token.
func StaticToken(token string) TokenSource {
	return TokenSourceFunc(func(context.Context) (string, error) {
		return token, nil
	})
}

// AnonymousPaths is an immutable set of request paths that are sent
// without credentials.
type AnonymousPaths struct {
	paths map[string]struct{}
}

// NewAnonymousPaths builds an anonymous path set.
func NewAnonymousPaths(paths ...string) AnonymousPaths {
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return AnonymousPaths{paths: set}
}

// Contains reports whether path is in the set. Matching is exact.
func (a AnonymousPaths) Contains(path string) bool {
	_, ok := a.paths[path]
	return ok
}

// Len returns the number of paths in the set.
func (a AnonymousPaths) Len() int {
	return len(a.paths)
}

// ShouldAttach reports whether a request to path needs credentials.
// Only an exact member of anonymous is exempt; prefixes never match.
func ShouldAttach(path string, anonymous AnonymousPaths) bool {
	return !anonymous.Contains(path)
}

// applyToken sets the bearer header. An empty token leaves the request
// unauthenticated and the server's own 401 handling applies.
func applyToken(req *http.Request, token string) bool {
	if token == "" {
		return false
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return true
}
