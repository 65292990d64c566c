// Package version reports the apikit version sent in the client's
// User-Agent header.
//
// The version is read from the build info of the binary that imports
// apikit, or set explicitly with -ldflags:
//
//	go build -ldflags "-X github.com/kbukum/apikit/version.Version=v1.2.0"
package version
