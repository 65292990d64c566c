// Package errors defines the problem body exchanged with the API: a
// machine-readable code, a message and a retryable hint. The client
// decodes failed responses into it; the test server writes it.
package errors
