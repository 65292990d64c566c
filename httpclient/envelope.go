package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
)

// Kind is the classification of a response, decided once before any
// typed decoding happens.
type Kind int

const (
	// KindEmpty is a successful response with no content.
	KindEmpty Kind = iota
	// KindValue is a successful response holding a single JSON value.
	KindValue
	// KindSequence is a successful response holding a stream of JSON values.
	KindSequence
	// KindRaw is a successful response read as opaque bytes.
	KindRaw
	// KindFailed is a non-2xx response.
	KindFailed
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindValue:
		return "value"
	case KindSequence:
		return "sequence"
	case KindRaw:
		return "raw"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// envelope is a classified response. It owns the response body until
// close is called; for KindEmpty and KindFailed the body is already released.
type envelope struct {
	StatusCode  int
	Kind        Kind
	ContentType string
	Body        io.ReadCloser
	Err         *Error

	release func()
}

// close releases the body and any request-scoped resources. Safe to call
// more than once.
func (e *envelope) close() {
	if e.Body != nil {
		_ = e.Body.Close()
		e.Body = nil
	}
	if e.release != nil {
		e.release()
		e.release = nil
	}
}

// readEnvelope classifies resp. A failure body is read fully before the
// error is built because the connection may not outlive this call.
func readEnvelope(callerCtx context.Context, resp *http.Response, want Kind, release func()) envelope {
	env := envelope{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		release:     release,
	}

	switch {
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		env.Kind = KindFailed
		if err != nil {
			env.Err = classifySendError(callerCtx, fmt.Errorf("read error body: %w", err))
		} else {
			env.Err = NewRequestFailedError(resp.StatusCode, body)
		}
		env.close()
	case resp.StatusCode == http.StatusNoContent || resp.ContentLength == 0:
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
		env.Kind = KindEmpty
		env.close()
	default:
		env.Kind = want
		env.Body = resp.Body
	}
	return env
}

// decodeValue decodes a KindValue envelope into T and closes it.
// A body that turns out to be empty yields (nil, nil).
func decodeValue[T any](callerCtx context.Context, env *envelope) (*T, error) {
	defer env.close()

	switch env.Kind {
	case KindFailed:
		return nil, env.Err
	case KindEmpty:
		return nil, nil
	}

	if err := callerCtx.Err(); err != nil {
		return nil, NewCancelledError(err)
	}

	var v T
	err := json.NewDecoder(env.Body).Decode(&v)
	if err != nil {
		if ctxErr := callerCtx.Err(); ctxErr != nil {
			return nil, NewCancelledError(ctxErr)
		}
		if errors.Is(err, io.EOF) {
			return nil, nil
		}
		if isDecodeFailure(err) {
			return nil, NewDecodeError(env.StatusCode, typeName[T](), err)
		}
		return nil, NewTransportError(fmt.Errorf("read response body: %w", err))
	}
	return &v, nil
}

// readRaw reads a KindRaw envelope fully and closes it.
func readRaw(callerCtx context.Context, env *envelope) ([]byte, error) {
	defer env.close()

	switch env.Kind {
	case KindFailed:
		return nil, env.Err
	case KindEmpty:
		return []byte{}, nil
	}

	data, err := io.ReadAll(env.Body)
	if err != nil {
		return nil, classifySendError(callerCtx, fmt.Errorf("read response body: %w", err))
	}
	return data, nil
}

// isDecodeFailure reports whether err came from the JSON decoder rather
// than from reading the body.
func isDecodeFailure(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	var unmarshalErr *json.InvalidUnmarshalError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.As(err, &unmarshalErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

func typeName[T any]() string {
	return reflect.TypeFor[T]().String()
}
