package httpclient

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/kbukum/apikit/httpclient/sse"
)

var (
	// Done is returned by Sequence.Next when the sequence is exhausted.
	// Check with errors.Is(err, httpclient.Done).
	Done = errors.New("httpclient: no more items in sequence")

	// ErrClosed is returned by Sequence.Next after Close.
	ErrClosed = errors.New("httpclient: sequence closed")
)

type streamMode int

const (
	modeUnknown streamMode = iota
	modeArray
	modeValues
	modeEvents
)

// Sequence is a lazy, single-pass sequence of values decoded from a
// streamed response body. Values are decoded one at a time as Next is
// called; the body stays open until the sequence ends, fails, is closed,
// or its context is cancelled.
//
// A top-level JSON array is streamed element by element. Newline-delimited
// or concatenated JSON values and text/event-stream bodies are supported
// as well.
//
// Next must be called from one goroutine at a time. Close may be called
// from any goroutine.
type Sequence[T any] struct {
	ctx        context.Context
	statusCode int
	body       io.ReadCloser
	src        *readTracker
	release    func()
	stopCancel func() bool

	mode   streamMode
	br     *bufio.Reader
	dec    *json.Decoder
	events sse.Reader

	count     int
	err       error
	closed    atomic.Bool
	closeOnce sync.Once
}

// newSequence takes ownership of env.
func newSequence[T any](ctx context.Context, env envelope) *Sequence[T] {
	s := &Sequence[T]{
		ctx:        ctx,
		statusCode: env.StatusCode,
		release:    env.release,
	}

	if env.Kind == KindEmpty || env.Body == nil {
		s.err = Done
		s.closeOnce.Do(func() {
			s.closed.Store(true)
			if s.release != nil {
				s.release()
			}
		})
		return s
	}

	s.body = env.Body
	s.src = &readTracker{r: env.Body}
	if strings.Contains(env.ContentType, "text/event-stream") {
		s.mode = modeEvents
		s.events = sse.NewReader(io.NopCloser(s.src))
	}
	s.stopCancel = context.AfterFunc(ctx, func() { _ = s.Close() })
	return s
}

// Next returns the next value. It returns Done when the sequence is
// exhausted, a cancellation error when the context is cancelled, and a
// decode error at the first malformed element. After any error the
// sequence is closed and Next keeps returning that error.
func (s *Sequence[T]) Next() (T, error) {
	var zero T
	if s.err != nil {
		return zero, s.err
	}
	if err := s.ctx.Err(); err != nil {
		return zero, s.fail(NewCancelledError(err))
	}
	if s.closed.Load() {
		return zero, s.fail(ErrClosed)
	}

	var (
		v   T
		err error
	)
	switch s.mode {
	case modeEvents:
		v, err = s.nextEvent()
	default:
		v, err = s.nextJSON()
	}
	if err != nil {
		if errors.Is(err, Done) {
			s.err = Done
			_ = s.Close()
			return zero, Done
		}
		return zero, s.fail(s.classify(err))
	}

	s.count++
	return v, nil
}

// nextJSON decodes the next value of an array or value stream.
func (s *Sequence[T]) nextJSON() (T, error) {
	var v T

	if s.mode == modeUnknown {
		if err := s.detect(); err != nil {
			return v, err
		}
	}

	if s.mode == modeArray {
		if !s.dec.More() {
			tok, err := s.dec.Token()
			if err != nil {
				if errors.Is(err, io.EOF) {
					return v, io.ErrUnexpectedEOF
				}
				return v, err
			}
			if d, ok := tok.(json.Delim); !ok || d != ']' {
				return v, fmt.Errorf("unexpected token %v at end of array", tok)
			}
			return v, Done
		}
		if err := s.dec.Decode(&v); err != nil {
			if errors.Is(err, io.EOF) {
				return v, io.ErrUnexpectedEOF
			}
			return v, err
		}
		return v, nil
	}

	if err := s.dec.Decode(&v); err != nil {
		if errors.Is(err, io.EOF) {
			return v, Done
		}
		return v, err
	}
	return v, nil
}

// detect peeks at the first significant byte to choose between array
// and value-stream decoding.
func (s *Sequence[T]) detect() error {
	s.br = bufio.NewReader(s.src)
	for {
		b, err := s.br.ReadByte()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return Done
			}
			return err
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		if err := s.br.UnreadByte(); err != nil {
			return err
		}
		s.dec = json.NewDecoder(s.br)
		switch b {
		case '[':
			if _, err := s.dec.Token(); err != nil {
				return err
			}
			s.mode = modeArray
		case 'n':
			// A top-level null is an empty result, as it is for List.
			var raw json.RawMessage
			if err := s.dec.Decode(&raw); err != nil {
				return err
			}
			return Done
		default:
			s.mode = modeValues
		}
		return nil
	}
}

// nextEvent decodes the data of the next server-sent event.
func (s *Sequence[T]) nextEvent() (T, error) {
	var v T
	ev, err := s.events.Next()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return v, Done
		}
		return v, err
	}
	if err := json.Unmarshal([]byte(ev.Data), &v); err != nil {
		return v, err
	}
	return v, nil
}

// classify maps a read or decode failure to a client error.
func (s *Sequence[T]) classify(err error) error {
	if ctxErr := s.ctx.Err(); ctxErr != nil {
		return NewCancelledError(ctxErr)
	}
	if s.closed.Load() {
		return ErrClosed
	}
	if s.src != nil && s.src.err != nil {
		return NewTransportError(fmt.Errorf("read stream: %w", s.src.err))
	}
	return NewDecodeError(s.statusCode, typeName[T](), fmt.Errorf("element %d: %w", s.count, err))
}

// fail records a terminal error and releases the stream.
func (s *Sequence[T]) fail(err error) error {
	s.err = err
	_ = s.Close()
	return err
}

// Count returns the number of values produced so far.
func (s *Sequence[T]) Count() int {
	return s.count
}

// Close releases the response body. It is safe to call more than once and
// from any goroutine.
func (s *Sequence[T]) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		if s.stopCancel != nil {
			s.stopCancel()
		}
		if s.body != nil {
			err = s.body.Close()
		}
		if s.release != nil {
			s.release()
		}
	})
	return err
}

// All returns an iterator over the remaining values for use with range.
// Iteration stops after the first error, which is yielded once. The
// sequence is closed when the loop ends, including on early break.
//
//	for item, err := range seq.All() {
//	    if err != nil {
//	        return err
//	    }
//	    process(item)
//	}
func (s *Sequence[T]) All() iter.Seq2[T, error] {
	return func(yield func(T, error) bool) {
		defer s.Close()
		for {
			v, err := s.Next()
			if errors.Is(err, Done) {
				return
			}
			if !yield(v, err) || err != nil {
				return
			}
		}
	}
}

// Collect drains the sequence into a slice. Values produced before an
// error are returned along with it.
func (s *Sequence[T]) Collect() ([]T, error) {
	out := []T{}
	for v, err := range s.All() {
		if err != nil {
			return out, err
		}
		out = append(out, v)
	}
	return out, nil
}

// readTracker remembers the first non-EOF read error so a broken
// connection is not reported as malformed content.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF && t.err == nil {
		t.err = err
	}
	return n, err
}
