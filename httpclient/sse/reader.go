// Package sse reads Server-Sent Events from a response body.
package sse

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// maxLineSize bounds a single event line.
const maxLineSize = 1 << 20

// Event is one dispatched server-sent event.
type Event struct {
	// Event is the event type (from "event:"). Empty for data-only events.
	Event string
	// Data is the payload; multiple "data:" lines are joined with "\n".
	Data string
	// ID is the last event ID (from "id:").
	ID string
	// Retry is the reconnection time in milliseconds, 0 if not sent.
	Retry int
}

// Reader reads server-sent events from a stream.
type Reader interface {
	// Next returns the next event. Returns io.EOF when the stream ends.
	Next() (*Event, error)
	// Close releases the underlying stream.
	Close() error
}

type reader struct {
	scanner *bufio.Scanner
	body    io.ReadCloser
	lastID  string
}

// NewReader creates an event reader over body.
func NewReader(body io.ReadCloser) Reader {
	s := bufio.NewScanner(body)
	s.Buffer(make([]byte, 0, 4096), maxLineSize)
	return &reader{scanner: s, body: body}
}

// Next returns the next event with a non-empty data field.
func (r *reader) Next() (*Event, error) {
	var (
		ev      Event
		data    []string
		hasData bool
	)

	for r.scanner.Scan() {
		line := strings.TrimSuffix(r.scanner.Text(), "\r")

		if line == "" {
			if hasData {
				ev.Data = strings.Join(data, "\n")
				ev.ID = r.lastID
				return &ev, nil
			}
			ev = Event{}
			continue
		}
		if line[0] == ':' {
			continue
		}

		field, value := splitField(line)
		switch field {
		case "data":
			data = append(data, value)
			hasData = true
		case "event":
			ev.Event = value
		case "id":
			if !strings.ContainsRune(value, 0) {
				r.lastID = value
			}
		case "retry":
			if n, err := strconv.Atoi(value); err == nil {
				ev.Retry = n
			}
		}
	}

	if err := r.scanner.Err(); err != nil {
		return nil, err
	}
	if hasData {
		ev.Data = strings.Join(data, "\n")
		ev.ID = r.lastID
		return &ev, nil
	}
	return nil, io.EOF
}

// Close releases the underlying stream.
func (r *reader) Close() error {
	return r.body.Close()
}

// splitField splits "field: value", dropping one leading space of value.
func splitField(line string) (field, value string) {
	field, value, found := strings.Cut(line, ":")
	if !found {
		return line, ""
	}
	return field, strings.TrimPrefix(value, " ")
}
