// Package timing attributes latency of outbound HTTP calls by combining
// locally observed timestamps with the time-start/time-end headers echoed
// back by a callee that speaks the same protocol.
package timing

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	HeaderTimeStart = "time-start"
	HeaderTimeEnd   = "time-end"
)

// Field names one of the four timestamps of a Record.
type Field string

const (
	FieldLocalStart  Field = "local_start"
	FieldLocalEnd    Field = "local_end"
	FieldRemoteStart Field = "remote_start"
	FieldRemoteEnd   Field = "remote_end"
)

var fields = []Field{FieldLocalStart, FieldLocalEnd, FieldRemoteStart, FieldRemoteEnd}

// Record holds the timestamps observed for one request URI. A nil field was
// never written (or was lost to eviction).
type Record struct {
	URI         string `json:"uri"`
	LocalStart  *int64 `json:"local_start,omitempty"`
	LocalEnd    *int64 `json:"local_end,omitempty"`
	RemoteStart *int64 `json:"remote_start,omitempty"`
	RemoteEnd   *int64 `json:"remote_end,omitempty"`
}

func (r Record) Complete() bool {
	return r.LocalStart != nil && r.LocalEnd != nil && r.RemoteStart != nil && r.RemoteEnd != nil
}

// set stores a fresh pointer so copies of a Record never observe later writes.
func (r *Record) set(f Field, v int64) {
	switch f {
	case FieldLocalStart:
		r.LocalStart = &v
	case FieldLocalEnd:
		r.LocalEnd = &v
	case FieldRemoteStart:
		r.RemoteStart = &v
	case FieldRemoteEnd:
		r.RemoteEnd = &v
	}
}

// Durations returns local, remote and total latency in nanoseconds. It must
// only be called on a complete record.
//
// total spans the callee's self-reported start to the local receive time, so
// it is only meaningful when both clocks are comparable.
func Durations(r Record) (local, remote, total int64) {
	local = *r.LocalEnd - *r.LocalStart
	remote = *r.RemoteEnd - *r.RemoteStart
	total = *r.LocalEnd - *r.RemoteStart
	return local, remote, total
}

// HeaderError reports a timing header that is present but not an integer.
type HeaderError struct {
	Header string
	Value  string
	Err    error
}

func (e *HeaderError) Error() string {
	return fmt.Sprintf("timing header %s=%q: %v", e.Header, e.Value, e.Err)
}

func (e *HeaderError) Unwrap() error { return e.Err }

// HeaderNanos parses a nanosecond timestamp header. An absent header yields 0.
func HeaderNanos(h http.Header, name string) (int64, error) {
	vals := h.Values(name)
	if len(vals) == 0 {
		return 0, nil
	}
	n, err := strconv.ParseInt(strings.TrimSpace(vals[0]), 10, 64)
	if err != nil {
		return 0, &HeaderError{Header: name, Value: vals[0], Err: err}
	}
	return n, nil
}

// Clock returns a high-resolution timestamp in nanoseconds.
type Clock func() int64

var processStart = time.Now()

// Now is the default Clock: monotonic nanoseconds since process start.
func Now() int64 {
	return int64(time.Since(processStart))
}
