package pebble

import (
	"io"
	"sync/atomic"
	"unicode/utf8"

	"github.com/pebbletemplates/pebble-go/internal/errors"
)

// sizeLimiter counts the characters written during one render. It is shared
// by every writer derived from that render, including the buffers of
// parallel bodies running on other goroutines.
type sizeLimiter struct {
	max     int64
	written atomic.Int64
}

// newSizeLimiter returns nil for a negative maximum, which disables the
// limit.
func newSizeLimiter(max int) *sizeLimiter {
	if max < 0 {
		return nil
	}
	return &sizeLimiter{max: int64(max)}
}

// consume adds n characters and fails once the total exceeds the maximum.
// The counter is incremented before checking so that concurrent writers
// can not both pass the check.
func (l *sizeLimiter) consume(n int) error {
	if l == nil || n == 0 {
		return nil
	}
	if l.written.Add(int64(n)) > l.max {
		return errors.Newf(ErrRenderLimitExceeded, "Tried to write more than %d chars.", l.max)
	}
	return nil
}

func (l *sizeLimiter) count() int64 {
	if l == nil {
		return 0
	}
	return l.written.Load()
}

// limitedWriter charges every write against a sizeLimiter.
type limitedWriter struct {
	w     io.Writer
	limit *sizeLimiter
}

func newLimitedWriter(w io.Writer, limit *sizeLimiter) io.Writer {
	if limit == nil {
		return w
	}
	return &limitedWriter{w: w, limit: limit}
}

func (w *limitedWriter) Write(p []byte) (int, error) {
	if err := w.limit.consume(utf8.RuneCount(p)); err != nil {
		return 0, err
	}
	return w.w.Write(p)
}

func (w *limitedWriter) WriteString(s string) (int, error) {
	if err := w.limit.consume(utf8.RuneCountInString(s)); err != nil {
		return 0, err
	}
	return io.WriteString(w.w, s)
}
