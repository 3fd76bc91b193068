package pebble

import (
	"io"
	"sync"
)

// futureWriter splices the output of parallel bodies into the document in
// order. While no parallel output is pending, writes go straight to the
// sink. Once a chunk is pending, later writes are queued behind it until
// Flush.
type futureWriter struct {
	sink    io.Writer
	mu      sync.Mutex
	pending []*chunk
}

// chunk is either plain text written after a pending chunk, or the future
// output of a parallel body, completed when done is closed.
type chunk struct {
	done chan struct{}
	text string
	err  error
}

func newFutureWriter(sink io.Writer) *futureWriter {
	return &futureWriter{sink: sink}
}

func (w *futureWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.pending) == 0 {
		return w.sink.Write(p)
	}
	w.pending = append(w.pending, &chunk{text: string(p)})
	return len(p), nil
}

// enqueue reserves a position for output that is produced later.
func (w *futureWriter) enqueue() *chunk {
	c := &chunk{done: make(chan struct{})}
	w.mu.Lock()
	w.pending = append(w.pending, c)
	w.mu.Unlock()
	return c
}

func (c *chunk) complete(text string, err error) {
	c.text = text
	c.err = err
	close(c.done)
}

// Flush waits for every pending chunk, writes them in order and flushes the
// sink when it supports it. The first failed chunk aborts the flush.
func (w *futureWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.pending) > 0 {
		c := w.pending[0]
		if c.done != nil {
			<-c.done
		}
		w.pending = w.pending[1:]
		if c.err != nil {
			w.pending = nil
			return c.err
		}
		if _, err := io.WriteString(w.sink, c.text); err != nil {
			w.pending = nil
			return err
		}
	}
	return flushSink(w.sink)
}

type flusher interface {
	Flush() error
}

func flushSink(w io.Writer) error {
	if f, ok := w.(flusher); ok {
		return f.Flush()
	}
	return nil
}
