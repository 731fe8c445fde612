package logger

import (
	"bufio"
	"errors"
	"io"
	"sync"
)

var errWriterClosed = errors.New("logger: writer closed")

// asyncWriter copies lines to its sinks on a background goroutine. Lines
// are buffered per sink and flushed whenever the queue runs dry, so a burst
// costs one syscall per sink. A failing sink is reported once and skipped
// afterwards; the others keep receiving lines.
type asyncWriter struct {
	queue chan []byte
	flush chan chan error
	done  chan struct{}

	mu     sync.RWMutex
	closed bool

	sinks  []*bufio.Writer
	failed []bool
	errMu  sync.Mutex
	err    error
}

func newAsyncWriter(writers []io.Writer, bufSize int) *asyncWriter {
	if bufSize <= 0 {
		bufSize = asyncBufferSize
	}
	w := &asyncWriter{
		queue: make(chan []byte, 256),
		flush: make(chan chan error),
		done:  make(chan struct{}),
	}
	for _, out := range writers {
		if out != nil {
			w.sinks = append(w.sinks, bufio.NewWriterSize(out, bufSize))
		}
	}
	w.failed = make([]bool, len(w.sinks))
	go w.loop()
	return w
}

func (w *asyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case line, ok := <-w.queue:
			if !ok {
				w.flushSinks()
				return
			}
			w.writeSinks(line)
			if len(w.queue) == 0 {
				w.flushSinks()
			}
		case ack := <-w.flush:
			// Drain what was queued before the request.
			for n := len(w.queue); n > 0; n-- {
				w.writeSinks(<-w.queue)
			}
			w.flushSinks()
			ack <- w.error()
		}
	}
}

// Write queues a copy of p. It blocks while the queue is full.
func (w *asyncWriter) Write(p []byte) error {
	if len(p) == 0 {
		return nil
	}
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.closed {
		return errWriterClosed
	}
	w.queue <- append([]byte(nil), p...)
	return nil
}

// Flush waits until every line queued so far reached the sinks.
func (w *asyncWriter) Flush() error {
	w.mu.RLock()
	if w.closed {
		w.mu.RUnlock()
		return w.error()
	}
	ack := make(chan error, 1)
	w.flush <- ack
	w.mu.RUnlock()
	return <-ack
}

// Close drains the queue and returns the first sink error.
func (w *asyncWriter) Close() error {
	w.mu.Lock()
	if !w.closed {
		w.closed = true
		close(w.queue)
	}
	w.mu.Unlock()
	<-w.done
	return w.error()
}

func (w *asyncWriter) writeSinks(p []byte) {
	for i, s := range w.sinks {
		if w.failed[i] {
			continue
		}
		if _, err := s.Write(p); err != nil {
			w.fail(i, err)
		}
	}
}

func (w *asyncWriter) flushSinks() {
	for i, s := range w.sinks {
		if w.failed[i] {
			continue
		}
		if err := s.Flush(); err != nil {
			w.fail(i, err)
		}
	}
}

func (w *asyncWriter) fail(i int, err error) {
	w.failed[i] = true
	w.errMu.Lock()
	w.err = errors.Join(w.err, err)
	w.errMu.Unlock()
}

func (w *asyncWriter) error() error {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	return w.err
}
