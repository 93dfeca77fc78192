package main

import (
	"io"
	"sync"
)

// lineWriter serializes newline-terminated records written from observer
// callbacks.
type lineWriter struct {
	mu  sync.Mutex
	out io.Writer
}

func newLineWriter(out io.Writer) *lineWriter {
	return &lineWriter{out: out}
}

func (w *lineWriter) write(raw []byte) {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, _ = w.out.Write(append(raw, '\n'))
}
