// Package observe decorates http.ResponseWriter instances so logging
// middleware can inspect the response and subscribe to its completion.
package observe

import (
	"net/http"
)

// Writer is the decorator interface for observable http.ResponseWriter
// instances, created with New.
type Writer interface {
	http.ResponseWriter

	// StatusCode returns the status reported through WriteHeader, whether
	// called explicitly or implicitly by the first Write. It returns zero
	// until a header has been written.
	StatusCode() int

	// BytesWritten returns the count of body bytes written so far. It does
	// not consult the Content-Length header.
	BytesWritten() int64

	// OnComplete registers callbacks fired exactly once, after the response
	// has been fully written. Callbacks registered after completion are
	// invoked immediately.
	OnComplete(...func())

	// Complete marks the response fully written and fires the registered
	// callbacks in registration order. Only the first call has any effect.
	// It is called by the layer that owns the writer once the downstream
	// handler chain has returned.
	Complete()
}

type writer struct {
	http.ResponseWriter

	headerWritten bool
	completed     bool
	statusCode    int
	bytesWritten  int64
	onComplete    []func()
}

// New decorates delegate as a Writer. If delegate is already a Writer it is
// returned as is, so nested middleware share one set of completion
// callbacks per response.
func New(delegate http.ResponseWriter) Writer {
	if w, ok := delegate.(Writer); ok {
		return w
	}
	return &writer{ResponseWriter: delegate}
}

func (w *writer) StatusCode() int {
	return w.statusCode
}

func (w *writer) BytesWritten() int64 {
	return w.bytesWritten
}

func (w *writer) WriteHeader(statusCode int) {
	if !w.headerWritten {
		w.statusCode = statusCode
	}
	// repeated WriteHeader calls are a bug the delegate should surface
	w.headerWritten = true
	w.ResponseWriter.WriteHeader(statusCode)
}

func (w *writer) Write(p []byte) (int, error) {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}

	n, err := w.ResponseWriter.Write(p)
	w.bytesWritten += int64(n)
	return n, err
}

// Flush flushes buffered data when the delegate supports it.
func (w *writer) Flush() {
	if !w.headerWritten {
		w.WriteHeader(http.StatusOK)
	}

	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap exposes the delegate for http.ResponseController.
func (w *writer) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

func (w *writer) OnComplete(callbacks ...func()) {
	if w.completed {
		for _, cb := range callbacks {
			cb()
		}
		return
	}
	w.onComplete = append(w.onComplete, callbacks...)
}

func (w *writer) Complete() {
	if w.completed {
		return
	}
	w.completed = true

	callbacks := w.onComplete
	w.onComplete = nil
	for _, cb := range callbacks {
		cb()
	}
}
