// Package watch provides a tiny "last value wins" broadcast primitive. Every
// DownloadTask holds its current lifecycle state in one and reads it with
// Get; observers only ever care about the latest value, so a channel that
// is recreated on every Set is sufficient — a slow or absent reader never
// blocks the writer.
package watch

import "sync"

// Value holds a single mutable value of type T plus a way for readers to
// be notified of the next change.
type Value[T any] struct {
	mu  sync.Mutex
	val T
	ch  chan struct{}
}

// New creates a Value initialized to v.
func New[T any](v T) *Value[T] {
	return &Value[T]{val: v, ch: make(chan struct{})}
}

// Get returns the current value.
func (w *Value[T]) Get() T {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.val
}

// Set stores v and wakes every goroutine waiting on a channel returned by
// Changed.
func (w *Value[T]) Set(v T) {
	w.mu.Lock()
	w.val = v
	closed := w.ch
	w.ch = make(chan struct{})
	w.mu.Unlock()
	close(closed)
}

// Changed returns the current value and a channel that closes the next
// time Set is called. Callers select on the channel to wake on change
// without polling.
func (w *Value[T]) Changed() (T, <-chan struct{}) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.val, w.ch
}
