package circuit

import (
	"sync"

	"github.com/pkg/errors"
)

// DefaultHandleCapacity is the bounded queue capacity spec.md §4.12
// assigns input/output handles when none is configured.
const DefaultHandleCapacity = 1000

// ErrHandleClosed is returned by Send/Publish once Complete has been
// called.
var ErrHandleClosed = errors.New("circuit: handle closed")

// InputHandle wraps a bounded channel feeding one circuit input. Send and
// Complete are serialized by an internal mutex, so several writers may
// share one handle.
type InputHandle[T any] struct {
	handle StreamHandle
	ch     chan T

	mu     sync.Mutex
	closed bool
}

// NewInputHandle constructs an InputHandle bound to handle with the given
// queue capacity (<=0 uses DefaultHandleCapacity).
func NewInputHandle[T any](handle StreamHandle, capacity int) *InputHandle[T] {
	if capacity <= 0 {
		capacity = DefaultHandleCapacity
	}
	return &InputHandle[T]{handle: handle, ch: make(chan T, capacity)}
}

// Send enqueues v, returning ErrHandleClosed if Complete was already
// called, or a separate "queue full" error if the queue is at capacity
// (the bounded queue never blocks the caller; callers wanting
// backpressure should check the error and retry).
func (h *InputHandle[T]) Send(v T) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	select {
	case h.ch <- v:
		return nil
	default:
		return errors.New("circuit: input handle queue full")
	}
}

// Complete closes the writer side; further Send calls fail.
func (h *InputHandle[T]) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.ch)
}

// Reader exposes the receive-only channel for internal consumption by the
// operator bound to this handle's node.
func (h *InputHandle[T]) Reader() <-chan T {
	return h.ch
}

// Node returns the node id this handle carries values into.
func (h *InputHandle[T]) Node() NodeId { return h.handle.Node }

// OutputHandle wraps a bounded channel draining one circuit output and
// caches the most recently published value for synchronous readers.
type OutputHandle[T any] struct {
	handle StreamHandle
	ch     chan T

	mu      sync.Mutex
	current T
	hasVal  bool
	closed  bool
}

// NewOutputHandle constructs an OutputHandle bound to handle.
func NewOutputHandle[T any](handle StreamHandle, capacity int) *OutputHandle[T] {
	if capacity <= 0 {
		capacity = DefaultHandleCapacity
	}
	return &OutputHandle[T]{handle: handle, ch: make(chan T, capacity)}
}

// PublishAsync enqueues v for readers and updates the cached current
// value.
func (h *OutputHandle[T]) PublishAsync(v T) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrHandleClosed
	}
	h.current = v
	h.hasVal = true
	select {
	case h.ch <- v:
		return nil
	default:
		return errors.New("circuit: output handle queue full")
	}
}

// GetCurrentValue returns the most recently published value, or the zero
// value and false if nothing has been published yet.
func (h *OutputHandle[T]) GetCurrentValue() (T, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.current, h.hasVal
}

// Complete closes the handle; further PublishAsync calls fail.
func (h *OutputHandle[T]) Complete() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	close(h.ch)
}

// Reader exposes the receive-only channel for downstream consumers.
func (h *OutputHandle[T]) Reader() <-chan T {
	return h.ch
}

func (h *OutputHandle[T]) Node() NodeId { return h.handle.Node }
