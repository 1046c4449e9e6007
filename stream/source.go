package stream

import (
	"context"
	"sync"
)

// Source is the push side of an iterator. Producers that generate
// values on their own schedule call Emit; the consumer pulls through
// Iter. Closing the source exhausts the iterator once buffered values
// have drained.
type Source[T any] struct {
	ch        chan T
	closed    chan struct{}
	closeOnce sync.Once
}

// NewSource creates a source with the given buffer capacity. Emit
// blocks once the buffer is full, pushing backpressure onto the
// producer.
func NewSource[T any](buffer int) *Source[T] {
	if buffer < 0 {
		buffer = 0
	}
	return &Source[T]{
		ch:     make(chan T, buffer),
		closed: make(chan struct{}),
	}
}

// Emit pushes one value. It blocks while the buffer is full and returns
// ErrClosed if the source has been closed, or the context error if ctx
// is done first.
func (s *Source[T]) Emit(ctx context.Context, val T) error {
	select {
	case <-s.closed:
		return ErrClosed
	default:
	}
	select {
	case s.ch <- val:
		return nil
	case <-s.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close marks the source exhausted. Values already buffered remain
// readable. Safe to call multiple times.
func (s *Source[T]) Close() {
	s.closeOnce.Do(func() { close(s.closed) })
}

// Iter returns the pull side of the source. Closing the iterator closes
// the source.
func (s *Source[T]) Iter() Iterator[T] {
	return &sourceIter[T]{src: s}
}

type sourceIter[T any] struct {
	src *Source[T]
}

func (it *sourceIter[T]) Next(ctx context.Context) (T, bool, error) {
	// Buffered values win over the closed signal so nothing emitted
	// before Close is lost.
	select {
	case val := <-it.src.ch:
		return val, true, nil
	default:
	}
	select {
	case val := <-it.src.ch:
		return val, true, nil
	case <-it.src.closed:
		select {
		case val := <-it.src.ch:
			return val, true, nil
		default:
			var zero T
			return zero, false, nil
		}
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *sourceIter[T]) Close() error {
	it.src.Close()
	return nil
}
