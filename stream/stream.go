// Package stream provides pull-based asynchronous sequences.
//
// An Iterator yields values on demand, giving each consumer natural
// backpressure: a slow consumer simply pulls less often. Producers that
// generate values on their own schedule (network handlers, capture
// loops) push into a Source and hand its Iter to the consumer.
//
// Merge fans several iterators into one. Values are yielded as they
// become available from any input; no cross-input ordering is imposed
// and no input can block another.
package stream

import (
	"context"
	"errors"
	"sync"
)

// Iterator provides pull-based sequential access to a stream of values.
type Iterator[T any] interface {
	// Next returns the next value. Returns (zero, false, nil) when exhausted.
	Next(ctx context.Context) (T, bool, error)
	// Close releases any resources held by the iterator.
	Close() error
}

// ErrClosed is returned by Source.Emit after the source has been closed.
var ErrClosed = errors.New("stream: source closed")

// result carries a value or error through a channel.
type result[T any] struct {
	val T
	ok  bool
	err error
}

// channelIter reads values from a result channel. Used by Merge.
type channelIter[T any] struct {
	ch     <-chan result[T]
	closer func() error
}

func (it *channelIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case r, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return r.val, r.ok, r.err
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *channelIter[T]) Close() error {
	if it.closer != nil {
		return it.closer()
	}
	return nil
}

// --- Constructors ---

// FromSlice returns an iterator over the elements of items.
func FromSlice[T any](items []T) Iterator[T] {
	return &sliceIter[T]{items: items}
}

// FromChannel returns an iterator that yields values received from ch
// and exhausts when ch is closed.
func FromChannel[T any](ch <-chan T) Iterator[T] {
	return &recvIter[T]{ch: ch}
}

// --- Combinators ---

// Map transforms each value using fn.
func Map[I, O any](source Iterator[I], fn func(I) O) Iterator[O] {
	return &mapIter[I, O]{source: source, fn: fn}
}

// Filter keeps only values that satisfy the predicate.
func Filter[T any](source Iterator[T], fn func(T) bool) Iterator[T] {
	return &filterIter[T]{source: source, fn: fn}
}

// Merge combines multiple iterators concurrently. Each input is pumped
// by its own goroutine, so a stalled input never delays the others, and
// per-input order is preserved. The merged iterator exhausts only after
// every input has exhausted. Closing it cancels the pumps and closes
// all inputs.
func Merge[T any](ctx context.Context, sources ...Iterator[T]) Iterator[T] {
	mergeCtx, cancel := context.WithCancel(ctx)
	ch := make(chan result[T], len(sources))
	var wg sync.WaitGroup

	for _, src := range sources {
		wg.Add(1)
		go func(iter Iterator[T]) {
			defer wg.Done()
			for {
				val, ok, err := iter.Next(mergeCtx)
				if err != nil {
					select {
					case ch <- result[T]{err: err}:
					case <-mergeCtx.Done():
					}
					return
				}
				if !ok {
					return
				}
				select {
				case ch <- result[T]{val: val, ok: true}:
				case <-mergeCtx.Done():
					return
				}
			}
		}(src)
	}

	go func() {
		wg.Wait()
		close(ch)
	}()

	return &channelIter[T]{
		ch: ch,
		closer: func() error {
			cancel()
			var firstErr error
			for _, src := range sources {
				if err := src.Close(); err != nil && firstErr == nil {
					firstErr = err
				}
			}
			return firstErr
		},
	}
}

// --- Terminals ---

// Collect pulls all values from the iterator and returns them as a slice.
// The iterator is closed before returning.
func Collect[T any](ctx context.Context, iter Iterator[T]) ([]T, error) {
	defer iter.Close()
	var out []T
	for {
		val, ok, err := iter.Next(ctx)
		if err != nil {
			return out, err
		}
		if !ok {
			return out, nil
		}
		out = append(out, val)
	}
}

// --- Iterator implementations ---

type sliceIter[T any] struct {
	items []T
	index int
}

func (it *sliceIter[T]) Next(_ context.Context) (T, bool, error) {
	if it.index >= len(it.items) {
		var zero T
		return zero, false, nil
	}
	val := it.items[it.index]
	it.index++
	return val, true, nil
}

func (it *sliceIter[T]) Close() error { return nil }

type recvIter[T any] struct {
	ch <-chan T
}

func (it *recvIter[T]) Next(ctx context.Context) (T, bool, error) {
	select {
	case val, open := <-it.ch:
		if !open {
			var zero T
			return zero, false, nil
		}
		return val, true, nil
	case <-ctx.Done():
		var zero T
		return zero, false, ctx.Err()
	}
}

func (it *recvIter[T]) Close() error { return nil }

type mapIter[I, O any] struct {
	source Iterator[I]
	fn     func(I) O
}

func (it *mapIter[I, O]) Next(ctx context.Context) (O, bool, error) {
	val, ok, err := it.source.Next(ctx)
	if err != nil || !ok {
		var zero O
		return zero, false, err
	}
	return it.fn(val), true, nil
}

func (it *mapIter[I, O]) Close() error { return it.source.Close() }

type filterIter[T any] struct {
	source Iterator[T]
	fn     func(T) bool
}

func (it *filterIter[T]) Next(ctx context.Context) (T, bool, error) {
	for {
		val, ok, err := it.source.Next(ctx)
		if err != nil || !ok {
			return val, false, err
		}
		if it.fn(val) {
			return val, true, nil
		}
	}
}

func (it *filterIter[T]) Close() error { return it.source.Close() }
