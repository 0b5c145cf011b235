package sqliteserial

import "sync"

// fifo is an unbounded queue with a single consumer.
type fifo[T any] struct {
	mu     sync.Mutex
	items  []T
	closed bool
	wake   chan struct{}
}

func newFIFO[T any]() *fifo[T] {
	return &fifo[T]{wake: make(chan struct{}, 1)}
}

// push appends item. It reports false once the fifo is closed.
func (f *fifo[T]) push(item T) bool {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return false
	}
	f.items = append(f.items, item)
	f.mu.Unlock()
	f.signal()
	return true
}

func (f *fifo[T]) close() {
	f.mu.Lock()
	f.closed = true
	f.mu.Unlock()
	f.signal()
}

// pop blocks until an item is available, or returns false once the fifo is
// closed and drained.
func (f *fifo[T]) pop() (T, bool) {
	for {
		f.mu.Lock()
		if len(f.items) > 0 {
			item := f.items[0]
			var zero T
			f.items[0] = zero
			f.items = f.items[1:]
			f.mu.Unlock()
			return item, true
		}
		if f.closed {
			f.mu.Unlock()
			var zero T
			return zero, false
		}
		f.mu.Unlock()
		<-f.wake
	}
}

func (f *fifo[T]) signal() {
	select {
	case f.wake <- struct{}{}:
	default:
	}
}
