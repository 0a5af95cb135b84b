package capture

import "sync"

// Watch is a multi-reader broadcast of the latest value. Subscribers that
// attach after a publish immediately receive the most recent value, so late
// observers never miss the current state.
type Watch[T any] struct {
	mu       sync.Mutex
	value    T
	hasValue bool
	nextID   int
	subs     map[int]chan T
}

// NewWatch constructs an empty watch.
func NewWatch[T any]() *Watch[T] {
	return &Watch[T]{subs: make(map[int]chan T)}
}

// Publish stores v as the latest value and pushes it to every subscriber.
// Slow subscribers keep only the newest value; intermediate values are
// dropped, never queued.
func (w *Watch[T]) Publish(v T) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.value = v
	w.hasValue = true
	for _, ch := range w.subs {
		select {
		case <-ch:
		default:
		}
		ch <- v
	}
}

// Last returns the most recently published value.
func (w *Watch[T]) Last() (T, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.value, w.hasValue
}

// Subscribe registers a listener. The returned channel has capacity one and
// carries the current value immediately when one exists. The cancel func
// removes the subscription.
func (w *Watch[T]) Subscribe() (<-chan T, func()) {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.nextID
	w.nextID++
	ch := make(chan T, 1)
	if w.hasValue {
		ch <- w.value
	}
	w.subs[id] = ch

	cancel := func() {
		w.mu.Lock()
		defer w.mu.Unlock()
		delete(w.subs, id)
	}
	return ch, cancel
}
