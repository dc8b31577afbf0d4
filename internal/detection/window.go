package detection

// Window is a fixed-capacity FIFO of recent readings. Pushing onto a full
// window evicts the oldest reading.
type Window[T any] struct {
	items    []T
	capacity int
}

// NewWindow creates an empty Window holding at most capacity readings.
// A capacity below one is treated as one.
func NewWindow[T any](capacity int) *Window[T] {
	capacity = max(capacity, 1)
	return &Window[T]{
		items:    make([]T, 0, capacity),
		capacity: capacity,
	}
}

// Push appends v, evicting the oldest reading on overflow.
func (w *Window[T]) Push(v T) {
	if len(w.items) == w.capacity {
		copy(w.items, w.items[1:])
		w.items = w.items[:w.capacity-1]
	}
	w.items = append(w.items, v)
}

func (w *Window[T]) Len() int { return len(w.items) }

func (w *Window[T]) Cap() int { return w.capacity }

// Full reports whether the window holds capacity readings.
func (w *Window[T]) Full() bool { return len(w.items) == w.capacity }

// Values returns a copy of the readings, oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, len(w.items))
	copy(out, w.items)
	return out
}

// Reset discards all readings.
func (w *Window[T]) Reset() {
	w.items = w.items[:0]
}
