package otel

import "sync"

// DefaultRingSize is the default ring buffer capacity.
const DefaultRingSize = 1024

// RingBuffer is a fixed-size circular buffer of Events for the debug overlay.
// Goroutine-safe: the poller and the UI both push.
type RingBuffer struct {
	mu    sync.Mutex
	buf   []Event
	size  int
	head  int // next write position
	count int // valid entries (0..size)
}

// NewRingBuffer creates a ring buffer with the given capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = DefaultRingSize
	}
	return &RingBuffer{
		buf:  make([]Event, size),
		size: size,
	}
}

// Push adds an event, overwriting the oldest if full.
// The Extra map is copied so later mutation by the caller is not observed.
func (r *RingBuffer) Push(e Event) {
	if e.Extra != nil {
		cp := make(map[string]any, len(e.Extra))
		for k, v := range e.Extra {
			cp[k] = v
		}
		e.Extra = cp
	}
	r.mu.Lock()
	r.buf[r.head] = e
	r.head = (r.head + 1) % r.size
	if r.count < r.size {
		r.count++
	}
	r.mu.Unlock()
}

// ordered returns the buffered events oldest first. Caller holds mu.
func (r *RingBuffer) ordered() []Event {
	if r.count == 0 {
		return nil
	}
	out := make([]Event, r.count)
	if r.count < r.size {
		copy(out, r.buf[:r.count])
	} else {
		n := copy(out, r.buf[r.head:])
		copy(out[n:], r.buf[:r.head])
	}
	return out
}

// Snapshot returns a copy of all events, oldest first.
func (r *RingBuffer) Snapshot() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ordered()
}

// Last returns the n most recent events, oldest first.
// Returns nil when n <= 0 or the buffer is empty.
func (r *RingBuffer) Last(n int) []Event {
	if n <= 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	all := r.ordered()
	if n >= len(all) {
		return all
	}
	return all[len(all)-n:]
}

// LastOf returns up to n of the most recent events whose kind is in kinds,
// oldest first.
func (r *RingBuffer) LastOf(n int, kinds ...EventKind) []Event {
	if n <= 0 {
		return nil
	}
	want := make(map[EventKind]bool, len(kinds))
	for _, k := range kinds {
		want[k] = true
	}

	r.mu.Lock()
	all := r.ordered()
	r.mu.Unlock()

	var out []Event
	for i := len(all) - 1; i >= 0 && len(out) < n; i-- {
		if want[all[i].Kind] {
			out = append(out, all[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

// Len returns the number of events currently buffered.
func (r *RingBuffer) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Cap returns the buffer capacity.
func (r *RingBuffer) Cap() int {
	return r.size
}

// Stats returns counts by EventKind over all buffered events.
func (r *RingBuffer) Stats() map[EventKind]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[EventKind]int)
	for _, e := range r.ordered() {
		counts[e.Kind]++
	}
	return counts
}
