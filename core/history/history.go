// Package history holds previously submitted shell lines in a fixed-size
// ring so the line editor can replay and search them.
package history

// DefaultCapacity is the number of lines kept when no capacity is configured.
const DefaultCapacity = 512

// Ring is a fixed-capacity store of submitted lines. Once full, the newest
// entry overwrites the oldest. Entries are immutable after insertion and are
// addressed by age: age 0 is the most recently added line.
type Ring struct {
	entries []string
	present []bool
	next    int
	count   int
}

// NewRing creates a ring holding up to capacity lines. A non-positive
// capacity falls back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Ring{
		entries: make([]string, capacity),
		present: make([]bool, capacity),
	}
}

// Add stores a submitted line as the newest entry, evicting the oldest one
// if the ring is at capacity.
func (r *Ring) Add(line string) {
	r.entries[r.next] = line
	r.present[r.next] = true
	r.next++
	if r.next >= len(r.entries) {
		r.next = 0
	}
	if r.count < len(r.entries) {
		r.count++
	}
}

// Get returns the entry that is age insertions old; age 0 is the newest.
// The second return is false when no entry of that age exists.
func (r *Ring) Get(age int) (string, bool) {
	if age < 0 || age >= len(r.entries) {
		return "", false
	}
	var idx int
	if age+1 <= r.next {
		idx = r.next - (age + 1)
	} else {
		idx = len(r.entries) - ((age + 1) - r.next)
	}
	if !r.present[idx] {
		return "", false
	}
	return r.entries[idx], true
}

// Len reports how many entries are currently stored.
func (r *Ring) Len() int {
	return r.count
}

// Cap reports the fixed capacity of the ring.
func (r *Ring) Cap() int {
	return len(r.entries)
}

// Clear drops every stored entry.
func (r *Ring) Clear() {
	for i := range r.entries {
		r.entries[i] = ""
		r.present[i] = false
	}
	r.next = 0
	r.count = 0
}
