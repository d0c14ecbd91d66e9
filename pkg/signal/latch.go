// Package signal holds the externally delivered mission selector: a latch
// with last-write-wins semantics and the selector-to-waypoint table.
package signal

import "sync"

// Latch stores the most recently observed selector value. The zero value is
// unset; there is no sentinel integer overlapping the valid value space.
type Latch struct {
	mu    sync.Mutex
	value int
	set   bool
}

// Update overwrites the latch unconditionally. A value arriving mid-phase
// only affects the next read, never a decision already taken.
func (l *Latch) Update(value int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.value = value
	l.set = true
}

// Read returns the latest value and whether any value has been observed.
func (l *Latch) Read() (int, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.value, l.set
}
