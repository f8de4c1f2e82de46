// Package bargraph models the segment display driven by link events. It
// tracks fill state and the active animation pattern; drawing is left to
// whatever renders the model.
package bargraph

import "sync"

// Pattern is the animation a renderer should run.
type Pattern uint8

const (
	PatternNone Pattern = iota
	PatternPowerRamp
	PatternRampDown
	PatternOuterInner
)

func (p Pattern) String() string {
	switch p {
	case PatternPowerRamp:
		return "power-ramp"
	case PatternRampDown:
		return "ramp-down"
	case PatternOuterInner:
		return "outer-inner"
	default:
		return "none"
	}
}

// Fill is the illumination state of the segments.
type Fill uint8

const (
	FillOff Fill = iota
	FillEmpty
	FillFull
)

// Op identifies a recorded model operation.
type Op uint8

const (
	OpFull Op = iota + 1
	OpClear
	OpPattern
	OpOff
)

// Event is one recorded operation, in call order.
type Event struct {
	Op      Op
	Pattern Pattern
}

const historyLimit = 64

// Model is a thread-safe bargraph state holder.
type Model struct {
	mu      sync.RWMutex
	fill    Fill
	pattern Pattern
	history []Event
}

// New returns a model in the off state.
func New() *Model {
	return &Model{}
}

// Full lights every segment.
func (m *Model) Full() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fill = FillFull
	m.record(Event{Op: OpFull})
}

// Clear turns every segment off while leaving the display active.
func (m *Model) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fill = FillEmpty
	m.record(Event{Op: OpClear})
}

// SetPattern selects the animation to run from the current fill.
func (m *Model) SetPattern(p Pattern) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pattern = p
	m.record(Event{Op: OpPattern, Pattern: p})
}

// Off marks the display as fully powered down, typically once a ramp-down
// animation has finished.
func (m *Model) Off() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fill = FillOff
	m.pattern = PatternNone
	m.record(Event{Op: OpOff})
}

// IsOff reports whether the display is powered down.
func (m *Model) IsOff() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fill == FillOff
}

// State returns the current fill and pattern.
func (m *Model) State() (Fill, Pattern) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fill, m.pattern
}

// History returns the most recent operations, oldest first.
func (m *Model) History() []Event {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Event, len(m.history))
	copy(out, m.history)
	return out
}

// ResetHistory drops recorded operations.
func (m *Model) ResetHistory() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.history = m.history[:0]
}

func (m *Model) record(e Event) {
	if len(m.history) == historyLimit {
		copy(m.history, m.history[1:])
		m.history = m.history[:historyLimit-1]
	}
	m.history = append(m.history, e)
}
