package state

import "sync"

// Context owns the shared System and Audio state. Mutate is the single
// exclusive mutation point; readers take copies through Snapshot.
type Context struct {
	mu     sync.RWMutex
	system System
	audio  Audio
}

// NewContext creates a context holding the given initial state.
func NewContext(system System, audio Audio) *Context {
	return &Context{
		system: system,
		audio:  audio,
	}
}

// Mutate runs fn with exclusive access to the state and returns its result.
// fn must not call back into the same Context.
func (c *Context) Mutate(fn func(s *System, a *Audio) bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return fn(&c.system, &c.audio)
}

// Snapshot returns copies of the current state.
func (c *Context) Snapshot() (System, Audio) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.system, c.audio
}
