package gpio

import "sync"

// FakeIndicator records Set calls for test assertions.
type FakeIndicator struct {
	mu sync.Mutex

	// On is the current indicator state.
	On bool

	// Transitions records every Set call in order.
	Transitions []bool

	// SetError, if set, will be returned by Set.
	SetError error

	// Closed tracks if Close was called.
	Closed bool
}

// NewFakeIndicator creates a FakeIndicator for testing.
func NewFakeIndicator() *FakeIndicator {
	return &FakeIndicator{}
}

// Set records the transition.
func (f *FakeIndicator) Set(on bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.SetError != nil {
		return f.SetError
	}
	f.On = on
	f.Transitions = append(f.Transitions, on)
	return nil
}

// Close marks the indicator as closed and off.
func (f *FakeIndicator) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.On = false
	f.Closed = true
	return nil
}

// State returns the current indicator state.
func (f *FakeIndicator) State() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.On
}
