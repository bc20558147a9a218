package onewire

import (
	"fmt"
	"sync"
)

// FakeReader is a test double that returns scripted temperatures. It is safe
// for concurrent use, matching the real reader.
type FakeReader struct {
	mu sync.Mutex

	// IDs are the sensor ids returned by Enumerate.
	IDs []string

	// Temps contains scripted temperature sequences per sensor id.
	// Each successful read consumes the next value; when a sequence is
	// exhausted the last value repeats.
	Temps map[string][]float64

	// FailFirst makes the first N reads of a sensor return ErrNotReady
	// before the scripted values start, to exercise retry behavior.
	FailFirst map[string]int

	// ReadCalls counts ReadTemperature calls per sensor id.
	ReadCalls map[string]int

	// EnumerateError, if set, will be returned by Enumerate.
	EnumerateError error

	// Closed tracks if Close was called.
	Closed bool

	index map[string]int
}

// NewFakeReader creates a FakeReader with the given sensors and scripts.
func NewFakeReader(ids []string, temps map[string][]float64) *FakeReader {
	return &FakeReader{
		IDs:       ids,
		Temps:     temps,
		FailFirst: map[string]int{},
		ReadCalls: map[string]int{},
		index:     map[string]int{},
	}
}

// Enumerate returns the scripted sensor ids.
func (f *FakeReader) Enumerate() ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.EnumerateError != nil {
		return nil, f.EnumerateError
	}
	out := make([]string, len(f.IDs))
	copy(out, f.IDs)
	return out, nil
}

// ReadTemperature returns the next scripted value for the sensor, after any
// scripted ErrNotReady failures.
func (f *FakeReader) ReadTemperature(id string) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ReadCalls[id]++

	if f.FailFirst[id] > 0 {
		f.FailFirst[id]--
		return 0, ErrNotReady
	}

	seq, ok := f.Temps[id]
	if !ok || len(seq) == 0 {
		return 0, fmt.Errorf("no temperatures scripted for sensor %q", id)
	}

	v := seq[f.index[id]]
	if f.index[id] < len(seq)-1 {
		f.index[id]++
	}
	return v, nil
}

// Close marks the reader as closed.
func (f *FakeReader) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed = true
	return nil
}

// SetTemp replaces a sensor's script with a single steady value.
func (f *FakeReader) SetTemp(id string, temp float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Temps[id] = []float64{temp}
	f.index[id] = 0
}

// Calls returns how many times the sensor has been read.
func (f *FakeReader) Calls(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.ReadCalls[id]
}
