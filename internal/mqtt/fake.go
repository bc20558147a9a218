package mqtt

import "sync"

// FakePublisher records published events for test assertions. It is safe for
// concurrent use: the scheduler publishes from several cadence goroutines at
// once.
type FakePublisher struct {
	mu               sync.Mutex
	readings         []ReadingEvent
	readingPayloads  [][]byte
	systemEvents     []SystemEvent
	systemPayloads   [][]byte
	publishErr       error
	publishSystemErr error
	closed           bool
	connected        bool
}

// NewFakePublisher creates a FakePublisher for testing.
func NewFakePublisher() *FakePublisher {
	return &FakePublisher{}
}

// PublishReading records the reading event.
func (f *FakePublisher) PublishReading(event ReadingEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishErr != nil {
		return f.publishErr
	}

	f.readings = append(f.readings, event)

	payload, err := FormatReadingPayload(event)
	if err != nil {
		return err
	}
	f.readingPayloads = append(f.readingPayloads, payload)
	return nil
}

// PublishSystem records the lifecycle event.
func (f *FakePublisher) PublishSystem(event SystemEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.publishSystemErr != nil {
		return f.publishSystemErr
	}

	f.systemEvents = append(f.systemEvents, event)

	payload, err := FormatSystemPayload(event)
	if err != nil {
		return err
	}
	f.systemPayloads = append(f.systemPayloads, payload)
	return nil
}

// Close marks the publisher as closed.
func (f *FakePublisher) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

// IsConnected reports whether the fake publisher is "connected".
func (f *FakePublisher) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

// Readings returns a copy of the recorded reading events.
func (f *FakePublisher) Readings() []ReadingEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]ReadingEvent(nil), f.readings...)
}

// ReadingPayloads returns a copy of the recorded reading payloads.
func (f *FakePublisher) ReadingPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.readingPayloads...)
}

// SystemEvents returns a copy of the recorded lifecycle events.
func (f *FakePublisher) SystemEvents() []SystemEvent {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]SystemEvent(nil), f.systemEvents...)
}

// SystemPayloads returns a copy of the recorded lifecycle payloads.
func (f *FakePublisher) SystemPayloads() [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([][]byte(nil), f.systemPayloads...)
}

// Closed reports whether Close was called.
func (f *FakePublisher) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// SetConnected controls the value IsConnected reports.
func (f *FakePublisher) SetConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

// SetPublishError scripts an error for PublishReading.
func (f *FakePublisher) SetPublishError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishErr = err
}

// SetPublishSystemError scripts an error for PublishSystem.
func (f *FakePublisher) SetPublishSystemError(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.publishSystemErr = err
}

// Reset clears recorded events and scripted behavior.
func (f *FakePublisher) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.readings = nil
	f.readingPayloads = nil
	f.systemEvents = nil
	f.systemPayloads = nil
	f.closed = false
	f.publishErr = nil
	f.publishSystemErr = nil
	f.connected = false
}
