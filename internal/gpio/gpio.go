// Package gpio drives the measurement indicator LED with hardware
// abstraction. The real implementation uses the Linux GPIO character device.
// The fake implementation allows testing without hardware.
package gpio

// Indicator drives the LED that shows a measurement is running.
type Indicator interface {
	// Set turns the indicator on or off.
	Set(on bool) error

	// Close turns the indicator off and releases GPIO resources.
	Close() error
}

// DefaultPinLED is the BCM pin number for the indicator LED.
const DefaultPinLED = 17

// Nop is an Indicator that does nothing, used when no LED pin is configured.
type Nop struct{}

// Set does nothing.
func (Nop) Set(on bool) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }
