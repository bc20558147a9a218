// Package onewire provides DS18B20 temperature reading with hardware
// abstraction. The real implementation uses the Linux one-wire sysfs bus.
// The fake implementation allows testing without hardware.
package onewire

import "errors"

// ErrNotReady marks a transient read fault (bad CRC, incomplete conversion,
// one-wire glitch). Callers retry on it; any other error is not retried.
var ErrNotReady = errors.New("onewire: sensor not ready")

// Reader reads one-wire temperature sensors.
type Reader interface {
	// Enumerate returns the stable hardware ids of all attached sensors.
	// Zero sensors is not an error.
	Enumerate() ([]string, error)

	// ReadTemperature reads one sensor in degrees Celsius.
	// Returns ErrNotReady on a transient fault.
	ReadTemperature(id string) (float64, error)

	// Close releases bus resources.
	Close() error
}
