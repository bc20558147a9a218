//go:build !linux

package onewire

import "errors"

// RealReader is not available on non-Linux platforms.
type RealReader struct{}

// NewRealReader returns an error on non-Linux platforms.
func NewRealReader() (*RealReader, error) {
	return nil, errors.New("onewire: not supported on this platform (requires Linux sysfs)")
}

// Enumerate is not implemented on non-Linux platforms.
func (r *RealReader) Enumerate() ([]string, error) {
	return nil, errors.New("onewire: not supported")
}

// ReadTemperature is not implemented on non-Linux platforms.
func (r *RealReader) ReadTemperature(id string) (float64, error) {
	return 0, errors.New("onewire: not supported")
}

// Close is not implemented on non-Linux platforms.
func (r *RealReader) Close() error {
	return nil
}
