//go:build linux

package onewire

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

const (
	w1Dir = "/sys/bus/w1/devices"

	w1MasterPrefix = "w1_bus_master"
	w1SlaveFile    = "w1_slave"
)

// RealReader reads DS18B20 sensors through the Linux one-wire sysfs bus.
type RealReader struct {
	dir string
}

// NewRealReader returns a reader over /sys/bus/w1/devices.
func NewRealReader() (*RealReader, error) {
	if _, err := os.Stat(w1Dir); err != nil {
		return nil, fmt.Errorf("one-wire bus not available (is the w1-gpio overlay enabled?): %w", err)
	}
	return &RealReader{dir: w1Dir}, nil
}

// Enumerate scans the bus directory for slave devices. Bus masters are
// skipped; anything else with a w1_slave file is a sensor.
func (r *RealReader) Enumerate() ([]string, error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, fmt.Errorf("scan one-wire bus: %w", err)
	}

	var ids []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, w1MasterPrefix) {
			continue
		}
		if _, err := os.Stat(filepath.Join(r.dir, name, w1SlaveFile)); err != nil {
			continue
		}
		ids = append(ids, name)
	}
	sort.Strings(ids)
	return ids, nil
}

// ReadTemperature reads and parses one sensor's w1_slave file.
func (r *RealReader) ReadTemperature(id string) (float64, error) {
	raw, err := os.ReadFile(filepath.Join(r.dir, id, w1SlaveFile))
	if err != nil {
		return 0, fmt.Errorf("read sensor %s: %w", id, err)
	}
	return parseScratchpad(id, string(raw))
}

// Close is a no-op; sysfs needs no teardown.
func (r *RealReader) Close() error { return nil }
