// Package config loads and saves the user-editable measurement settings and
// condition rule sets as a JSON document, including the one-time migration
// from the older flat-threshold schema.
package config

import (
	"encoding/json"
	"fmt"
	"math"
	"os"

	"github.com/sweeney/temp-logger/internal/logic"
)

// Defaults mirrored from the original application.
const (
	DefaultLogInterval    = 10
	DefaultViewInterval   = 3
	DefaultStartThreshold = 22.0
	DefaultStopThreshold  = 30.0
	DefaultName           = "temptestlog"
)

// Settings is the in-memory form of the rule/config file. The presentation
// layer pushes edits through the scheduler; nothing shares mutable cells
// with this struct.
type Settings struct {
	ActiveSensors   []string
	SensorNames     map[string]string
	LogInterval     int // seconds, > 0
	ViewInterval    int // seconds, > 0
	DurationEnabled bool
	DurationDays    float64
	DurationHours   float64
	DurationMinutes float64
	MeasurementName string
	StartEnabled    bool // autonomous start on start conditions
	StopEnabled     bool // autonomous stop on stop conditions
	StartConditions []logic.Condition
	StopConditions  []logic.Condition
}

// DefaultSettings returns the built-in defaults used when no file is loaded
// and as the fallback for missing keys.
func DefaultSettings() Settings {
	return Settings{
		LogInterval:     DefaultLogInterval,
		ViewInterval:    DefaultViewInterval,
		MeasurementName: DefaultName,
		SensorNames:     map[string]string{},
	}
}

// DurationSeconds returns the configured fixed duration, or 0 when the
// duration cutoff is disabled.
func (s Settings) DurationSeconds() float64 {
	if !s.DurationEnabled {
		return 0
	}
	return s.DurationDays*86400 + s.DurationHours*3600 + s.DurationMinutes*60
}

// conditionJSON is the wire form of a logic.Condition.
type conditionJSON struct {
	Sensors   []string `json:"sensors"`
	Operator  string   `json:"operator"`
	Threshold float64  `json:"threshold"`
	Logic     *string  `json:"logic"`
}

// fileJSON is the on-disk document. Pointer fields distinguish a missing key
// (fall back to the caller's current value) from an explicit zero.
type fileJSON struct {
	ActiveSensors   *[]string          `json:"active_sensors,omitempty"`
	SensorNames     *map[string]string `json:"sensor_names,omitempty"`
	LogInterval     *int               `json:"log_interval,omitempty"`
	ViewInterval    *int               `json:"view_interval,omitempty"`
	DurationEnabled *bool              `json:"duration_enabled,omitempty"`
	DurationDays    *float64           `json:"duration_days,omitempty"`
	DurationHours   *float64           `json:"duration_hours,omitempty"`
	DurationMinutes *float64           `json:"duration_minutes,omitempty"`
	MeasurementName *string            `json:"measurement_name,omitempty"`
	StartEnabled    *bool              `json:"temp_start_enabled,omitempty"`
	StopEnabled     *bool              `json:"temp_stop_enabled,omitempty"`
	StartConditions *[]conditionJSON   `json:"start_conditions,omitempty"`
	StopConditions  *[]conditionJSON   `json:"stop_conditions,omitempty"`

	// Legacy single-threshold schema.
	StartThreshold *float64 `json:"start_threshold,omitempty"`
	StopThreshold  *float64 `json:"stop_threshold,omitempty"`
}

// LoadResult reports what Load found alongside the merged settings.
type LoadResult struct {
	Settings Settings
	// Legacy is true when the file carried the old flat-threshold schema;
	// LegacyStart/LegacyStop hold the thresholds so the caller can offer the
	// ConvertLegacy migration.
	Legacy      bool
	LegacyStart float64
	LegacyStop  float64
}

// Load reads a rule/config file and merges it over the given current
// settings; missing keys keep their current values. An unreadable or invalid
// file is an error — the caller reports it and keeps its defaults.
func Load(path string, current Settings) (LoadResult, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return LoadResult{Settings: current}, fmt.Errorf("read config: %w", err)
	}

	var f fileJSON
	if err := json.Unmarshal(raw, &f); err != nil {
		return LoadResult{Settings: current}, fmt.Errorf("parse config: %w", err)
	}

	out := current
	if f.ActiveSensors != nil {
		out.ActiveSensors = *f.ActiveSensors
	}
	if f.SensorNames != nil {
		out.SensorNames = *f.SensorNames
	}
	if f.LogInterval != nil && *f.LogInterval > 0 {
		out.LogInterval = *f.LogInterval
	}
	if f.ViewInterval != nil && *f.ViewInterval > 0 {
		out.ViewInterval = *f.ViewInterval
	}
	if f.DurationEnabled != nil {
		out.DurationEnabled = *f.DurationEnabled
	}
	if f.DurationDays != nil && *f.DurationDays >= 0 {
		out.DurationDays = *f.DurationDays
	}
	if f.DurationHours != nil && *f.DurationHours >= 0 {
		out.DurationHours = *f.DurationHours
	}
	if f.DurationMinutes != nil && *f.DurationMinutes >= 0 {
		out.DurationMinutes = *f.DurationMinutes
	}
	if f.MeasurementName != nil {
		out.MeasurementName = *f.MeasurementName
	}
	if f.StartEnabled != nil {
		out.StartEnabled = *f.StartEnabled
	}
	if f.StopEnabled != nil {
		out.StopEnabled = *f.StopEnabled
	}
	if f.StartConditions != nil {
		out.StartConditions = fromWire(*f.StartConditions)
	}
	if f.StopConditions != nil {
		out.StopConditions = fromWire(*f.StopConditions)
	}

	res := LoadResult{Settings: out}

	// Legacy shape: flat thresholds and no condition lists.
	if f.StartConditions == nil && f.StopConditions == nil &&
		(f.StartThreshold != nil || f.StopThreshold != nil) {
		res.Legacy = true
		res.LegacyStart = DefaultStartThreshold
		res.LegacyStop = DefaultStopThreshold
		if f.StartThreshold != nil {
			res.LegacyStart = *f.StartThreshold
		}
		if f.StopThreshold != nil {
			res.LegacyStop = *f.StopThreshold
		}
	}
	return res, nil
}

// ConvertLegacy synthesizes condition lists from the old flat thresholds: a
// single all-sensors "> start" condition and a single all-sensors "<= stop"
// condition. Pure function; the interactive confirmation is a presentation
// concern layered on top.
func ConvertLegacy(start, stop float64, knownIDs []string) (startConds, stopConds []logic.Condition) {
	ids := make([]string, len(knownIDs))
	copy(ids, knownIDs)

	if !math.IsNaN(start) && !math.IsInf(start, 0) {
		startConds = []logic.Condition{{
			Sensors:   ids,
			Op:        logic.OpGreater,
			Threshold: start,
		}}
	}
	if !math.IsNaN(stop) && !math.IsInf(stop, 0) {
		stopConds = []logic.Condition{{
			Sensors:   ids,
			Op:        logic.OpLessEqual,
			Threshold: stop,
		}}
	}
	return startConds, stopConds
}

// Save writes the settings as an indented JSON document.
func Save(path string, s Settings) error {
	f := fileJSON{
		ActiveSensors:   &s.ActiveSensors,
		SensorNames:     &s.SensorNames,
		LogInterval:     &s.LogInterval,
		ViewInterval:    &s.ViewInterval,
		DurationEnabled: &s.DurationEnabled,
		DurationDays:    &s.DurationDays,
		DurationHours:   &s.DurationHours,
		DurationMinutes: &s.DurationMinutes,
		MeasurementName: &s.MeasurementName,
		StartEnabled:    &s.StartEnabled,
		StopEnabled:     &s.StopEnabled,
	}
	start := toWire(s.StartConditions)
	stop := toWire(s.StopConditions)
	f.StartConditions = &start
	f.StopConditions = &stop

	raw, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, append(raw, '\n'), 0o644); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

func fromWire(in []conditionJSON) []logic.Condition {
	out := make([]logic.Condition, len(in))
	for i, c := range in {
		combinator := logic.CombineNone
		if c.Logic != nil {
			combinator = logic.Combinator(*c.Logic)
		}
		out[i] = logic.Condition{
			Sensors:   c.Sensors,
			Op:        logic.Operator(c.Operator),
			Threshold: c.Threshold,
			Logic:     combinator,
		}
	}
	return out
}

func toWire(in []logic.Condition) []conditionJSON {
	out := make([]conditionJSON, len(in))
	for i, c := range in {
		out[i] = conditionJSON{
			Sensors:   c.Sensors,
			Operator:  string(c.Op),
			Threshold: c.Threshold,
		}
		if c.Logic != logic.CombineNone {
			s := string(c.Logic)
			out[i].Logic = &s
		}
	}
	return out
}
