// Package logic contains pure business logic for temperature condition
// evaluation. This package has NO external dependencies (no sensors, MQTT,
// OS, or time.Sleep). Time is always injectable via time.Time parameters.
package logic

import "time"

// Operator compares a sensor value against a threshold.
type Operator string

const (
	OpGreater      Operator = ">"
	OpLess         Operator = "<"
	OpGreaterEqual Operator = ">="
	OpLessEqual    Operator = "<="
	OpEqual        Operator = "="
)

// EqualTolerance is the half-width of the band treated as equal by OpEqual,
// so floating-point readings near the threshold still match.
const EqualTolerance = 0.1

// Combinator joins a condition's result with the accumulated result of the
// conditions before it. The first condition in a list carries CombineNone.
type Combinator string

const (
	CombineNone Combinator = ""
	CombineAnd  Combinator = "AND"
	CombineOr   Combinator = "OR"
)

// Condition is one atomic rule: every listed sensor must satisfy the
// comparison for the condition to hold ("all-of" semantics).
type Condition struct {
	// Sensors lists the channel ids this condition checks. Must be non-empty.
	Sensors []string
	// Op is the comparison operator.
	Op Operator
	// Threshold is the comparison value in degrees Celsius.
	Threshold float64
	// Logic combines this condition's result with the cumulative result of
	// the preceding conditions. Stored on the second-and-later conditions,
	// never on the first — configurations are authored and saved that way.
	Logic Combinator
}

// Value is one channel's reading. Valid is false when the channel is
// disabled or the read failed after retries ("absent"); absent is distinct
// from zero degrees.
type Value struct {
	Temp  float64
	Valid bool
}

// Reading is one synchronized snapshot of all known channels at one instant.
// Values contains exactly one entry per known channel id; disabled channels
// map to an invalid Value, they are not omitted.
type Reading struct {
	// Timestamp is the wall-clock instant of the sweep.
	Timestamp time.Time
	// Seconds is the offset from the measurement start.
	Seconds float64
	// Values maps channel id to its value-or-absent.
	Values map[string]Value
}
