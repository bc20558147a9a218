package logic

import "math"

// Evaluate reports whether the ordered condition list is currently satisfied
// by the given channel values.
//
// An empty list is never satisfied: an enabled-but-unconfigured rule set must
// not silently trigger. Conditions fold left to right; each later condition's
// own Logic field joins its result with the accumulated result so far.
// Evaluate is a pure function of its inputs.
func Evaluate(conds []Condition, values map[string]Value) bool {
	if len(conds) == 0 {
		return false
	}

	result := conditionHolds(conds[0], values)
	for _, c := range conds[1:] {
		held := conditionHolds(c, values)
		switch c.Logic {
		case CombineAnd:
			result = result && held
		case CombineOr:
			result = result || held
		default:
			// Malformed combinator on a later condition. Treat the whole
			// list as not satisfied rather than guess — a malformed rule
			// must never trigger.
			return false
		}
	}
	return result
}

// conditionHolds checks every listed sensor against the condition's
// comparison. An absent sensor value makes the condition false, never true
// and never an error.
func conditionHolds(c Condition, values map[string]Value) bool {
	if len(c.Sensors) == 0 {
		return false
	}
	for _, id := range c.Sensors {
		v, ok := values[id]
		if !ok || !v.Valid {
			return false
		}
		if !compare(v.Temp, c.Op, c.Threshold) {
			return false
		}
	}
	return true
}

func compare(value float64, op Operator, threshold float64) bool {
	switch op {
	case OpGreater:
		return value > threshold
	case OpLess:
		return value < threshold
	case OpGreaterEqual:
		return value >= threshold
	case OpLessEqual:
		return value <= threshold
	case OpEqual:
		return math.Abs(value-threshold) <= EqualTolerance
	default:
		return false
	}
}
