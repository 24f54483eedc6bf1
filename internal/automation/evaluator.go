package automation

import "time"

// DeviceStateReader is the slice of the device cache the evaluator
// reads. The second return is false when the device or attribute is
// unknown.
type DeviceStateReader interface {
	Attribute(deviceID, attribute string) (any, bool)
}

// EvaluateConditions reports whether every condition passes at the
// given instant. An empty condition list is vacuously true; the trigger
// alone decides.
//
// Evaluation is fail-closed: a condition that cannot be evaluated (an
// unknown device, a missing attribute, a malformed clock value that
// slipped past validation) is false, so an automation never fires on
// indeterminate state.
func EvaluateConditions(conditions []Condition, now time.Time, devices DeviceStateReader) bool {
	for _, c := range conditions {
		if !evaluateCondition(c, now, devices) {
			return false
		}
	}
	return true
}

func evaluateCondition(c Condition, now time.Time, devices DeviceStateReader) bool {
	switch c.Type {
	case ConditionTimeRange:
		return inTimeRange(c.Start, c.End, now)
	case ConditionDeviceState:
		if devices == nil {
			return false
		}
		value, ok := devices.Attribute(c.DeviceID, c.Attribute)
		if !ok {
			return false
		}
		return valuesEqual(value, c.ExpectedValue)
	default:
		return false
	}
}

// inTimeRange reports whether now's local time-of-day falls in
// [start, end). When end < start the window wraps past midnight, so
// "22:00"-"06:00" covers 23:30 and 02:00 but not 12:00. Start == end is
// an empty window, never true.
func inTimeRange(start, end string, now time.Time) bool {
	startMin, ok := clockMinutes(start)
	if !ok {
		return false
	}
	endMin, ok := clockMinutes(end)
	if !ok {
		return false
	}

	nowMin := now.Hour()*60 + now.Minute()

	if startMin == endMin {
		return false
	}
	if startMin < endMin {
		return nowMin >= startMin && nowMin < endMin
	}
	// Wraps midnight
	return nowMin >= startMin || nowMin < endMin
}

// clockMinutes parses HH:MM into minutes since midnight.
func clockMinutes(s string) (int, bool) {
	if !clockRegex.MatchString(s) {
		return 0, false
	}
	h := int(s[0]-'0')*10 + int(s[1]-'0')
	m := int(s[3]-'0')*10 + int(s[4]-'0')
	return h*60 + m, true
}

// valuesEqual compares an attribute value against an expected value.
// Numerics are compared as float64 because JSON decoding produces
// float64 for all numbers but stored rules may carry ints.
func valuesEqual(a, b any) bool {
	af, aok := toNumber(a)
	bf, bok := toNumber(b)
	if aok && bok {
		return af == bf
	}
	return a == b
}

func toNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
