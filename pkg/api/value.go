package api

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Value is an untyped runtime value. Widgets produce float64, string,
// bool or nil; nil is the "none" placeholder of incomplete programs.
type Value = any

// PlaceholderText is how the none value is rendered for the user.
const PlaceholderText = "none"

// Truthy reports whether v counts as true in a condition.
// None, false, 0, NaN and the empty string are falsy.
func Truthy(v Value) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case float64:
		return x != 0 && !math.IsNaN(x)
	case int:
		return x != 0
	case string:
		return x != ""
	default:
		return true
	}
}

// ToNumber converts v into a float64. Text is parsed after trimming
// spaces; ok is false when no sensible number exists.
func ToNumber(v Value) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case bool:
		if x {
			return 1, true
		}
		return 0, true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// FormatValue renders v the way the code preview and print widget show it.
func FormatValue(v Value) string {
	switch x := v.(type) {
	case nil:
		return PlaceholderText
	case string:
		return x
	case bool:
		return strconv.FormatBool(x)
	case float64:
		if x == math.Trunc(x) && math.Abs(x) < 1e15 {
			return strconv.FormatInt(int64(x), 10)
		}
		return strconv.FormatFloat(x, 'g', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Equal compares two values. Numbers compare numerically, so 2 equals "2".
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa == sb
		}
	}
	if ba, ok := a.(bool); ok {
		if bb, ok := b.(bool); ok {
			return ba == bb
		}
	}
	na, okA := ToNumber(a)
	nb, okB := ToNumber(b)
	if okA && okB {
		return na == nb
	}
	return FormatValue(a) == FormatValue(b)
}
