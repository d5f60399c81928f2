package cart

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// maxQuantity bounds what a single request may ask for.
const maxQuantity = math.MaxInt32

// Quantity is a client-supplied quantity before it is applied to a line.
// JSON numbers and numeric strings are accepted; anything else is recorded as
// present but not numeric so each operation can pick its own fallback.
type Quantity struct {
	value   float64
	present bool
	numeric bool
}

// ParseQuantity coerces a decoded JSON value. nil means the field was absent
// or null.
func ParseQuantity(raw any) Quantity {
	switch v := raw.(type) {
	case nil:
		return Quantity{}
	case float64:
		return numericQuantity(v)
	case int:
		return numericQuantity(float64(v))
	case json.Number:
		f, err := v.Float64()
		if err != nil {
			return Quantity{present: true}
		}
		return numericQuantity(f)
	case string:
		s := strings.TrimSpace(v)
		if s == "" {
			return Quantity{present: true}
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return Quantity{present: true}
		}
		return numericQuantity(f)
	default:
		return Quantity{present: true}
	}
}

func numericQuantity(f float64) Quantity {
	if math.IsNaN(f) || math.IsInf(f, 0) || math.Abs(f) > maxQuantity {
		return Quantity{present: true}
	}
	return Quantity{value: f, present: true, numeric: true}
}

func (q Quantity) Present() bool { return q.present }

// Numeric reports whether the value can be applied at all.
func (q Quantity) Numeric() bool { return q.numeric }

// IsZero reports a numeric zero. Fractions such as 0.5 are not zero.
func (q Quantity) IsZero() bool { return q.numeric && q.value == 0 }

// Int truncates toward zero.
func (q Quantity) Int() int {
	return int(math.Trunc(q.value))
}
