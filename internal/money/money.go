package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a monetary amount in integer minor units (cents). All ledger
// arithmetic happens on this type; decimal strings only appear at the
// parse/format boundary.
type Money int64

func FromMinorUnits(v int64) Money {
	return Money(v)
}

// Parse converts a decimal string like "12.34" into minor units. Amounts with
// more than two fractional digits are rejected rather than rounded.
func Parse(raw string) (Money, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return 0, fmt.Errorf("amount is required")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", raw)
	}
	shifted := d.Shift(2)
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("amount %q has more than two decimal places", raw)
	}
	return Money(shifted.IntPart()), nil
}

func (m Money) MinorUnits() int64 {
	return int64(m)
}

func (m Money) Add(o Money) Money {
	return m + o
}

func (m Money) Sub(o Money) Money {
	return m - o
}

func (m Money) MulQty(qty int) Money {
	return m * Money(qty)
}

func (m Money) Cmp(o Money) int {
	switch {
	case m < o:
		return -1
	case m > o:
		return 1
	default:
		return 0
	}
}

func (m Money) IsZero() bool {
	return m == 0
}

func (m Money) IsNegative() bool {
	return m < 0
}

// String formats the amount with two decimal places, e.g. 1234 -> "12.34".
func (m Money) String() string {
	return decimal.New(int64(m), -2).StringFixed(2)
}

// UnmarshalJSON accepts either a JSON number of minor units or a quoted
// decimal string such as "12.34". Marshaling always emits the number form.
func (m *Money) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		parsed, err := Parse(raw)
		if err != nil {
			return err
		}
		*m = parsed
		return nil
	}
	var v int64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*m = Money(v)
	return nil
}
