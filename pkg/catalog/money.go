package catalog

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Money is an amount in integer cents. It travels on the wire as a decimal
// number (249.99) the way the backend and store write prices.
type Money int64

// FromFloat rounds a decimal amount to the nearest cent.
func FromFloat(f float64) Money {
	return Money(math.Round(f * 100))
}

func (m Money) Float() float64 {
	return float64(m) / 100
}

func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Money) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = 0
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		// Some documents carry prices as strings ("249.99").
		var s string
		if err2 := json.Unmarshal(data, &s); err2 != nil {
			return fmt.Errorf("catalog: invalid money %s: %w", string(data), err)
		}
		if s == "" {
			*m = 0
			return nil
		}
		n = json.Number(s)
	}
	f, err := strconv.ParseFloat(n.String(), 64)
	if err != nil {
		return fmt.Errorf("catalog: invalid money %q: %w", n.String(), err)
	}
	*m = FromFloat(f)
	return nil
}
