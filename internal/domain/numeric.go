package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Numeric is a number carried in its textual form, e.g. "10.5". Models are
// asked for strings but frequently emit bare JSON numbers, so both decode.
type Numeric string

func (n *Numeric) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = Numeric(strings.TrimSpace(s))
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("expected number or string, got %s", data)
	}
	*n = Numeric(num.String())
	return nil
}

// Decimal parses the value. ok is false for empty or non-numeric text such
// as "a pinch".
func (n Numeric) Decimal() (d decimal.Decimal, ok bool) {
	if n == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(string(n))
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// IsNumber reports whether the value parses as a decimal number.
func (n Numeric) IsNumber() bool {
	_, ok := n.Decimal()
	return ok
}

func (n Numeric) String() string { return string(n) }

// NumericFromDecimal formats d without trailing zeros.
func NumericFromDecimal(d decimal.Decimal) Numeric {
	return Numeric(d.String())
}

func decimalFromInt(i int) decimal.Decimal {
	return decimal.NewFromInt(int64(i))
}
