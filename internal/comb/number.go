package comb

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Number is a tolerant numeric input. It decodes JSON numbers and numeric
// strings; anything else, including NaN and infinities, decodes as absent
// rather than failing the whole document.
type Number struct {
	value float64
	valid bool
}

// Num returns a present Number. NaN and infinities are treated as absent.
func Num(v float64) Number {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{}
	}
	return Number{value: v, valid: true}
}

// Float returns the value and whether it was present.
func (n Number) Float() (float64, bool) {
	return n.value, n.valid
}

// Or returns the value, or def when absent.
func (n Number) Or(def float64) float64 {
	if !n.valid {
		return def
	}
	return n.value
}

// MarshalJSON encodes absent values as null.
func (n Number) MarshalJSON() ([]byte, error) {
	if !n.valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.value)
}

// UnmarshalJSON never returns an error: unparseable input leaves n absent.
func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	var f float64
	if err := json.Unmarshal(trimmed, &f); err == nil {
		*n = Num(f)
		return nil
	}

	var s string
	if err := json.Unmarshal(trimmed, &s); err == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = Num(f)
		}
	}
	return nil
}
