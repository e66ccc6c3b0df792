package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNotANumber = errors.New("not a number")

// Extended-JSON wrappers the document store leaks into payloads,
// e.g. {"$numberInt": "95"}.
var extendedNumberKeys = []string{"$numberInt", "$numberLong", "$numberDouble", "$numberDecimal"}

// ParseNumber converts every numeric shape seen at the storage and transport
// boundary into a finite float64. It is the only place that coercion happens.
func ParseNumber(v any) (float64, error) {
	switch x := v.(type) {
	case float64:
		return finite(x)
	case float32:
		return finite(float64(x))
	case int:
		return float64(x), nil
	case int8:
		return float64(x), nil
	case int16:
		return float64(x), nil
	case int32:
		return float64(x), nil
	case int64:
		return float64(x), nil
	case uint:
		return float64(x), nil
	case uint8:
		return float64(x), nil
	case uint16:
		return float64(x), nil
	case uint32:
		return float64(x), nil
	case uint64:
		return float64(x), nil
	case json.Number:
		return ParseNumber(string(x))
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, ErrNotANumber
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, ErrNotANumber
		}
		return finite(f)
	case map[string]any:
		for _, key := range extendedNumberKeys {
			if inner, ok := x[key]; ok {
				return ParseNumber(inner)
			}
		}
		return 0, ErrNotANumber
	case fmt.Stringer:
		return ParseNumber(x.String())
	}
	return 0, ErrNotANumber
}

func finite(f float64) (float64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrNotANumber
	}
	return f, nil
}

// Number is a request field that may arrive as 42, "42" or {"$numberInt":"42"}.
// Decoding never fails on shape: Present records that the key was sent with a
// non-null value, Valid that it parsed.
type Number struct {
	Value   float64
	Present bool
	Valid   bool
}

func NumberOf(v float64) Number {
	return Number{Value: v, Present: true, Valid: true}
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	n.Present = true
	v, err := ParseNumber(raw)
	if err == nil {
		n.Value, n.Valid = v, true
	}
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Value)
}

// IsInteger reports whether a valid Number has no fractional part.
func (n Number) IsInteger() bool {
	return n.Valid && n.Value == math.Trunc(n.Value)
}
