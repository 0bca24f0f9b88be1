// Package payload pulls fields out of loosely shaped provider JSON.
//
// Providers place the same value under different keys and nesting levels
// depending on the API version and event type. Lookups are tried in order and
// the first non-empty value wins.
package payload

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

// Lookup reads one candidate location from a decoded JSON object.
type Lookup func(m map[string]any) (string, bool)

// Field returns a Lookup for a key path, e.g. Field("data", "status").
// Intermediate values must be JSON objects.
func Field(path ...string) Lookup {
	return func(m map[string]any) (string, bool) {
		cur := m
		for i, key := range path {
			v, ok := cur[key]
			if !ok || v == nil {
				return "", false
			}
			if i == len(path)-1 {
				return scalar(v)
			}
			next, ok := v.(map[string]any)
			if !ok {
				return "", false
			}
			cur = next
		}
		return "", false
	}
}

// First returns the trimmed value of the first lookup that yields a non-blank
// scalar, or "".
func First(m map[string]any, lookups ...Lookup) string {
	if m == nil {
		return ""
	}
	for _, l := range lookups {
		if v, ok := l(m); ok {
			if v = strings.TrimSpace(v); v != "" {
				return v
			}
		}
	}
	return ""
}

var statusLookups = []Lookup{
	Field("status"),
	Field("invoiceStatus"),
	Field("data", "status"),
}

var transactionIDLookups = []Lookup{
	Field("transaction_id"),
	Field("invoiceId"),
	Field("id"),
	Field("orderId"),
	Field("data", "invoiceId"),
	Field("data", "id"),
}

// ExtractStatus returns the lower-cased payment status, or "".
func ExtractStatus(m map[string]any) string {
	return strings.ToLower(First(m, statusLookups...))
}

// ExtractTransactionID returns the provider transaction id, or "".
func ExtractTransactionID(m map[string]any) string {
	return First(m, transactionIDLookups...)
}

var errTrailingData = errors.New("payload: trailing data after JSON object")

// Decode parses a single JSON object keeping numbers exact.
func Decode(body []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errTrailingData
	}
	if m == nil {
		m = map[string]any{}
	}
	return m, nil
}

func scalar(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case json.Number:
		if f, err := t.Float64(); err == nil && f == 0 {
			return "", false
		}
		return t.String(), true
	case float64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		if t == 0 {
			return "", false
		}
		return strconv.Itoa(t), true
	case int64:
		if t == 0 {
			return "", false
		}
		return strconv.FormatInt(t, 10), true
	}
	return "", false
}
