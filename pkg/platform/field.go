package platform

import (
	"encoding/json"
	"strings"
)

// FieldValue is a loosely typed API field normalized to a canonical string.
//
// Control-plane responses encode the same field three different ways
// depending on which API surface produced them: a bare string
// ("RUNNING"), an enum object ({"value": "RUNNING"}), or occasionally a
// number. FieldValue decodes all of these without error and exposes the
// canonical uppercase string form for comparisons.
type FieldValue struct {
	raw string
}

// Field constructs a FieldValue from a plain string. Used by tests and
// by fakes that build wire objects directly.
func Field(s string) FieldValue {
	return FieldValue{raw: s}
}

// UnmarshalJSON accepts any JSON shape. It never returns an error:
// an unrecognized shape decodes to its raw JSON text so the value is
// still visible in logs instead of silently vanishing.
func (f *FieldValue) UnmarshalJSON(data []byte) error {
	// Bare string
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		f.raw = s
		return nil
	}

	// Enum object with a "value" key
	var obj struct {
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err == nil && obj.Value != nil {
		var inner FieldValue
		_ = inner.UnmarshalJSON(obj.Value)
		f.raw = inner.raw
		return nil
	}

	// Number
	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		f.raw = n.String()
		return nil
	}

	// Fallback: keep the raw text, trimmed of surrounding whitespace
	f.raw = strings.TrimSpace(string(data))
	return nil
}

// MarshalJSON renders the canonical string form.
func (f FieldValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.raw)
}

// String returns the value as decoded, without case folding.
func (f FieldValue) String() string {
	return f.raw
}

// Canonical returns the uppercase form used for state comparisons.
func (f FieldValue) Canonical() string {
	return strings.ToUpper(strings.TrimSpace(f.raw))
}

// IsZero reports whether the field was absent or empty.
func (f FieldValue) IsZero() bool {
	return f.raw == ""
}

// Is reports whether the canonical form equals any of the given states.
// States are compared case-insensitively.
func (f FieldValue) Is(states ...string) bool {
	c := f.Canonical()
	for _, s := range states {
		if c == strings.ToUpper(s) {
			return true
		}
	}
	return false
}
