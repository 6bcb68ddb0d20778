package types

import (
	"bytes"
	"encoding/json"

	"github.com/memowindow/memowindow-backend/pkg/enums"
)

// FeatureSet is the typed capability mapping stored against a subscription
// package. Rows persist it as JSON; decoding happens once here, at the
// storage boundary. Unknown capability names are dropped rather than failing
// the whole row, so one bad key cannot break every package listing.
type FeatureSet map[enums.Capability]bool

// Has reports whether the capability is present and enabled.
func (f FeatureSet) Has(capability enums.Capability) bool {
	return f[capability]
}

// UnmarshalJSON decodes the stored form, keeping only known capabilities.
// Legacy rows stored values as booleans, numbers, or strings; all are
// coerced to the flag's truthiness.
func (f *FeatureSet) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*f = nil
		return nil
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := FeatureSet{}
	for key, value := range raw {
		capability, err := enums.ParseCapability(key)
		if err != nil {
			continue
		}
		out[capability] = truthy(value)
	}
	*f = out
	return nil
}

func truthy(raw json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		return b
	}
	var n float64
	if err := json.Unmarshal(raw, &n); err == nil {
		return n != 0
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s == "true" || s == "1" || s == "yes"
	}
	return false
}
