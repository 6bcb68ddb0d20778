package enums

import "fmt"

// Capability names a package feature flag. The set is closed: feature data
// stored against a package is decoded against this enumeration once, at the
// storage boundary.
type Capability string

const (
	CapabilityQRCodes         Capability = "qr_codes"
	CapabilityVoiceClone      Capability = "voice_clone"
	CapabilityPrioritySupport Capability = "priority_support"
	CapabilityWatermarkFree   Capability = "watermark_free"
	CapabilityBulkDownload    Capability = "bulk_download"
)

var validCapabilities = []Capability{
	CapabilityQRCodes,
	CapabilityVoiceClone,
	CapabilityPrioritySupport,
	CapabilityWatermarkFree,
	CapabilityBulkDownload,
}

// String implements fmt.Stringer.
func (c Capability) String() string {
	return string(c)
}

// IsValid reports whether the value is a known Capability.
func (c Capability) IsValid() bool {
	for _, candidate := range validCapabilities {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCapability converts raw input into a Capability.
func ParseCapability(value string) (Capability, error) {
	for _, candidate := range validCapabilities {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid capability %q", value)
}
