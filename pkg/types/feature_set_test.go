package types

import (
	"encoding/json"
	"testing"

	"github.com/memowindow/memowindow-backend/pkg/enums"
)

func TestFeatureSetDecodeDropsUnknownKeys(t *testing.T) {
	raw := `{"qr_codes": true, "jetpack": true, "voice_clone": false}`

	var set FeatureSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(set) != 2 {
		t.Fatalf("expected 2 known capabilities, got %d", len(set))
	}
	if !set.Has(enums.CapabilityQRCodes) {
		t.Fatalf("expected qr_codes enabled")
	}
	if set.Has(enums.CapabilityVoiceClone) {
		t.Fatalf("expected voice_clone disabled")
	}
}

func TestFeatureSetDecodeCoercesLegacyValues(t *testing.T) {
	raw := `{"qr_codes": 1, "priority_support": "true", "watermark_free": 0, "bulk_download": "no"}`

	var set FeatureSet
	if err := json.Unmarshal([]byte(raw), &set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !set.Has(enums.CapabilityQRCodes) {
		t.Fatalf("numeric 1 should decode as enabled")
	}
	if !set.Has(enums.CapabilityPrioritySupport) {
		t.Fatalf("string \"true\" should decode as enabled")
	}
	if set.Has(enums.CapabilityWatermarkFree) {
		t.Fatalf("numeric 0 should decode as disabled")
	}
	if set.Has(enums.CapabilityBulkDownload) {
		t.Fatalf("string \"no\" should decode as disabled")
	}
}

func TestFeatureSetDecodeNull(t *testing.T) {
	var set FeatureSet
	if err := json.Unmarshal([]byte(`null`), &set); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if set != nil {
		t.Fatalf("expected nil set for null input")
	}
}

func TestFeatureSetRoundTrip(t *testing.T) {
	set := FeatureSet{
		enums.CapabilityQRCodes:       true,
		enums.CapabilityWatermarkFree: true,
	}

	encoded, err := json.Marshal(set)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var decoded FeatureSet
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(decoded) != 2 || !decoded.Has(enums.CapabilityQRCodes) || !decoded.Has(enums.CapabilityWatermarkFree) {
		t.Fatalf("round trip mismatch: %v", decoded)
	}
}
