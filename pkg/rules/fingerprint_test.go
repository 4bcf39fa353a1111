package rules

import "testing"

func TestFingerprint_Deterministic(t *testing.T) {
	first := Fingerprint(KindThreshold, "amount", ">", 10000)
	second := Fingerprint(KindThreshold, "amount", ">", 10000)

	if first != second {
		t.Errorf("fingerprint not deterministic: %q != %q", first, second)
	}
	if len(first) != FingerprintLength {
		t.Errorf("expected fingerprint length %d, got %d", FingerprintLength, len(first))
	}
}

func TestFingerprint_IgnoresIdentityFields(t *testing.T) {
	a := Rule{
		ID:          "rule-001",
		Kind:        KindThreshold,
		Description: "transactions over ten thousand",
		Field:       "amount",
		Operator:    ">",
		Threshold:   10000,
	}
	b := Rule{
		ID:          "rule-999",
		Kind:        KindThreshold,
		Description: "large transaction check (renamed)",
		Field:       "amount",
		Operator:    ">",
		Threshold:   10000,
	}

	fpA := Fingerprint(a.Kind, a.Field, a.Operator, a.Threshold)
	fpB := Fingerprint(b.Kind, b.Field, b.Operator, b.Threshold)
	if fpA != fpB {
		t.Errorf("identity fields leaked into fingerprint: %q != %q", fpA, fpB)
	}
}

func TestFingerprint_SensitiveToSemanticFields(t *testing.T) {
	base := Fingerprint(KindThreshold, "amount", ">", 10000)

	variants := []struct {
		name string
		fp   string
	}{
		{"different kind", Fingerprint(KindFrequency, "amount", ">", 10000)},
		{"different field", Fingerprint(KindThreshold, "balance", ">", 10000)},
		{"different operator", Fingerprint(KindThreshold, "amount", ">=", 10000)},
		{"different threshold", Fingerprint(KindThreshold, "amount", ">", 10001)},
	}
	for _, v := range variants {
		if v.fp == base {
			t.Errorf("%s produced the same fingerprint %q", v.name, base)
		}
	}
}

func TestFingerprint_ThresholdCanonicalizedThroughJSON(t *testing.T) {
	// An int from YAML and a float64 from JSON must hash identically.
	asInt := Fingerprint(KindThreshold, "amount", ">", 10000)
	asFloat := Fingerprint(KindThreshold, "amount", ">", 10000.0)

	if asInt != asFloat {
		t.Errorf("int and float thresholds diverge: %q != %q", asInt, asFloat)
	}
}

func TestFingerprint_ListThreshold(t *testing.T) {
	asStrings := Fingerprint(KindJurisdiction, "country", "IN", []string{"US", "GB"})
	asAny := Fingerprint(KindJurisdiction, "country", "IN", []any{"US", "GB"})

	if asStrings != asAny {
		t.Errorf("equivalent lists diverge: %q != %q", asStrings, asAny)
	}

	reordered := Fingerprint(KindJurisdiction, "country", "IN", []string{"GB", "US"})
	if reordered == asStrings {
		t.Error("list order should be part of the fingerprint")
	}
}
