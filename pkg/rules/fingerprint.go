package rules

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

const (
	// FingerprintLength is the number of hex characters kept from the
	// SHA-256 digest. 16 hex chars (64 bits) keeps collisions negligible
	// at realistic rule-set sizes while staying readable in logs.
	FingerprintLength = 16
)

// Fingerprint computes the content fingerprint of a rule's semantic fields.
// The identifier and description are deliberately excluded so that two rules
// differing only cosmetically hash identically. The threshold is
// canonicalized through JSON so 10000 and 10000.0 supplied via different
// decoders compare equal.
func Fingerprint(kind Kind, field, operator string, threshold any) string {
	thresholdJSON, err := json.Marshal(threshold)
	if err != nil {
		// Non-serializable thresholds are rejected at validation; fall back
		// to the Go string form so the hash is still deterministic.
		thresholdJSON = []byte(fmt.Sprintf("%v", threshold))
	}

	material := string(kind) + "|" + field + "|" + operator + "|" + string(thresholdJSON)

	hash := sha256.Sum256([]byte(material))
	return hex.EncodeToString(hash[:])[:FingerprintLength]
}
