package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// FingerprintOf hashes the semantically relevant content of an outbound
// payload. The payload is re-encoded through a map so keys are emitted in
// canonical (sorted) order: unrelated representation changes never move the
// hash, identical inputs always reproduce it.
func FingerprintOf(payload DestinationPayload) (string, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encoding payload for fingerprint: %v", ErrValidation, err)
	}

	var canonical map[string]any
	if err := json.Unmarshal(raw, &canonical); err != nil {
		return "", fmt.Errorf("%w: canonicalizing payload: %v", ErrValidation, err)
	}

	data, err := json.Marshal(canonical)
	if err != nil {
		return "", fmt.Errorf("%w: encoding canonical payload: %v", ErrValidation, err)
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
