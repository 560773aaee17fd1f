package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// Fingerprint derives the deterministic cache key for a provider request.
// The key is "<capability>:<hex>" where the hex digest covers the capability,
// the provider name and a canonical serialization of the request parameters:
// object keys sorted, string values whitespace-normalized. Semantically
// identical requests collide on the same key regardless of incidental
// formatting.
func Fingerprint(capability, provider string, params interface{}) (string, error) {
	canonical, err := canonicalize(params)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s/%s: %w", capability, provider, err)
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s", capability, provider, canonical)
	return capability + ":" + hex.EncodeToString(h.Sum(nil)), nil
}

// canonicalize round-trips params through JSON so maps get sorted keys, then
// collapses whitespace inside string values.
func canonicalize(params interface{}) (string, error) {
	raw, err := json.Marshal(params)
	if err != nil {
		return "", err
	}

	var tree interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return "", err
	}
	normalizeStrings(&tree)

	out, err := json.Marshal(tree)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func normalizeStrings(v *interface{}) {
	switch t := (*v).(type) {
	case string:
		*v = strings.Join(strings.Fields(t), " ")
	case map[string]interface{}:
		for k := range t {
			val := t[k]
			normalizeStrings(&val)
			t[k] = val
		}
	case []interface{}:
		for i := range t {
			normalizeStrings(&t[i])
		}
	}
}
