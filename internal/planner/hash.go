package planner

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// ComputeStableHash canonicalizes a JSON-marshalable value and returns the
// lowercase hex SHA-256 of the canonical bytes. Object keys are sorted
// recursively; array order is preserved (it is semantically meaningful).
// Used as the equality oracle for "did two runs produce the same result".
func ComputeStableHash(v any) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("stable hash: marshal: %w", err)
	}
	// Round-trip through the generic JSON types so struct field order and
	// map iteration order stop mattering.
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("stable hash: decode: %w", err)
	}

	var buf bytes.Buffer
	if err := writeCanonical(&buf, decoded); err != nil {
		return "", err
	}
	sum := sha256.Sum256(buf.Bytes())
	return hex.EncodeToString(sum[:]), nil
}

// writeCanonical serializes the decoded JSON value with sorted object keys.
func writeCanonical(buf *bytes.Buffer, v any) error {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		buf.WriteByte('{')
		for i, k := range keys {
			if i > 0 {
				buf.WriteByte(',')
			}
			kb, err := json.Marshal(k)
			if err != nil {
				return fmt.Errorf("stable hash: key %q: %w", k, err)
			}
			buf.Write(kb)
			buf.WriteByte(':')
			if err := writeCanonical(buf, val[k]); err != nil {
				return err
			}
		}
		buf.WriteByte('}')
	case []any:
		buf.WriteByte('[')
		for i, item := range val {
			if i > 0 {
				buf.WriteByte(',')
			}
			if err := writeCanonical(buf, item); err != nil {
				return err
			}
		}
		buf.WriteByte(']')
	default:
		// Scalars: string, float64, bool, nil. encoding/json formats these
		// deterministically.
		b, err := json.Marshal(val)
		if err != nil {
			return fmt.Errorf("stable hash: scalar: %w", err)
		}
		buf.Write(b)
	}
	return nil
}
