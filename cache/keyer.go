package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// maxCanonicalDepth bounds nesting so cyclic maps fail instead of recursing forever.
const maxCanonicalDepth = 64

// GenerateKey derives a canonical cache key from a prefix and a parameter set.
//
// Format: <prefix>:<k1>:<json(v1)>|<k2>:<json(v2)>...
// with keys sorted lexicographically, so insertion order never matters.
// Nested maps are encoded with sorted keys; slices keep their order.
// Values that cannot be encoded as JSON return an error wrapping
// ErrUnsupportedValue.
func GenerateKey(prefix string, params map[string]any) (string, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte(':')
	for i, k := range keys {
		if i > 0 {
			b.WriteByte('|')
		}
		val, err := canonicalize(params[k], 0)
		if err != nil {
			return "", fmt.Errorf("%w: param %q: %v", ErrUnsupportedValue, k, err)
		}
		b.WriteString(k)
		b.WriteByte(':')
		b.Write(val)
	}
	return b.String(), nil
}

// MustGenerateKey is like GenerateKey but panics on unencodable values.
// Use it only with parameter sets built from plain literals.
func MustGenerateKey(prefix string, params map[string]any) string {
	key, err := GenerateKey(prefix, params)
	if err != nil {
		panic(err)
	}
	return key
}

// Keyer generates deterministic cache keys from tool execution parameters.
//
// Contract:
// - Determinism: same inputs must produce same key, regardless of map iteration order.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key generates a cache key from tool ID and input.
	Key(toolID string, input any) (string, error)
}

// DefaultKeyer produces readable keys with GenerateKey.
type DefaultKeyer struct{}

// NewDefaultKeyer creates a new default keyer.
func NewDefaultKeyer() *DefaultKeyer {
	return &DefaultKeyer{}
}

// Key uses the tool ID as prefix. Map inputs go through GenerateKey; any other
// input is appended as canonical JSON.
func (k *DefaultKeyer) Key(toolID string, input any) (string, error) {
	if params, ok := input.(map[string]any); ok {
		return GenerateKey(toolID, params)
	}

	canonical, err := canonicalize(input, 0)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
	}
	return toolID + ":" + string(canonical), nil
}

// HashKeyer wraps another Keyer and replaces keys that fail ValidateKey
// (too long, or containing line breaks) with a fixed-size digest.
type HashKeyer struct {
	inner Keyer
}

// NewHashKeyer creates a HashKeyer. A nil inner keyer selects DefaultKeyer.
func NewHashKeyer(inner Keyer) *HashKeyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &HashKeyer{inner: inner}
}

// Key returns the inner key when it is valid, otherwise
// cache:<toolID>:<first 16 hex chars of SHA-256(inner key)>.
func (k *HashKeyer) Key(toolID string, input any) (string, error) {
	key, err := k.inner.Key(toolID, input)
	if err != nil {
		return "", err
	}
	if ValidateKey(key) == nil {
		return key, nil
	}

	hash := sha256.Sum256([]byte(key))
	return fmt.Sprintf("cache:%s:%s", toolID, hex.EncodeToString(hash[:8])), nil
}

// canonicalize produces a deterministic JSON representation of the input.
// Maps are sorted by key to ensure consistent ordering.
func canonicalize(v any, depth int) ([]byte, error) {
	if depth > maxCanonicalDepth {
		return nil, fmt.Errorf("nesting exceeds %d levels", maxCanonicalDepth)
	}
	if v == nil {
		return []byte("null"), nil
	}

	switch val := v.(type) {
	case map[string]any:
		return canonicalizeMap(val, depth)
	case []any:
		return canonicalizeSlice(val, depth)
	default:
		return json.Marshal(v)
	}
}

func canonicalizeMap(m map[string]any, depth int) ([]byte, error) {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	result := []byte("{")
	for i, k := range keys {
		if i > 0 {
			result = append(result, ',')
		}

		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k], depth+1)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any, depth int) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v, depth+1)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

var (
	_ Keyer = (*DefaultKeyer)(nil)
	_ Keyer = (*HashKeyer)(nil)
)
