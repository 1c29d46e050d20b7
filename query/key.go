package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Key identifies one cached query: a resource kind followed by zero or more
// JSON-compatible parameters.
//
// Contract:
// - Immutability: a Key never changes after construction.
// - Equality: two keys are equal iff their canonical JSON forms are equal,
//   regardless of map iteration or insertion order.
type Key struct {
	kind   string
	params []any
	parts  []string
	str    string
}

// NewKey builds a Key and panics if a parameter cannot be encoded as JSON.
// Use MakeKey when parameters come from untrusted input.
func NewKey(kind string, params ...any) Key {
	k, err := MakeKey(kind, params...)
	if err != nil {
		panic(err)
	}
	return k
}

// MakeKey builds a Key from a kind and parameters.
// Format: ["<kind>",<param>,...] with object keys sorted.
func MakeKey(kind string, params ...any) (Key, error) {
	if err := ValidateKind(kind); err != nil {
		return Key{}, err
	}

	k := Key{
		kind:   kind,
		params: make([]any, len(params)),
		parts:  make([]string, len(params)),
	}

	kindJSON, err := marshal(kind)
	if err != nil {
		return Key{}, fmt.Errorf("query: failed to encode kind: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	buf.Write(kindJSON)
	for i, p := range params {
		norm, err := normalize(p)
		if err != nil {
			return Key{}, fmt.Errorf("query: failed to canonicalize param %d: %w", i, err)
		}
		canonical, err := canonicalize(norm)
		if err != nil {
			return Key{}, fmt.Errorf("query: failed to canonicalize param %d: %w", i, err)
		}
		k.params[i] = norm
		k.parts[i] = string(canonical)
		buf.WriteByte(',')
		buf.Write(canonical)
	}
	buf.WriteByte(']')
	k.str = buf.String()

	return k, nil
}

// Kind returns the resource kind.
func (k Key) Kind() string {
	return k.kind
}

// Len returns the number of parameters.
func (k Key) Len() int {
	return len(k.params)
}

// Params returns the normalized parameters. Objects come back as
// map[string]any and numbers as json.Number.
func (k Key) Params() []any {
	out := make([]any, len(k.params))
	copy(out, k.params)
	return out
}

// String returns the canonical JSON form of the key.
func (k Key) String() string {
	return k.str
}

// IsZero reports whether k was never constructed.
func (k Key) IsZero() bool {
	return k.str == ""
}

// Equal reports structural equality.
func (k Key) Equal(other Key) bool {
	return k.str == other.str
}

// HasPrefix reports whether k has the same kind as prefix and starts with
// all of prefix's parameters.
func (k Key) HasPrefix(prefix Key) bool {
	if k.kind != prefix.kind || len(k.parts) < len(prefix.parts) {
		return false
	}
	for i, part := range prefix.parts {
		if k.parts[i] != part {
			return false
		}
	}
	return true
}

// MarshalJSON encodes the key as its canonical array form.
func (k Key) MarshalJSON() ([]byte, error) {
	if k.str == "" {
		return []byte("null"), nil
	}
	return []byte(k.str), nil
}

// normalize turns any JSON-encodable value into the generic tree produced by
// encoding/json, so structs and maps with the same fields collapse together.
func normalize(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// canonicalize produces a deterministic JSON representation of a normalized
// value. Maps are sorted by key.
func canonicalize(v any) ([]byte, error) {
	switch val := v.(type) {
	case nil:
		return []byte("null"), nil
	case map[string]any:
		return canonicalizeMap(val)
	case []any:
		return canonicalizeSlice(val)
	case json.Number:
		return []byte(val.String()), nil
	default:
		return marshal(v)
	}
}

// marshal encodes v without HTML escaping so keys read the same as the
// parameters they were built from.
func marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func canonicalizeMap(m map[string]any) ([]byte, error) {
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

		keyBytes, err := marshal(k)
		if err != nil {
			return nil, err
		}
		result = append(result, keyBytes...)
		result = append(result, ':')

		valBytes, err := canonicalize(m[k])
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, '}')

	return result, nil
}

func canonicalizeSlice(s []any) ([]byte, error) {
	result := []byte("[")
	for i, v := range s {
		if i > 0 {
			result = append(result, ',')
		}

		valBytes, err := canonicalize(v)
		if err != nil {
			return nil, err
		}
		result = append(result, valBytes...)
	}
	result = append(result, ']')

	return result, nil
}

// Predicate selects cache entries by key.
type Predicate func(Key) bool

// MatchKind matches every key whose kind is one of kinds, whatever its params.
func MatchKind(kinds ...string) Predicate {
	set := make(map[string]struct{}, len(kinds))
	for _, kind := range kinds {
		set[kind] = struct{}{}
	}
	return func(k Key) bool {
		_, ok := set[k.kind]
		return ok
	}
}

// MatchPrefix matches keys that extend prefix (including prefix itself).
func MatchPrefix(prefix Key) Predicate {
	return func(k Key) bool {
		return k.HasPrefix(prefix)
	}
}

// MatchExact matches exactly one key.
func MatchExact(key Key) Predicate {
	return func(k Key) bool {
		return k.Equal(key)
	}
}

// MatchAll accepts every key.
func MatchAll() Predicate {
	return func(Key) bool { return true }
}

// MatchAny matches keys accepted by at least one of preds.
func MatchAny(preds ...Predicate) Predicate {
	return func(k Key) bool {
		for _, p := range preds {
			if p != nil && p(k) {
				return true
			}
		}
		return false
	}
}
