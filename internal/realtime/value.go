package realtime

import (
	"encoding/json"
	"sort"
)

// Value is the JSON object stored at one path.
type Value = map[string]any

// Entry is one child of a collection in a snapshot.
type Entry struct {
	Key   string `json:"key"`
	Value Value  `json:"value"`
}

// normalize round-trips v through JSON so every backend hands out the same types
// (numbers as float64, nested objects as map[string]any) and callers never share
// maps with the store.
func normalize(v Value) (Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return decode(b)
}

func decode(b []byte) (Value, error) {
	var out Value
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	if out == nil {
		out = Value{}
	}
	return out, nil
}

func clone(v Value) Value {
	out := make(Value, len(v))
	for k, x := range v {
		out[k] = cloneAny(x)
	}
	return out
}

func cloneAny(x any) any {
	switch t := x.(type) {
	case map[string]any:
		return clone(t)
	case []any:
		s := make([]any, len(t))
		for i := range t {
			s[i] = cloneAny(t[i])
		}
		return s
	default:
		return t
	}
}

// merge applies a shallow update: top-level keys of patch replace those of base.
func merge(base, patch Value) Value {
	out := clone(base)
	for k, x := range patch {
		if x == nil {
			delete(out, k)
			continue
		}
		out[k] = cloneAny(x)
	}
	return out
}

func sortEntries(es []Entry) {
	sort.Slice(es, func(i, j int) bool { return es[i].Key < es[j].Key })
}

// Int64 reads a numeric field regardless of how the backend decoded it.
func Int64(v Value, key string) int64 {
	switch n := v[key].(type) {
	case float64:
		return int64(n)
	case int64:
		return n
	case int:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	default:
		return 0
	}
}

func Bool(v Value, key string) bool {
	b, _ := v[key].(bool)
	return b
}

// Decode converts a stored value into a typed record.
func Decode[T any](v Value) (T, error) {
	var out T
	b, err := json.Marshal(v)
	if err != nil {
		return out, err
	}
	err = json.Unmarshal(b, &out)
	return out, err
}

// Encode converts a typed record into a storable value.
func Encode(rec any) (Value, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, err
	}
	return decode(b)
}
