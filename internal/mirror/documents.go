package mirror

import (
	"encoding/json"
	"fmt"
	"math"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// documents parses an upstream JSON array into raw documents ready for
// storage. Documents are not validated against any schema: the mirror
// stores whatever the upstream sent, so new upstream fields survive a
// round-trip without a code change.
func documents(raw []byte) ([]bson.M, error) {
	var items []map[string]any
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}

	docs := make([]bson.M, 0, len(items))
	for _, item := range items {
		docs = append(docs, normalizeDoc(item))
	}
	return docs, nil
}

// document parses a single JSON object (webhook payloads carry one entity
// per delivery).
func document(raw []byte) (bson.M, error) {
	var item map[string]any
	if err := json.Unmarshal(raw, &item); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadPayload, err)
	}
	return normalizeDoc(item), nil
}

// documentID extracts the upstream id from a normalized document.
func documentID(doc bson.M) (uint64, error) {
	id, ok := doc["id"].(int64)
	if !ok || id <= 0 {
		return 0, fmt.Errorf("%w: missing or invalid id", ErrBadPayload)
	}
	return uint64(id), nil
}

// normalizeDoc rewrites a decoded JSON object for storage: encoding/json
// produces float64 for every number, which would turn upstream int ids and
// enum values into doubles. Integral floats become int64 recursively;
// fractional values stay doubles.
func normalizeDoc(m map[string]any) bson.M {
	doc := make(bson.M, len(m))
	for k, v := range m {
		doc[k] = normalizeValue(v)
	}
	return doc
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt64 && t <= math.MaxInt64 {
			return int64(t)
		}
		return t
	case map[string]any:
		return normalizeDoc(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = normalizeValue(e)
		}
		return out
	default:
		return v
	}
}
