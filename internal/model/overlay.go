package model

import (
	"bytes"
	"encoding/json"
)

// MergeOverlay implements §4.2: given a freshly generated envelope G and the
// stored raw envelope R, restore unknown vendor fields from R into G while
// letting G's fields win.
//
// Rules:
//  1. If either lacks a string "type", or their "type" differs, G is
//     returned unchanged.
//  2. Otherwise merge(R, G): for objects, start with R's keys; for each key
//     present in G, replace its value with merge(R[k], G[k]) when both are
//     objects/arrays, else with G's value. G's fields win; R's extra keys
//     survive. Arrays zip by index, recursing; G's length governs.
func MergeOverlay(generated, raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return generated
	}

	gType, gOK := topLevelType(generated)
	rType, rOK := topLevelType(raw)
	if !gOK || !rOK || gType != rType {
		return generated
	}

	var gVal, rVal any
	dg := json.NewDecoder(bytes.NewReader(generated))
	dg.UseNumber()
	if err := dg.Decode(&gVal); err != nil {
		return generated
	}
	dr := json.NewDecoder(bytes.NewReader(raw))
	dr.UseNumber()
	if err := dr.Decode(&rVal); err != nil {
		return generated
	}

	merged := mergeValue(rVal, gVal)
	out, err := marshalPreservingNumbers(merged)
	if err != nil {
		return generated
	}
	return out
}

func topLevelType(data json.RawMessage) (string, bool) {
	var env struct {
		Type *string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", false
	}
	if env.Type == nil {
		return "", false
	}
	return *env.Type, true
}

// mergeValue merges r (raw) with g (generated): objects start with r's keys,
// each key in g overwrites (recursively when both sides are objects or
// arrays); g's length governs array merges.
func mergeValue(r, g any) any {
	switch gv := g.(type) {
	case map[string]any:
		rv, ok := r.(map[string]any)
		if !ok {
			return gv
		}
		out := make(map[string]any, len(rv)+len(gv))
		for k, v := range rv {
			out[k] = v
		}
		for k, v := range gv {
			if rSub, ok := out[k]; ok && isContainer(rSub) && isContainer(v) {
				out[k] = mergeValue(rSub, v)
			} else {
				out[k] = v
			}
		}
		return out
	case []any:
		rv, ok := r.([]any)
		if !ok {
			return gv
		}
		out := make([]any, len(gv))
		for i, v := range gv {
			if i < len(rv) && isContainer(rv[i]) && isContainer(v) {
				out[i] = mergeValue(rv[i], v)
			} else {
				out[i] = v
			}
		}
		return out
	default:
		return gv
	}
}

func isContainer(v any) bool {
	switch v.(type) {
	case map[string]any, []any:
		return true
	default:
		return false
	}
}

// marshalPreservingNumbers re-marshals a value decoded with UseNumber so
// json.Number literals are emitted verbatim instead of round-tripped
// through float64.
func marshalPreservingNumbers(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	out := buf.Bytes()
	// encoder.Encode appends a trailing newline; trim it to match
	// json.Marshal's output convention.
	if len(out) > 0 && out[len(out)-1] == '\n' {
		out = out[:len(out)-1]
	}
	return out, nil
}
