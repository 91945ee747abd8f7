package store

import (
	"encoding/json"
	"fmt"
)

// MergeJSON deep-merges patch into base. Objects merge key by key; every
// other value in patch replaces the one in base. A nil or empty base is
// treated as an empty object.
func MergeJSON(base, patch json.RawMessage) (json.RawMessage, error) {
	var baseVal any = map[string]any{}
	if len(base) > 0 {
		if err := json.Unmarshal(base, &baseVal); err != nil {
			return nil, fmt.Errorf("store: decode merge base: %w", err)
		}
	}
	var patchVal any
	if err := json.Unmarshal(patch, &patchVal); err != nil {
		return nil, fmt.Errorf("store: decode merge patch: %w", err)
	}
	if _, ok := patchVal.(map[string]any); !ok {
		return nil, fmt.Errorf("store: merge patch must be a JSON object")
	}
	merged, err := json.Marshal(mergeValue(baseVal, patchVal))
	if err != nil {
		return nil, fmt.Errorf("store: encode merged document: %w", err)
	}
	return merged, nil
}

func mergeValue(base, patch any) any {
	patchMap, ok := patch.(map[string]any)
	if !ok {
		return patch
	}
	baseMap, ok := base.(map[string]any)
	if !ok {
		baseMap = map[string]any{}
	}
	out := make(map[string]any, len(baseMap)+len(patchMap))
	for k, v := range baseMap {
		out[k] = v
	}
	for k, v := range patchMap {
		out[k] = mergeValue(out[k], v)
	}
	return out
}
