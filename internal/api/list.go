package api

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// DecodeList decodes a JSON array. The backend drops the array for empty
// results, so null, an empty body or any non-array value yields an empty,
// non-nil slice.
func DecodeList[T any](raw json.RawMessage) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(trimmed, &out); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}
