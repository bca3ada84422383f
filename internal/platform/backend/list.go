package backend

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// decodeList normalizes the backend's list responses. Some endpoints return a
// bare array, paginated ones wrap it as {"content": [...]}, and an empty body
// or null means no rows.
func decodeList[T any](operation string, raw []byte) ([]T, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return []T{}, nil
	}

	switch trimmed[0] {
	case '[':
		var out []T
		if err := json.Unmarshal(trimmed, &out); err != nil {
			return nil, errors.Wrapf(err, "%s: decode list", operation)
		}
		if out == nil {
			out = []T{}
		}
		return out, nil
	case '{':
		var page struct {
			Content []T `json:"content"`
		}
		if err := json.Unmarshal(trimmed, &page); err != nil {
			return nil, errors.Wrapf(err, "%s: decode page", operation)
		}
		if page.Content == nil {
			return []T{}, nil
		}
		return page.Content, nil
	default:
		return nil, errors.Errorf("%s: unexpected list payload", operation)
	}
}
