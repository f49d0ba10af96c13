package metadata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gatherer/internal/common"
)

// LoadJSON decodes the value stored under key into v. found is false when
// the key is absent, in which case v is left untouched.
func LoadJSON(ctx context.Context, r Repository, key Key, v any) (found bool, err error) {
	raw, err := r.Get(ctx, key)
	if errors.Is(err, common.ErrorNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// SaveJSON stores v under key as JSON.
func SaveJSON(ctx context.Context, r Repository, key Key, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return r.Put(ctx, key, raw)
}
