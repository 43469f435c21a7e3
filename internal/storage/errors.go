package storage

import (
	"fmt"

	"hisaab/internal/core"
)

// Unavailable tags err as a store failure for the given operation.
func Unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}

// NotFound reports a missing row for the given operation.
func NotFound(op, id string) error {
	return fmt.Errorf("%s %q: %w", op, id, core.ErrNotFound)
}
