// Package metadata is the CLI's local key/value store. It keeps the
// persisted session (access token, refresh cookie, user) between runs.
package metadata

import (
	"context"
)

// Repository reads and writes string values by key. A missing key is
// reported as common.ErrorNotFound.
type Repository interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, keys ...string) error
	Clear(ctx context.Context) error
}
