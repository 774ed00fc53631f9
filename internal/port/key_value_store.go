package port

import "context"

// KeyValueStore mirrors session state across restarts. It is a best-effort
// target: callers never treat a failed write as fatal.
type KeyValueStore interface {
	// Get returns the stored value and whether the key exists
	Get(ctx context.Context, key string) (string, bool, error)

	// Set overwrites the value stored at key
	Set(ctx context.Context, key, value string) error
}
