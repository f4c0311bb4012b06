// Package blob provides the persisted key-value blob store the
// application collection lives in. A value is an opaque byte slice (in
// practice a JSON snapshot); the store notifies subscribers when a
// different context writes the same key, which is how independently
// running portal surfaces observe each other's mutations.
package blob

import "context"

// Store persists byte blobs under logical keys.
//
// Subscribe registers a handler for external writes: writes performed
// through a *different* Store handle (another browsing context, another
// process). A handle is never called back for its own writes.
type Store interface {
	// Read returns the blob under key. The second result is false when
	// the key is absent, which is not an error.
	Read(ctx context.Context, key string) ([]byte, bool, error)

	// Write persists data under key, replacing any previous value.
	Write(ctx context.Context, key string, data []byte) error

	// Subscribe registers handler for external writes and returns a
	// function that unregisters it.
	Subscribe(handler func(key string, data []byte)) (unsubscribe func())

	// Close releases watch resources. The store must not be used after.
	Close() error
}
