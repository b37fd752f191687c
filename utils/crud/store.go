package crud

import (
	"context"

	"github.com/pkg/errors"
)

// Store is the object store behind crash storage. Every artifact of a crash
// lives under the crash ID with its own artifact name, for example
// raw_crash, dump_names, processed_crash, or the name of a dump.
type Store interface {
	// Submit writes data for the named artifact of a crash, replacing any
	// previous data.
	Submit(ctx context.Context, crashID string, name string, data []byte) error

	// Fetch reads the named artifact of a crash. When the artifact does not
	// exist the returned error wraps ErrRecordDoesNotExist.
	Fetch(ctx context.Context, crashID string, name string) ([]byte, error)
}

// HasConnect indicates that a struct must be initialized using the Connect
// method before the interface's methods are called.
type HasConnect interface {
	Connect() error
}

// HasClose indicates that a struct must be cleaned up using the Close
// method before the interface's methods are called.
type HasClose interface {
	Close() error
}

// HasRetriable indicates that a store can tell transient failures, which
// are worth retrying after a reconnect, from permanent ones.
type HasRetriable interface {
	IsRetriable(err error) bool
}

// ErrRecordDoesNotExist is returned, possibly wrapped, when an artifact is
// not found in the store.
var ErrRecordDoesNotExist = errors.New("record does not exist")
