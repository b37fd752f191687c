package crud

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/pkg/errors"
)

var _ Store = &BackingStore{}

const (
	// DefaultMaxRetries is how many times a transient failure is retried.
	DefaultMaxRetries = 5
	// DefaultInitialInterval is the first wait between attempts.
	DefaultInitialInterval = time.Second
	// DefaultMaxInterval caps the wait between attempts.
	DefaultMaxInterval = 5 * time.Minute
)

// BackingStore wraps another store that may have Connect/Close methods that
// need to be called.
//   - Connect is called before a method when the connection is closed.
//   - Close is called after each method when AutoClose is true (default) and
//     no other call is still using the connection.
//
// It also exposes what the retry policy needs to know about the store:
// which errors are transient, how to reconnect and how long to wait between
// attempts.
type BackingStore struct {

	// AutoClose specifies if the connection should be automatically
	// closed when done accessing the backing store.
	AutoClose bool

	// NewBackOff returns the wait schedule for one retried operation.
	NewBackOff func() backoff.BackOff

	mu sync.Mutex

	// opened specifies if the backing store's connect has been called
	// and has not been closed yet.
	opened bool

	// managed is set when Connect was called explicitly; the caller then
	// owns the connection and it is never closed automatically.
	managed bool

	// inUse counts calls currently running against the connection.
	inUse int

	// connect handler for the backing store, if defined.
	connect func() error

	// close handler for the backing store, if defined.
	close func() error

	// retriable classifies errors for the backing store, if defined.
	retriable func(error) bool

	// backingStore being wrapped.
	backingStore Store
}

// NewBackingStore wraps store. A store that is already a *BackingStore is
// returned unchanged.
func NewBackingStore(store Store) *BackingStore {
	if bs, ok := store.(*BackingStore); ok {
		return bs
	}

	backingStore := BackingStore{
		AutoClose:    true,
		NewBackOff:   DefaultBackOff,
		backingStore: store,
	}

	if connectable, ok := store.(HasConnect); ok {
		backingStore.connect = connectable.Connect
	}

	if closable, ok := store.(HasClose); ok {
		backingStore.close = closable.Close
	}

	if classifier, ok := store.(HasRetriable); ok {
		backingStore.retriable = classifier.IsRetriable
	}

	return &backingStore
}

// DefaultBackOff is an exponential schedule starting at DefaultInitialInterval,
// capped at DefaultMaxInterval, giving up after DefaultMaxRetries retries.
func DefaultBackOff() backoff.BackOff {
	return NewExponentialBackOff(DefaultInitialInterval, DefaultMaxInterval, DefaultMaxRetries)
}

// NewExponentialBackOff builds an exponential schedule that stops after
// maxRetries retries.
func NewExponentialBackOff(initial, maxInterval time.Duration, maxRetries uint64) backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()
	return backoff.WithMaxRetries(b, maxRetries)
}

// Connect opens the connection and keeps it open until Close is called.
func (s *BackingStore) Connect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.managed = true
	return s.open()
}

// Close closes the connection.
func (s *BackingStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.managed = false
	return s.shut()
}

// Reconnect drops the current connection so that the next call opens a
// fresh one. Stores without a Connect method are left alone.
func (s *BackingStore) Reconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.connect == nil {
		return nil
	}
	if err := s.shut(); err != nil {
		return errors.Wrap(err, "closing connection")
	}
	if s.managed || s.inUse > 0 {
		return s.open()
	}
	return nil
}

// IsRetriable reports whether err is a transient failure of the backing
// store. Missing records are never transient.
func (s *BackingStore) IsRetriable(err error) bool {
	if err == nil || errors.Is(err, ErrRecordDoesNotExist) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if s.retriable != nil {
		return s.retriable(err)
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// BackOff returns a fresh wait schedule for one operation.
func (s *BackingStore) BackOff() backoff.BackOff {
	if s.NewBackOff == nil {
		return DefaultBackOff()
	}
	return s.NewBackOff()
}

// Unwrap returns the wrapped store.
func (s *BackingStore) Unwrap() Store {
	return s.backingStore
}

func (s *BackingStore) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	if err := s.acquire(); err != nil {
		return err
	}
	defer s.release()

	return s.backingStore.Submit(ctx, crashID, name, data)
}

func (s *BackingStore) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	if err := s.acquire(); err != nil {
		return nil, err
	}
	defer s.release()

	return s.backingStore.Fetch(ctx, crashID, name)
}

func (s *BackingStore) acquire() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.open(); err != nil {
		return err
	}
	s.inUse++
	return nil
}

func (s *BackingStore) release() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.inUse--
	if s.inUse == 0 && s.AutoClose && !s.managed {
		// A failed close leaves nothing to retry; the next call reconnects.
		_ = s.shut()
	}
}

func (s *BackingStore) open() error {
	if s.opened || s.connect == nil {
		return nil
	}
	if err := s.connect(); err != nil {
		return err
	}
	s.opened = true
	return nil
}

func (s *BackingStore) shut() error {
	if !s.opened {
		return nil
	}
	s.opened = false
	if s.close != nil {
		return s.close()
	}
	return nil
}
