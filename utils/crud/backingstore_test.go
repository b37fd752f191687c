package crud

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBackingStore_Fetch(t *testing.T) {
	testcases := []struct {
		name      string
		autoclose bool
	}{
		{name: "Default AutoClose Connections", autoclose: true},
		{name: "Self Managed Connections", autoclose: false},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewMockStore()
			s.data[s.key(testCrashID, "key1")] = []byte("value1")
			bs := NewBackingStore(s)
			bs.AutoClose = tc.autoclose

			val, err := bs.Fetch(ctx, testCrashID, "key1")
			require.NoError(t, err, "expected Fetch to succeed")
			assert.Equal(t, "value1", string(val), "Fetch returned the wrong data")

			assert.Equal(t, 1, s.GetConnectCount(), "Connect should have been called once")
			if tc.autoclose {
				assert.Equal(t, 1, s.GetCloseCount(), "Close should have been automatically called")
			} else {
				assert.Equal(t, 0, s.GetCloseCount(), "Close should not be automatically called")
			}
		})
	}
}

func TestBackingStore_Submit(t *testing.T) {
	testcases := []struct {
		name      string
		autoclose bool
	}{
		{name: "Default AutoClose Connections", autoclose: true},
		{name: "Self Managed Connections", autoclose: false},
	}

	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			s := NewMockStore()
			bs := NewBackingStore(s)
			bs.AutoClose = tc.autoclose

			err := bs.Submit(ctx, testCrashID, "key1", []byte("value1"))
			require.NoError(t, err, "expected Submit to succeed")

			assert.Equal(t, 1, s.GetConnectCount(), "Connect should have been called once")
			if tc.autoclose {
				assert.Equal(t, 1, s.GetCloseCount(), "Close should have been automatically called")
			} else {
				assert.Equal(t, 0, s.GetCloseCount(), "Close should not be automatically called")
			}

			val, err := bs.Fetch(ctx, testCrashID, "key1")
			require.NoError(t, err, "expected Fetch to succeed")
			assert.Equal(t, "value1", string(val), "stored value did not survive the round trip")

			if tc.autoclose {
				assert.Equal(t, 2, s.GetConnectCount(), "Connect should be called again after the connection is closed")
				assert.Equal(t, 2, s.GetCloseCount(), "Close is called automatically for every method")
			} else {
				assert.Equal(t, 1, s.GetConnectCount(), "Connect should only be called once when the connection remains open")
				assert.Equal(t, 0, s.GetCloseCount(), "Close should not be automatically called")
			}
		})
	}
}

func TestBackingStore_ManagedConnection(t *testing.T) {
	ctx := context.Background()
	s := NewMockStore()
	bs := NewBackingStore(s)

	require.NoError(t, bs.Connect())
	require.NoError(t, bs.Submit(ctx, testCrashID, "a", []byte("1")))
	require.NoError(t, bs.Submit(ctx, testCrashID, "b", []byte("2")))
	assert.Equal(t, 1, s.GetConnectCount())
	assert.Equal(t, 0, s.GetCloseCount(), "an explicitly opened connection is left to the caller")

	require.NoError(t, bs.Close())
	assert.Equal(t, 1, s.GetCloseCount())
}

func TestBackingStore_Reconnect(t *testing.T) {
	s := NewMockStore()
	bs := NewBackingStore(s)

	require.NoError(t, bs.Connect())
	require.NoError(t, bs.Reconnect())
	assert.Equal(t, 2, s.GetConnectCount(), "a managed connection is reopened right away")
	assert.Equal(t, 1, s.GetCloseCount())

	require.NoError(t, bs.Close())
	s.ResetCounts()

	require.NoError(t, bs.Reconnect())
	assert.Equal(t, 0, s.GetConnectCount(), "a closed connection is opened by the next call")
	assert.Equal(t, 0, s.GetCloseCount())
}

func TestNewBackingStore_Idempotent(t *testing.T) {
	bs := NewBackingStore(NewMockStore())
	assert.Same(t, bs, NewBackingStore(bs))
}

type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

var _ net.Error = timeoutError{}

type plainStore struct{}

func (plainStore) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	return nil
}

func (plainStore) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	return nil, ErrRecordDoesNotExist
}

func TestBackingStore_IsRetriable(t *testing.T) {
	bs := NewBackingStore(plainStore{})

	assert.False(t, bs.IsRetriable(nil))
	assert.False(t, bs.IsRetriable(ErrRecordDoesNotExist))
	assert.False(t, bs.IsRetriable(context.Canceled))
	assert.False(t, bs.IsRetriable(errors.New("bad request")))
	assert.True(t, bs.IsRetriable(timeoutError{}), "network timeouts are transient by default")

	s := NewMockStore()
	s.RetriableMock = func(err error) bool { return true }
	bs = NewBackingStore(s)
	assert.True(t, bs.IsRetriable(errors.New("anything")))
	assert.False(t, bs.IsRetriable(ErrRecordDoesNotExist), "misses are never retried")
}

func TestBackingStore_BackOff(t *testing.T) {
	bs := NewBackingStore(plainStore{})
	bs.NewBackOff = func() backoff.BackOff {
		return backoff.WithMaxRetries(backoff.NewConstantBackOff(time.Millisecond), 2)
	}

	b := bs.BackOff()
	assert.Equal(t, time.Millisecond, b.NextBackOff())
	assert.Equal(t, time.Millisecond, b.NextBackOff())
	assert.Equal(t, backoff.Stop, b.NextBackOff())

	bs.NewBackOff = nil
	assert.NotNil(t, bs.BackOff())
}

func TestNewExponentialBackOff(t *testing.T) {
	b := NewExponentialBackOff(10*time.Millisecond, 20*time.Millisecond, 3)
	for i := 0; i < 3; i++ {
		wait := b.NextBackOff()
		assert.NotEqual(t, backoff.Stop, wait)
		assert.LessOrEqual(t, wait, 30*time.Millisecond, "randomized wait stays near the cap")
	}
	assert.Equal(t, backoff.Stop, b.NextBackOff())
}
