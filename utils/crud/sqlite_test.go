package crud

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	bs := NewSQLiteStore(filepath.Join(t.TempDir(), "crashes.db"))
	defer bs.Close()

	require.NoError(t, bs.Submit(ctx, testCrashID, testName, []byte(`{"a": 1}`)))
	require.NoError(t, bs.Submit(ctx, testCrashID, "dump", []byte{}))

	data, err := bs.Fetch(ctx, testCrashID, testName)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 1}`, string(data))

	require.NoError(t, bs.Submit(ctx, testCrashID, testName, []byte(`{"a": 2}`)))
	data, err = bs.Fetch(ctx, testCrashID, testName)
	require.NoError(t, err)
	assert.Equal(t, `{"a": 2}`, string(data), "submit should replace the artifact")

	data, err = bs.Fetch(ctx, testCrashID, "dump")
	require.NoError(t, err)
	assert.Empty(t, data)

	_, err = bs.Fetch(ctx, testCrashID, "processed_crash")
	assert.True(t, errors.Is(err, ErrRecordDoesNotExist), "got %v", err)
}

func TestSQLiteStore_Reconnect(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "crashes.db")
	bs := NewSQLiteStore(path)
	defer bs.Close()

	require.NoError(t, bs.Submit(ctx, testCrashID, testName, []byte("x")))
	require.NoError(t, bs.Reconnect())

	data, err := bs.Fetch(ctx, testCrashID, testName)
	require.NoError(t, err, "the store should reopen the database after a reconnect")
	assert.Equal(t, "x", string(data))
}

func TestSQLiteStore_NotConnected(t *testing.T) {
	s := &SQLiteStore{path: filepath.Join(t.TempDir(), "crashes.db")}

	assert.EqualError(t, s.Submit(context.Background(), testCrashID, testName, nil), "sqlite storage is not connected")
	assert.False(t, s.IsRetriable(errors.New("database is locked")))
}

func TestSQLiteStore_RequiresPath(t *testing.T) {
	bs := NewSQLiteStore(" ")
	err := bs.Submit(context.Background(), testCrashID, testName, nil)
	assert.EqualError(t, err, "sqlite storage path is required")
}
