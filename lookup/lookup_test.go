package lookup

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crashstats/crashstorage/config"
	"github.com/crashstats/crashstorage/fieldregistry"
	"github.com/crashstats/crashstorage/secrets"
	"github.com/crashstats/crashstorage/secrets/host"
	"github.com/crashstats/crashstorage/utils/crud"
)

var testRetry = config.Retry{MaxRetries: 2, InitialInterval: time.Millisecond, MaxInterval: time.Second}

func TestConnection(t *testing.T) {
	dir := t.TempDir()
	testCases := []struct {
		name    string
		storage config.Storage
		want    interface{}
	}{
		{name: "filesystem", storage: config.Storage{Connection: config.ConnectionFilesystem, Path: dir}, want: crud.FileSystemStore{}},
		{name: "sqlite", storage: config.Storage{Connection: config.ConnectionSQLite, Path: filepath.Join(dir, "crashes.db")}, want: &crud.SQLiteStore{}},
		{name: "memory", storage: config.Storage{Connection: config.ConnectionMemory}, want: &crud.MockStore{}},
		{name: "s3", storage: config.Storage{
			Connection: config.ConnectionS3,
			Bucket:     "crashes",
			Region:     "us-east-1",
			Endpoint:   "http://localhost:9000",
			AccessKey:  secrets.Source{Key: host.SourceValue, Value: "minio"},
			SecretKey:  secrets.Source{Key: host.SourceValue, Value: "minio123"},
		}, want: &crud.S3Store{}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			conn, err := Connection(context.Background(), tc.storage, testRetry)
			require.NoError(t, err)
			assert.IsType(t, tc.want, conn.Unwrap())

			b := conn.BackOff()
			assert.NotEqual(t, backoff.Stop, b.NextBackOff())
			assert.NotEqual(t, backoff.Stop, b.NextBackOff())
			assert.Equal(t, backoff.Stop, b.NextBackOff(), "the schedule stops after max_retries")
		})
	}
}

func TestConnection_Memory_RoundTrip(t *testing.T) {
	ctx := context.Background()
	conn, err := Connection(ctx, config.Storage{Connection: config.ConnectionMemory}, testRetry)
	require.NoError(t, err)

	require.NoError(t, conn.Submit(ctx, "crash", "raw_crash", []byte("{}")))
	data, err := conn.Fetch(ctx, "crash", "raw_crash")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))
}

func TestConnection_Errors(t *testing.T) {
	_, err := Connection(context.Background(), config.Storage{Connection: "ftp"}, testRetry)
	assert.EqualError(t, err, "unsupported storage connection: ftp")

	_, err = Connection(context.Background(), config.Storage{
		Connection: config.ConnectionS3,
		Bucket:     "crashes",
		AccessKey:  secrets.Source{Key: host.SourceEnv, Value: "TEST_SURELY_UNSET_ACCESS_KEY"},
	}, testRetry)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resolving storage.access_key")
}

func TestRegistry(t *testing.T) {
	testCases := []struct {
		name     string
		registry config.Registry
		want     interface{}
		err      string
	}{
		{name: "none", registry: config.Registry{}, want: fieldregistry.StaticRegistry{}},
		{name: "file", registry: config.Registry{Source: config.RegistryFile, Path: "fields.yaml"}, want: &fieldregistry.FileRegistry{}},
		{name: "elasticsearch", registry: config.Registry{Source: config.RegistryElasticsearch, URL: "http://localhost:9200"}, want: &fieldregistry.ElasticsearchRegistry{}},
		{name: "unknown", registry: config.Registry{Source: "consul"}, err: "unsupported field registry: consul"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			r, err := Registry(tc.registry)
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tc.want, r)
		})
	}
}
