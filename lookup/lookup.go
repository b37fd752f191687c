// Package lookup builds the connection and field registry named in the
// configuration.
package lookup

import (
	"context"
	"fmt"

	"github.com/cenkalti/backoff/v4"

	"github.com/crashstats/crashstorage/config"
	"github.com/crashstats/crashstorage/crashstorage"
	"github.com/crashstats/crashstorage/fieldregistry"
	"github.com/crashstats/crashstorage/secrets"
	"github.com/crashstats/crashstorage/secrets/host"
	"github.com/crashstats/crashstorage/utils/crud"
)

// FileExtensions are the extensions the filesystem connection gives to
// JSON artifacts.
var FileExtensions = map[string]string{
	crashstorage.RawCrashArtifact:       ".json",
	crashstorage.DumpNamesArtifact:      ".json",
	crashstorage.ProcessedCrashArtifact: ".json",
	"crash_report":                      ".json",
}

// Connection takes a storage configuration and builds the matching
// connection, with the retry schedule applied.
func Connection(ctx context.Context, cfg config.Storage, retry config.Retry) (*crud.BackingStore, error) {
	return connection(ctx, cfg, retry, &host.SecretStore{})
}

func connection(ctx context.Context, cfg config.Storage, retry config.Retry, secretStore secrets.Store) (*crud.BackingStore, error) {
	var conn *crud.BackingStore
	switch cfg.Connection {
	case config.ConnectionFilesystem:
		conn = crud.NewBackingStore(crud.NewFileSystemStore(cfg.Path, FileExtensions))
	case config.ConnectionSQLite:
		conn = crud.NewSQLiteStore(cfg.Path)
	case config.ConnectionS3:
		accessKey, err := cfg.AccessKey.Resolve(secretStore)
		if err != nil {
			return nil, fmt.Errorf("resolving storage.access_key: %w", err)
		}
		secretKey, err := cfg.SecretKey.Resolve(secretStore)
		if err != nil {
			return nil, fmt.Errorf("resolving storage.secret_key: %w", err)
		}
		client, err := crud.NewS3Client(ctx, crud.S3Options{
			Region:    cfg.Region,
			Endpoint:  cfg.Endpoint,
			AccessKey: accessKey,
			SecretKey: secretKey,
		})
		if err != nil {
			return nil, err
		}
		conn = crud.NewS3Store(client, cfg.Bucket)
	case config.ConnectionMemory:
		conn = crud.NewBackingStore(crud.NewMockStore())
	default:
		return nil, fmt.Errorf("unsupported storage connection: %s", cfg.Connection)
	}

	conn.NewBackOff = func() backoff.BackOff {
		return crud.NewExponentialBackOff(retry.InitialInterval, retry.MaxInterval, retry.MaxRetries)
	}
	return conn, nil
}

// Registry takes a registry configuration and builds the matching field
// registry. No source means an empty registry, so no field is renamed.
func Registry(cfg config.Registry) (fieldregistry.Registry, error) {
	switch cfg.Source {
	case config.RegistryNone:
		return fieldregistry.StaticRegistry{}, nil
	case config.RegistryFile:
		return fieldregistry.NewFileRegistry(cfg.Path), nil
	case config.RegistryElasticsearch:
		return fieldregistry.NewElasticsearchRegistry(cfg.URL, cfg.Index, cfg.DocType)
	default:
		return nil, fmt.Errorf("unsupported field registry: %s", cfg.Source)
	}
}
