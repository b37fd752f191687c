// Package config loads crash storage settings from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/crashstats/crashstorage/crashstorage"
	"github.com/crashstats/crashstorage/secrets"
	"github.com/crashstats/crashstorage/utils/crud"
)

// EnvPrefix starts every environment variable read by Load.
const EnvPrefix = "CRASHSTORAGE_"

// Connection names.
const (
	ConnectionFilesystem = "filesystem"
	ConnectionSQLite     = "sqlite"
	ConnectionS3         = "s3"
	ConnectionMemory     = "memory"
)

// Registry sources.
const (
	RegistryNone          = ""
	RegistryFile          = "file"
	RegistryElasticsearch = "elasticsearch"
)

// Config is the whole configuration.
type Config struct {
	Storage    Storage  `yaml:"storage" envPrefix:"STORAGE_"`
	Retry      Retry    `yaml:"retry" envPrefix:"RETRY_"`
	Dumps      Dumps    `yaml:"dumps" envPrefix:"DUMPS_"`
	JSONDecode string   `yaml:"json_decode" env:"JSON_DECODE"`
	Registry   Registry `yaml:"registry" envPrefix:"REGISTRY_"`
	LogLevel   string   `yaml:"log_level" env:"LOG_LEVEL"`
}

// Storage selects and configures the connection.
type Storage struct {
	Connection string         `yaml:"connection" env:"CONNECTION"`
	Path       string         `yaml:"path" env:"PATH"`
	Bucket     string         `yaml:"bucket" env:"BUCKET"`
	Region     string         `yaml:"region" env:"REGION"`
	Endpoint   string         `yaml:"endpoint" env:"ENDPOINT"`
	AccessKey  secrets.Source `yaml:"access_key" env:"ACCESS_KEY"`
	SecretKey  secrets.Source `yaml:"secret_key" env:"SECRET_KEY"`
}

// Retry is the wait schedule for transient failures.
type Retry struct {
	MaxRetries      uint64        `yaml:"max_retries" env:"MAX_RETRIES"`
	InitialInterval time.Duration `yaml:"initial_interval" env:"INITIAL_INTERVAL"`
	MaxInterval     time.Duration `yaml:"max_interval" env:"MAX_INTERVAL"`
}

// Dumps configures dumps materialized as files.
type Dumps struct {
	TempDir    string `yaml:"temp_dir" env:"TEMP_DIR"`
	FileSuffix string `yaml:"file_suffix" env:"FILE_SUFFIX"`
}

// Registry says where field definitions come from.
type Registry struct {
	Source  string `yaml:"source" env:"SOURCE"`
	Path    string `yaml:"path" env:"PATH"`
	URL     string `yaml:"url" env:"URL"`
	Index   string `yaml:"index" env:"INDEX"`
	DocType string `yaml:"doc_type" env:"DOC_TYPE"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Storage: Storage{
			Connection: ConnectionFilesystem,
			Path:       "crashdata",
		},
		Retry: Retry{
			MaxRetries:      crud.DefaultMaxRetries,
			InitialInterval: crud.DefaultInitialInterval,
			MaxInterval:     crud.DefaultMaxInterval,
		},
		Dumps: Dumps{
			TempDir:    os.TempDir(),
			FileSuffix: crashstorage.DefaultDumpFileSuffix,
		},
		JSONDecode: crashstorage.DecodePlainName,
		LogLevel:   logrus.InfoLevel.String(),
	}
}

// Load reads path, when set, over the defaults, applies the environment and
// validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(err, "cannot read config file %s", path)
		}
		if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
			return Config{}, errors.Wrapf(err, "cannot parse config file %s", path)
		}
	}

	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return Config{}, errors.Wrap(err, "parse env")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports every problem with the configuration at once.
func (c Config) Validate() error {
	var result *multierror.Error

	switch c.Storage.Connection {
	case ConnectionFilesystem, ConnectionSQLite:
		if c.Storage.Path == "" {
			result = multierror.Append(result, errors.Errorf("storage.path is required for the %s connection", c.Storage.Connection))
		}
	case ConnectionS3:
		if c.Storage.Bucket == "" {
			result = multierror.Append(result, errors.New("storage.bucket is required for the s3 connection"))
		}
	case ConnectionMemory:
	default:
		result = multierror.Append(result, errors.Errorf("unknown storage.connection %q", c.Storage.Connection))
	}

	if c.Retry.InitialInterval <= 0 {
		result = multierror.Append(result, errors.New("retry.initial_interval must be positive"))
	}
	if c.Retry.MaxInterval < c.Retry.InitialInterval {
		result = multierror.Append(result, errors.New("retry.max_interval must not be less than retry.initial_interval"))
	}

	if _, err := crashstorage.DecodeHookByName(c.JSONDecode); err != nil {
		result = multierror.Append(result, err)
	}

	switch c.Registry.Source {
	case RegistryNone:
	case RegistryFile:
		if c.Registry.Path == "" {
			result = multierror.Append(result, errors.New("registry.path is required for the file registry"))
		}
	case RegistryElasticsearch:
		if c.Registry.URL == "" {
			result = multierror.Append(result, errors.New("registry.url is required for the elasticsearch registry"))
		}
	default:
		result = multierror.Append(result, errors.Errorf("unknown registry.source %q", c.Registry.Source))
	}

	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		result = multierror.Append(result, errors.Wrap(err, "log_level"))
	}

	return result.ErrorOrNil()
}

// StoreOptions turns the dumps and decoding settings into store options.
func (c Config) StoreOptions() ([]crashstorage.Option, error) {
	hook, err := crashstorage.DecodeHookByName(c.JSONDecode)
	if err != nil {
		return nil, err
	}
	return []crashstorage.Option{
		crashstorage.WithDecodeHook(hook),
		crashstorage.WithTempDir(c.Dumps.TempDir),
		crashstorage.WithDumpFileSuffix(c.Dumps.FileSuffix),
	}, nil
}
