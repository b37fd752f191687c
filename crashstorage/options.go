package crashstorage

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/crashstats/crashstorage/utils/retry"
)

// DefaultDumpFileSuffix is appended to temporary dump files.
const DefaultDumpFileSuffix = ".dump"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is the logrus standard logger.
func WithLogger(log logrus.FieldLogger) Option {
	return func(s *Store) {
		s.log = log
	}
}

// WithQuitCheck stops retries once quit reports true.
func WithQuitCheck(quit retry.QuitCheck) Option {
	return func(s *Store) {
		s.quit = quit
	}
}

// WithDecodeHook sets how stored JSON objects are decoded.
func WithDecodeHook(hook DecodeHook) Option {
	return func(s *Store) {
		if hook != nil {
			s.decode = hook
		}
	}
}

// WithTempDir sets where GetRawDumpsAsFiles writes dumps. The default is the
// os temp dir.
func WithTempDir(dir string) Option {
	return func(s *Store) {
		if dir != "" {
			s.tempDir = dir
		}
	}
}

// WithDumpFileSuffix sets the suffix of temporary dump files.
func WithDumpFileSuffix(suffix string) Option {
	return func(s *Store) {
		s.suffix = suffix
	}
}

// WithMetrics registers the operation counters with reg.
func WithMetrics(reg prometheus.Registerer) Option {
	return func(s *Store) {
		s.registerer = reg
	}
}

// WithVariant replaces DefaultVariant.
func WithVariant(v Variant) Option {
	return func(s *Store) {
		if v != nil {
			s.variant = v
		}
	}
}
