package crashstorage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/crashstats/crashstorage/utils/crud"
	"github.com/crashstats/crashstorage/utils/retry"
)

// Store is a persistent store for crash records.
type Store struct {
	conn    *crud.BackingStore
	policy  retry.Policy
	variant Variant

	log        logrus.FieldLogger
	quit       retry.QuitCheck
	decode     DecodeHook
	tempDir    string
	suffix     string
	registerer prometheus.Registerer
	metrics    *metrics
}

// New creates a crash store on top of conn. The connection is wrapped in a
// crud.BackingStore unless it already is one.
func New(conn crud.Store, opts ...Option) *Store {
	s := &Store{
		conn:    crud.NewBackingStore(conn),
		variant: DefaultVariant{},
		log:     logrus.StandardLogger(),
		decode:  DecodePlain,
		tempDir: os.TempDir(),
		suffix:  DefaultDumpFileSuffix,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.policy = retry.Policy{Connection: s.conn, Quit: s.quit, Log: s.log}
	if s.registerer != nil {
		s.metrics = newMetrics(s.registerer, s.log)
	}
	return s
}

// Variant returns the variant the store was built with.
func (s *Store) Variant() Variant {
	return s.variant
}

// Logger returns the logger the store writes to.
func (s *Store) Logger() logrus.FieldLogger {
	return s.log
}

// Connection returns the wrapped connection.
func (s *Store) Connection() *crud.BackingStore {
	return s.conn
}

// Close closes the connection.
func (s *Store) Close() error {
	return s.conn.Close()
}

// SaveRawCrash saves the raw crash, the list of dump names and every dump.
// Dump names are normalized before they are stored.
func (s *Store) SaveRawCrash(ctx context.Context, raw RawCrash, dumps MemoryDumps, crashID string) (err error) {
	defer func() { s.metrics.observe("save_raw_crash", err) }()

	rawData, err := encode(raw, false)
	if err != nil {
		return err
	}

	normalized := normalizeDumps(dumps)
	names := make([]string, 0, len(normalized))
	for name := range normalized {
		names = append(names, name)
	}
	sort.Strings(names)

	namesData, err := encode(names, false)
	if err != nil {
		return err
	}

	log := s.log.WithField("crash_id", crashID)
	return s.policy.Do(ctx, func(ctx context.Context) error {
		if err := s.conn.Submit(ctx, crashID, RawCrashArtifact, rawData); err != nil {
			return err
		}
		if err := s.conn.Submit(ctx, crashID, DumpNamesArtifact, namesData); err != nil {
			return err
		}
		for _, name := range names {
			data := normalized[name]
			log.WithFields(logrus.Fields{
				"dump":   name,
				"size":   len(data),
				"digest": digest.FromBytes(data).String(),
			}).Debug("saving dump")
			if err := s.conn.Submit(ctx, crashID, name, data); err != nil {
				return err
			}
		}
		return nil
	})
}

// SaveProcessed saves the processed record under the crash ID found in its
// "uuid" key.
func (s *Store) SaveProcessed(ctx context.Context, processed ProcessedCrash) (err error) {
	defer func() { s.metrics.observe("save_processed", err) }()

	return s.saveProcessed(ctx, processed)
}

// SaveRawAndProcessed saves the record the variant derives from raw and
// processed. The raw crash and the dumps are not saved again.
func (s *Store) SaveRawAndProcessed(ctx context.Context, raw RawCrash, dumps MemoryDumps, processed ProcessedCrash, crashID string) (err error) {
	defer func() { s.metrics.observe("save_raw_and_processed", err) }()

	prepared, err := s.variant.PrepareProcessed(ctx, raw, processed)
	if err != nil {
		return err
	}
	return s.saveProcessed(ctx, prepared)
}

func (s *Store) saveProcessed(ctx context.Context, processed ProcessedCrash) error {
	crashID, ok := processed.CrashID()
	if !ok {
		return errors.New("processed crash has no uuid")
	}

	data, err := encode(processed, s.variant.Canonical())
	if err != nil {
		return err
	}

	artifact := s.variant.ProcessedArtifact()
	return s.policy.Do(ctx, func(ctx context.Context) error {
		return s.conn.Submit(ctx, crashID, artifact, data)
	})
}

// GetRawCrash loads the raw crash.
func (s *Store) GetRawCrash(ctx context.Context, crashID string) (raw RawCrash, err error) {
	defer func() { s.metrics.observe("get_raw_crash", err) }()

	m, err := s.fetchObject(ctx, crashID, RawCrashArtifact)
	if err != nil {
		return nil, err
	}
	return RawCrash(m), nil
}

// GetRawDump loads one dump. The name is normalized first.
func (s *Store) GetRawDump(ctx context.Context, crashID string, name string) (data []byte, err error) {
	defer func() { s.metrics.observe("get_raw_dump", err) }()

	return retry.Value(ctx, s.policy, func(ctx context.Context) ([]byte, error) {
		return s.fetch(ctx, crashID, NormalizeDumpName(name))
	})
}

// GetRawDumps loads every dump listed for the crash. A missing dump fails
// the whole call.
func (s *Store) GetRawDumps(ctx context.Context, crashID string) (dumps MemoryDumps, err error) {
	defer func() { s.metrics.observe("get_raw_dumps", err) }()

	return s.getRawDumps(ctx, crashID)
}

func (s *Store) getRawDumps(ctx context.Context, crashID string) (MemoryDumps, error) {
	return retry.Value(ctx, s.policy, func(ctx context.Context) (MemoryDumps, error) {
		namesData, err := s.fetch(ctx, crashID, DumpNamesArtifact)
		if err != nil {
			return nil, err
		}
		var names []string
		if err := json.Unmarshal(namesData, &names); err != nil {
			return nil, errors.Wrapf(err, "cannot decode dump names of %s", crashID)
		}

		dumps := make(MemoryDumps, len(names))
		for _, name := range names {
			name = NormalizeDumpName(name)
			data, err := s.fetch(ctx, crashID, name)
			if err != nil {
				return nil, err
			}
			dumps[name] = data
		}
		return dumps, nil
	})
}

// GetRawDumpsAsFiles writes every dump to a temporary file and returns the
// paths. The caller removes the files, see FileDumps.Cleanup.
func (s *Store) GetRawDumpsAsFiles(ctx context.Context, crashID string) (files FileDumps, err error) {
	defer func() { s.metrics.observe("get_raw_dumps_as_files", err) }()

	dumps, err := s.getRawDumps(ctx, crashID)
	if err != nil {
		return nil, err
	}

	names := make([]string, 0, len(dumps))
	for name := range dumps {
		names = append(names, name)
	}
	sort.Strings(names)

	paths := make(map[string]string, len(names))
	for _, name := range names {
		if paths[name], err = s.tempDumpPath(crashID, name); err != nil {
			return nil, err
		}
	}

	files = make(FileDumps, len(dumps))
	for _, name := range names {
		path := paths[name]
		if werr := os.WriteFile(path, dumps[name], 0600); werr != nil {
			result := multierror.Append(nil, errors.Wrapf(werr, "cannot write dump %s of %s", name, crashID))
			if cerr := files.Cleanup(); cerr != nil {
				result = multierror.Append(result, cerr)
			}
			return nil, result.ErrorOrNil()
		}
		files[name] = path
	}
	return files, nil
}

// GetUnredactedProcessed loads the processed record.
func (s *Store) GetUnredactedProcessed(ctx context.Context, crashID string) (processed ProcessedCrash, err error) {
	defer func() { s.metrics.observe("get_unredacted_processed", err) }()

	m, err := s.fetchObject(ctx, crashID, s.variant.ProcessedArtifact())
	if err != nil {
		return nil, err
	}
	return ProcessedCrash(m), nil
}

func (s *Store) fetchObject(ctx context.Context, crashID string, artifact string) (map[string]interface{}, error) {
	data, err := retry.Value(ctx, s.policy, func(ctx context.Context) ([]byte, error) {
		return s.fetch(ctx, crashID, artifact)
	})
	if err != nil {
		return nil, err
	}
	m, err := s.decode(data)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot decode %s of %s", artifact, crashID)
	}
	return m, nil
}

// fetch reads one artifact and turns a miss into a *CrashIDNotFound.
func (s *Store) fetch(ctx context.Context, crashID string, artifact string) ([]byte, error) {
	data, err := s.conn.Fetch(ctx, crashID, artifact)
	if err != nil {
		if errors.Is(err, crud.ErrRecordDoesNotExist) {
			return nil, &CrashIDNotFound{CrashID: crashID, Artifact: artifact, Err: err}
		}
		return nil, err
	}
	return data, nil
}

// tempDumpPath names the temporary file of a dump. Crash IDs and dump names
// come from stored data, so they must not lead out of the temp dir.
func (s *Store) tempDumpPath(crashID string, name string) (string, error) {
	if err := checkPathElement("crash ID", crashID); err != nil {
		return "", err
	}
	if err := checkPathElement("dump name", name); err != nil {
		return "", err
	}
	path := filepath.Join(s.tempDir, fmt.Sprintf("%s.%s.TEMPORARY%s", crashID, name, s.suffix))
	if filepath.Dir(path) != filepath.Clean(s.tempDir) {
		return "", errors.Errorf("dump %s of %s would be written outside %s", name, crashID, s.tempDir)
	}
	return path, nil
}

func checkPathElement(what string, value string) error {
	if value == "" || value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return errors.Errorf("invalid %s %q", what, value)
	}
	return nil
}

func normalizeDumps(dumps MemoryDumps) MemoryDumps {
	names := make([]string, 0, len(dumps))
	for name := range dumps {
		names = append(names, name)
	}
	sort.Strings(names)

	normalized := make(MemoryDumps, len(dumps))
	for _, name := range names {
		normalized[NormalizeDumpName(name)] = dumps[name]
	}
	return normalized
}
