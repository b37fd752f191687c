package crud

import (
	"context"
	"crypto/rand"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/oklog/ulid"
	"github.com/pkg/errors"
)

var _ Store = FileSystemStore{}

// NewFileSystemStore creates a Store backed by a file system directory.
// Each artifact is a file in a directory named after its crash.
//   - baseDirectory: the base directory under which files should be stored, e.g. /var/lib/crashes
//   - fileExtensions: map from artifact names (e.g. "raw_crash") to the file extension that should be used (e.g. ".json")
func NewFileSystemStore(baseDirectory string, fileExtensions map[string]string) FileSystemStore {
	return FileSystemStore{
		baseDirectory:  baseDirectory,
		fileExtensions: fileExtensions,
	}
}

// FileSystemStore keeps artifacts as files:
//
//	BASE/
//	  CRASH_ID/
//	    raw_crash.json
//	    dump_names.json
//	    dump
//	    processed_crash.json
type FileSystemStore struct {
	baseDirectory string

	// Lookup of which file extension to use for which artifact
	fileExtensions map[string]string
}

// Submit writes the artifact through a uniquely named temporary file that
// is renamed into place, so readers never see a partial artifact.
func (s FileSystemStore) Submit(ctx context.Context, crashID string, name string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	filename, err := s.fileNameOf(crashID, name)
	if err != nil {
		return err
	}
	if err := s.ensure(filepath.Dir(filename)); err != nil {
		return err
	}

	id, err := ulid.New(ulid.Timestamp(time.Now()), rand.Reader)
	if err != nil {
		return errors.Wrap(err, "generating temporary file name")
	}
	tmp := filepath.Join(filepath.Dir(filename), fmt.Sprintf(".%s.tmp", id))
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmp, filename); err != nil {
		_ = os.Remove(tmp)
		return err
	}
	return nil
}

func (s FileSystemStore) Fetch(ctx context.Context, crashID string, name string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	filename, err := s.fileNameOf(crashID, name)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrapf(ErrRecordDoesNotExist, "no file found for %s %s", crashID, name)
		}
		return nil, err
	}
	return data, nil
}

func (s FileSystemStore) fileNameOf(crashID string, name string) (string, error) {
	if err := checkPathElement("crash ID", crashID); err != nil {
		return "", err
	}
	if err := checkPathElement("artifact name", name); err != nil {
		return "", err
	}
	return filepath.Join(s.baseDirectory, crashID, name+s.fileExtensions[name]), nil
}

func (s FileSystemStore) ensure(target string) error {
	fi, err := os.Stat(target)
	if err == nil {
		if fi.IsDir() {
			return nil
		}
		return fmt.Errorf("storage path %s exists, but is not a directory", target)
	}
	return os.MkdirAll(target, 0o755)
}

// checkPathElement keeps crash IDs and artifact names from escaping the
// base directory.
func checkPathElement(what string, value string) error {
	if value == "" || value == "." || value == ".." || strings.ContainsAny(value, `/\`) {
		return fmt.Errorf("invalid %s %q", what, value)
	}
	return nil
}
