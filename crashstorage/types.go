package crashstorage

import (
	"os"

	"github.com/hashicorp/go-multierror"
)

// Artifact names.
const (
	RawCrashArtifact       = "raw_crash"
	DumpNamesArtifact      = "dump_names"
	ProcessedCrashArtifact = "processed_crash"

	// DefaultDumpName is the name of the main minidump.
	DefaultDumpName = "dump"

	// uploadDumpName is the multipart field clients send the main minidump
	// under.
	uploadDumpName = "upload_file_minidump"
)

// RawCrash holds the crash annotations as submitted.
type RawCrash map[string]interface{}

// ProcessedCrash is the result of processing a crash. Its "uuid" key holds
// the crash ID.
type ProcessedCrash map[string]interface{}

// MemoryDumps maps dump name to dump contents.
type MemoryDumps map[string][]byte

// FileDumps maps dump name to the path of a temporary file holding the dump.
type FileDumps map[string]string

// Cleanup removes every file and reports all failures at once. Files that
// are already gone are not an error.
func (d FileDumps) Cleanup() error {
	var result *multierror.Error
	for _, path := range d {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// NormalizeDumpName maps the names the main minidump is known by to
// DefaultDumpName. Other names are returned unchanged.
func NormalizeDumpName(name string) string {
	switch name {
	case "", uploadDumpName:
		return DefaultDumpName
	default:
		return name
	}
}

// CrashID returns the crash ID carried by the record.
func (p ProcessedCrash) CrashID() (string, bool) {
	id, ok := p["uuid"].(string)
	return id, ok && id != ""
}
