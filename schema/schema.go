// Package schema holds the crash report JSON schema and the tools that apply
// it: reducing a document to what the schema allows and validating the result.
package schema

import (
	_ "embed"
	"encoding/json"
	"sync"

	"github.com/pkg/errors"
)

//go:embed crash_report.schema.json
var crashReportSchema []byte

// SupportedCrashReportVersions is the range of crash report schema versions
// this package knows how to export.
const SupportedCrashReportVersions = ">= 2.0.0, < 3.0.0"

// Schema is a parsed JSON schema document.
type Schema struct {
	// Version comes from the "$target_version" keyword.
	Version Version

	data []byte
	doc  map[string]interface{}
}

// Load parses a JSON schema document. A "$target_version", when present,
// must be a semantic version.
func Load(data []byte) (*Schema, error) {
	doc := map[string]interface{}{}
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "failed to json.Unmarshal schema")
	}

	s := &Schema{data: data, doc: doc}
	if v, ok := doc["$target_version"]; ok {
		version, ok := v.(string)
		if !ok {
			return nil, errors.Errorf("$target_version must be a string, got %T", v)
		}
		s.Version = Version(version)
		if err := s.Version.Validate(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Bytes returns the schema document as it was loaded.
func (s *Schema) Bytes() []byte {
	return s.data
}

var (
	crashReportOnce sync.Once
	crashReport     *Schema
	crashReportErr  error
)

// CrashReport returns the embedded crash report schema.
func CrashReport() (*Schema, error) {
	crashReportOnce.Do(func() {
		crashReport, crashReportErr = Load(crashReportSchema)
		if crashReportErr != nil {
			crashReportErr = errors.Wrap(crashReportErr, "failed to load the crash report schema")
			return
		}
		ok, err := crashReport.Version.Satisfies(SupportedCrashReportVersions)
		if err != nil {
			crashReportErr = err
			return
		}
		if !ok {
			crashReportErr = errors.Errorf("crash report schema version %s is not in %s", crashReport.Version, SupportedCrashReportVersions)
		}
	})
	return crashReport, crashReportErr
}
