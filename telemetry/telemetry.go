// Package telemetry exports the public subset of a crash as a crash report.
//
// A crash report merges the raw and the processed crash under their public
// field names and keeps only what the crash report schema allows.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"

	"github.com/mitchellh/copystructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/crashstats/crashstorage/crashstorage"
	"github.com/crashstats/crashstorage/fieldregistry"
	"github.com/crashstats/crashstorage/schema"
	"github.com/crashstats/crashstorage/utils/crud"
)

// CrashReportArtifact is the artifact crash reports are saved to.
const CrashReportArtifact = "crash_report"

// Variant derives crash reports for a crashstorage.Store.
type Variant struct {
	registry fieldregistry.Registry
	schema   *schema.Schema
	log      logrus.FieldLogger
}

var _ crashstorage.Variant = &Variant{}

// NewVariant builds a Variant renaming fields through registry and reducing
// with the embedded crash report schema.
func NewVariant(registry fieldregistry.Registry, log logrus.FieldLogger) (*Variant, error) {
	s, err := schema.CrashReport()
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Variant{registry: registry, schema: s, log: log}, nil
}

// NewStore returns a crash store that saves and loads crash reports.
func NewStore(conn crud.Store, registry fieldregistry.Registry, opts ...crashstorage.Option) (*crashstorage.Store, error) {
	v, err := NewVariant(registry, nil)
	if err != nil {
		return nil, err
	}
	store := crashstorage.New(conn, append(opts, crashstorage.WithVariant(v))...)
	v.log = store.Logger()
	return store, nil
}

func (v *Variant) ProcessedArtifact() string { return CrashReportArtifact }

func (v *Variant) Canonical() bool { return true }

// PrepareProcessed builds the crash report. Keys of both records are renamed
// to their public names, the processed crash wins on conflicts, and the
// result is reduced to the schema and validated. raw and processed are not
// modified.
func (v *Variant) PrepareProcessed(ctx context.Context, raw crashstorage.RawCrash, processed crashstorage.ProcessedCrash) (crashstorage.ProcessedCrash, error) {
	fields, err := v.registry.Fields(ctx)
	if err != nil {
		return nil, err
	}

	report := map[string]interface{}{}
	if err := renameInto(report, raw, fieldregistry.RenameTable(fields, fieldregistry.NamespaceRawCrash)); err != nil {
		return nil, err
	}
	if err := renameInto(report, processed, fieldregistry.RenameTable(fields, fieldregistry.NamespaceProcessedCrash)); err != nil {
		return nil, err
	}

	report, err = normalize(report)
	if err != nil {
		return nil, err
	}

	reduced, dropped, err := schema.Reduce(v.schema, report)
	if err != nil {
		return nil, errors.Wrap(err, "cannot reduce crash report")
	}

	log := v.log.WithField("crash_id", report["uuid"])
	if len(dropped) > 0 {
		log.WithField("dropped", dropped).Debug("fields left out of crash report")
	}

	if err := schema.Validate(ctx, v.schema, reduced); err != nil {
		log.WithError(err).Warn("crash report does not match schema")
		return nil, err
	}
	return crashstorage.ProcessedCrash(reduced), nil
}

// normalize turns typed containers such as map[string]string or nested
// records into the generic JSON shapes the reducer walks.
func normalize(report map[string]interface{}) (map[string]interface{}, error) {
	data, err := json.Marshal(report)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode crash report")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	normalized := map[string]interface{}{}
	if err := dec.Decode(&normalized); err != nil {
		return nil, errors.Wrap(err, "cannot decode crash report")
	}
	return normalized, nil
}

// renameInto deep copies every entry of src into dst under its renamed key.
// Keys without an entry in table keep their name.
func renameInto(dst map[string]interface{}, src map[string]interface{}, table map[string]string) error {
	for key, value := range src {
		var copied interface{}
		if value != nil {
			var err error
			if copied, err = copystructure.Copy(value); err != nil {
				return errors.Wrapf(err, "cannot copy %s", key)
			}
		}
		if name, ok := table[key]; ok {
			key = name
		}
		dst[key] = copied
	}
	return nil
}
