// Package fieldregistry describes the fields known to crash storage: their
// public name, the key they are stored under and the record they belong to.
package fieldregistry

import (
	"context"
	"sort"
)

// Namespaces a field can belong to.
const (
	NamespaceRawCrash       = "raw_crash"
	NamespaceProcessedCrash = "processed_crash"
)

// Field is one entry of the registry.
type Field struct {
	Name               string `json:"name" yaml:"name"`
	InDatabaseName     string `json:"in_database_name" yaml:"in_database_name"`
	Namespace          string `json:"namespace" yaml:"namespace"`
	DataValidationType string `json:"data_validation_type,omitempty" yaml:"data_validation_type,omitempty"`
	Description        string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Registry returns every known field keyed by its public name.
type Registry interface {
	Fields(ctx context.Context) (map[string]Field, error)
}

// StaticRegistry is a Registry backed by a fixed map.
type StaticRegistry map[string]Field

// Fields returns a copy of the map.
func (r StaticRegistry) Fields(ctx context.Context) (map[string]Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fields := make(map[string]Field, len(r))
	for k, f := range r {
		fields[k] = f
	}
	return fields, nil
}

// RenameTable maps stored key to public name for the fields of namespace.
// Fields without an in-database name are skipped.
func RenameTable(fields map[string]Field, namespace string) map[string]string {
	table := map[string]string{}
	for _, f := range fields {
		if f.Namespace != namespace || f.InDatabaseName == "" {
			continue
		}
		table[f.InDatabaseName] = f.Name
	}
	return table
}

// Names returns the public names of fields, sorted.
func Names(fields map[string]Field) []string {
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// keyed fills in missing names from the map keys.
func keyed(fields map[string]Field) map[string]Field {
	for k, f := range fields {
		if f.Name == "" {
			f.Name = k
			fields[k] = f
		}
	}
	return fields
}
