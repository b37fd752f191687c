package fieldregistry

import (
	"context"
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// FileRegistry reads fields from a YAML or JSON document mapping field name
// to field. The file is read on every call so edits are picked up.
type FileRegistry struct {
	Path string
}

// NewFileRegistry returns a FileRegistry reading path.
func NewFileRegistry(path string) *FileRegistry {
	return &FileRegistry{Path: path}
}

// Fields implements Registry.
func (r *FileRegistry) Fields(ctx context.Context) (map[string]Field, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(r.Path)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot read field registry %s", r.Path)
	}
	return ParseFields(data)
}

// ParseFields decodes a YAML or JSON field document.
func ParseFields(data []byte) (map[string]Field, error) {
	fields := map[string]Field{}
	if err := yaml.Unmarshal(data, &fields); err != nil {
		return nil, errors.Wrap(err, "cannot decode field registry")
	}
	return keyed(fields), nil
}
