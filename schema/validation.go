package schema

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/qri-io/jsonschema"
)

// ValidationError lists the places where a document does not match a schema.
type ValidationError struct {
	Errors []jsonschema.KeyError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, 0, len(e.Errors))
	for _, ke := range e.Errors {
		msgs = append(msgs, fmt.Sprintf("%s: %s", propertyPath(ke.PropertyPath), ke.Message))
	}
	return fmt.Sprintf("document does not match schema: %s", strings.Join(msgs, "; "))
}

// Validate checks doc against s and returns a *ValidationError when it does
// not match.
func Validate(ctx context.Context, s *Schema, doc interface{}) error {
	rs := &jsonschema.Schema{}
	if err := json.Unmarshal(s.data, rs); err != nil {
		return errors.Wrap(err, "failed to json.Unmarshal schema")
	}

	payload, err := json.Marshal(doc)
	if err != nil {
		return errors.Wrap(err, "unable to process document")
	}

	keyErrors, err := rs.ValidateBytes(ctx, payload)
	if err != nil {
		return errors.Wrap(err, "failed to validate document")
	}
	if len(keyErrors) > 0 {
		return &ValidationError{Errors: keyErrors}
	}
	return nil
}

func propertyPath(p string) string {
	if p == "" {
		return "/"
	}
	return p
}
