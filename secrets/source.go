package secrets

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"
)

// Source says where a secret comes from, for example {env: AWS_SECRET_ACCESS_KEY}.
// The zero Source resolves to the empty string.
type Source struct {
	Key   string
	Value string
}

// IsZero reports whether no source is set.
func (s Source) IsZero() bool {
	return s.Key == ""
}

// Resolve loads the secret through store.
func (s Source) Resolve(store Store) (string, error) {
	if s.IsZero() {
		return "", nil
	}
	return store.Resolve(s.Key, s.Value)
}

func (s Source) String() string {
	if s.IsZero() {
		return ""
	}
	return s.Key + ":" + s.Value
}

func (s *Source) marshalRaw() interface{} {
	if s.Key == "" {
		return nil
	}
	return map[string]string{s.Key: s.Value}
}

func (s *Source) unmarshalRaw(raw map[string]string) error {
	switch len(raw) {
	case 0:
		s.Key = ""
		s.Value = ""
		return nil
	case 1:
		for k, v := range raw {
			s.Key = k
			s.Value = v
		}
		return nil
	default:
		return errors.New("multiple key/value pairs specified for source but only one may be defined")
	}
}

func (s Source) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.marshalRaw())
}

func (s *Source) UnmarshalJSON(data []byte) error {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	return s.unmarshalRaw(raw)
}

func (s Source) MarshalYAML() (interface{}, error) {
	return s.marshalRaw(), nil
}

func (s *Source) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return s.unmarshalRaw(raw)
}

// UnmarshalText reads the "key:value" form used in environment variables,
// for example "env:AWS_SECRET_ACCESS_KEY".
func (s *Source) UnmarshalText(text []byte) error {
	if len(text) == 0 {
		return s.unmarshalRaw(nil)
	}
	key, value, ok := strings.Cut(string(text), ":")
	if !ok || key == "" {
		return errors.Errorf("secret source %q is not of the form key:value", string(text))
	}
	return s.unmarshalRaw(map[string]string{key: value})
}
