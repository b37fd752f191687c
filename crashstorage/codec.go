package crashstorage

import (
	"bytes"
	"encoding/json"

	cjson "github.com/cyberphone/json-canonicalization/go/src/webpki.org/jsoncanonicalizer"
	"github.com/pkg/errors"
)

// DecodeHook turns a stored JSON object into a map.
type DecodeHook func(data []byte) (map[string]interface{}, error)

// Names of the decode hooks in configuration.
const (
	DecodePlainName           = "plain"
	DecodePreserveNumbersName = "numbers"
)

// DecodePlain decodes numbers as float64.
func DecodePlain(data []byte) (map[string]interface{}, error) {
	m := map[string]interface{}{}
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, errors.Wrap(err, "cannot decode json object")
	}
	return m, nil
}

// DecodePreserveNumbers decodes numbers as json.Number so that large
// integers keep their precision.
func DecodePreserveNumbers(data []byte) (map[string]interface{}, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	m := map[string]interface{}{}
	if err := dec.Decode(&m); err != nil {
		return nil, errors.Wrap(err, "cannot decode json object")
	}
	return m, nil
}

// DecodeHookByName returns the decode hook configured as name. The empty
// name selects DecodePlain.
func DecodeHookByName(name string) (DecodeHook, error) {
	switch name {
	case "", DecodePlainName:
		return DecodePlain, nil
	case DecodePreserveNumbersName:
		return DecodePreserveNumbers, nil
	default:
		return nil, errors.Errorf("unknown json decode hook %q", name)
	}
}

func encode(v interface{}, canonical bool) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "cannot encode json")
	}
	if !canonical {
		return data, nil
	}
	data, err = cjson.Transform(data)
	if err != nil {
		return nil, errors.Wrap(err, "cannot canonicalize json")
	}
	return data, nil
}
