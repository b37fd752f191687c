package schema

import (
	"encoding/json"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/qri-io/jsonpointer"
	"github.com/xeipuuv/gojsonschema"
)

// maxRefDepth bounds $ref chains so that a cyclic schema fails instead of
// looping.
const maxRefDepth = 32

// structural keywords are handled by the reducer itself and stripped before a
// scalar is checked against its sub-schema.
var structural = map[string]bool{
	"$ref":                 true,
	"$defs":                true,
	"definitions":          true,
	"properties":           true,
	"patternProperties":    true,
	"additionalProperties": true,
	"items":                true,
	"additionalItems":      true,
	"required":             true,
	"$target_version":      true,
}

// Reduce returns a copy of doc holding only what the schema allows, and the
// JSON pointers of everything that was dropped.
//
// Objects keep the keys declared in "properties", keys matching
// "patternProperties", and any other key only when "additionalProperties" is
// true or a schema. Arrays are reduced element by element against "items".
// Scalars that fail their sub-schema are dropped. Local "$ref"s are followed.
// Containers of other Go types, such as map[string]string, are dropped; decode
// the document with encoding/json first to have them reduced.
func Reduce(s *Schema, doc map[string]interface{}) (map[string]interface{}, []string, error) {
	r := &reducer{
		root:    s.doc,
		scalars: map[string]*gojsonschema.Schema{},
	}

	root, err := r.resolve(s.doc)
	if err != nil {
		return nil, nil, err
	}
	if !allowsType(root, "object") {
		return nil, nil, errors.New("schema does not describe an object")
	}

	reduced, err := r.object(root, doc, jsonpointer.NewPointer())
	if err != nil {
		return nil, nil, err
	}
	return reduced, r.dropped, nil
}

type reducer struct {
	root    map[string]interface{}
	dropped []string

	// scalars caches compiled scalar sub-schemas by their JSON text.
	scalars map[string]*gojsonschema.Schema
}

// node reduces value against sub. The boolean is false when value must be
// dropped.
func (r *reducer) node(sub map[string]interface{}, value interface{}, ptr jsonpointer.Pointer) (interface{}, bool, error) {
	sub, err := r.resolve(sub)
	if err != nil {
		return nil, false, err
	}

	switch v := value.(type) {
	case map[string]interface{}:
		if !allowsType(sub, "object") {
			return r.drop(ptr)
		}
		reduced, err := r.object(sub, v, ptr)
		return reduced, err == nil, err
	case []interface{}:
		if !allowsType(sub, "array") {
			return r.drop(ptr)
		}
		reduced, err := r.array(sub, v, ptr)
		return reduced, err == nil, err
	default:
		if !isScalar(v) {
			return r.drop(ptr)
		}
		ok, err := r.validScalar(sub, v)
		if err != nil {
			return nil, false, errors.Wrapf(err, "checking %s", ptr.String())
		}
		if !ok {
			return r.drop(ptr)
		}
		return v, true, nil
	}
}

func (r *reducer) object(sub map[string]interface{}, doc map[string]interface{}, ptr jsonpointer.Pointer) (map[string]interface{}, error) {
	properties, _ := sub["properties"].(map[string]interface{})
	patterns, _ := sub["patternProperties"].(map[string]interface{})
	additional := sub["additionalProperties"]

	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(keys))
	for _, key := range keys {
		childPtr := descend(ptr, key)

		child, keepAsIs, err := childSchema(properties, patterns, additional, key)
		if err != nil {
			return nil, err
		}
		if keepAsIs {
			out[key] = doc[key]
			continue
		}
		if child == nil {
			r.dropped = append(r.dropped, childPtr.String())
			continue
		}

		value, ok, err := r.node(child, doc[key], childPtr)
		if err != nil {
			return nil, err
		}
		if ok {
			out[key] = value
		}
	}
	return out, nil
}

func (r *reducer) array(sub map[string]interface{}, items []interface{}, ptr jsonpointer.Pointer) ([]interface{}, error) {
	out := make([]interface{}, 0, len(items))

	switch schemaItems := sub["items"].(type) {
	case map[string]interface{}:
		for i, item := range items {
			value, ok, err := r.node(schemaItems, item, descend(ptr, strconv.Itoa(i)))
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, value)
			}
		}
	case []interface{}:
		for i, item := range items {
			itemPtr := descend(ptr, strconv.Itoa(i))
			if i >= len(schemaItems) {
				r.dropped = append(r.dropped, itemPtr.String())
				continue
			}
			positional, _ := schemaItems[i].(map[string]interface{})
			if positional == nil {
				r.dropped = append(r.dropped, itemPtr.String())
				continue
			}
			value, ok, err := r.node(positional, item, itemPtr)
			if err != nil {
				return nil, err
			}
			if ok {
				out = append(out, value)
			}
		}
	default:
		out = append(out, items...)
	}
	return out, nil
}

func (r *reducer) drop(ptr jsonpointer.Pointer) (interface{}, bool, error) {
	r.dropped = append(r.dropped, ptr.String())
	return nil, false, nil
}

// resolve follows local "$ref"s such as "#/$defs/frame".
func (r *reducer) resolve(sub map[string]interface{}) (map[string]interface{}, error) {
	for depth := 0; ; depth++ {
		ref, ok := sub["$ref"].(string)
		if !ok {
			return sub, nil
		}
		if depth >= maxRefDepth {
			return nil, errors.Errorf("$ref %q nests deeper than %d", ref, maxRefDepth)
		}
		if !strings.HasPrefix(ref, "#") {
			return nil, errors.Errorf("only local $ref is supported, got %q", ref)
		}

		ptr, err := jsonpointer.Parse(strings.TrimPrefix(ref, "#"))
		if err != nil {
			return nil, errors.Wrapf(err, "invalid $ref %q", ref)
		}
		target, err := ptr.Eval(r.root)
		if err != nil {
			return nil, errors.Wrapf(err, "unresolvable $ref %q", ref)
		}
		next, ok := target.(map[string]interface{})
		if !ok {
			return nil, errors.Errorf("$ref %q does not point at a schema", ref)
		}
		sub = next
	}
}

func (r *reducer) validScalar(sub map[string]interface{}, value interface{}) (bool, error) {
	constraints := make(map[string]interface{}, len(sub))
	for k, v := range sub {
		if !structural[k] {
			constraints[k] = v
		}
	}
	if len(constraints) == 0 {
		return true, nil
	}

	key, err := json.Marshal(constraints)
	if err != nil {
		return false, err
	}
	compiled, ok := r.scalars[string(key)]
	if !ok {
		compiled, err = gojsonschema.NewSchema(gojsonschema.NewGoLoader(constraints))
		if err != nil {
			return false, errors.Wrap(err, "invalid sub-schema")
		}
		r.scalars[string(key)] = compiled
	}

	result, err := compiled.Validate(gojsonschema.NewGoLoader(value))
	if err != nil {
		return false, err
	}
	return result.Valid(), nil
}

// childSchema picks the schema for key. keepAsIs is set when the key is
// allowed without further reduction; a nil schema means the key is dropped.
func childSchema(properties, patterns map[string]interface{}, additional interface{}, key string) (child map[string]interface{}, keepAsIs bool, err error) {
	if p, ok := properties[key]; ok {
		return asSchema(p)
	}

	names := make([]string, 0, len(patterns))
	for pattern := range patterns {
		names = append(names, pattern)
	}
	sort.Strings(names)
	for _, pattern := range names {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, false, errors.Wrapf(err, "invalid patternProperties %q", pattern)
		}
		if re.MatchString(key) {
			return asSchema(patterns[pattern])
		}
	}

	return asSchema(additional)
}

func asSchema(v interface{}) (map[string]interface{}, bool, error) {
	switch s := v.(type) {
	case map[string]interface{}:
		return s, false, nil
	case bool:
		return nil, s, nil
	default:
		return nil, false, nil
	}
}

// isScalar reports whether v is a JSON scalar rather than a container the
// reducer cannot walk.
func isScalar(v interface{}) bool {
	if v == nil {
		return true
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct, reflect.Ptr, reflect.Interface:
		return false
	}
	return true
}

func allowsType(sub map[string]interface{}, want string) bool {
	switch t := sub["type"].(type) {
	case nil:
		return true
	case string:
		return t == want
	case []interface{}:
		for _, v := range t {
			if s, ok := v.(string); ok && s == want {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func descend(ptr jsonpointer.Pointer, key string) jsonpointer.Pointer {
	child := make(jsonpointer.Pointer, len(ptr), len(ptr)+1)
	copy(child, ptr)
	return child.RawDescendant(key)
}
