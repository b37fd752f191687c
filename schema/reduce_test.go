package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustLoad(t *testing.T, data string) *Schema {
	t.Helper()
	s, err := Load([]byte(data))
	require.NoError(t, err)
	return s
}

func TestReduce_CrashReport(t *testing.T) {
	s, err := CrashReport()
	require.NoError(t, err)

	doc := map[string]interface{}{
		"uuid":        "de1bb258-cbbf-4589-a673-34f800160918",
		"product":     "Firefox",
		"version":     "62.0b5",
		"signature":   nil,
		"uptime":      float64(12),
		"build_id":    "not-a-build-id",
		"install_age": "a week",
		"secret_url":  "https://example.com/private",
		"addons":      []interface{}{"a@b", float64(1)},
		"json_dump": map[string]interface{}{
			"crash_info": map[string]interface{}{
				"type":  "SIGSEGV",
				"extra": true,
			},
			"threads": []interface{}{
				map[string]interface{}{
					"frame_count": float64(1),
					"frames": []interface{}{
						map[string]interface{}{
							"frame":  float64(0),
							"module": "libxul.so",
							"junk":   "x",
						},
					},
				},
			},
		},
	}

	reduced, dropped, err := Reduce(s, doc)
	require.NoError(t, err)

	is := assert.New(t)
	is.Equal(map[string]interface{}{
		"uuid":      "de1bb258-cbbf-4589-a673-34f800160918",
		"product":   "Firefox",
		"version":   "62.0b5",
		"signature": nil,
		"uptime":    float64(12),
		"addons":    []interface{}{"a@b"},
		"json_dump": map[string]interface{}{
			"crash_info": map[string]interface{}{
				"type": "SIGSEGV",
			},
			"threads": []interface{}{
				map[string]interface{}{
					"frame_count": float64(1),
					"frames": []interface{}{
						map[string]interface{}{
							"frame":  float64(0),
							"module": "libxul.so",
						},
					},
				},
			},
		},
	}, reduced)
	is.ElementsMatch([]string{
		"/addons/1",
		"/build_id",
		"/install_age",
		"/json_dump/crash_info/extra",
		"/json_dump/threads/0/frames/0/junk",
		"/secret_url",
	}, dropped)

	is.Contains(doc, "secret_url", "the input is left alone")
	is.Contains(doc["json_dump"].(map[string]interface{})["crash_info"], "extra")
}

func TestReduce_Keywords(t *testing.T) {
	testCases := []struct {
		name    string
		schema  string
		doc     map[string]interface{}
		want    map[string]interface{}
		dropped []string
	}{{
		name:    "additional properties allowed",
		schema:  `{"type": "object", "additionalProperties": true}`,
		doc:     map[string]interface{}{"anything": map[string]interface{}{"goes": float64(1)}},
		want:    map[string]interface{}{"anything": map[string]interface{}{"goes": float64(1)}},
		dropped: nil,
	}, {
		name:    "additional properties schema",
		schema:  `{"type": "object", "additionalProperties": {"type": "string"}}`,
		doc:     map[string]interface{}{"a": "x", "b": float64(2)},
		want:    map[string]interface{}{"a": "x"},
		dropped: []string{"/b"},
	}, {
		name:    "pattern properties",
		schema:  `{"type": "object", "patternProperties": {"^annotation_": {"type": "string"}}}`,
		doc:     map[string]interface{}{"annotation_x": "1", "other": "2"},
		want:    map[string]interface{}{"annotation_x": "1"},
		dropped: []string{"/other"},
	}, {
		name:    "tuple items",
		schema:  `{"type": "object", "properties": {"pair": {"type": "array", "items": [{"type": "string"}, {"type": "integer"}]}}}`,
		doc:     map[string]interface{}{"pair": []interface{}{"a", "b", "c"}},
		want:    map[string]interface{}{"pair": []interface{}{"a"}},
		dropped: []string{"/pair/1", "/pair/2"},
	}, {
		name:    "array without items schema",
		schema:  `{"type": "object", "properties": {"tags": {"type": "array"}}}`,
		doc:     map[string]interface{}{"tags": []interface{}{"a", float64(1)}},
		want:    map[string]interface{}{"tags": []interface{}{"a", float64(1)}},
		dropped: nil,
	}, {
		name:    "object where scalar expected",
		schema:  `{"type": "object", "properties": {"name": {"type": "string"}}}`,
		doc:     map[string]interface{}{"name": map[string]interface{}{"first": "a"}},
		want:    map[string]interface{}{},
		dropped: []string{"/name"},
	}, {
		name:    "typed containers are dropped",
		schema:  `{"type": "object", "properties": {"json_dump": {"type": "object", "properties": {"crash_info": {}}}, "tags": {"type": "array"}}}`,
		doc:     map[string]interface{}{"json_dump": map[string]string{"secret_token": "hunter2"}, "tags": []string{"a"}},
		want:    map[string]interface{}{},
		dropped: []string{"/json_dump", "/tags"},
	}, {
		name:    "key with slash is escaped",
		schema:  `{"type": "object"}`,
		doc:     map[string]interface{}{"a/b": "x"},
		want:    map[string]interface{}{},
		dropped: []string{"/a~1b"},
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			reduced, dropped, err := Reduce(mustLoad(t, tc.schema), tc.doc)
			require.NoError(t, err)
			assert.Equal(t, tc.want, reduced)
			assert.Equal(t, tc.dropped, dropped)
		})
	}
}

func TestReduce_Errors(t *testing.T) {
	testCases := []struct {
		name   string
		schema string
		err    string
	}{{
		name:   "root is not an object",
		schema: `{"type": "array"}`,
		err:    "schema does not describe an object",
	}, {
		name:   "cyclic ref",
		schema: `{"type": "object", "properties": {"x": {"$ref": "#/$defs/a"}}, "$defs": {"a": {"$ref": "#/$defs/b"}, "b": {"$ref": "#/$defs/a"}}}`,
		err:    "nests deeper than",
	}, {
		name:   "remote ref",
		schema: `{"type": "object", "properties": {"x": {"$ref": "https://example.com/schema.json"}}}`,
		err:    "only local $ref is supported",
	}, {
		name:   "missing ref",
		schema: `{"type": "object", "properties": {"x": {"$ref": "#/$defs/nope"}}}`,
		err:    `$ref "#/$defs/nope"`,
	}, {
		name:   "bad pattern",
		schema: `{"type": "object", "patternProperties": {"(": {}}}`,
		err:    "invalid patternProperties",
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := Reduce(mustLoad(t, tc.schema), map[string]interface{}{"x": float64(1)})
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.err)
		})
	}
}
