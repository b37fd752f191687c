package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCrashReport(t *testing.T) {
	s, err := CrashReport()
	require.NoError(t, err)

	is := assert.New(t)
	is.Equal(Version("2.0.0"), s.Version)
	is.Equal(crashReportSchema, s.Bytes())

	again, err := CrashReport()
	require.NoError(t, err)
	is.Same(s, again, "the embedded schema is parsed once")
}

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		data    string
		version Version
		err     string
	}{{
		name: "no version",
		data: `{"type": "object"}`,
	}, {
		name:    "with version",
		data:    `{"$target_version": "1.2.3", "type": "object"}`,
		version: Version("1.2.3"),
	}, {
		name: "not json",
		data: `{"type":`,
		err:  "failed to json.Unmarshal schema",
	}, {
		name: "version not a string",
		data: `{"$target_version": 2}`,
		err:  "$target_version must be a string, got float64",
	}, {
		name: "version not semver",
		data: `{"$target_version": "latest"}`,
		err:  `invalid schema version "latest"`,
	}}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Load([]byte(tc.data))
			if tc.err != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.version, s.Version)
		})
	}
}
