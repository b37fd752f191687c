package secrets

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v2"
)

func TestSource_YAML(t *testing.T) {
	var cfg struct {
		AccessKey Source `yaml:"access_key"`
		SecretKey Source `yaml:"secret_key"`
	}
	err := yaml.Unmarshal([]byte("access_key:\n  env: AWS_ACCESS_KEY_ID\n"), &cfg)
	require.NoError(t, err)

	assert.Equal(t, Source{Key: "env", Value: "AWS_ACCESS_KEY_ID"}, cfg.AccessKey)
	assert.True(t, cfg.SecretKey.IsZero())

	out, err := yaml.Marshal(cfg.AccessKey)
	require.NoError(t, err)
	assert.Equal(t, "env: AWS_ACCESS_KEY_ID\n", string(out))
}

func TestSource_JSON(t *testing.T) {
	var s Source
	require.NoError(t, json.Unmarshal([]byte(`{"path": "/run/secrets/key"}`), &s))
	assert.Equal(t, Source{Key: "path", Value: "/run/secrets/key"}, s)

	out, err := json.Marshal(s)
	require.NoError(t, err)
	assert.JSONEq(t, `{"path": "/run/secrets/key"}`, string(out))

	err = json.Unmarshal([]byte(`{"path": "a", "env": "B"}`), &s)
	assert.EqualError(t, err, "multiple key/value pairs specified for source but only one may be defined")
}

func TestSource_UnmarshalText(t *testing.T) {
	testCases := []struct {
		text string
		want Source
		err  string
	}{
		{text: "env:AWS_SECRET_ACCESS_KEY", want: Source{Key: "env", Value: "AWS_SECRET_ACCESS_KEY"}},
		{text: "command:pass show s3:key", want: Source{Key: "command", Value: "pass show s3:key"}},
		{text: "", want: Source{}},
		{text: "no-colon", err: `secret source "no-colon" is not of the form key:value`},
	}

	for _, tc := range testCases {
		t.Run(tc.text, func(t *testing.T) {
			var s Source
			err := s.UnmarshalText([]byte(tc.text))
			if tc.err != "" {
				assert.EqualError(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, s)
			assert.Equal(t, tc.text, s.String())
		})
	}
}
