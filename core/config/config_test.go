package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/errors"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		in      string
		want    config.Version
		wantErr bool
	}{
		{in: "1.6", want: 106},
		{in: "v1.5", want: 105},
		{in: "1.1.0", want: 101},
		{in: "1", want: 100},
		{in: "2.0", want: 200},
		{in: "", wantErr: true},
		{in: "one.six", wantErr: true},
		{in: "1.6-beta", wantErr: true},
		{in: "1.100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := config.ParseVersion(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestVersionString(t *testing.T) {
	assert.Equal(t, "1.6", config.Version(106).String())
	assert.Equal(t, "1.3", config.Version(103).String())
	assert.Equal(t, "unset", config.Version(0).String())
	assert.True(t, config.Version(104).Known())
	assert.False(t, config.Version(107).Known())
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse([]byte(`{}`))
	require.NoError(t, err)

	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseOverrides(t *testing.T) {
	cfg, err := config.Parse([]byte(`{
		"compatibility_version": "1.5",
		"max_id_length": 16,
		"max_template_depth": 10,
		"source_mode": "python",
		"debug": true
	}`))
	require.NoError(t, err)

	want := config.Config{
		CompatibilityVersion: 105,
		MaxIDLength:          16,
		MaxTemplateDepth:     10,
		SourceMode:           "python",
		Debug:                true,
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestParseRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":   `{"max_depth": 3}`,
		"id length small": `{"max_id_length": 2}`,
		"zero depth":      `{"max_template_depth": 0}`,
		"bad version":     `{"compatibility_version": "latest"}`,
		"not json":        `{`,
		"wrong type":      `{"debug": "yes"}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := config.Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "quire.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"max_template_depth": 5}`), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxTemplateDepth)
	assert.Equal(t, config.DefaultMaxIDLength, cfg.MaxIDLength)

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"max_template_depth": -1}`), 0o644))
	_, err = config.Load(bad)
	assert.True(t, errors.IsErrorType(err, errors.ErrConfigInvalid))

	_, err = config.Load(filepath.Join(dir, "missing.json"))
	assert.True(t, errors.IsErrorType(err, errors.ErrInputRead))
}
