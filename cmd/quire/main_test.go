package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/errors"
	"github.com/aledsdavies/quire/core/ids"
	"github.com/aledsdavies/quire/runtime/compiler"
)

const sampleScript = `{"version": 1, "events": [
	{"op": "doc_info", "type": "article", "title": "Guide", "qbk_version": "1.6"},
	{"op": "section", "title": "Install"},
	{"op": "text", "text": "<para>run it</para>"},
	{"op": "section", "title": "Install"}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	cmd := newRootCmd(&stdout, &stderr)
	cmd.SetArgs(append(args, "--no-color"))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.json", sampleScript)

	stdout, stderr, err := execute(t, "build", path)
	require.NoError(t, err)

	expected := "<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n" +
		"<article id=\"guide\">\n<title>Guide</title>\n" +
		"<section id=\"guide.install\"><title>Install</title><para>run it</para>" +
		"<section id=\"guide.install.install\"><title>Install</title></section></section>" +
		"\n</article>\n"
	assert.Equal(t, expected, stdout)
	assert.Equal(t, path+": warning: Missing end_section detected at end of file\n", stderr)
}

func TestBuildCommandWritesFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.json", sampleScript)
	out := filepath.Join(dir, "guide.xml")
	report := filepath.Join(dir, "ids.cbor")

	stdout, stderr, err := execute(t, "build", path, "--out", out, "--dump-ids", report)
	require.NoError(t, err)
	assert.Empty(t, stdout)

	written, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(written), `<section id="guide.install.install">`)

	data, err := os.ReadFile(report)
	require.NoError(t, err)
	r, err := ids.UnmarshalReport(data)
	require.NoError(t, err)
	assert.Equal(t, map[string][]string{
		"guide":   {"guide"},
		"install": {"guide.install", "guide.install.install"},
	}, r.Finals())

	digest, err := r.Digest()
	require.NoError(t, err)
	assert.Contains(t, stderr, "ids: "+digest+" (3 ids)\n")
}

func TestBuildCommandFailure(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "bad.json", `{"version": 1, "events": [{"op": "macro", "name": "missing"}]}`)

	stdout, _, err := execute(t, "build", path)
	require.Error(t, err)
	assert.Empty(t, stdout)
	assert.True(t, errors.IsErrorType(err, errors.ErrMacroNotFound), "got %v", err)

	_, _, err = execute(t, "build", filepath.Join(dir, "absent.json"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrInputRead), "got %v", err)
}

func TestBuildCommandFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "guide.json", `{"version": 1, "events": [
		{"op": "doc_info", "title": "Guide", "qbk_version": "1.6"},
		{"op": "section", "title": "A very long section title"},
		{"op": "end_section"}
	]}`)

	stdout, _, err := execute(t, "build", path, "--max-id-length", "8")
	require.NoError(t, err)
	assert.Equal(t, `<section id="guide.a_very_l"><title>A very long section title</title></section>`, stdout)

	stdout, _, err = execute(t, "build", path, "--compat", "1.5")
	require.NoError(t, err)
	assert.Equal(t, `<section id="guide.a_very_long_section_title"><title>A very long section title</title></section>`, stdout)
}

func TestResolveConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "quire.json",
		`{"compatibility_version": "1.5", "max_id_length": 40, "max_template_depth": 10}`)

	resolve := func(args ...string) (config.Config, error) {
		var opts options
		cmd := newRootCmd(&bytes.Buffer{}, &bytes.Buffer{})
		build, _, err := cmd.Find([]string{"build"})
		require.NoError(t, err)
		require.NoError(t, build.ParseFlags(args))
		// persistent flags bind to the root's options; re-read them here
		opts.configFile, _ = build.Flags().GetString("config")
		opts.compat, _ = build.Flags().GetString("compat")
		opts.maxIDLength, _ = build.Flags().GetInt("max-id-length")
		opts.maxTemplateDepth, _ = build.Flags().GetInt("max-template-depth")
		return resolveConfig(build, &opts)
	}

	t.Run("file values", func(t *testing.T) {
		cfg, err := resolve("--config", cfgPath)
		require.NoError(t, err)
		assert.Equal(t, config.Version(105), cfg.CompatibilityVersion)
		assert.Equal(t, 40, cfg.MaxIDLength)
		assert.Equal(t, 10, cfg.MaxTemplateDepth)
	})

	t.Run("flags override the file", func(t *testing.T) {
		cfg, err := resolve("--config", cfgPath, "--max-id-length", "12", "--compat", "1.6")
		require.NoError(t, err)
		assert.Equal(t, config.Version(106), cfg.CompatibilityVersion)
		assert.Equal(t, 12, cfg.MaxIDLength)
		assert.Equal(t, 10, cfg.MaxTemplateDepth)
	})

	t.Run("invalid compat", func(t *testing.T) {
		_, err := resolve("--compat", "one")
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Contains(t, cliErr.Hint, "1.6")
	})

	t.Run("invalid flag value", func(t *testing.T) {
		_, err := resolve("--max-id-length", "2")
		var cliErr *CLIError
		require.ErrorAs(t, err, &cliErr)
		assert.Equal(t, "invalid configuration", cliErr.Message)
	})

	t.Run("invalid file", func(t *testing.T) {
		bad := writeFile(t, dir, "bad.json", `{"max_id_length": "long"}`)
		_, err := resolve("--config", bad)
		assert.True(t, errors.IsErrorType(err, errors.ErrConfigInvalid), "got %v", err)
	})
}

func TestFormatError(t *testing.T) {
	t.Run("quire error", func(t *testing.T) {
		err := errors.NewTemplateNotFoundError("headr", "header").WithContext("file", "main.json")
		var buf bytes.Buffer
		FormatError(&buf, err, false)

		expected := `Error: TEMPLATE_NOT_FOUND: template "headr" not defined (did you mean "header"?)
  file: main.json
  suggestion: header
  template: headr
Hint: Did you mean "header"?
`
		assert.Equal(t, expected, buf.String())
	})

	t.Run("cli error", func(t *testing.T) {
		var buf bytes.Buffer
		FormatError(&buf, &CLIError{Message: "bad", Details: "details", Hint: "fix it"}, false)
		assert.Equal(t, "Error: bad\n\ndetails\nHint: fix it\n", buf.String())
	})

	t.Run("plain error", func(t *testing.T) {
		var buf bytes.Buffer
		FormatError(&buf, os.ErrNotExist, false)
		assert.Equal(t, "Error: file does not exist\n", buf.String())
	})
}

func TestFormatWarning(t *testing.T) {
	d := compiler.Diagnostic{File: "main.json", Line: 1, Message: "Unknown version: 1.9"}

	var plain bytes.Buffer
	FormatWarning(&plain, d, false)
	assert.Equal(t, "main.json:1: warning: Unknown version: 1.9\n", plain.String())

	var colored bytes.Buffer
	FormatWarning(&colored, d, true)
	assert.True(t, strings.Contains(colored.String(), ColorYellow+"warning:"+ColorReset))
}
