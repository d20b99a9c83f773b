package files

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/quire/core/errors"
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		name    string
		input   []byte
		want    string
		wantErr string
	}{
		{name: "plain", input: []byte("a\nb"), want: "a\nb"},
		{name: "crlf", input: []byte("a\r\nb\r\n"), want: "a\nb\n"},
		{name: "cr", input: []byte("a\rb\r"), want: "a\nb\n"},
		{name: "mixed", input: []byte("a\r\r\nb\n\r"), want: "a\n\nb\n\n"},
		{name: "utf8 bom", input: []byte("\xEF\xBB\xBFtext"), want: "text"},
		{name: "partial bom kept", input: []byte("\xEF\xBBx"), want: "\xEF\xBBx"},
		{name: "empty", input: nil, want: ""},
		{name: "utf16 le", input: []byte("\xFF\xFEa\x00"), wantErr: "UTF-16 is not supported"},
		{name: "utf16 be", input: []byte("\xFE\xFF\x00a"), wantErr: "UTF-16 is not supported"},
		{name: "utf32 le", input: []byte("\xFF\xFE\x00\x00a\x00\x00\x00"), wantErr: "UTF-32 is not supported"},
		{name: "utf32 be", input: []byte("\x00\x00\xFE\xFF"), wantErr: "UTF-32 is not supported"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Normalize(tt.input)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Normalize mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestLoadIsMemoized(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.json", []byte("first\r\n"))

	l := NewLoader(nil)
	f1, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "first\n", f1.Source)
	assert.Len(t, f1.Digest, 64)

	// The cache is keyed by the cleaned absolute path.
	writeFile(t, dir, "doc.json", []byte("second\n"))
	f2, err := l.Load(filepath.Join(dir, "sub", "..", "doc.json"))
	require.NoError(t, err)
	assert.Same(t, f1, f2)
	assert.Equal(t, 1, l.Reads())

	assert.True(t, l.Invalidate(path))
	assert.False(t, l.Invalidate(path))

	f3, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second\n", f3.Source)
	assert.NotEqual(t, f1.Digest, f3.Digest)
	assert.Equal(t, 2, l.Reads())
	assert.Equal(t, []string{f3.Path}, l.Paths())
}

func TestLoadErrors(t *testing.T) {
	dir := t.TempDir()
	l := NewLoader(nil)

	_, err := l.Load(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrInputRead))

	path := writeFile(t, dir, "wide.json", []byte("\xFF\xFEa\x00"))
	_, err = l.Load(path)
	require.Error(t, err)
	assert.True(t, errors.IsErrorType(err, errors.ErrUnsupportedEncoding))
	assert.Contains(t, err.Error(), "Please use UTF-8")
	assert.Empty(t, l.Paths(), "failed loads are not cached")
}

func TestLines(t *testing.T) {
	assert.Equal(t, 0, (&File{}).Lines())
	assert.Equal(t, 1, (&File{Source: "a"}).Lines())
	assert.Equal(t, 1, (&File{Source: "a\n"}).Lines())
	assert.Equal(t, 3, (&File{Source: "a\n\nb"}).Lines())
}

func TestWatchInvalidatesChangedFiles(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "doc.json", []byte("v1"))

	l := NewLoader(nil)
	f, err := l.Load(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	changed := make(chan string, 8)
	done := make(chan error, 1)
	go func() {
		done <- l.Watch(ctx, func(p string) {
			select {
			case changed <- p:
			default:
			}
		})
	}()

	// Keep writing until the watcher has picked up its directory.
	deadline := time.After(5 * time.Second)
	tick := time.NewTicker(50 * time.Millisecond)
	defer tick.Stop()
	var got string
	for got == "" {
		select {
		case got = <-changed:
		case <-tick.C:
			require.NoError(t, os.WriteFile(path, []byte("v2"), 0o644))
		case <-deadline:
			t.Fatal("no change notification")
		}
	}

	assert.Equal(t, f.Path, got)
	cancel()
	require.NoError(t, <-done)

	reloaded, err := l.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "v2", reloaded.Source)
}
