// Package files loads input documents.
//
// Every file is read once per Loader: later loads of the same path are
// served from the cache. Loading strips a UTF-8 byte order mark, rejects
// UTF-16 and UTF-32 input and converts "\r\n" and "\r" line endings to "\n".
package files

import (
	"encoding/hex"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/crypto/blake2b"

	"github.com/aledsdavies/quire/core/config"
	"github.com/aledsdavies/quire/core/errors"
)

// File is a loaded, normalized input file.
type File struct {
	Path   string // cleaned absolute path, the cache key
	Source string // UTF-8 text with "\n" line endings
	Digest string // BLAKE2b-256 of Source, hex encoded

	// Version is the language version the file declared, set by the
	// compiler once the file's doc info has been read.
	Version config.Version
}

// Lines returns the number of lines in the file.
func (f *File) Lines() int {
	if f.Source == "" {
		return 0
	}
	n := 1
	for i := 0; i < len(f.Source)-1; i++ {
		if f.Source[i] == '\n' {
			n++
		}
	}
	return n
}

// Loader memoizes file loads by path. The cache is guarded so a watcher can
// invalidate entries while a build runs.
type Loader struct {
	mu     sync.Mutex
	files  map[string]*File
	reads  int
	logger *slog.Logger
}

// NewLoader creates an empty loader. A nil logger discards output.
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = config.DiscardLogger()
	}
	return &Loader{
		files:  make(map[string]*File),
		logger: logger,
	}
}

// Key returns the cache key for path.
func Key(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	return filepath.Clean(abs), nil
}

// Load returns the file at path, reading it on first use.
func (l *Loader) Load(path string) (*File, error) {
	key, err := Key(path)
	if err != nil {
		return nil, errors.NewInputError(path, "could not resolve input path", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.files[key]; ok {
		l.logger.Debug("file cache hit", "path", key)
		return f, nil
	}

	data, err := os.ReadFile(key)
	if err != nil {
		return nil, errors.NewInputError(key, "could not open input file", err)
	}
	l.reads++

	source, err := Normalize(data)
	if err != nil {
		return nil, errors.Wrap(errors.ErrUnsupportedEncoding, "could not decode input file", err).
			WithContext("file", key)
	}

	sum := blake2b.Sum256([]byte(source))
	f := &File{
		Path:   key,
		Source: source,
		Digest: hex.EncodeToString(sum[:]),
	}
	l.files[key] = f
	l.logger.Debug("file loaded", "path", key, "bytes", len(source))
	return f, nil
}

// Invalidate drops path from the cache and reports whether it was cached.
func (l *Loader) Invalidate(path string) bool {
	key, err := Key(path)
	if err != nil {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.files[key]
	delete(l.files, key)
	return ok
}

// Paths returns the cached paths in sorted order.
func (l *Loader) Paths() []string {
	l.mu.Lock()
	defer l.mu.Unlock()

	paths := make([]string, 0, len(l.files))
	for p := range l.files {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// Reads returns how many times the loader went to disk.
func (l *Loader) Reads() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.reads
}
