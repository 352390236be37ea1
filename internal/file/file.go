package file

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

var ErrFileExists = errors.New("file exists")
var ErrInvalidName = errors.New("invalid file name")
var ErrIsDirectory = errors.New("is a directory")

// ------------------------------------------------------- Sources -----------------------------------------------------

// Source is an immutable byte source that can be sent over a channel.
type Source interface {
	io.ReaderAt
	Name() string
	Size() int64
}

// Local is a Source backed by a file on disk.
type Local struct {
	f    *os.File
	name string
	size int64
}

// Open opens the regular file at the provided path as a Source.
func Open(path string) (*Local, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("file '%s' not found", path)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file '%s': %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("'%s': %w", path, ErrIsDirectory)
	}
	return &Local{f: f, name: info.Name(), size: info.Size()}, nil
}

func (l *Local) ReadAt(p []byte, off int64) (int, error) {
	return l.f.ReadAt(p, off)
}

func (l *Local) Name() string {
	return l.name
}

func (l *Local) Size() int64 {
	return l.size
}

func (l *Local) Close() error {
	return l.f.Close()
}

// Memory is a Source backed by a byte slice.
type Memory struct {
	*bytes.Reader
	name string
}

// NewMemory returns a Source serving the provided bytes under the provided name.
func NewMemory(name string, b []byte) *Memory {
	return &Memory{Reader: bytes.NewReader(b), name: name}
}

func (m *Memory) Name() string {
	return m.name
}

// ------------------------------------------------------ Artifacts ----------------------------------------------------

// SanitizeName strips any directory components from a file name received
// from a peer, so that it can only ever refer to a file in the target directory.
func SanitizeName(name string) (string, error) {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(filepath.Clean("/" + name))
	if base == "/" || base == "." || base == ".." || base == "" {
		return "", ErrInvalidName
	}
	return base, nil
}

// Path returns the path a received file with the provided name is saved to.
func Path(dir, name string) (string, error) {
	safe, err := SanitizeName(name)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, safe), nil
}

// Exists reports whether a received file with the provided name would overwrite an existing file.
func Exists(dir, name string) bool {
	path, err := Path(dir, name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return !os.IsNotExist(err)
}

// Save writes the received bytes to dir. Unless overwrite is set,
// ErrFileExists is returned when the file is already present.
func Save(dir, name string, b []byte, overwrite bool) (string, error) {
	path, err := Path(dir, name)
	if err != nil {
		return "", err
	}
	if !overwrite && Exists(dir, name) {
		return path, ErrFileExists
	}
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return "", fmt.Errorf("writing file '%s': %w", path, err)
	}
	return path, nil
}
