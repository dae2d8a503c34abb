package state

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
)

const fileExt = ".json"

// FileBackend keeps one JSON file per key in a directory. Writes go to a
// hidden temp file that is renamed over the target, so readers in other
// processes see either the old or the new value.
type FileBackend struct {
	dir string
}

// NewFileBackend returns a backend rooted at dir, creating it if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	return &FileBackend{dir: dir}, nil
}

// Dir returns the directory holding the files.
func (b *FileBackend) Dir() string { return b.dir }

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, FileName(key))
}

// FileName maps a key to its file name: "progress:ab12" -> "progress_ab12.json".
func FileName(key string) string {
	return strings.ReplaceAll(key, ":", "_") + fileExt
}

// KeyForFile reverses FileName. Temp files and foreign files report false.
func KeyForFile(name string) (string, bool) {
	name = filepath.Base(name)
	if strings.HasPrefix(name, ".") || !strings.HasSuffix(name, fileExt) {
		return "", false
	}
	base := strings.TrimSuffix(name, fileExt)
	for _, prefix := range []string{bookPrefix, progressPrefix, prefPrefix} {
		p := strings.TrimSuffix(prefix, ":") + "_"
		if strings.HasPrefix(base, p) {
			return prefix + strings.TrimPrefix(base, p), true
		}
	}
	if base == ActiveKey {
		return ActiveKey, true
	}
	return "", false
}

func (b *FileBackend) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(b.path(key))
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

func (b *FileBackend) Put(key string, value []byte) error {
	dest := b.path(key)
	tmp, err := os.CreateTemp(b.dir, "."+FileName(key)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(value); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, dest); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}

func (b *FileBackend) Delete(keys ...string) error {
	var errs []error
	for _, key := range keys {
		if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *FileBackend) Close() error { return nil }
