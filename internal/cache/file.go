package cache

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"

	"folio/internal/cms"
)

const (
	fileSuffix = ".cache"
	lockName   = ".lock"
)

// File stores one file per key below a root directory:
//
//	<root>/
//	  .lock                   (flock target)
//	  page/ab/cdef.cache      (key "page/ab/cdef")
//
// Processes sharing the root coordinate through an flock on .lock: reads
// take a shared lock, writes an exclusive one. Values are written to a
// temp file and renamed into place.
type File struct {
	root string
}

// NewFile creates a file cache rooted at dir, creating it if needed.
func NewFile(dir string) (*File, error) {
	if dir == "" {
		return nil, fmt.Errorf("file cache requires a directory")
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &File{root: dir}, nil
}

// path maps a key to its file. Keys with empty, "." or ".." segments are
// rejected so they cannot escape the root.
func (f *File) path(key string) (string, error) {
	if key == "" {
		return "", fmt.Errorf("empty cache key")
	}
	for _, seg := range strings.Split(key, "/") {
		if seg == "" || seg == "." || seg == ".." {
			return "", fmt.Errorf("invalid cache key %q", key)
		}
	}
	return filepath.Join(f.root, filepath.FromSlash(key)+fileSuffix), nil
}

func (f *File) Get(key string) (string, bool, error) {
	p, err := f.path(key)
	if err != nil {
		return "", false, err
	}

	unlock, err := f.lock(unix.LOCK_SH)
	if err != nil {
		return "", false, err
	}
	defer unlock()

	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("reading cache file: %w", err)
	}
	return string(data), true, nil
}

func (f *File) Set(key, value string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	unlock, err := f.lock(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
		return fmt.Errorf("creating cache directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(p), ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(value); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing cache file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpPath, p); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming cache file: %w", err)
	}
	return nil
}

func (f *File) Remove(key string) error {
	p, err := f.path(key)
	if err != nil {
		return err
	}

	unlock, err := f.lock(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing cache file: %w", err)
	}
	return nil
}

// Flush removes every entry but keeps the root and its lock file.
func (f *File) Flush() error {
	unlock, err := f.lock(unix.LOCK_EX)
	if err != nil {
		return err
	}
	defer unlock()

	entries, err := os.ReadDir(f.root)
	if err != nil {
		return fmt.Errorf("reading cache directory: %w", err)
	}
	for _, e := range entries {
		if e.Name() == lockName {
			continue
		}
		if err := os.RemoveAll(filepath.Join(f.root, e.Name())); err != nil {
			return fmt.Errorf("flushing cache: %w", err)
		}
	}
	return nil
}

func (f *File) lock(how int) (func(), error) {
	lf, err := os.OpenFile(filepath.Join(f.root, lockName), os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening cache lock: %w", err)
	}
	if err := unix.Flock(int(lf.Fd()), how); err != nil {
		lf.Close()
		return nil, fmt.Errorf("locking cache: %w", err)
	}
	return func() {
		unix.Flock(int(lf.Fd()), unix.LOCK_UN)
		lf.Close()
	}, nil
}

// Compile-time check that File implements cms.Cache.
var _ cms.Cache = (*File)(nil)
