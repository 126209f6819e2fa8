package media

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Storage maps public URLs under one prefix onto files in one directory
type Storage struct {
	dir       string
	urlPrefix string
}

// NewStorage creates dir if needed. urlPrefix must end with a slash.
func NewStorage(dir, urlPrefix string) (*Storage, error) {
	if dir == "" {
		return nil, fmt.Errorf("storage directory cannot be empty")
	}
	if !strings.HasSuffix(urlPrefix, "/") {
		return nil, fmt.Errorf("url prefix %q must end with a slash", urlPrefix)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
	}

	return &Storage{dir: dir, urlPrefix: urlPrefix}, nil
}

// Dir returns the directory backing this storage
func (s *Storage) Dir() string {
	return s.dir
}

// Path returns the filesystem path of a stored file
func (s *Storage) Path(name string) string {
	return filepath.Join(s.dir, name)
}

// URL returns the public reference of a stored file
func (s *Storage) URL(name string) string {
	return s.urlPrefix + name
}

// NameFromURL returns the file name a reference points at, or false when the
// reference is not a direct child of this storage's prefix.
func (s *Storage) NameFromURL(ref string) (string, bool) {
	if !strings.HasPrefix(ref, s.urlPrefix) {
		return "", false
	}
	name := strings.TrimPrefix(ref, s.urlPrefix)
	if name == "" || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", false
	}
	return name, true
}

// Stage creates an empty hidden file next to name's final location
func (s *Storage) Stage(name string) (*os.File, error) {
	f, err := os.CreateTemp(s.dir, "."+name+".*.tmp")
	if err != nil {
		return nil, fmt.Errorf("failed to stage %s: %w", name, err)
	}
	return f, nil
}

// Replacement is a committed file whose predecessor, if any, is kept aside
// until Finish or Rollback.
type Replacement struct {
	target string
	backup string
}

// Commit moves a staged file to name. A file already stored under name is
// renamed to a hidden backup first so the swap can be rolled back.
func (s *Storage) Commit(stagedPath, name string) (*Replacement, error) {
	target := s.Path(name)
	r := &Replacement{target: target}

	info, err := os.Lstat(target)
	switch {
	case err == nil && info.IsDir():
		return nil, fmt.Errorf("failed to commit %s: a directory is in the way", name)
	case err == nil:
		placeholder, err := os.CreateTemp(s.dir, "."+name+".*.bak")
		if err != nil {
			return nil, fmt.Errorf("failed to reserve backup for %s: %w", name, err)
		}
		placeholder.Close()
		if err := os.Rename(target, placeholder.Name()); err != nil {
			os.Remove(placeholder.Name())
			return nil, fmt.Errorf("failed to back up %s: %w", name, err)
		}
		r.backup = placeholder.Name()
	case !os.IsNotExist(err):
		return nil, fmt.Errorf("failed to inspect %s: %w", name, err)
	}

	if err := os.Rename(stagedPath, target); err != nil {
		if r.backup != "" {
			os.Rename(r.backup, target)
		}
		return nil, fmt.Errorf("failed to commit %s: %w", name, err)
	}
	return r, nil
}

// Finish drops the backup of the replaced file
func (r *Replacement) Finish() error {
	if r.backup == "" {
		return nil
	}
	if err := os.Remove(r.backup); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove backup: %w", err)
	}
	return nil
}

// Rollback removes the committed file and puts the replaced one back
func (r *Replacement) Rollback() error {
	if r.backup == "" {
		if err := os.Remove(r.target); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove committed file: %w", err)
		}
		return nil
	}
	if err := os.Rename(r.backup, r.target); err != nil {
		return fmt.Errorf("failed to restore previous file: %w", err)
	}
	return nil
}

// Exists checks if a file is stored under name
func (s *Storage) Exists(name string) bool {
	_, err := os.Stat(s.Path(name))
	return err == nil
}

// Delete removes a stored file. A missing file is not an error.
func (s *Storage) Delete(name string) error {
	path := s.Path(name)
	if info, err := os.Lstat(path); err == nil && info.IsDir() {
		return fmt.Errorf("refusing to delete directory %s", name)
	}
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to delete image file: %w", err)
	}
	return nil
}
