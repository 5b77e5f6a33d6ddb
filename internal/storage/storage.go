package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
)

// ErrNotMounted is returned by every operation attempted before Mount succeeded.
var ErrNotMounted = errors.New("storage is not mounted")

// FS is the persistent storage the agent keeps its files on.
// Names are slash-separated and rooted ("/config.json").
type FS interface {
	Mount() error
	Mounted() bool
	Exists(name string) bool
	Open(name string) (io.ReadCloser, error)
	ReadFile(name string) ([]byte, error)
	WriteFile(name string, data []byte) error
	Rename(oldName, newName string) error
	Remove(name string) error
	Stats() (Stats, error)
}

// Stats describes storage capacity.
type Stats struct {
	TotalBytes    uint64 `json:"total_bytes"`
	UsedBytes     uint64 `json:"used_bytes"`
	BlockSize     uint64 `json:"block_size"`
	MaxPathLength int    `json:"max_path_length"`
}

// DirFS is an FS rooted at a directory of the host filesystem.
type DirFS struct {
	root string

	mu      sync.Mutex
	mounted bool
}

// NewDirFS creates a DirFS rooted at root. Nothing touches the disk until Mount.
func NewDirFS(root string) *DirFS {
	return &DirFS{root: root}
}

// Root returns the host directory backing the filesystem.
func (d *DirFS) Root() string {
	return d.root
}

// Mount creates the root directory if needed and checks it is writable.
func (d *DirFS) Mount() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.mounted {
		return nil
	}

	if err := os.MkdirAll(d.root, 0o700); err != nil {
		return fmt.Errorf("failed to create storage root: %w", err)
	}

	probe, err := os.CreateTemp(d.root, ".mount-*")
	if err != nil {
		return fmt.Errorf("storage root is not writable: %w", err)
	}
	_ = probe.Close()
	_ = os.Remove(probe.Name())

	d.mounted = true
	return nil
}

// Mounted reports whether Mount succeeded.
func (d *DirFS) Mounted() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.mounted
}

// resolve maps a storage name onto the host path, refusing to leave the root.
func (d *DirFS) resolve(name string) (string, error) {
	if !d.Mounted() {
		return "", ErrNotMounted
	}
	clean := path.Clean("/" + name)
	if strings.Contains(clean, "..") {
		return "", fmt.Errorf("invalid storage name: %s", name)
	}
	return filepath.Join(d.root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Exists reports whether name exists.
func (d *DirFS) Exists(name string) bool {
	p, err := d.resolve(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(p)
	return err == nil
}

// Open opens name for streaming reads.
func (d *DirFS) Open(name string) (io.ReadCloser, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.Open(p)
}

// ReadFile reads the whole of name.
func (d *DirFS) ReadFile(name string) ([]byte, error) {
	p, err := d.resolve(name)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// WriteFile creates or truncates name and syncs it to disk before returning.
func (d *DirFS) WriteFile(name string, data []byte) error {
	p, err := d.resolve(name)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(p), 0o700); err != nil {
		return err
	}

	f, err := os.OpenFile(p, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

// Rename renames oldName to newName, replacing newName if it exists.
func (d *DirFS) Rename(oldName, newName string) error {
	from, err := d.resolve(oldName)
	if err != nil {
		return err
	}
	to, err := d.resolve(newName)
	if err != nil {
		return err
	}
	return os.Rename(from, to)
}

// Remove deletes name.
func (d *DirFS) Remove(name string) error {
	p, err := d.resolve(name)
	if err != nil {
		return err
	}
	return os.Remove(p)
}

// Stats reports capacity of the filesystem holding the root.
func (d *DirFS) Stats() (Stats, error) {
	if !d.Mounted() {
		return Stats{}, ErrNotMounted
	}
	return statfs(d.root)
}
