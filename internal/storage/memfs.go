package storage

import (
	"bytes"
	"io"
	"io/fs"
	"path"
	"sync"
)

// MemFS is an in-memory FS. It backs the simulator mode and the tests, and
// can be told to fail individual operations.
type MemFS struct {
	mu      sync.Mutex
	files   map[string][]byte
	mounted bool

	// MountErr, when set, is returned by Mount.
	MountErr error
	// WriteErr, when set, is returned by WriteFile.
	WriteErr error
	// RenameErr, when set, is returned by Rename.
	RenameErr error
	// Capacity is reported as TotalBytes by Stats.
	Capacity uint64

	writes int
}

// NewMemFS creates an empty, unmounted in-memory filesystem.
func NewMemFS() *MemFS {
	return &MemFS{
		files:    make(map[string][]byte),
		Capacity: 1 << 20,
	}
}

func memName(name string) string {
	return path.Clean("/" + name)
}

// Mount marks the filesystem mounted unless MountErr is set.
func (m *MemFS) Mount() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MountErr != nil {
		return m.MountErr
	}
	m.mounted = true
	return nil
}

// Mounted reports whether Mount succeeded.
func (m *MemFS) Mounted() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.mounted
}

// Exists reports whether name exists.
func (m *MemFS) Exists(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return false
	}
	_, ok := m.files[memName(name)]
	return ok
}

// Open returns a reader over a copy of name's contents.
func (m *MemFS) Open(name string) (io.ReadCloser, error) {
	data, err := m.ReadFile(name)
	if err != nil {
		return nil, err
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

// ReadFile returns a copy of name's contents.
func (m *MemFS) ReadFile(name string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return nil, ErrNotMounted
	}
	data, ok := m.files[memName(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	return bytes.Clone(data), nil
}

// WriteFile stores a copy of data under name.
func (m *MemFS) WriteFile(name string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return ErrNotMounted
	}
	if m.WriteErr != nil {
		return m.WriteErr
	}
	m.files[memName(name)] = bytes.Clone(data)
	m.writes++
	return nil
}

// Rename moves oldName to newName.
func (m *MemFS) Rename(oldName, newName string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return ErrNotMounted
	}
	if m.RenameErr != nil {
		return m.RenameErr
	}
	data, ok := m.files[memName(oldName)]
	if !ok {
		return &fs.PathError{Op: "rename", Path: oldName, Err: fs.ErrNotExist}
	}
	delete(m.files, memName(oldName))
	m.files[memName(newName)] = data
	return nil
}

// Remove deletes name.
func (m *MemFS) Remove(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return ErrNotMounted
	}
	if _, ok := m.files[memName(name)]; !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	delete(m.files, memName(name))
	return nil
}

// Stats reports the configured capacity and the bytes currently stored.
func (m *MemFS) Stats() (Stats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.mounted {
		return Stats{}, ErrNotMounted
	}
	var used uint64
	for _, data := range m.files {
		used += uint64(len(data))
	}
	return Stats{
		TotalBytes:    m.Capacity,
		UsedBytes:     used,
		BlockSize:     4096,
		MaxPathLength: 32,
	}, nil
}

// Writes returns how many successful WriteFile calls were made.
func (m *MemFS) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
