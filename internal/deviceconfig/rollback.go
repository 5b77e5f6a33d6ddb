package deviceconfig

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
)

// HasBackup reports whether a backup from an interrupted save is present.
func (s *Store) HasBackup() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Exists(s.path + BackupSuffix)
}

// RecoverBackup moves the backup left by an interrupted save back over the
// record and reloads it. This is an operator action; Save never calls it.
func (s *Store) RecoverBackup() error {
	s.mu.Lock()
	backup := s.path + BackupSuffix

	if !s.fs.Mounted() {
		s.mu.Unlock()
		return faults.NewIOError("recover", "storage is not mounted", nil)
	}
	if !s.fs.Exists(backup) {
		s.mu.Unlock()
		return faults.NewNotFound("recover", backup)
	}

	// The backup must decode before it replaces anything
	data, err := s.fs.ReadFile(backup)
	if err != nil {
		s.mu.Unlock()
		return faults.NewIOError("recover", fmt.Sprintf("failed to read %s", backup), err)
	}
	if _, err := DecodeRecord(data); err != nil {
		s.mu.Unlock()
		return faults.NewParseError("recover", fmt.Sprintf("backup %s is corrupted", backup), err)
	}

	if err := s.fs.Rename(backup, s.path); err != nil {
		s.mu.Unlock()
		return faults.NewIOError("recover", fmt.Sprintf("failed to restore %s", backup), err)
	}
	s.mu.Unlock()

	logging.Info("Settings restored from backup",
		zap.String("path", s.path),
		zap.Int("bytes", len(data)))

	return s.Load()
}
