package deviceconfig

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/storage"
)

// Store owns the device configuration record and its file on storage.
// All methods are safe for concurrent use.
type Store struct {
	fs     storage.FS
	path   string
	hwAddr func() string
	suffix string

	mu    sync.Mutex
	rec   Record
	dirty bool
}

// Option configures a Store.
type Option func(*Store)

// WithHardwareAddr sets the source of the hardware address used in the
// generated client name.
func WithHardwareAddr(fn func() string) Option {
	return func(s *Store) {
		s.hwAddr = fn
	}
}

// WithClientSuffix fixes the two hex digit client name suffix.
func WithClientSuffix(suffix string) Option {
	return func(s *Store) {
		s.suffix = suffix
	}
}

// NewStore creates a store bound to path on fsys. The record starts empty
// and clean.
func NewStore(fsys storage.FS, path string, opts ...Option) *Store {
	if path == "" {
		path = DefaultPath
	}
	s := &Store{
		fs:     fsys,
		path:   path,
		hwAddr: func() string { return "000000000000" },
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.suffix == "" {
		s.suffix = fmt.Sprintf("%02x", rand.IntN(256))
	}
	return s
}

// Path returns the record path.
func (s *Store) Path() string {
	return s.path
}

// BackupPath returns the path the record is moved to while saving.
func (s *Store) BackupPath() string {
	return s.path + BackupSuffix
}

// Exists reports whether a record file is present.
func (s *Store) Exists() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fs.Exists(s.path)
}

// Load replaces the in-memory record with the persisted one and clears the
// dirty flag. On error the in-memory record is left untouched.
func (s *Store) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fs.Mounted() {
		return faults.NewIOError("load", "storage is not mounted", storage.ErrNotMounted)
	}
	if !s.fs.Exists(s.path) {
		return faults.NewNotFound("load", s.path)
	}

	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		return faults.NewIOError("load", fmt.Sprintf("failed to read %s", s.path), err)
	}

	rec, err := DecodeRecord(data)
	if err != nil {
		return faults.NewParseError("load", fmt.Sprintf("failed to decode %s", s.path), err)
	}
	// values written by older firmware may be out of range; keep them
	for _, verr := range ValidateRecord(rec) {
		logging.Warn("Stored setting out of range", zap.String("path", s.path), zap.Error(verr))
	}

	s.rec = rec
	s.dirty = false
	return nil
}

// Save rewrites the whole record. The previous file is kept as the backup
// until the new one has been read back and verified; on any failure the
// backup is left in place for RecoverBackup.
func (s *Store) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.fs.Mounted() {
		return faults.NewIOError("save", "storage is not mounted", storage.ErrNotMounted)
	}

	data, err := EncodeRecord(s.rec)
	if err != nil {
		return faults.NewIOError("save", "failed to encode settings", err)
	}

	backup := s.path + BackupSuffix
	if s.fs.Exists(s.path) {
		if err := s.fs.Rename(s.path, backup); err != nil {
			return faults.NewIOError("save", fmt.Sprintf("failed to back up %s", s.path), err)
		}
	}

	if err := s.fs.WriteFile(s.path, data); err != nil {
		return faults.NewIOError("save", fmt.Sprintf("failed to write %s", s.path), err)
	}

	if err := s.verify(); err != nil {
		return err
	}

	if s.fs.Exists(backup) {
		if err := s.fs.Remove(backup); err != nil {
			logging.Warn("Failed to remove settings backup",
				zap.String("path", backup),
				zap.Error(err))
		}
	}

	s.dirty = false
	return nil
}

// verify reads the file back and checks it decodes to the in-memory record.
// Caller holds s.mu.
func (s *Store) verify() error {
	written, err := s.fs.ReadFile(s.path)
	if err != nil {
		return faults.NewIOError("save", fmt.Sprintf("failed to read back %s", s.path), err)
	}
	got, err := DecodeRecord(written)
	if err != nil {
		return faults.NewIOError("save", "written settings do not decode", err)
	}
	if got != s.rec {
		return faults.NewIOError("save", "written settings do not match", nil)
	}
	return nil
}

// Record returns a copy of the raw record.
func (s *Store) Record() Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rec
}

// Dirty reports whether a setter changed the record since the last
// Load or Save.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// ClientName returns the configured client name or the generated one.
func (s *Store) ClientName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.ClientName != "" {
		return s.rec.ClientName
	}
	mac := strings.ToLower(strings.ReplaceAll(s.hwAddr(), ":", ""))
	return ClientNamePrefix + mac + "-" + s.suffix
}

// APSSID returns the configured access point name or DefaultAPSSID.
func (s *Store) APSSID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.APSSID != "" {
		return s.rec.APSSID
	}
	return DefaultAPSSID
}

// DNSName returns the configured mDNS name or DefaultDNSName.
func (s *Store) DNSName() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec.DNSName != "" {
		return s.rec.DNSName
	}
	return DefaultDNSName
}

func (s *Store) setString(field *string, v string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *field == v {
		return false
	}
	*field = v
	s.dirty = true
	return true
}

func (s *Store) setBool(field *bool, v bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if *field == v {
		return false
	}
	*field = v
	s.dirty = true
	return true
}

// SetCredentialsUser sets the admin user; reports whether it changed.
func (s *Store) SetCredentialsUser(v string) bool {
	return s.setString(&s.rec.CredentialsUser, v)
}

// SetCredentialsPassword sets the admin password; reports whether it changed.
func (s *Store) SetCredentialsPassword(v string) bool {
	return s.setString(&s.rec.CredentialsPassword, v)
}

// SetClientName sets the client name; reports whether it changed.
func (s *Store) SetClientName(v string) bool {
	return s.setString(&s.rec.ClientName, v)
}

// SetWiFiSSID sets the station SSID; reports whether it changed.
func (s *Store) SetWiFiSSID(v string) bool {
	return s.setString(&s.rec.WiFiSSID, v)
}

// SetWiFiPassword sets the station password; reports whether it changed.
func (s *Store) SetWiFiPassword(v string) bool {
	return s.setString(&s.rec.WiFiPassword, v)
}

// SetWiFiEstablish enables or disables station mode; reports whether it changed.
func (s *Store) SetWiFiEstablish(v bool) bool {
	return s.setBool(&s.rec.WiFiEstablish, v)
}

// SetAPSSID sets the access point SSID; reports whether it changed.
func (s *Store) SetAPSSID(v string) bool {
	return s.setString(&s.rec.APSSID, v)
}

// SetAPPassword sets the access point password; reports whether it changed.
func (s *Store) SetAPPassword(v string) bool {
	return s.setString(&s.rec.APPassword, v)
}

// SetAPEstablish enables or disables the access point; reports whether it changed.
func (s *Store) SetAPEstablish(v bool) bool {
	return s.setBool(&s.rec.APEstablish, v)
}

// SetDNSName sets the mDNS name; reports whether it changed.
func (s *Store) SetDNSName(v string) bool {
	return s.setString(&s.rec.DNSName, v)
}

// SetDNSEstablish enables or disables mDNS; reports whether it changed.
func (s *Store) SetDNSEstablish(v bool) bool {
	return s.setBool(&s.rec.DNSEstablish, v)
}
