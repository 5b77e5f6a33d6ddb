package deviceconfig

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/onebiot/onebiot/internal/faults"
	"github.com/onebiot/onebiot/internal/logging"
	"github.com/onebiot/onebiot/internal/storage"
)

func newMounted(t *testing.T) (*storage.MemFS, *Store) {
	t.Helper()
	fsys := storage.NewMemFS()
	require.NoError(t, fsys.Mount())
	store := NewStore(fsys, DefaultPath,
		WithHardwareAddr(func() string { return "AA:BB:CC:DD:EE:FF" }),
		WithClientSuffix("2a"))
	return fsys, store
}

func TestStore_SetterChangeDetection(t *testing.T) {
	_, store := newMounted(t)

	assert.False(t, store.Dirty())
	assert.True(t, store.SetWiFiSSID("home"))
	assert.True(t, store.Dirty())
	assert.False(t, store.SetWiFiSSID("home"), "same value is not a change")

	assert.True(t, store.SetWiFiEstablish(true))
	assert.False(t, store.SetWiFiEstablish(true))

	require.NoError(t, store.Save())
	assert.False(t, store.Dirty())

	assert.False(t, store.SetWiFiSSID("home"))
	assert.False(t, store.Dirty())
}

func TestStore_SaveLoadRoundTrip(t *testing.T) {
	fsys, store := newMounted(t)

	store.SetCredentialsUser("admin")
	store.SetCredentialsPassword("hunter2")
	store.SetWiFiSSID("home")
	store.SetWiFiPassword("secret1")
	store.SetWiFiEstablish(true)
	store.SetAPSSID("box")
	store.SetAPPassword("apsecret")
	store.SetAPEstablish(true)
	store.SetDNSName("kitchen")
	store.SetDNSEstablish(true)
	want := store.Record()

	require.NoError(t, store.Save())

	fresh := NewStore(fsys, DefaultPath)
	require.True(t, fresh.Exists())
	require.NoError(t, fresh.Load())
	assert.Equal(t, want, fresh.Record())
	assert.False(t, fresh.Dirty())
}

func TestStore_DefaultsNeverPersisted(t *testing.T) {
	fsys, store := newMounted(t)

	assert.Equal(t, "ONEBIOT.local", store.APSSID())
	assert.Equal(t, "onebiot", store.DNSName())
	assert.Equal(t, "1biot-aabbccddeeff-2a", store.ClientName())
	assert.Equal(t, store.ClientName(), store.ClientName(), "suffix is stable")

	store.SetWiFiSSID("home")
	require.NoError(t, store.Save())

	data, err := fsys.ReadFile(DefaultPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ap_ssid":""`)
	assert.Contains(t, string(data), `"dns_name":""`)
	assert.Contains(t, string(data), `"client_name":""`)
	assert.NotContains(t, string(data), "ONEBIOT.local")

	store.SetAPSSID("box")
	assert.Equal(t, "box", store.APSSID())
}

func TestStore_GeneratedSuffix(t *testing.T) {
	store := NewStore(storage.NewMemFS(), "")
	name := store.ClientName()
	assert.True(t, strings.HasPrefix(name, ClientNamePrefix))
	assert.Len(t, name[strings.LastIndex(name, "-")+1:], 2)
	assert.Equal(t, DefaultPath, store.Path())
}

func TestStore_LoadErrors(t *testing.T) {
	t.Run("not found", func(t *testing.T) {
		_, store := newMounted(t)
		assert.False(t, store.Exists())
		err := store.Load()
		assert.True(t, faults.IsNotFound(err), "got %v", err)
	})

	t.Run("not mounted", func(t *testing.T) {
		store := NewStore(storage.NewMemFS(), DefaultPath)
		assert.True(t, faults.IsIOError(store.Load()))
		assert.True(t, faults.IsIOError(store.Save()))
	})

	t.Run("corrupt", func(t *testing.T) {
		fsys, store := newMounted(t)
		store.SetWiFiSSID("keep")
		require.NoError(t, fsys.WriteFile(DefaultPath, []byte("{not json")))

		err := store.Load()
		assert.True(t, faults.IsParseError(err), "got %v", err)
		assert.Equal(t, "keep", store.Record().WiFiSSID, "failed load leaves the record")
	})
}

func TestStore_TolerantDecoding(t *testing.T) {
	fsys, store := newMounted(t)
	raw := `{
		"wifi_ssid": "home",
		"wifi_establish": "1",
		"ap_establish": 0,
		"dns_establish": "true",
		"firmware": "ignored"
	}`
	require.NoError(t, fsys.WriteFile(DefaultPath, []byte(raw)))
	require.NoError(t, store.Load())

	rec := store.Record()
	assert.Equal(t, "home", rec.WiFiSSID)
	assert.True(t, rec.WiFiEstablish)
	assert.False(t, rec.APEstablish)
	assert.True(t, rec.DNSEstablish)
	assert.Empty(t, rec.WiFiPassword)

	require.NoError(t, store.Save())
	data, err := fsys.ReadFile(DefaultPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"wifi_establish":true`)
	assert.Contains(t, string(data), `"ap_establish":false`)
	assert.NotContains(t, string(data), "firmware")
}

func TestStore_LoadWarnsOnOutOfRangeValues(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	logging.SetLogger(zap.New(core))
	t.Cleanup(func() { logging.SetLogger(nil) })

	fsys, store := newMounted(t)
	require.NoError(t, fsys.WriteFile(DefaultPath, []byte(`{"dns_name":"living room","ap_password":"short"}`)))

	require.NoError(t, store.Load())
	assert.Equal(t, "living room", store.Record().DNSName, "the stored value is kept")

	warnings := logs.FilterMessage("Stored setting out of range").All()
	assert.Len(t, warnings, 2)
}

func TestStore_SaveRemovesBackup(t *testing.T) {
	fsys, store := newMounted(t)
	store.SetWiFiSSID("one")
	require.NoError(t, store.Save())
	store.SetWiFiSSID("two")
	require.NoError(t, store.Save())

	assert.False(t, fsys.Exists(store.BackupPath()))
	assert.False(t, store.HasBackup())
	assert.Equal(t, 2, fsys.Writes())
}

func TestStore_FailedWriteKeepsBackup(t *testing.T) {
	fsys, store := newMounted(t)
	store.SetWiFiSSID("one")
	require.NoError(t, store.Save())

	fsys.WriteErr = errors.New("flash worn out")
	store.SetWiFiSSID("two")
	err := store.Save()
	assert.True(t, faults.IsIOError(err), "got %v", err)
	assert.True(t, store.Dirty())
	assert.True(t, store.HasBackup())
	assert.False(t, fsys.Exists(DefaultPath))

	fsys.WriteErr = nil
	require.NoError(t, store.RecoverBackup())
	assert.Equal(t, "one", store.Record().WiFiSSID)
	assert.False(t, store.HasBackup())
	assert.True(t, fsys.Exists(DefaultPath))
}

func TestStore_FailedBackupRenameWritesNothing(t *testing.T) {
	fsys, store := newMounted(t)
	store.SetWiFiSSID("one")
	require.NoError(t, store.Save())

	fsys.RenameErr = errors.New("busy")
	store.SetWiFiSSID("two")
	assert.Error(t, store.Save())
	assert.Equal(t, 1, fsys.Writes())
}

func TestStore_RecoverBackupErrors(t *testing.T) {
	fsys, store := newMounted(t)
	assert.True(t, faults.IsNotFound(store.RecoverBackup()))

	require.NoError(t, fsys.WriteFile(store.BackupPath(), []byte("garbage")))
	assert.True(t, faults.IsParseError(store.RecoverBackup()))
	assert.True(t, store.HasBackup(), "a corrupt backup is left alone")
}

func TestValidateRecord(t *testing.T) {
	tests := []struct {
		name      string
		rec       Record
		wantCount int
	}{
		{"Valid: empty record", Record{}, 0},
		{"Valid: short wifi password", Record{WiFiSSID: "home", WiFiPassword: "secret1"}, 0},
		{"Invalid: long SSID", Record{WiFiSSID: strings.Repeat("s", 33)}, 1},
		{"Invalid: short AP password", Record{APPassword: "short"}, 1},
		{"Invalid: long passwords", Record{WiFiPassword: strings.Repeat("p", 64), APPassword: strings.Repeat("p", 64)}, 2},
		{"Invalid: DNS name", Record{DNSName: "my box"}, 1},
		{"Invalid: DNS hyphen", Record{DNSName: "-box"}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			errs := ValidateRecord(tt.rec)
			assert.Len(t, errs, tt.wantCount)
			for _, err := range errs {
				assert.True(t, faults.IsValidationError(err))
			}
		})
	}
}

func TestValidateCredentials(t *testing.T) {
	err := ValidateCredentials("", "")
	require.Error(t, err)
	assert.Equal(t, "User and password are empty. Operation is not allowed.", faults.ShortMessage(err))

	assert.Error(t, ValidateCredentials("a:b", "pw"))
	assert.NoError(t, ValidateCredentials("admin", "pw"))
}
