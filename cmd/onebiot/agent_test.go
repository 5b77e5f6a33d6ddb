package main

import (
	"testing"

	"github.com/onebiot/onebiot/internal/config"
	"github.com/onebiot/onebiot/internal/radio"
	"github.com/onebiot/onebiot/internal/storage"
)

func TestComponentSelection(t *testing.T) {
	settings := config.Default()
	settings.Storage.Memory = true

	if _, ok := openStorage(settings).(*storage.MemFS); !ok {
		t.Error("memory storage should use MemFS")
	}
	if _, ok := newDriver(settings).(*radio.Simulator); !ok {
		t.Error("sim driver should use the simulator")
	}

	settings.Storage.Memory = false
	settings.Storage.Root = t.TempDir()
	settings.Radio.Driver = config.DriverNMCLI
	if _, ok := openStorage(settings).(*storage.DirFS); !ok {
		t.Error("persistent storage should use DirFS")
	}
	if _, ok := newDriver(settings).(*radio.NMCLI); !ok {
		t.Error("nmcli driver should use NMCLI")
	}
}

func TestMountStoreRejectsMemory(t *testing.T) {
	settings := config.Default()
	settings.Storage.Memory = true
	if _, err := mountStore(settings); err == nil {
		t.Error("mountStore() should refuse in-memory storage")
	}

	settings.Storage.Memory = false
	settings.Storage.Root = t.TempDir()
	store, err := mountStore(settings)
	if err != nil {
		t.Fatalf("mountStore() error = %v", err)
	}
	if store.Path() != settings.Storage.Record {
		t.Errorf("store.Path() = %v, want %v", store.Path(), settings.Storage.Record)
	}
}

func TestBuildAgent(t *testing.T) {
	settings := config.Default()
	settings.Storage.Memory = true
	settings.HTTP.Port = 0

	orch := buildAgent(settings)
	if orch == nil {
		t.Fatal("buildAgent() returned nil")
	}
	if orch.RestartPending() {
		t.Error("a fresh agent should have no pending restart")
	}
}
