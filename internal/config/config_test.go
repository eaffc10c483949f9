package config

import (
	"os"
	"testing"
)

func withEnv(t *testing.T, key, value string) {
	t.Helper()
	old, had := os.LookupEnv(key)
	os.Setenv(key, value)
	t.Cleanup(func() {
		if had {
			os.Setenv(key, old)
		} else {
			os.Unsetenv(key)
		}
	})
}

func TestLoadDefaults(t *testing.T) {
	cfg := Load()
	if cfg.BroadcastPrefix == "" {
		t.Error("BroadcastPrefix should have a default")
	}
	if cfg.ExpectedNEntries != 40 {
		t.Errorf("ExpectedNEntries = %d, want 40", cfg.ExpectedNEntries)
	}
	if cfg.MaxPacketSize != 8800 {
		t.Errorf("MaxPacketSize = %d, want 8800", cfg.MaxPacketSize)
	}
	if cfg.CompressSegments {
		t.Error("CompressSegments should default to false")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	withEnv(t, "NDNSYNC_BROADCAST_PREFIX", "/ndn/broadcast/custom")
	withEnv(t, "NDNSYNC_EXPECTED_N_ENTRIES", "100")
	withEnv(t, "NDNSYNC_COMPRESS_SEGMENTS", "true")
	withEnv(t, "NDNSYNC_SYNC_LIFETIME", "3s")

	cfg := Load()
	if cfg.BroadcastPrefix != "/ndn/broadcast/custom" {
		t.Errorf("BroadcastPrefix = %q", cfg.BroadcastPrefix)
	}
	if cfg.ExpectedNEntries != 100 {
		t.Errorf("ExpectedNEntries = %d, want 100", cfg.ExpectedNEntries)
	}
	if !cfg.CompressSegments {
		t.Error("CompressSegments should be true")
	}
	if cfg.SyncLifetimeMs != 3000 {
		t.Errorf("SyncLifetimeMs = %d, want 3000", cfg.SyncLifetimeMs)
	}
}

func TestGetEnvIntIgnoresGarbage(t *testing.T) {
	withEnv(t, "NDNSYNC_EXPECTED_N_ENTRIES", "not-a-number")
	cfg := Load()
	if cfg.ExpectedNEntries != 40 {
		t.Errorf("ExpectedNEntries = %d, want fallback 40 for unparsable input", cfg.ExpectedNEntries)
	}
}
