package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func testDefaults() Settings {
	return Settings{
		OverlayURL:               "ws://localhost:4455",
		DefaultArenas:            []string{"Field 1"},
		TournamentPollIntervalMS: 2000,
		AssignmentPollIntervalMS: 2000,
	}
}

func TestSettingsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "settings.json")

	saved := testDefaults()
	saved.ProviderUserID = "user-1"
	saved.TournamentPollIntervalMS = 500
	if err := SaveSettings(path, saved); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded := LoadSettings(path, testDefaults())
	if loaded.ProviderUserID != "user-1" {
		t.Fatalf("unexpected user id %q", loaded.ProviderUserID)
	}
	if loaded.TournamentPollInterval() != 500*time.Millisecond {
		t.Fatalf("unexpected interval %v", loaded.TournamentPollInterval())
	}
}

func TestLoadSettingsMissingFile(t *testing.T) {
	loaded := LoadSettings(filepath.Join(t.TempDir(), "absent.json"), testDefaults())
	if loaded.OverlayURL != "ws://localhost:4455" {
		t.Fatalf("expected defaults, got %+v", loaded)
	}
}

func TestLoadSettingsCorruptFileFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := LoadSettings(path, testDefaults())
	if loaded.OverlayURL != "ws://localhost:4455" || len(loaded.DefaultArenas) != 1 {
		t.Fatalf("corrupt file must yield defaults, got %+v", loaded)
	}
}

func TestLoadSettingsNonPositiveIntervals(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	if err := os.WriteFile(path, []byte(`{"tournament_poll_interval_ms":0,"assignment_poll_interval_ms":-5}`), 0o644); err != nil {
		t.Fatal(err)
	}

	loaded := LoadSettings(path, testDefaults())
	if loaded.TournamentPollInterval() != 2*time.Second || loaded.AssignmentPollInterval() != 2*time.Second {
		t.Fatalf("non-positive intervals must fall back, got %+v", loaded)
	}
}
