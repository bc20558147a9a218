package main

import (
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/sweeney/temp-logger/internal/config"
	"github.com/sweeney/temp-logger/internal/export"
	"github.com/sweeney/temp-logger/internal/gpio"
	"github.com/sweeney/temp-logger/internal/logic"
	"github.com/sweeney/temp-logger/internal/mqtt"
	"github.com/sweeney/temp-logger/internal/onewire"
	"github.com/sweeney/temp-logger/internal/scheduler"
	"github.com/sweeney/temp-logger/internal/session"
	"github.com/sweeney/temp-logger/internal/status"
)

func TestLoadSettingsMissingFileKeepsDefaults(t *testing.T) {
	settings := loadSettings(filepath.Join(t.TempDir(), "nope.json"), nil)
	defaults := config.DefaultSettings()

	if settings.LogInterval != defaults.LogInterval {
		t.Errorf("log interval: got %d, want %d", settings.LogInterval, defaults.LogInterval)
	}
	if settings.MeasurementName != defaults.MeasurementName {
		t.Errorf("name: got %q, want %q", settings.MeasurementName, defaults.MeasurementName)
	}
}

func TestLoadSettingsMigratesLegacyThresholds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	legacy := `{"log_interval": 5, "start_threshold": 25.0, "stop_threshold": 40.0}`
	if err := os.WriteFile(path, []byte(legacy), 0o644); err != nil {
		t.Fatal(err)
	}

	ids := []string{"28-000001", "28-000002"}
	settings := loadSettings(path, ids)

	if settings.LogInterval != 5 {
		t.Errorf("log interval: got %d, want 5", settings.LogInterval)
	}
	if len(settings.StartConditions) != 1 {
		t.Fatalf("start conditions: got %d, want 1", len(settings.StartConditions))
	}
	sc := settings.StartConditions[0]
	if sc.Op != logic.OpGreater || sc.Threshold != 25.0 || len(sc.Sensors) != 2 {
		t.Errorf("start condition: got %+v", sc)
	}
	if len(settings.StopConditions) != 1 {
		t.Fatalf("stop conditions: got %d, want 1", len(settings.StopConditions))
	}
	if settings.StopConditions[0].Op != logic.OpLessEqual {
		t.Errorf("stop operator: got %q, want <=", settings.StopConditions[0].Op)
	}

	// The migrated form was written back: a reload no longer sees legacy keys.
	res, err := config.Load(path, config.DefaultSettings())
	if err != nil {
		t.Fatalf("reload migrated config: %v", err)
	}
	if res.Legacy {
		t.Error("config still detected as legacy after migration")
	}
	if len(res.Settings.StartConditions) != 1 {
		t.Errorf("reloaded start conditions: got %d, want 1", len(res.Settings.StartConditions))
	}
}

func TestShutdownSealsRunningMeasurement(t *testing.T) {
	reader := onewire.NewFakeReader(
		[]string{"28-000001"},
		map[string][]float64{"28-000001": {21.5}},
	)
	sampler := onewire.NewSampler(reader)
	if _, err := sampler.Init(); err != nil {
		t.Fatal(err)
	}

	dir := t.TempDir()
	sessions := session.NewManager(dir, filepath.Join(dir, "counter.json"))
	tracker := status.NewTracker(time.Now(), status.Config{})
	publisher := mqtt.NewFakePublisher()

	controller := scheduler.New(sampler, sessions, export.NewExporter(nil),
		tracker, publisher, gpio.NewFakeIndicator())
	if err := controller.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := shutdown(controller, publisher, syscall.SIGTERM); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	if got := controller.State(); got != scheduler.StateIdle {
		t.Errorf("state after shutdown: got %q, want idle", got)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	sealed := false
	for _, e := range entries {
		if e.IsDir() && strings.Contains(e.Name(), "[END:") {
			sealed = true
		}
	}
	if !sealed {
		t.Errorf("session folder not sealed on shutdown: %v", entries)
	}

	var sawShutdown bool
	for _, ev := range publisher.SystemEvents() {
		if ev.Event == "SHUTDOWN" {
			sawShutdown = true
			if ev.Reason != "SIGTERM" {
				t.Errorf("shutdown reason: got %q, want SIGTERM", ev.Reason)
			}
		}
	}
	if !sawShutdown {
		t.Error("no SHUTDOWN event published")
	}
}
