package logging

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewManagerDefaults(t *testing.T) {
	mgr, logger := NewManager(DefaultConfig())
	defer mgr.Close() //nolint:errcheck

	if logger == nil {
		t.Fatal("expected non-nil logger")
	}
	cfg := mgr.Config()
	if cfg.Level != "info" || cfg.Format != "json" {
		t.Errorf("defaults = level=%s format=%s, want info/json", cfg.Level, cfg.Format)
	}
}

// The config watcher flips the level at runtime without replacing the
// logger handed out at startup.
func TestReconfigureFlipsLevelLive(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck
	ctx := context.Background()

	if logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be disabled at level info")
	}

	mgr.Reconfigure(Config{Level: "debug", Format: "json"})
	if !logger.Enabled(ctx, slog.LevelDebug) {
		t.Error("debug should be enabled after reload")
	}

	mgr.Reconfigure(Config{Level: "error", Format: "json"})
	if logger.Enabled(ctx, slog.LevelInfo) {
		t.Error("info should be disabled at level error")
	}
	if !logger.Enabled(ctx, slog.LevelError) {
		t.Error("error should stay enabled")
	}
}

// Component loggers are derived once with logger.With(...) at wiring time.
// They share the manager's LevelVar, so level reloads reach them too.
func TestComponentLoggerFollowsLevelChanges(t *testing.T) {
	mgr, logger := NewManager(Config{Level: "info", Format: "json"})
	defer mgr.Close() //nolint:errcheck

	child := logger.With(slog.String("component", "session"))

	mgr.Reconfigure(Config{Level: "error", Format: "text"})
	if mgr.Config().Format != "text" {
		t.Fatalf("format = %s after reconfigure, want text", mgr.Config().Format)
	}
	if child.Enabled(context.Background(), slog.LevelInfo) {
		t.Error("component logger should follow the manager's level")
	}
}

func TestFileOutputWritesJSON(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "wikiportraits.log")

	mgr, logger := NewManager(Config{
		Level:         "info",
		Format:        "json",
		FilePath:      logFile,
		FileMaxSizeMB: 1,
		FileMaxFiles:  1,
	})

	logger.Info("request complete",
		slog.String("component", "api"),
		slog.String("org", "Q999"),
	)
	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	f, err := os.Open(logFile)
	if err != nil {
		t.Fatalf("opening log file: %v", err)
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	if !sc.Scan() {
		t.Fatal("log file is empty")
	}
	var line map[string]any
	if err := json.Unmarshal(sc.Bytes(), &line); err != nil {
		t.Fatalf("log line is not JSON: %v", err)
	}
	if line["msg"] != "request complete" || line["org"] != "Q999" {
		t.Errorf("log line = %v", line)
	}
}

func TestReconfigureSwapsOutputFile(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.log")
	second := filepath.Join(dir, "second.log")

	mgr, logger := NewManager(Config{Level: "info", Format: "json", FilePath: first})
	logger.Info("before")

	mgr.Reconfigure(Config{Level: "info", Format: "json", FilePath: second})
	logger.Info("after")
	if err := mgr.Close(); err != nil {
		t.Fatalf("closing manager: %v", err)
	}

	a, err := os.ReadFile(first)
	if err != nil {
		t.Fatalf("reading first file: %v", err)
	}
	b, err := os.ReadFile(second)
	if err != nil {
		t.Fatalf("reading second file: %v", err)
	}
	if !strings.Contains(string(a), "before") || strings.Contains(string(a), "after") {
		t.Errorf("first file = %q", a)
	}
	if !strings.Contains(string(b), "after") {
		t.Errorf("second file = %q", b)
	}
}

func TestCloseIdempotent(t *testing.T) {
	mgr, _ := NewManager(Config{
		Level:    "info",
		Format:   "json",
		FilePath: filepath.Join(t.TempDir(), "wp.log"),
	})
	if err := mgr.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := mgr.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

func TestLevelAndFormatValidation(t *testing.T) {
	for _, l := range []string{"debug", "info", "warn", "error"} {
		if !ValidLevel(l) {
			t.Errorf("level %q should be valid", l)
		}
	}
	for _, l := range []string{"", "trace", "INFO"} {
		if ValidLevel(l) {
			t.Errorf("level %q should be invalid", l)
		}
	}
	if !ValidFormat("text") || !ValidFormat("json") {
		t.Error("text and json should be valid formats")
	}
	if ValidFormat("logfmt") || ValidFormat("") {
		t.Error("unknown formats should be invalid")
	}
}

func TestLevelRoundTrip(t *testing.T) {
	for _, name := range []string{"debug", "info", "warn", "error"} {
		if got := FormatLevel(parseLevel(name)); got != name {
			t.Errorf("round trip %q -> %q", name, got)
		}
	}
	// Unrecognized names fall back to info rather than failing.
	if parseLevel("verbose") != slog.LevelInfo {
		t.Error("unknown level should default to info")
	}
}

func TestConfigString(t *testing.T) {
	cfg := Config{Level: "debug", Format: "text"}
	if got := cfg.String(); got != "level=debug format=text" {
		t.Errorf("String() = %q", got)
	}

	cfg = Config{
		Level: "info", Format: "json",
		FilePath: "/data/wikiportraits.log", FileMaxSizeMB: 100, FileMaxFiles: 3, FileMaxAgeDays: 30,
	}
	want := "level=info format=json file=/data/wikiportraits.log max_size=100MB max_files=3 max_age=30d"
	if got := cfg.String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}
