package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"scummsync/internal/config"
	"scummsync/internal/services"
)

func newTestConsole(level slog.Level) (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	lvl.Set(level)
	return slog.New(newConsoleHandler(&buf, lvl, false)), &buf
}

func TestConsoleHandlerInfoLayout(t *testing.T) {
	logger, buf := newTestConsole(slog.LevelInfo)
	logger = NewComponentLogger(logger, "reconcile")

	logger.Info("section renamed",
		String(FieldGameID, "sword"),
		String(FieldStage, "canonicalize"),
		String("old_label", "sword-2"),
	)

	out := buf.String()
	lines := strings.Split(strings.TrimRight(out, "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus one field, got %q", out)
	}
	if !strings.Contains(lines[0], "INFO [reconcile] sword (canonicalize) – section renamed") {
		t.Fatalf("unexpected header: %q", lines[0])
	}
	if lines[1] != "    - Old Label: sword-2" {
		t.Fatalf("unexpected field line: %q", lines[1])
	}
}

func TestConsoleHandlerFormatsAlertAndBool(t *testing.T) {
	logger, buf := newTestConsole(slog.LevelInfo)

	logger.Warn("canonical label collision", Alert("section_dropped"), Bool("store_changed", true))

	out := buf.String()
	if !strings.Contains(out, "    - Alert: section_dropped\n") {
		t.Fatalf("missing alert field: %q", out)
	}
	if !strings.Contains(out, "    - Store Changed: yes\n") {
		t.Fatalf("missing bool field: %q", out)
	}
}

func TestConsoleHandlerDebugShowsRawKeys(t *testing.T) {
	logger, buf := newTestConsole(slog.LevelDebug)
	logger.Debug("probe", String(FieldGameID, "hero"), Int("attempt", 2))

	out := buf.String()
	if !strings.Contains(out, "    game_id: hero\n") {
		t.Fatalf("expected raw game_id field, got %q", out)
	}
	if !strings.Contains(out, "    attempt: 2\n") {
		t.Fatalf("expected raw attempt field, got %q", out)
	}
}

func TestConsoleHandlerRespectsLevel(t *testing.T) {
	logger, buf := newTestConsole(slog.LevelWarn)
	logger.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected info to be filtered, got %q", buf.String())
	}
	WarnWithContext(logger, "post-sync check failed", "post_sync_inconsistency")
	out := buf.String()
	for _, want := range []string{"WARN", "- Event: post_sync_inconsistency", "- Hint: check logs for details", "- Impact:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}

func TestWithContextAddsSessionFields(t *testing.T) {
	logger, buf := newTestConsole(slog.LevelDebug)
	ctx := services.WithSessionID(context.Background(), "abc")
	ctx = services.WithGameID(ctx, "monkey")

	WithContext(ctx, logger).Debug("resolved")

	out := buf.String()
	if !strings.Contains(out, "session_id: abc") || !strings.Contains(out, "game_id: monkey") {
		t.Fatalf("expected context fields, got %q", out)
	}
}

func TestJSONHandlerFields(t *testing.T) {
	var buf bytes.Buffer
	lvl := new(slog.LevelVar)
	logger := slog.New(newJSONHandler(&buf, lvl, false))
	logger.Info("sync complete", Int("sections", 3))

	var record map[string]any
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("decode json log: %v", err)
	}
	if record["level"] != "info" {
		t.Fatalf("expected lowercase level, got %v", record["level"])
	}
	if _, ok := record["ts"]; !ok {
		t.Fatalf("expected ts key, got %v", record)
	}
	if record["sections"] != float64(3) {
		t.Fatalf("expected sections field, got %v", record["sections"])
	}
}

func TestNewRejectsUnknownFormat(t *testing.T) {
	if _, err := New(Options{Format: "xml"}); err == nil {
		t.Fatal("expected error for unsupported format")
	}
}

func TestNewFromConfigWritesDailyFile(t *testing.T) {
	cfg := config.Default()
	cfg.Paths.LogDir = filepath.Join(t.TempDir(), "logs")
	cfg.Logging.Format = "console"
	cfg.Logging.Level = "info"

	logger, err := NewFromConfig(&cfg, false)
	if err != nil {
		t.Fatalf("NewFromConfig: %v", err)
	}
	logger.Info("launch finished")

	data, err := os.ReadFile(DailyLogPath(cfg.Paths.LogDir, time.Now()))
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "launch finished") {
		t.Fatalf("expected message in log file, got %q", data)
	}
}

func TestCleanupOldLogsKeepsTodayAndRecent(t *testing.T) {
	dir := t.TempDir()
	now := time.Now()
	today := DailyLogPath(dir, now)
	old := filepath.Join(dir, "scummsync-20000101.log")
	recent := DailyLogPath(dir, now.AddDate(0, 0, -1))
	other := filepath.Join(dir, "notes.txt")

	for _, path := range []string{today, old, recent, other} {
		if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	stale := now.AddDate(0, 0, -90)
	for _, path := range []string{today, old, other} {
		if err := os.Chtimes(path, stale, stale); err != nil {
			t.Fatalf("chtimes %s: %v", path, err)
		}
	}

	CleanupOldLogs(NewNop(), 30, DailyLogTarget(dir, now))

	if _, err := os.Stat(old); !os.IsNotExist(err) {
		t.Fatalf("expected old log removed, stat err=%v", err)
	}
	for _, path := range []string{today, recent, other} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s to remain: %v", path, err)
		}
	}
}
