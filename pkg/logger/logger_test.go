package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerInit(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		if err := Sync(); err != nil {
			t.Errorf("failed to sync logger: %v", err)
		}
	}()

	if Get() == nil {
		t.Fatal("logger is nil after initialization")
	}
}

func TestLoggerJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "json", slog.LevelDebug)
	if err != nil {
		t.Fatalf("new json logger: %v", err)
	}

	l.Named("provision").With(String("username", "octocat")).
		Warn(context.Background(), "fork failed", Error(errors.New("boom")), Int("status", 401))

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("record is not json: %v (%s)", err, buf.String())
	}
	if rec["msg"] != "fork failed" || rec["level"] != "WARN" {
		t.Fatalf("unexpected record: %v", rec)
	}
	if rec["component"] != "provision" || rec["username"] != "octocat" {
		t.Fatalf("missing bound fields: %v", rec)
	}
	if rec["error"] != "boom" {
		t.Fatalf("error should be rendered as string, got %v", rec["error"])
	}
	if src, _ := rec["source"].(string); !strings.Contains(src, "logger_test.go") {
		t.Fatalf("source should point at the caller, got %q", src)
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l, err := New(&buf, "text", slog.LevelWarn)
	if err != nil {
		t.Fatalf("new text logger: %v", err)
	}
	l.Info(context.Background(), "dropped")
	if buf.Len() != 0 {
		t.Fatalf("info record should be filtered: %s", buf.String())
	}
}

func TestLoggerUnknownFormat(t *testing.T) {
	if _, err := New(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Fatal("expected error for unknown format")
	}
}

func TestSetLevelString(t *testing.T) {
	for _, lvl := range []string{"debug", "INFO", " warn ", "warning", "error", ""} {
		if err := SetLevelString(lvl); err != nil {
			t.Errorf("SetLevelString(%q): %v", lvl, err)
		}
	}
	if err := SetLevelString("verbose"); err == nil {
		t.Fatal("expected error for unknown level")
	}
	_ = SetLevelString("info")
}

func TestLoggerNamed(t *testing.T) {
	if err := Init(); err != nil {
		t.Fatalf("failed to initialize logger: %v", err)
	}
	if Named("test") == nil {
		t.Fatal("named logger is nil")
	}
	Discard().Info(context.Background(), "nothing")
}
