package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"
)

func TestNewConfigDefaults(t *testing.T) {
	cfg := newConfig(Options{})

	if cfg.Encoding != "console" {
		t.Fatalf("unexpected encoding: %s", cfg.Encoding)
	}
	if cfg.Level.Level() != zapcore.InfoLevel {
		t.Fatalf("unexpected level: %s", cfg.Level.Level())
	}
	if len(cfg.OutputPaths) != 1 || cfg.OutputPaths[0] != "stderr" {
		t.Fatalf("logs must not go to stdout: %v", cfg.OutputPaths)
	}
	if !cfg.DisableStacktrace {
		t.Fatal("stack traces are only for debug output")
	}
}

func TestNewWritesNamedStepLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "wingman.log")

	log, err := New(Options{JSON: true, Debug: true, Output: path})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	log.Named("bus").Debug("message sent")
	_ = log.Sync()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log: %v", err)
	}

	var line map[string]any
	if err := json.Unmarshal(data, &line); err != nil {
		t.Fatalf("log line is not json: %v\n%s", err, data)
	}
	if line[MessageKey] != "message sent" || line["logger"] != "bus" || line["level"] != "debug" {
		t.Fatalf("unexpected log line: %v", line)
	}
}
