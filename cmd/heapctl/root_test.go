package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/joshuapare/heapkit/internal/logger"
)

func TestInitLogging_LogDir(t *testing.T) {
	resetFlags()
	logDir = t.TempDir()
	t.Cleanup(func() {
		resetFlags()
		_ = logger.Init(logger.Options{})
	})

	if err := initLogging(); err != nil {
		t.Fatalf("initLogging() error = %v", err)
	}

	// The heap logs its initialization at Info.
	args := []string{testdataPath(t, "scenario_bump.yaml")}
	if _, err := captureOutput(t, func() error { return runReplay(args) }); err != nil {
		t.Fatalf("runReplay() error = %v", err)
	}

	path := filepath.Join(logDir, "heapkit-"+time.Now().Format("2006-01-02")+".log")
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "heap initialized") {
		t.Errorf("log file missing heap initialization record:\n%s", data)
	}
}

func TestInitLogging_QuietDiscards(t *testing.T) {
	resetFlags()
	verbose, quiet = true, true
	t.Cleanup(resetFlags)

	if err := initLogging(); err != nil {
		t.Fatalf("initLogging() error = %v", err)
	}
	if logger.L.Enabled(t.Context(), slog.LevelError) {
		t.Error("quiet mode should discard logs")
	}
}
