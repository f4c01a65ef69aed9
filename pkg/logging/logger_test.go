package logging

import (
	"os"
	"strings"
	"testing"
)

func TestLoggerWritesStructuredEntries(t *testing.T) {
	// The log directory is resolved once per process, so this test works
	// with whatever directory the first initialization picked.
	logger, err := NewLogger("test-component")
	if err != nil {
		t.Skipf("file logging unavailable in this environment: %v", err)
	}
	defer logger.Close()

	logger.Infof("session %s started", "web")
	logger.Warnf("retrying %d", 2)
	logger.Errorf("teardown failed: %v", os.ErrClosed)
	logger.Debugf("detail")

	data, err := os.ReadFile(logger.LogPath())
	if err != nil {
		t.Fatalf("failed to read log file: %v", err)
	}
	content := string(data)

	for _, want := range []string{
		"[test-component] [INFO] session web started",
		"[test-component] [WARN] retrying 2",
		"[test-component] [ERROR] teardown failed",
		"[test-component] [DEBUG] detail",
	} {
		if !strings.Contains(content, want) {
			t.Errorf("log file missing entry %q", want)
		}
	}
}

func TestRunIDIsStablePerProcess(t *testing.T) {
	a := GetRunID()
	b := GetRunID()
	if a == "" || a != b {
		t.Errorf("run ID must be stable, got %q and %q", a, b)
	}

	logger, _ := NewLogger("another")
	defer logger.Close()
	if logger.RunID() != a {
		t.Errorf("component logger run ID %q differs from global %q", logger.RunID(), a)
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	logger, _ := NewLogger("closer")
	if err := logger.Close(); err != nil {
		t.Fatalf("first close failed: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second close failed: %v", err)
	}
}
