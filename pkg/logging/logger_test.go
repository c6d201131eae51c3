package logging

import (
	"bytes"
	"os"
	"strings"
	"sync"
	"testing"
)

func resetGlobals(t *testing.T) {
	t.Helper()

	dir := t.TempDir()
	t.Setenv(EnvLogDir, dir)

	logDir = ""
	initErr = nil
	initOnce = sync.Once{}
	sessionID = ""
	sessionIDOnce = sync.Once{}
}

func TestNewLogger(t *testing.T) {
	resetGlobals(t)

	logger, err := NewLogger("extractor")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Close()

	if logger.component != "extractor" {
		t.Errorf("Expected component 'extractor', got %q", logger.component)
	}
	if logger.SessionID() == "" {
		t.Error("Expected non-empty session ID")
	}
	if !strings.HasPrefix(logger.LogPath(), os.Getenv(EnvLogDir)) {
		t.Errorf("Log path %q not under %q", logger.LogPath(), os.Getenv(EnvLogDir))
	}
	if _, err := os.Stat(logger.LogPath()); err != nil {
		t.Errorf("Log file missing: %v", err)
	}
}

func TestLoggerFormatting(t *testing.T) {
	var buf bytes.Buffer
	logger := New("menu", &buf)

	logger.Infof("clicked %q", "Archive chat")
	logger.Warnf("attempt %d", 2)

	out := buf.String()
	if !strings.Contains(out, `[menu] [INFO] clicked "Archive chat"`) {
		t.Errorf("unexpected info line: %s", out)
	}
	if !strings.Contains(out, "[menu] [WARN] attempt 2") {
		t.Errorf("unexpected warn line: %s", out)
	}
}

func TestNamedSharesOutput(t *testing.T) {
	var buf bytes.Buffer
	root := New("root", &buf)
	child := root.Named("indicator")

	child.Debugf("tick")

	if !strings.Contains(buf.String(), "[indicator] [DEBUG] tick") {
		t.Errorf("child line missing: %s", buf.String())
	}
	if child.SessionID() != root.SessionID() {
		t.Error("child should share the session id")
	}
}

func TestNilLoggerIsSilent(t *testing.T) {
	var logger *Logger
	logger.Infof("nothing happens")
}

func TestCloseIsIdempotent(t *testing.T) {
	resetGlobals(t)

	logger, err := NewLogger("close")
	if err != nil {
		t.Fatalf("Failed to create logger: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := logger.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}
