package logger

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"camguard/internal/config"
)

func TestNewLoggerWritesLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Info("camera %s opened", "front")
	l.Warning("detector slow")
	l.Error("read failed: %v", os.ErrDeadlineExceeded)

	tests := []struct {
		file string
		want string
	}{
		{InfoFile, "camera front opened"},
		{WarningFile, "detector slow"},
		{ErrorFile, "read failed"},
	}
	for _, tt := range tests {
		data, err := os.ReadFile(filepath.Join(dir, tt.file))
		if err != nil {
			t.Fatalf("failed to read %s: %v", tt.file, err)
		}
		if !strings.Contains(string(data), tt.want) {
			t.Errorf("%s: expected %q in %q", tt.file, tt.want, string(data))
		}
	}
}

func TestCleanLogs(t *testing.T) {
	dir := t.TempDir()
	l, err := NewLogger(&config.Config{LogDirectory: dir})
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer l.Close()

	l.Error("boom")
	if err := l.CleanLogs(ErrorFile); err != nil {
		t.Fatalf("CleanLogs failed: %v", err)
	}

	info, err := os.Stat(filepath.Join(dir, ErrorFile))
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if info.Size() != 0 {
		t.Errorf("expected empty error log, got %d bytes", info.Size())
	}

	if err := l.CleanLogs("../etc/passwd"); err == nil {
		t.Error("expected error for unknown log file")
	}
}

func TestWriterLogger(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger(&buf)

	l.Warning("intruder %d saved", 7)

	if !strings.Contains(buf.String(), "WARNING") || !strings.Contains(buf.String(), "intruder 7 saved") {
		t.Errorf("unexpected output %q", buf.String())
	}
	if err := l.CleanLogs(InfoFile); err != nil {
		t.Errorf("CleanLogs on writer logger should be a no-op, got %v", err)
	}
}
