package logging

import (
	"bytes"
	"strconv"
	"strings"
	"syscall"
	"testing"
)

func TestNewLogger(t *testing.T) {
	logger := NewLogger(nil)
	if logger == nil {
		t.Fatal("NewLogger(nil) returned nil")
	}

	var buf bytes.Buffer
	logger = NewLogger(&Config{Level: LevelDebug, Output: &buf})
	logger.Info("hello")
	if !strings.Contains(buf.String(), "hello") {
		t.Errorf("expected message in output, got: %s", buf.String())
	}
}

func TestLoggerLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelWarn, Output: &buf})

	logger.Debug("should not appear")
	logger.Info("should not appear either")
	if buf.Len() != 0 {
		t.Errorf("expected no output below configured level, got: %s", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Errorf("expected warn message, got: %s", buf.String())
	}
}

func TestLoggerFormatArgs(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Info("opening file", "path", "/tmp/x", "id", 3)
	out := buf.String()
	if !strings.Contains(out, "path=/tmp/x") || !strings.Contains(out, "id=3") {
		t.Errorf("expected key=value pairs in output, got: %s", out)
	}
}

func TestLoggerFormatArgsDomainKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&Config{Level: LevelDebug, Output: &buf})

	logger.Warn("duplicate pending request for same file and offset",
		"offset", int64(4096), "queue", 2)
	out := buf.String()
	if !strings.Contains(out, "offset=0x1000") {
		t.Errorf("expected hex-formatted offset, got: %s", out)
	}
	if !strings.Contains(out, "queue=q2") {
		t.Errorf("expected q-prefixed queue id, got: %s", out)
	}

	buf.Reset()
	logger.Error("native-async transfer failed", "errno", syscall.ENOENT)
	out = buf.String()
	if !strings.Contains(out, "errno="+strconv.Itoa(int(syscall.ENOENT))+"(") {
		t.Errorf("expected numeric errno prefix, got: %s", out)
	}
}

func TestGlobalLoggerFunctions(t *testing.T) {
	var buf bytes.Buffer
	SetDefault(NewLogger(&Config{Level: LevelDebug, Output: &buf}))

	Debug("debug message", "key", "value")
	if !strings.Contains(buf.String(), "debug message") || !strings.Contains(buf.String(), "key=value") {
		t.Errorf("expected debug message, got: %s", buf.String())
	}

	buf.Reset()
	Error("error message")
	if !strings.Contains(buf.String(), "error message") {
		t.Errorf("expected error message, got: %s", buf.String())
	}
}
