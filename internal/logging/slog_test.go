package logging

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestLogger(t *testing.T) (*SlogLogger, *bytes.Buffer) {
	t.Helper()
	var buf bytes.Buffer
	h := slog.NewTextHandler(&buf, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	return NewSlogLogger(slog.New(h)), &buf
}

func TestSlogLogger_Levels_WriteExpectedOutput(t *testing.T) {
	log, buf := newTestLogger(t)
	ctx := context.Background()

	log.Debug(ctx, "dbg", "a", 1)
	log.Info(ctx, "inf", "b", 2)
	log.Warn(ctx, "wrn", "c", 3)
	log.Error(ctx, "err", "d", 4)

	out := buf.String()

	tests := []struct {
		level string
		msg   string
		key   string
		val   string
	}{
		{"DEBUG", "dbg", "a", "1"},
		{"INFO", "inf", "b", "2"},
		{"WARN", "wrn", "c", "3"},
		{"ERROR", "err", "d", "4"},
	}

	for _, tc := range tests {
		if !strings.Contains(out, "level="+tc.level) {
			t.Fatalf("expected line with level=%s in output:\n%s", tc.level, out)
		}
		if !strings.Contains(out, "msg="+tc.msg) {
			t.Fatalf("expected line with msg=%q in output:\n%s", tc.msg, out)
		}
		if !strings.Contains(out, tc.key+"="+tc.val) {
			t.Fatalf("expected attribute %s=%s in output:\n%s", tc.key, tc.val, out)
		}
	}
}

func TestSlogLogger_With_AddsAttributes(t *testing.T) {
	log, buf := newTestLogger(t)

	log.With("run_id", "123", "direction", "refresh").Info(context.Background(), "hello", "k", "v")

	out := buf.String()
	for _, s := range []string{"level=INFO", "msg=hello", "run_id=123", "direction=refresh", "k=v"} {
		if !strings.Contains(out, s) {
			t.Fatalf("expected %q in output, got:\n%s", s, out)
		}
	}
}

func TestNew_StderrDefaultsToWarn(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(Options{Stderr: &buf})
	defer closer.Close()

	log.Info(context.Background(), "hidden")
	log.Warn(context.Background(), "shown")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("info should be filtered at default level:\n%s", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("expected warning in output:\n%s", out)
	}
}

func TestNew_DebugEnablesDebug(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(Options{Debug: true, Stderr: &buf})
	defer closer.Close()

	log.Debug(context.Background(), "verbose")
	if !strings.Contains(buf.String(), "msg=verbose") {
		t.Fatalf("expected debug line, got:\n%s", buf.String())
	}
}

func TestNew_FileWritesToRotatingLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "taskmirror.log")
	var stderr bytes.Buffer
	log, closer := New(Options{File: path, Stderr: &stderr})

	log.Info(context.Background(), "to file", "n", 1)
	if err := closer.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "msg=\"to file\"") {
		t.Fatalf("expected entry in log file, got:\n%s", data)
	}
	if stderr.Len() != 0 {
		t.Fatalf("stderr should be unused when a file is set, got:\n%s", stderr.String())
	}
}

func TestNop_DoesNotPanic(t *testing.T) {
	log := Nop()
	ctx := context.TODO()
	log.Debug(ctx, "ok")
	log.Info(ctx, "ok")
	log.Warn(ctx, "ok")
	log.Error(ctx, "ok")
	log.With("a", 1).Info(ctx, "ok")
}
