package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/objgraph/internal/config"
)

func TestNewLoggerLevels(t *testing.T) {
	tests := []struct {
		name    string
		level   log.Level
		logFunc func(*log.Logger)
		wantLog bool
	}{
		{"info at info", log.InfoLevel, func(l *log.Logger) { l.Info("resolved", "class", "Room") }, true},
		{"debug at info", log.InfoLevel, func(l *log.Logger) { l.Debug("store hit") }, false},
		{"debug at debug", log.DebugLevel, func(l *log.Logger) { l.Debug("store hit") }, true},
		{"warn at error", log.ErrorLevel, func(l *log.Logger) { l.Warn("class not found") }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.logFunc(newLogger(&buf, tt.level))
			if got := buf.Len() > 0; got != tt.wantLog {
				t.Errorf("logged = %v, want %v", got, tt.wantLog)
			}
		})
	}
}

func TestProgressReportsElapsed(t *testing.T) {
	var buf bytes.Buffer
	prog := newProgress(newLogger(&buf, log.InfoLevel))
	time.Sleep(5 * time.Millisecond)
	prog.done("Converted")

	out := buf.String()
	if !strings.Contains(out, "Converted (") || !strings.Contains(out, "ms)") {
		t.Errorf("progress output = %q", out)
	}
}

func TestLoggerContext(t *testing.T) {
	if loggerFromContext(context.Background()) != log.Default() {
		t.Error("bare context should yield log.Default()")
	}

	l := newLogger(io.Discard, log.InfoLevel)
	if loggerFromContext(withLogger(context.Background(), l)) != l {
		t.Error("loggerFromContext lost the attached logger")
	}
}

func TestNewLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "objgraph.log")
	lf := newLogFile(config.LogConfig{File: path, MaxSizeMB: 1, MaxBackups: 2})
	defer lf.Close()

	if lf.MaxSize != 1 || lf.MaxBackups != 2 {
		t.Errorf("rotation = %d MB x %d", lf.MaxSize, lf.MaxBackups)
	}
	newLogger(lf, log.InfoLevel).Info("exported", "records", 3)

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "records=3") {
		t.Errorf("log file = %q", data)
	}
}

func TestConfigureLogFile(t *testing.T) {
	dir, cfg := setup(t)
	logPath := filepath.Join(dir, "objgraph.log")
	content := "[log]\nlevel = \"debug\"\nfile = \"" + filepath.ToSlash(logPath) + "\"\n"
	if err := os.WriteFile(cfg, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	var console bytes.Buffer
	c := New(&console, LogInfo)
	if err := c.configure(cfg, false); err != nil {
		t.Fatalf("configure error: %v", err)
	}
	c.Logger.Debug("both sinks")
	if err := c.Close(); err != nil {
		t.Fatalf("Close error: %v", err)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("log file not written: %v", err)
	}
	if !strings.Contains(string(data), "both sinks") || !strings.Contains(console.String(), "both sinks") {
		t.Errorf("file = %q, console = %q", data, console.String())
	}
}

func TestStoreLogHooks(t *testing.T) {
	var buf bytes.Buffer
	ctx := withLogger(context.Background(), newLogger(&buf, log.DebugLevel))

	var h StoreLogHooks
	h.OnStoreSet(ctx, "file", 42)
	h.OnStoreMiss(ctx, "redis")
	h.OnStoreHit(ctx, "sqlite")

	out := buf.String()
	for _, want := range []string{"store set", "bytes=42", "store miss", "backend=redis", "store hit"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}
