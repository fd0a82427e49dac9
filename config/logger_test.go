package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggingConfig_PrepareConsoleOnly(t *testing.T) {
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "none"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	if log == nil {
		t.Fatal("Prepare() returned nil logger")
	}
	log.Info("discarded")
}

func TestLoggingConfig_PrepareFile(t *testing.T) {
	tmpDir := t.TempDir()
	dst := filepath.Join(tmpDir, "pview.log")
	conf := LoggingConfig{
		ConsoleLogger: LoggerConfig{Level: "none"},
		FileLogger:    LoggerConfig{Level: "normal", Destination: dst, Mode: "overwrite"},
	}
	log, err := conf.Prepare(nil)
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	log.Debug("not visible")
	log.Info("document mounted")
	_ = log.Sync()

	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatalf("unable to read log: %v", err)
	}
	if !strings.Contains(string(data), "document mounted") {
		t.Errorf("log does not contain info entry:\n%s", data)
	}
	if strings.Contains(string(data), "not visible") {
		t.Errorf("log contains debug entry at normal level:\n%s", data)
	}
}

func TestLevelOf(t *testing.T) {
	for name, want := range map[string]bool{"debug": true, "normal": true, "none": false, "": false} {
		if _, ok := levelOf(name); ok != want {
			t.Errorf("levelOf(%q) ok = %t, want %t", name, ok, want)
		}
	}
}
