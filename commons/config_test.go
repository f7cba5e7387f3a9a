// SPDX-License-Identifier: GPL-3.0-only

package commons

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/labstack/gommon/log"
)

func TestParseLogLevel(t *testing.T) {
	cases := map[string]log.Lvl{
		"debug": log.DEBUG,
		"WARN":  log.WARN,
		"error": log.ERROR,
		"off":   log.OFF,
		"":      log.INFO,
		"loud":  log.INFO,
	}
	for in, want := range cases {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q): expected %v, got %v", in, want, got)
		}
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("SIM_FAILURE_RATE", "7")
	t.Setenv("SEND_TIMEOUT_MS", "250")

	cfg := LoadConfig()
	if cfg.Port != ":9090" {
		t.Errorf("Expected port :9090, got %s", cfg.Port)
	}
	if cfg.SimFailureRate != 0.2 {
		t.Errorf("Expected out-of-range failure rate to reset to 0.2, got %v", cfg.SimFailureRate)
	}
	if cfg.SendTimeout != 250*time.Millisecond {
		t.Errorf("Expected send timeout 250ms, got %s", cfg.SendTimeout)
	}
	if cfg.Transport != "simulated" {
		t.Errorf("Expected simulated transport by default, got %s", cfg.Transport)
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.env")
	content := "# comment\nCOURIER_TEST_KEY=\"hello\"\nmalformed line\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write env file: %v", err)
	}
	t.Setenv("COURIER_TEST_KEY", "")

	loadEnvFile([]string{"--debug", "--env-file", path})

	if got := os.Getenv("COURIER_TEST_KEY"); got != "hello" {
		t.Errorf("Expected COURIER_TEST_KEY=hello, got %q", got)
	}
}
