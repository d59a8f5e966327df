package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/logging"
)

func TestLoadConfig(t *testing.T) {
	logger := logging.FallbackLogger()

	t.Run("loads the test configuration", func(t *testing.T) {
		conf, err := config.LoadConfig(logger, "1.2.3", "42", "2026-08-31", "../../tests")
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}

		if conf.Service == nil {
			t.Fatal("Expected a service section")
		}
		if conf.Service.Port != 8081 {
			t.Errorf("Expected port 8081, got %d", conf.Service.Port)
		}
		if conf.Service.Version != "1.2.3" || conf.Service.Build != "42" {
			t.Errorf("Expected the injected version and build, got %s / %s", conf.Service.Version, conf.Service.Build)
		}
		if conf.Service.ReadyFile == "" || conf.Service.TerminationFile == "" {
			t.Error("Expected the ready and termination files to be configured")
		}

		if conf.Queue == nil {
			t.Fatal("Expected a queue section")
		}
		if conf.Queue.CancelGracePeriod != 2*time.Second {
			t.Errorf("Expected a 2s grace period, got %v", conf.Queue.CancelGracePeriod)
		}
		if conf.Queue.HeartbeatInterval != 5*time.Second {
			t.Errorf("Expected a 5s heartbeat, got %v", conf.Queue.HeartbeatInterval)
		}

		if conf.Database == nil {
			t.Fatal("Expected a database section")
		}
		if driver := (*conf.Database)["driver"]; driver != "sqlite" {
			t.Errorf("Expected the sqlite driver, got %v", driver)
		}
	})

	t.Run("environment mapping overrides the file", func(t *testing.T) {
		t.Setenv("PORT", "9999")
		conf, err := config.LoadConfig(logger, "1.2.3", "42", "2026-08-31", "../../tests")
		if err != nil {
			t.Fatalf("LoadConfig returned error: %v", err)
		}
		if conf.Service.Port != 9999 {
			t.Errorf("Expected the env port 9999, got %d", conf.Service.Port)
		}
	})

	t.Run("missing configuration file is an error", func(t *testing.T) {
		if _, err := config.LoadConfig(logger, "1.2.3", "42", "2026-08-31", t.TempDir()); err == nil {
			t.Error("Expected an error for a missing configuration file")
		}
	})

	t.Run("missing service section is an error", func(t *testing.T) {
		dir := t.TempDir()
		content := "queue:\n  eta_throughput: 1.0\n"
		if err := os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(content), 0o600); err != nil {
			t.Fatalf("Failed to write config file: %v", err)
		}
		if _, err := config.LoadConfig(logger, "1.2.3", "42", "2026-08-31", dir); err == nil {
			t.Error("Expected an error for a missing service section")
		}
	})
}

func TestQueueConfigWithDefaults(t *testing.T) {
	t.Run("zero values get the documented defaults", func(t *testing.T) {
		conf := config.QueueConfig{}.WithDefaults()
		if conf.CancelGracePeriod != config.DefaultCancelGracePeriod {
			t.Errorf("Expected the default grace period, got %v", conf.CancelGracePeriod)
		}
		if conf.ETAThroughput != config.DefaultETAThroughput {
			t.Errorf("Expected the default throughput, got %v", conf.ETAThroughput)
		}
		if conf.HeartbeatInterval != config.DefaultHeartbeatInterval {
			t.Errorf("Expected the default heartbeat, got %v", conf.HeartbeatInterval)
		}
	})

	t.Run("set values are preserved", func(t *testing.T) {
		conf := config.QueueConfig{
			CancelGracePeriod: time.Second,
			ETAThroughput:     4,
			HeartbeatInterval: 30 * time.Second,
		}.WithDefaults()
		if conf.CancelGracePeriod != time.Second || conf.ETAThroughput != 4 || conf.HeartbeatInterval != 30*time.Second {
			t.Errorf("Expected the configured values to survive, got %+v", conf)
		}
	})
}
