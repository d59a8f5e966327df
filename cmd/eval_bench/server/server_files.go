package server

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/eval-bench/eval-bench/internal/config"
	"github.com/eval-bench/eval-bench/internal/constants"
)

// Readiness and termination are reported through files so the process
// manager can read them without an HTTP round trip.

// TerminationFilePath resolves where the termination message is written.
// The configured path wins; the environment variable covers startup
// failures where no config exists but a reason still has to land somewhere.
func TerminationFilePath(conf *config.Config, logger *slog.Logger) string {
	if conf != nil && conf.Service != nil {
		if path := strings.TrimSpace(conf.Service.TerminationFile); path != "" {
			return path
		}
	}
	if path := os.Getenv(constants.EnvVarTerminationFile); path != "" {
		logger.Info("Termination file taken from environment", "file", path)
		return path
	}
	path := "/tmp/eval-bench/termination-log"
	logger.Info("Termination file defaulted", "file", path)
	return path
}

// WriteReadyFile marks the service as ready to serve, recording the build
// identity so the running binary can be identified from the file alone.
func WriteReadyFile(conf *config.Config, logger *slog.Logger) error {
	contents := fmt.Sprintf("Version: %s\nBuild: %s\nBuildDate: %s\n",
		conf.Service.Version, conf.Service.Build, conf.Service.BuildDate)
	return writeStateFile(conf.Service.ReadyFile, contents, "ready", logger)
}

// WriteTerminationMessage records why the process is going down.
func WriteTerminationMessage(path string, message string, logger *slog.Logger) error {
	return writeStateFile(path, message, "termination", logger)
}

func writeStateFile(path string, contents string, kind string, logger *slog.Logger) error {
	path = filepath.Clean(path)
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		logger.Error("Failed to write "+kind+" file", "file", path, "error", err.Error())
		return fmt.Errorf("writing %s file %s: %w", kind, path, err)
	}
	logger.Info("Wrote "+kind+" file", "file", path, "message", contents)
	return nil
}
