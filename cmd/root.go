// Package cmd implements the dispatcher's CLI using cobra, matching
// spec.md §6's subcommand surface: start-dispatcher, run-once,
// download-bootstrap-apk, empty-test-zip, and report.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/mozilla-it/bitbar-devicepool/internal/logging"
)

var (
	configFile string
	filesDir   string
	logLevel   string
	logFile    string
)

// rootCmd is the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "bitbar-devicepool",
	Short: "Device-pool test-run dispatcher for the Bitbar device farm",
	Long: `bitbar-devicepool mediates between an upstream Taskcluster queue and the
Bitbar device farm: for every configured project it measures farm-side
capacity and upstream demand, then submits just enough new test runs to
keep devices busy without over-subscribing them.`,
	Version: "0.1.0",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindPersistentFlags(cmd)
	},
}

// Execute runs rootCmd against ctx. Called once from main.main(); ctx is
// plain background context.Background() — graceful shutdown on SIGINT/
// SIGUSR2 is handled inside the dispatch lifecycle itself (see
// internal/dispatch/lifecycle.go), not via context cancellation here.
func Execute(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "config/config.yml",
		"path to the YAML configuration file")
	rootCmd.PersistentFlags().StringVar(&filesDir, "files", "files",
		"directory where uploaded test/application files are read from and downloaded into")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "INFO",
		"logging level: CRITICAL, ERROR, WARNING, INFO, DEBUG")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "",
		"optional path to a rotated log file, in addition to stdout")
}

// bindPersistentFlags lets every persistent flag above also be set via a
// DEVICEPOOL_-prefixed environment variable (e.g. DEVICEPOOL_LOG_LEVEL),
// the same cobra+viper flag/env binding idiom the teacher's own
// internal/config package uses for its application config (see
// DESIGN.md: internal/config keeps yaml.v3 for the device-pool
// declarative spec itself; viper's job here is strictly CLI flag/env
// resolution, a different concern).
func bindPersistentFlags(cmd *cobra.Command) error {
	v := viper.New()
	v.SetEnvPrefix("DEVICEPOOL")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	flags := cmd.Root().PersistentFlags()
	for _, name := range []string{"config", "files", "log-level", "log-file"} {
		flag := flags.Lookup(name)
		if flag == nil {
			continue
		}
		if err := v.BindPFlag(name, flag); err != nil {
			return fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	configFile = v.GetString("config")
	filesDir = v.GetString("files")
	logLevel = v.GetString("log-level")
	logFile = v.GetString("log-file")
	return nil
}

// newLogger builds the shared logrus logger from the --log-level/--log-file
// persistent flags (SPEC_FULL.md §6 "added ambient").
func newLogger() (*logrus.Logger, error) {
	cfg := logging.Config{Level: normalizeLevel(logLevel)}
	if logFile != "" {
		cfg.File = &logging.FileConfig{Path: logFile, MaxSizeMB: 100, MaxBackups: 5, MaxAgeDays: 28}
	}
	return logging.New(cfg)
}

// normalizeLevel maps the spec's CRITICAL/ERROR/WARNING/INFO/DEBUG
// vocabulary (spec.md §6) onto logrus's level names.
func normalizeLevel(level string) string {
	switch level {
	case "CRITICAL":
		return "fatal"
	case "ERROR":
		return "error"
	case "WARNING":
		return "warning"
	case "DEBUG":
		return "debug"
	case "INFO", "":
		return "info"
	default:
		return level
	}
}

// fatalf prints an error to stderr and exits non-zero, matching
// spec.md §6's "non-zero on configuration error" exit-code contract.
func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
