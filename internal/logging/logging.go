// Package logging builds the dispatcher's structured logger: a
// logrus.Logger writing to stdout and, optionally, a rotating log file.
// Adapted from the teacher's internal/log package (logrusAdapter,
// MultiWriter, lumberjack file appender) with the Kafka/Loki shipping
// paths dropped — this dispatcher has no message-bus or log-aggregator
// dependency in its domain (see DESIGN.md).
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig configures rotation for an optional on-disk log file.
type FileConfig struct {
	Path       string `mapstructure:"path" yaml:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// Config configures the dispatcher's logger.
type Config struct {
	Level string      `mapstructure:"level" yaml:"level"`
	JSON  bool        `mapstructure:"json" yaml:"json"`
	File  *FileConfig `mapstructure:"file" yaml:"file"`
}

// New builds a *logrus.Logger per cfg: level parsed from cfg.Level
// (info when empty; an unparseable level is an error), JSON or text
// formatter, writing to
// stdout and, if cfg.File is set, additionally to a lumberjack-rotated
// file.
func New(cfg Config) (*logrus.Logger, error) {
	l := logrus.New()

	level := logrus.InfoLevel
	if cfg.Level != "" {
		parsed, err := logrus.ParseLevel(cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: invalid level %q: %w", cfg.Level, err)
		}
		level = parsed
	}
	l.SetLevel(level)

	if cfg.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	writers := []io.Writer{os.Stdout}
	if cfg.File != nil && cfg.File.Path != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.File.Path,
			MaxSize:    cfg.File.MaxSizeMB,
			MaxBackups: cfg.File.MaxBackups,
			MaxAge:     cfg.File.MaxAgeDays,
			Compress:   cfg.File.Compress,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))

	return l, nil
}
