// Package applog provides the structured, rotating logger every pipeline
// stage writes through.
package applog

import (
	"io"
	"os"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// RotationConfig mirrors the shape of a conventional rotating-file-logger
// configuration: size-based rotation, backup retention, age-based pruning,
// and compression of rotated files.
type RotationConfig struct {
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Config selects the logger's level and destinations.
type Config struct {
	FilePath      string // "" disables file output
	Level         zerolog.Level
	ConsoleOutput bool
	Rotation      RotationConfig
}

// New builds a zerolog.Logger writing to the console, a rotating file, or
// both, per cfg.
func New(cfg Config) zerolog.Logger {
	var writers []io.Writer

	if cfg.ConsoleOutput {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr})
	}

	if cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    nonZero(cfg.Rotation.MaxSizeMB, 25),
			MaxBackups: nonZero(cfg.Rotation.MaxBackups, 5),
			MaxAge:     nonZero(cfg.Rotation.MaxAgeDays, 30),
			Compress:   cfg.Rotation.Compress,
		})
	}

	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	out := io.MultiWriter(writers...)
	return zerolog.New(out).Level(cfg.Level).With().Timestamp().Logger()
}

func nonZero(v, fallback int) int {
	if v == 0 {
		return fallback
	}
	return v
}
