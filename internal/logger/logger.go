package logger

import (
	"io"
	stdlog "log"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Config controls logger output destinations and verbosity.
type Config struct {
	Level         string `json:"level,omitempty" yaml:"level,omitempty" validate:"omitempty,oneof=trace debug info warn error"`
	Format        string `json:"format,omitempty" yaml:"format,omitempty" validate:"omitempty,oneof=console json"`
	EnableConsole bool   `json:"enable_console" yaml:"enable_console"`
	EnableFile    bool   `json:"enable_file" yaml:"enable_file"`
	FilePath      string `json:"file_path,omitempty" yaml:"file_path,omitempty"`
	MaxSizeMB     int    `json:"max_size_mb,omitempty" yaml:"max_size_mb,omitempty" validate:"omitempty,min=1"`
	MaxBackups    int    `json:"max_backups,omitempty" yaml:"max_backups,omitempty" validate:"omitempty,min=0"`
}

// NewDefaultConfig returns console-only info logging.
func NewDefaultConfig() Config {
	return Config{
		Level:         "info",
		Format:        "console",
		EnableConsole: true,
		MaxSizeMB:     10,
		MaxBackups:    3,
	}
}

// New builds the root zerolog logger from config. Components derive their own
// loggers with logger.With().Str("component", ...).Logger().
func New(cfg Config) (zerolog.Logger, error) {
	level := parseLevel(cfg.Level)

	var writers []io.Writer
	if cfg.EnableConsole {
		if cfg.Format == "json" {
			writers = append(writers, os.Stderr)
		} else {
			writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
		}
	}
	if cfg.EnableFile && cfg.FilePath != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			Compress:   true,
		})
	}
	if len(writers) == 0 {
		writers = append(writers, io.Discard)
	}

	log := zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(level).
		With().
		Timestamp().
		Logger()

	zerolog.SetGlobalLevel(level)
	stdlog.SetOutput(log)
	stdlog.SetFlags(0)

	return log, nil
}

func parseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
