// Package elog wraps zerolog the way cmd/edo's ambient logging needs it:
// a process-wide global logger plus per-component/per-addr child loggers,
// and a way to tee a transform's output into a plain append-only file that
// doubles as the console stream.
package elog

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance.
var Logger zerolog.Logger

// Level names accepted in config.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
)

// Config holds logging configuration.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	var level zerolog.Level
	switch cfg.Level {
	case DebugLevel:
		level = zerolog.DebugLevel
	case WarnLevel:
		level = zerolog.WarnLevel
	case ErrorLevel:
		level = zerolog.ErrorLevel
	default:
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	output := cfg.Output
	if output == nil {
		output = os.Stdout
	}

	if cfg.JSONOutput {
		Logger = zerolog.New(output).With().Timestamp().Logger()
	} else {
		Logger = zerolog.New(zerolog.ConsoleWriter{
			Out:        output,
			TimeFormat: time.RFC3339,
		}).With().Timestamp().Logger()
	}
}

// WithComponent returns a child logger tagged with a component name.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithAddr returns a child logger tagged with a node address.
func WithAddr(addr string) zerolog.Logger {
	return Logger.With().Str("addr", addr).Logger()
}

// WithID returns a child logger tagged with a content id.
func WithID(id string) zerolog.Logger {
	return Logger.With().Str("id", id).Logger()
}

// TransformLogger opens (creating parent dirs as needed) the append-only log
// file for a single transform run and returns a logger that writes to both
// that file and the process's normal output, matching the "every transform
// gets a durable, independently viewable log" requirement.
func TransformLogger(path string) (zerolog.Logger, *os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return zerolog.Logger{}, nil, err
	}
	mw := io.MultiWriter(f, Logger)
	return zerolog.New(mw).With().Timestamp().Logger(), f, nil
}

func Info(msg string)  { Logger.Info().Msg(msg) }
func Debug(msg string) { Logger.Debug().Msg(msg) }
func Warn(msg string)  { Logger.Warn().Msg(msg) }
func Error(msg string) { Logger.Error().Msg(msg) }

func Errorf(format string, args ...interface{}) {
	Logger.Error().Msgf(format, args...)
}
