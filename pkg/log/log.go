package log

import (
	"io"
	"os"
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

var (
	// Logger is the global logger instance.
	Logger zerolog.Logger
)

// Level represents a log level.
type Level string

const (
	DebugLevel Level = "debug"
	InfoLevel  Level = "info"
	WarnLevel  Level = "warn"
	ErrorLevel Level = "error"
	FatalLevel Level = "fatal"
)

// Config holds logging configuration. It is assembled once at process start
// and passed to Init; there is no lazy global initialization.
type Config struct {
	Level      Level
	JSONOutput bool
	Output     io.Writer
}

// Init initializes the global logger.
func Init(cfg Config) {
	zerolog.SetGlobalLevel(levelToZerolog(cfg.Level))

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

func levelToZerolog(l Level) zerolog.Level {
	switch l {
	case DebugLevel:
		return zerolog.DebugLevel
	case InfoLevel:
		return zerolog.InfoLevel
	case WarnLevel:
		return zerolog.WarnLevel
	case ErrorLevel:
		return zerolog.ErrorLevel
	case FatalLevel:
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}

// LevelFromEnv translates the EFL_LOG_LEVEL numeric convention (0=DEBUG,
// 1=INFO, 2=WARN, 3=ERROR, 4=FATAL) into a Level, defaulting to InfoLevel
// for anything unset or unrecognized.
func LevelFromEnv(raw string) Level {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return InfoLevel
	}
	switch n {
	case 0:
		return DebugLevel
	case 1:
		return InfoLevel
	case 2:
		return WarnLevel
	case 3:
		return ErrorLevel
	case 4:
		return FatalLevel
	default:
		return InfoLevel
	}
}

// WithComponent creates a child logger with a component field.
func WithComponent(component string) zerolog.Logger {
	return Logger.With().Str("component", component).Logger()
}

// WithWorkerID creates a child logger with a worker_id field.
func WithWorkerID(workerID string) zerolog.Logger {
	return Logger.With().Str("worker_id", workerID).Logger()
}

// WithCallID creates a child logger with a call_id field, used to correlate
// a rendezvous request with its eventual callback.
func WithCallID(callID string) zerolog.Logger {
	return Logger.With().Str("call_id", callID).Logger()
}

// WithStage creates a child logger with a stage field.
func WithStage(stage int64) zerolog.Logger {
	return Logger.With().Int64("stage", stage).Logger()
}

func Info(msg string) {
	Logger.Info().Msg(msg)
}

func Debug(msg string) {
	Logger.Debug().Msg(msg)
}

func Warn(msg string) {
	Logger.Warn().Msg(msg)
}

func Error(msg string) {
	Logger.Error().Msg(msg)
}

func Errorf(format string, err error) {
	Logger.Error().Err(err).Msg(format)
}

func Fatal(msg string) {
	Logger.Fatal().Msg(msg)
}
