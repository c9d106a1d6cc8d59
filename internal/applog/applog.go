// Package applog is the structured-logging setup shared across this
// core's packages: a thin wrapper over go.uber.org/zap providing the
// session/call-id field helpers agentproc attaches to its trace output,
// and a Sugar view the dispatcher logs through.
package applog

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config selects the logger's verbosity and encoding.
type Config struct {
	// Level is one of debug, info, warn, error. Defaults to info.
	Level string

	// Format is json or console. Defaults to console on a terminal,
	// json otherwise (see detectFormat).
	Format string
}

// Logger wraps zap.Logger with the field helpers this core's components
// attach at construction time (session id, call id).
type Logger struct {
	zap *zap.Logger
}

var (
	defaultLogger     *Logger
	defaultLoggerOnce sync.Once
)

// Default returns the process-wide logger, built from TURNSTREAM_LOG_LEVEL
// and TURNSTREAM_LOG_FORMAT if set, falling back to info level and to
// detectFormat's choice of encoding.
func Default() *Logger {
	defaultLoggerOnce.Do(func() {
		l, err := New(Config{
			Level:  os.Getenv("TURNSTREAM_LOG_LEVEL"),
			Format: os.Getenv("TURNSTREAM_LOG_FORMAT"),
		})
		if err != nil {
			zapLogger, _ := zap.NewProduction()
			l = &Logger{zap: zapLogger}
		}
		defaultLogger = l
	})
	return defaultLogger
}

// New builds a Logger from cfg. An unparsable Level falls back to info
// rather than erroring, since a malformed log-level env var should never
// prevent the CLI from starting.
func New(cfg Config) (*Logger, error) {
	level := zapcore.InfoLevel
	if cfg.Level != "" {
		if err := (&level).UnmarshalText([]byte(cfg.Level)); err != nil {
			level = zapcore.InfoLevel
		}
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "timestamp"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderCfg.EncodeLevel = zapcore.LowercaseLevelEncoder

	format := cfg.Format
	if format == "" {
		format = detectFormat()
	}

	var encoder zapcore.Encoder
	if format == "console" {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	} else {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stderr), level)
	return &Logger{zap: zap.New(core, zap.AddCaller())}, nil
}

// detectFormat favors console output when stderr looks like a terminal
// session rather than a redirected log pipe; this core is driven
// interactively far more often than run under a supervisor.
func detectFormat() string {
	if info, err := os.Stderr.Stat(); err == nil && (info.Mode()&os.ModeCharDevice) != 0 {
		return "console"
	}
	return "json"
}

// WithSessionID returns a child Logger with session_id attached, used by
// agentproc for a session's subprocess lifecycle lines.
func (l *Logger) WithSessionID(sessionID string) *Logger {
	if sessionID == "" {
		return l
	}
	return &Logger{zap: l.zap.With(zap.String("session_id", sessionID))}
}

// WithCallID returns a child Logger with call_id attached, used by
// agentproc's decoder when it synthesizes an exec or tool-call
// begin/end pair.
func (l *Logger) WithCallID(callID string) *Logger {
	if callID == "" {
		return l
	}
	return &Logger{zap: l.zap.With(zap.String("call_id", callID))}
}

// Debug logs a per-event trace line, mirroring the original's
// tracing::trace! / tracing::debug! calls in handle_codex_event.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs a lifecycle boundary (session configured, task started or
// complete, branch created or checked out).
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs a tolerated failure (a failed rollout file read, a
// recoverable I/O failure in the branch store).
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs a propagated failure.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Sync flushes buffered log entries. Errors from syncing a terminal fd
// are expected and ignored by callers (os.Stderr.Sync commonly fails
// with ENOTTY on Linux terminals).
func (l *Logger) Sync() error { return l.zap.Sync() }

// Zap returns the underlying zap.Logger for callers that need the raw
// field-building API.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Sugar returns a SugaredLogger view, the form dispatch.New wires into
// the dispatcher's trace/lifecycle logging.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.zap.Sugar() }
