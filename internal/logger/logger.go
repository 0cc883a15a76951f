package logger

import (
	"fmt"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the structured event stream every component writes to.
// keysAndValues are alternating key/value pairs.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Notice(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
	// Log writes msg at an explicit syslog severity.
	Log(level Level, msg string, keysAndValues ...any)
	// With returns a Logger that adds keysAndValues to every event.
	With(keysAndValues ...any) Logger
}

// Options controls how Init builds the process-wide logger.
type Options struct {
	// Debug enables debug-severity events on the console.
	Debug bool
	// Syslog tees every event to the local syslog daemon.
	Syslog bool
	// Tag is the syslog program tag.
	Tag string
}

// zapLogger wraps a *zap.SugaredLogger and implements Logger.
type zapLogger struct {
	sugar *zap.SugaredLogger
}

// Ensure zapLogger satisfies Logger.
var _ Logger = (*zapLogger)(nil)

// New wraps an existing zap logger. Tests use it with an observer core.
func New(z *zap.Logger) Logger {
	return &zapLogger{sugar: z.Sugar()}
}

func (l *zapLogger) Debug(msg string, keysAndValues ...any) {
	l.log(LevelDebug, msg, keysAndValues)
}

func (l *zapLogger) Info(msg string, keysAndValues ...any) {
	l.log(LevelInfo, msg, keysAndValues)
}

func (l *zapLogger) Notice(msg string, keysAndValues ...any) {
	l.log(LevelNotice, msg, keysAndValues)
}

func (l *zapLogger) Warn(msg string, keysAndValues ...any) {
	l.log(LevelWarning, msg, keysAndValues)
}

func (l *zapLogger) Error(msg string, keysAndValues ...any) {
	l.log(LevelError, msg, keysAndValues)
}

func (l *zapLogger) Log(level Level, msg string, keysAndValues ...any) {
	l.log(level, msg, keysAndValues)
}

func (l *zapLogger) log(level Level, msg string, keysAndValues []any) {
	kv := make([]any, 0, len(keysAndValues)+2)
	kv = append(kv, SeverityKey, level.String())
	kv = append(kv, keysAndValues...)
	l.sugar.Logw(level.zapLevel(), msg, kv...)
}

func (l *zapLogger) With(keysAndValues ...any) Logger {
	return &zapLogger{sugar: l.sugar.With(keysAndValues...)}
}

// ----------------------------------------------------------------------------
// globalSugar holds the SugaredLogger for easy global use.
var (
	globalSugar *zap.SugaredLogger
	closers     []func() error
)

// Init creates the process-wide zap logger and returns it as a Logger.
// Call this once at startup and Cleanup at exit.
func Init(opts Options) (Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	cfg.DisableStacktrace = true
	if !opts.Debug {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	}

	// Skip log and the exported method that called it.
	buildOpts := []zap.Option{zap.AddCallerSkip(2)}
	if opts.Syslog {
		core, closeFn, err := newSyslogCore(opts.Tag, cfg.Level)
		if err != nil {
			return nil, fmt.Errorf("open syslog: %w", err)
		}
		closers = append(closers, closeFn)
		buildOpts = append(buildOpts, zap.WrapCore(func(c zapcore.Core) zapcore.Core {
			return zapcore.NewTee(c, core)
		}))
	}

	zapLog, err := cfg.Build(buildOpts...)
	if err != nil {
		return nil, err
	}

	globalSugar = zapLog.Sugar()
	return &zapLogger{sugar: globalSugar}, nil
}

// Cleanup flushes any buffered log entries and closes the syslog
// connection. Call at program exit.
func Cleanup() {
	if globalSugar != nil {
		_ = globalSugar.Sync()
	}
	for _, c := range closers {
		_ = c()
	}
	closers = nil
}

// Global returns the Logger created by Init, or a no-op logger before Init.
func Global() Logger {
	if globalSugar == nil {
		return New(zap.NewNop())
	}
	return &zapLogger{sugar: globalSugar}
}
