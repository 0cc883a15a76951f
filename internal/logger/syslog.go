//go:build !windows && !plan9

package logger

import (
	"log/syslog"
	"strings"

	"go.uber.org/zap/zapcore"
)

// syslogCore encodes events as JSON and hands them to the local syslog
// daemon at the priority named by the event's severity field.
type syslogCore struct {
	zapcore.LevelEnabler
	enc zapcore.Encoder
	w   *syslog.Writer
}

func newSyslogCore(tag string, enab zapcore.LevelEnabler) (zapcore.Core, func() error, error) {
	w, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, tag)
	if err != nil {
		return nil, nil, err
	}
	encCfg := zapcore.EncoderConfig{
		MessageKey:     "msg",
		NameKey:        "logger",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	core := &syslogCore{
		LevelEnabler: enab,
		enc:          zapcore.NewJSONEncoder(encCfg),
		w:            w,
	}
	return core, w.Close, nil
}

func (c *syslogCore) With(fields []zapcore.Field) zapcore.Core {
	enc := c.enc.Clone()
	for _, f := range fields {
		f.AddTo(enc)
	}
	return &syslogCore{LevelEnabler: c.LevelEnabler, enc: enc, w: c.w}
}

func (c *syslogCore) Check(ent zapcore.Entry, ce *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(ent.Level) {
		return ce.AddCore(ent, c)
	}
	return ce
}

func (c *syslogCore) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	buf, err := c.enc.EncodeEntry(ent, fields)
	if err != nil {
		return err
	}
	msg := strings.TrimSuffix(buf.String(), "\n")
	buf.Free()

	switch severityOf(ent, fields) {
	case LevelEmergency:
		return c.w.Emerg(msg)
	case LevelAlert:
		return c.w.Alert(msg)
	case LevelCritical:
		return c.w.Crit(msg)
	case LevelError:
		return c.w.Err(msg)
	case LevelWarning:
		return c.w.Warning(msg)
	case LevelNotice:
		return c.w.Notice(msg)
	case LevelDebug:
		return c.w.Debug(msg)
	default:
		return c.w.Info(msg)
	}
}

func (c *syslogCore) Sync() error { return nil }

func severityOf(ent zapcore.Entry, fields []zapcore.Field) Level {
	for _, f := range fields {
		if f.Key == SeverityKey && f.Type == zapcore.StringType {
			if l, err := ParseLevel(f.String); err == nil {
				return l
			}
		}
	}
	return levelFromZap(ent.Level)
}
