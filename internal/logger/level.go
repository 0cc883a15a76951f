package logger

import (
	"fmt"
	"strings"

	"go.uber.org/zap/zapcore"
)

// Level is a syslog severity. Lower values are more severe.
type Level int

const (
	LevelEmergency Level = iota
	LevelAlert
	LevelCritical
	LevelError
	LevelWarning
	LevelNotice
	LevelInfo
	LevelDebug
)

// SeverityKey is the field every event carries with its syslog severity name.
const SeverityKey = "severity"

var levelNames = [...]string{
	LevelEmergency: "emergency",
	LevelAlert:     "alert",
	LevelCritical:  "critical",
	LevelError:     "error",
	LevelWarning:   "warning",
	LevelNotice:    "notice",
	LevelInfo:      "info",
	LevelDebug:     "debug",
}

func (l Level) String() string {
	if l < LevelEmergency || l > LevelDebug {
		return fmt.Sprintf("level(%d)", int(l))
	}
	return levelNames[l]
}

// ParseLevel returns the Level named s.
func ParseLevel(s string) (Level, error) {
	for i, name := range levelNames {
		if strings.EqualFold(s, name) {
			return Level(i), nil
		}
	}
	return LevelInfo, fmt.Errorf("unknown severity %q", s)
}

// zapLevel maps a syslog severity onto the closest zap level. zap has no
// level above Error that does not panic or exit, so the three most severe
// syslog levels share ErrorLevel and are told apart by the severity field.
func (l Level) zapLevel() zapcore.Level {
	switch {
	case l <= LevelError:
		return zapcore.ErrorLevel
	case l == LevelWarning:
		return zapcore.WarnLevel
	case l == LevelDebug:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// levelFromZap is the inverse of zapLevel for events logged without an
// explicit severity field.
func levelFromZap(l zapcore.Level) Level {
	switch {
	case l >= zapcore.ErrorLevel:
		return LevelError
	case l == zapcore.WarnLevel:
		return LevelWarning
	case l == zapcore.DebugLevel:
		return LevelDebug
	default:
		return LevelInfo
	}
}
