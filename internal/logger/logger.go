package logger

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

type Logger struct {
	zl zerolog.Logger
}

func New() *Logger {
	return NewWithWriter(os.Stdout)
}

func NewWithWriter(writer io.Writer) *Logger {
	return &Logger{
		zl: zerolog.New(writer).With().Timestamp().Logger(),
	}
}

// NewWithLevel parses levels like "debug" or "warn"; unknown values fall back to info.
func NewWithLevel(writer io.Writer, level string) *Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	l := NewWithWriter(writer)
	l.zl = l.zl.Level(lvl)
	return l
}

// With returns a child logger carrying an extra field on every line.
func (l *Logger) With(key string, value interface{}) *Logger {
	return &Logger{zl: l.zl.With().Interface(key, value).Logger()}
}

func (l *Logger) Debug(v ...interface{}) {
	l.zl.Debug().Msg(sprint(v...))
}

func (l *Logger) Debugf(format string, v ...interface{}) {
	l.zl.Debug().Msgf(format, v...)
}

func (l *Logger) Info(v ...interface{}) {
	l.zl.Info().Msg(sprint(v...))
}

func (l *Logger) Infof(format string, v ...interface{}) {
	l.zl.Info().Msgf(format, v...)
}

func (l *Logger) Warn(v ...interface{}) {
	l.zl.Warn().Msg(sprint(v...))
}

func (l *Logger) Warnf(format string, v ...interface{}) {
	l.zl.Warn().Msgf(format, v...)
}

func (l *Logger) Error(v ...interface{}) {
	l.zl.Error().Msg(sprint(v...))
}

func (l *Logger) Errorf(format string, v ...interface{}) {
	l.zl.Error().Msgf(format, v...)
}

// sprint mirrors log.Println spacing between operands.
func sprint(v ...interface{}) string {
	return strings.TrimSuffix(fmt.Sprintln(v...), "\n")
}
