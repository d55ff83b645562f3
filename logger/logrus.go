package logger

import (
	"fmt"
	"io"
	"path/filepath"
	"runtime"

	"github.com/sirupsen/logrus"
)

type Options struct {
	Name   string
	Output io.Writer
	Format LogFormat
	Level  LogLevel
}

type Option func(opts *Options)

func NameOption(name string) Option {
	return func(opts *Options) {
		opts.Name = name
	}
}

func OutputOption(out io.Writer) Option {
	return func(opts *Options) {
		opts.Output = out
	}
}

func FormatOption(format LogFormat) Option {
	return func(opts *Options) {
		opts.Format = format
	}
}

func LevelOption(level LogLevel) Option {
	return func(opts *Options) {
		opts.Level = level
	}
}

type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogger creates a logrus backed Logger. JSON is the default format and info the default level.
func NewLogger(opts ...Option) Logger {
	var options Options
	for _, opt := range opts {
		opt(&options)
	}

	log := logrus.New()
	if options.Output != nil {
		log.SetOutput(options.Output)
	}

	if options.Format == TextFormat {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{
			DisableHTMLEscape: true,
			TimestampFormat:   "2006-01-02T15:04:05.000Z07:00",
		})
	}

	lvl, err := logrus.ParseLevel(string(options.Level))
	if err != nil || lvl < logrus.FatalLevel {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	l := &logrusLogger{
		entry: logrus.NewEntry(log),
	}
	if options.Name != "" {
		l.entry = l.entry.WithField("logger", options.Name)
	}
	return l
}

// WithFields adds new fields to log.
func (l *logrusLogger) WithFields(fields map[string]any) Logger {
	return &logrusLogger{
		entry: l.entry.WithFields(logrus.Fields(fields)),
	}
}

func (l *logrusLogger) Trace(args ...any) {
	l.log(logrus.TraceLevel, args...)
}

func (l *logrusLogger) Tracef(format string, args ...any) {
	l.logf(logrus.TraceLevel, format, args...)
}

func (l *logrusLogger) Debug(args ...any) {
	l.log(logrus.DebugLevel, args...)
}

func (l *logrusLogger) Debugf(format string, args ...any) {
	l.logf(logrus.DebugLevel, format, args...)
}

func (l *logrusLogger) Info(args ...any) {
	l.log(logrus.InfoLevel, args...)
}

func (l *logrusLogger) Infof(format string, args ...any) {
	l.logf(logrus.InfoLevel, format, args...)
}

func (l *logrusLogger) Warn(args ...any) {
	l.log(logrus.WarnLevel, args...)
}

func (l *logrusLogger) Warnf(format string, args ...any) {
	l.logf(logrus.WarnLevel, format, args...)
}

func (l *logrusLogger) Error(args ...any) {
	l.log(logrus.ErrorLevel, args...)
}

func (l *logrusLogger) Errorf(format string, args ...any) {
	l.logf(logrus.ErrorLevel, format, args...)
}

// Fatal logs a message at level Fatal then the process will exit with status set to 1.
func (l *logrusLogger) Fatal(args ...any) {
	l.log(logrus.FatalLevel, args...)
	l.entry.Logger.Exit(1)
}

// Fatalf logs a message at level Fatal then the process will exit with status set to 1.
func (l *logrusLogger) Fatalf(format string, args ...any) {
	l.logf(logrus.FatalLevel, format, args...)
	l.entry.Logger.Exit(1)
}

func (l *logrusLogger) GetLevel() LogLevel {
	return LogLevel(l.entry.Logger.GetLevel().String())
}

func (l *logrusLogger) IsLevelEnabled(level LogLevel) bool {
	lvl, err := logrus.ParseLevel(string(level))
	if err != nil {
		return false
	}
	return l.entry.Logger.IsLevelEnabled(lvl)
}

func (l *logrusLogger) log(level logrus.Level, args ...any) {
	e := l.entry
	if e.Logger.IsLevelEnabled(logrus.DebugLevel) {
		e = e.WithField("caller", caller(3))
	}
	e.Log(level, args...)
}

func (l *logrusLogger) logf(level logrus.Level, format string, args ...any) {
	e := l.entry
	if e.Logger.IsLevelEnabled(logrus.DebugLevel) {
		e = e.WithField("caller", caller(3))
	}
	e.Logf(level, format, args...)
}

func caller(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		file = "<???>"
	} else {
		file = filepath.Join(filepath.Base(filepath.Dir(file)), filepath.Base(file))
	}
	return fmt.Sprintf("%s:%d", file, line)
}
