package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/logger"
	"github.com/mitchellh/go-homedir"
	"gopkg.in/natefinch/lumberjack.v2"
)

// ParseLogger builds a named logger. Output is "stdout", "stderr" (the default),
// "none" or a file path; a file with rotation settings is rotated by lumberjack.
func ParseLogger(cfg *config.LoggerConfig) logger.Logger {
	if cfg == nil || cfg.Log == nil {
		return nil
	}

	out, err := logOutput(cfg.Log)
	if err != nil {
		logger.Default().Warnf("log output %s: %v, falling back to stderr", cfg.Log.Output, err)
		out = os.Stderr
	}
	if out == nil {
		return logger.Nop()
	}

	return logger.NewLogger(
		logger.NameOption(cfg.Name),
		logger.FormatOption(logger.LogFormat(cfg.Log.Format)),
		logger.LevelOption(logger.LogLevel(cfg.Log.Level)),
		logger.OutputOption(out),
	)
}

// logOutput returns a nil writer when logging is turned off.
func logOutput(cfg *config.LogConfig) (io.Writer, error) {
	switch cfg.Output {
	case "none", "null":
		return nil, nil
	case "stdout":
		return os.Stdout, nil
	case "stderr", "":
		return os.Stderr, nil
	}

	path, err := homedir.Expand(cfg.Output)
	if err != nil {
		return nil, err
	}
	if rot := cfg.Rotation; rot != nil {
		return &lumberjack.Logger{
			Filename:   path,
			MaxSize:    rot.MaxSize,
			MaxAge:     rot.MaxAge,
			MaxBackups: rot.MaxBackups,
			LocalTime:  rot.LocalTime,
			Compress:   rot.Compress,
		}, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
}
