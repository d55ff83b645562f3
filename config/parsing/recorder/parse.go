package recorder

import (
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/config/parsing"
	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/recorder"
	recorder_plugin "github.com/fwdask/fwdask/recorder/plugin"
	"github.com/fwdask/fwdask/registry"
	"gopkg.in/natefinch/lumberjack.v2"
)

type discardCloser struct{}

func (discardCloser) Write(p []byte) (n int, err error) { return len(p), nil }
func (discardCloser) Close() error                      { return nil }

func ParseRecorder(cfg *config.RecorderConfig) (r recorder.Recorder) {
	if cfg == nil {
		return nil
	}

	if cfg.Plugin != nil {
		tlsCfg, err := parsing.BuildClientTLSConfig(cfg.Plugin.TLS)
		if err != nil {
			logger.Default().Warn(err)
		}
		switch strings.ToLower(cfg.Plugin.Type) {
		case "http":
			return recorder_plugin.NewHTTPPlugin(
				cfg.Name, cfg.Plugin.Addr,
				plugin.TokenOption(cfg.Plugin.Token),
				plugin.TLSConfigOption(tlsCfg),
				plugin.TimeoutOption(cfg.Plugin.Timeout),
			)
		default:
			return recorder_plugin.NewGRPCPlugin(
				cfg.Name, cfg.Plugin.Addr,
				plugin.TokenOption(cfg.Plugin.Token),
				plugin.TLSConfigOption(tlsCfg),
				plugin.TimeoutOption(cfg.Plugin.Timeout),
			)
		}
	}

	if cfg.File != nil && cfg.File.Path != "" {
		var out io.WriteCloser = discardCloser{}

		if cfg.File.Rotation != nil {
			out = &lumberjack.Logger{
				Filename:   cfg.File.Path,
				MaxSize:    cfg.File.Rotation.MaxSize,
				MaxAge:     cfg.File.Rotation.MaxAge,
				MaxBackups: cfg.File.Rotation.MaxBackups,
				LocalTime:  cfg.File.Rotation.LocalTime,
				Compress:   cfg.File.Rotation.Compress,
			}
		} else {
			os.MkdirAll(filepath.Dir(cfg.File.Path), 0755)
			f, err := os.OpenFile(cfg.File.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
			if err != nil {
				logger.Default().Warn(err)
			} else {
				out = f
			}
		}

		sep := cfg.File.Sep
		if sep == "" {
			sep = "\n"
		}
		return recorder.FileRecorder(out,
			recorder.RecorderFileRecorderOption(cfg.Name),
			recorder.SepFileRecorderOption(sep),
		)
	}

	if cfg.TCP != nil && cfg.TCP.Addr != "" {
		return recorder.TCPRecorder(cfg.TCP.Addr,
			recorder.RecorderTCPRecorderOption(cfg.Name),
			recorder.TimeoutTCPRecorderOption(cfg.TCP.Timeout),
		)
	}

	if cfg.HTTP != nil && cfg.HTTP.URL != "" {
		h := http.Header{}
		for k, v := range cfg.HTTP.Header {
			h.Add(k, v)
		}
		return recorder.HTTPRecorder(cfg.HTTP.URL,
			recorder.RecorderHTTPRecorderOption(cfg.Name),
			recorder.TimeoutHTTPRecorderOption(cfg.HTTP.Timeout),
			recorder.HeaderHTTPRecorderOption(h),
		)
	}

	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		opts := []recorder.RedisRecorderOption{
			recorder.RecorderRedisRecorderOption(cfg.Name),
			recorder.DBRedisRecorderOption(cfg.Redis.DB),
			recorder.UsernameRedisRecorderOption(cfg.Redis.Username),
			recorder.PasswordRedisRecorderOption(cfg.Redis.Password),
			recorder.MaxLenRedisRecorderOption(cfg.Redis.MaxLen),
		}
		if cfg.Redis.Key != "" {
			opts = append(opts, recorder.KeyRedisRecorderOption(cfg.Redis.Key))
		}
		switch cfg.Redis.Type {
		case "sset": // sorted set
			return recorder.RedisSortedSetRecorder(cfg.Redis.Addr, opts...)
		default: // redis list
			return recorder.RedisListRecorder(cfg.Redis.Addr, opts...)
		}
	}

	return
}

// List resolves the named recorders. Unknown names are skipped.
func List(names ...string) []recorder.Recorder {
	var recorders []recorder.Recorder
	for _, name := range names {
		if !registry.RecorderRegistry().IsRegistered(name) {
			logger.Default().Warnf("recorder %s not found", name)
			continue
		}
		recorders = append(recorders, registry.RecorderRegistry().Get(name))
	}
	return recorders
}
