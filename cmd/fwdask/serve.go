package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	api_service "github.com/fwdask/fwdask/api/service"
	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/config/loader"
	"github.com/fwdask/fwdask/config/parsing"
	"github.com/fwdask/fwdask/intake"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
	metrics_service "github.com/fwdask/fwdask/metrics/service"
	"github.com/spf13/cobra"
)

func newServeCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the engine with its API, NATS intake and metrics endpoint",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg)
		},
	}
}

type closer interface {
	Close() error
}

func serve(ctx context.Context, cfg *config.Config) error {
	rt, err := loader.Load(ctx, cfg)
	if err != nil {
		return err
	}

	log := logger.Default().WithFields(map[string]any{"kind": "serve"})
	var closers []closer
	defer func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i].Close()
		}
		rt.Close()
	}()

	errCh := make(chan error, 2)

	if cfg.Metrics != nil && cfg.Metrics.Addr != "" {
		metrics.Enable(true)

		opts := []metrics_service.Option{
			metrics_service.PathOption(cfg.Metrics.Path),
		}
		if auth := cfg.Metrics.Auth; auth != nil {
			opts = append(opts, metrics_service.BasicAuthOption(auth.Username, auth.Password))
		}
		s, err := metrics_service.NewService("tcp", cfg.Metrics.Addr, opts...)
		if err != nil {
			return err
		}
		closers = append(closers, s)
		go func() {
			log.Infof("metrics service on %s", s.Addr())
			if err := s.Serve(); err != nil {
				errCh <- err
			}
		}()
	}

	if cfg.API != nil && cfg.API.Addr != "" {
		opts := []api_service.Option{
			api_service.PathPrefixOption(cfg.API.PathPrefix),
			api_service.AccessLogOption(cfg.API.AccessLog),
			api_service.CORSOption(cfg.API.CORS),
		}
		if auth := cfg.API.Auth; auth != nil {
			opts = append(opts, api_service.BasicAuthOption(auth.Username, auth.Password))
		}
		if rt.Console != nil {
			opts = append(opts, api_service.ConsoleOption(rt.Console))
		}
		if cfg.API.TLS != nil {
			tlsCfg, err := parsing.BuildServerTLSConfig(cfg.API.TLS)
			if err != nil {
				return err
			}
			opts = append(opts, api_service.TLSConfigOption(tlsCfg))
		}
		s, err := api_service.NewService("tcp", cfg.API.Addr, rt.Engine, opts...)
		if err != nil {
			return err
		}
		closers = append(closers, s)
		go func() {
			log.Infof("api service on %s", s.Addr())
			if err := s.Serve(); err != nil {
				errCh <- err
			}
		}()
	} else if rt.Console != nil {
		log.Warn("operator console needs the api service, questions will wait until their timeout")
	}

	if nc := cfg.NATS; nc != nil && nc.URL != "" {
		opts := []intake.NATSOption{
			intake.QueueNATSOption(nc.Queue),
			intake.TimeoutNATSOption(nc.Timeout),
			intake.RateNATSOption(nc.Rate, nc.Burst),
		}
		if nc.Subject != "" {
			opts = append(opts, intake.SubjectNATSOption(nc.Subject))
		}
		if nc.Username != "" {
			opts = append(opts, intake.UserInfoNATSOption(nc.Username, nc.Password))
		}
		if nc.Token != "" {
			opts = append(opts, intake.TokenNATSOption(nc.Token))
		}
		sub := intake.NewNATSSubscriber(nc.URL, rt.Engine, opts...)
		if err := sub.Start(); err != nil {
			return err
		}
		closers = append(closers, sub)
	}

	log.Infof("engine ready with %d evaluators", len(rt.Engine.Evaluators()))

	select {
	case <-ctx.Done():
		log.Info("shutting down")
		return nil
	case err := <-errCh:
		return err
	}
}
