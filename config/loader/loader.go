package loader

import (
	"context"
	"errors"

	"github.com/fwdask/fwdask/cache"
	"github.com/fwdask/fwdask/config"
	confirm_parser "github.com/fwdask/fwdask/config/parsing/confirm"
	evaluator_parser "github.com/fwdask/fwdask/config/parsing/evaluator"
	logger_parser "github.com/fwdask/fwdask/config/parsing/logger"
	recorder_parser "github.com/fwdask/fwdask/config/parsing/recorder"
	store_parser "github.com/fwdask/fwdask/config/parsing/store"
	"github.com/fwdask/fwdask/confirm"
	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/registry"
	"github.com/fwdask/fwdask/store"
)

const (
	storeName = "default"
)

// Runtime is the set of objects built from a configuration.
type Runtime struct {
	Engine *engine.Engine
	Store  store.Store
	// Console is set when operators confirm flows through the WebSocket console.
	Console *confirm.WebSocketConfirmer
}

// Close stops the engine and releases the registered objects.
func (rt *Runtime) Close() error {
	var errs []error
	if rt.Engine != nil {
		errs = append(errs, rt.Engine.Close())
	}
	if rt.Console != nil {
		errs = append(errs, rt.Console.Close())
	}
	unregisterAll()
	return errors.Join(errs...)
}

func unregisterAll() {
	for _, name := range registry.EvaluatorRegistry().Names() {
		registry.EvaluatorRegistry().Unregister(name)
	}
	for _, name := range registry.RecorderRegistry().Names() {
		registry.RecorderRegistry().Unregister(name)
	}
	for _, name := range registry.StoreRegistry().Names() {
		registry.StoreRegistry().Unregister(name)
	}
}

var (
	defaultLoader *loader = &loader{}
)

func Load(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	return defaultLoader.Load(ctx, cfg)
}

type loader struct{}

func (l *loader) Load(ctx context.Context, cfg *config.Config) (*Runtime, error) {
	if cfg == nil {
		cfg = &config.Config{}
	}

	logCfg := cfg.Log
	if logCfg == nil {
		logCfg = &config.LogConfig{}
	}
	logger.SetDefault(logger_parser.ParseLogger(&config.LoggerConfig{Log: logCfg}))

	if err := register(ctx, cfg); err != nil {
		return nil, err
	}

	return build(cfg)
}

func register(ctx context.Context, cfg *config.Config) error {
	for name := range registry.LoggerRegistry().GetAll() {
		registry.LoggerRegistry().Unregister(name)
	}
	for _, loggerCfg := range cfg.Loggers {
		if loggerCfg == nil {
			continue
		}
		if err := registry.LoggerRegistry().Register(loggerCfg.Name, logger_parser.ParseLogger(loggerCfg)); err != nil {
			return err
		}
	}

	unregisterAll()

	for _, evaluatorCfg := range cfg.Evaluators {
		if evaluatorCfg == nil {
			continue
		}
		ev, err := evaluator_parser.ParseEvaluator(evaluatorCfg)
		if err != nil {
			logger.Default().Errorf("evaluator %s: %v", evaluatorCfg.Name, err)
			continue
		}
		if err := registry.EvaluatorRegistry().Register(evaluatorCfg.Name, ev); err != nil {
			return err
		}
	}

	for _, recorderCfg := range cfg.Recorders {
		if recorderCfg == nil {
			continue
		}
		r := recorder_parser.ParseRecorder(recorderCfg)
		if r == nil {
			logger.Default().Warnf("recorder %s: nothing configured", recorderCfg.Name)
			continue
		}
		if err := registry.RecorderRegistry().Register(recorderCfg.Name, r); err != nil {
			return err
		}
	}

	s, err := store_parser.ParseStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	return registry.StoreRegistry().Register(storeName, s)
}

func build(cfg *config.Config) (*Runtime, error) {
	engineCfg := cfg.Engine
	if engineCfg == nil {
		engineCfg = &config.EngineConfig{}
	}

	confirmer, console, err := confirm_parser.ParseConfirmer(cfg.Confirm)
	if err != nil {
		return nil, err
	}

	s := registry.StoreRegistry().Get(storeName)
	opts := []engine.Option{
		engine.StoreOption(s),
		engine.ConfirmerOption(confirmer),
		engine.ConfirmTimeoutOption(engineCfg.ConfirmTimeout),
		engine.CacheOption(cache.NewDecisionCache[engine.Decision](cache.TTLOption(engineCfg.CacheTTL))),
	}

	if len(engineCfg.ExemptEthTypes) > 0 {
		var types []int
		for _, name := range engineCfg.ExemptEthTypes {
			t, err := flow.ParseEthType(name)
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
		opts = append(opts, engine.ExemptEthTypesOption(types...))
	}

	evaluatorNames := engineCfg.Evaluators
	if len(evaluatorNames) == 0 {
		for _, ec := range cfg.Evaluators {
			if ec == nil {
				continue
			}
			evaluatorNames = append(evaluatorNames, ec.Name)
		}
	}
	opts = append(opts, engine.EvaluatorsOption(evaluator_parser.List(evaluatorNames...)...))

	recorderNames := engineCfg.Recorders
	if len(recorderNames) == 0 {
		recorderNames = registry.RecorderRegistry().Names()
	}
	opts = append(opts, engine.RecordersOption(recorder_parser.List(recorderNames...)...))

	return &Runtime{
		Engine:  engine.New(opts...),
		Store:   s,
		Console: console,
	}, nil
}
