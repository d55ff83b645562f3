package evaluator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/fwdask/fwdask/config"
	"github.com/fwdask/fwdask/config/parsing"
	"github.com/fwdask/fwdask/evaluator"
	evaluator_plugin "github.com/fwdask/fwdask/evaluator/plugin"
	"github.com/fwdask/fwdask/internal/loader"
	"github.com/fwdask/fwdask/internal/plugin"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/registry"
)

var (
	ErrNoEvaluator = errors.New("no evaluator kind configured")
)

func ParseEvaluator(cfg *config.EvaluatorConfig) (evaluator.Evaluator, error) {
	if cfg == nil {
		return nil, nil
	}

	log := logger.Default().WithFields(map[string]any{
		"kind":      "evaluator",
		"evaluator": cfg.Name,
	})

	switch {
	case cfg.Plugin != nil:
		tlsCfg, err := parsing.BuildClientTLSConfig(cfg.Plugin.TLS)
		if err != nil {
			return nil, err
		}
		opts := []plugin.Option{
			plugin.TokenOption(cfg.Plugin.Token),
			plugin.TLSConfigOption(tlsCfg),
			plugin.TimeoutOption(cfg.Plugin.Timeout),
			plugin.ConfidenceOption(cfg.Confidence),
		}
		switch strings.ToLower(cfg.Plugin.Type) {
		case "http":
			return evaluator_plugin.NewHTTPPlugin(cfg.Name, cfg.Plugin.Addr, opts...), nil
		default:
			return evaluator_plugin.NewGRPCPlugin(cfg.Name, cfg.Plugin.Addr, opts...), nil
		}

	case cfg.List != nil:
		return parseList(cfg.List, log), nil

	case cfg.History != nil:
		opts := []evaluator.HistoryOption{
			evaluator.LoggerHistoryOption(log),
		}
		if cfg.History.Base > 0 || cfg.History.Step > 0 || cfg.History.Max > 0 {
			opts = append(opts, evaluator.ConfidenceHistoryOption(cfg.History.Base, cfg.History.Step, cfg.History.Max))
		}
		if o := cfg.History.UnknownPeer; o != nil {
			opinion, err := evaluator.NewOpinion(o.WantsFlow, o.Confidence)
			if err != nil {
				return nil, err
			}
			opts = append(opts, evaluator.UnknownPeerHistoryOption(opinion))
		}
		return evaluator.NewHistoryEvaluator(opts...), nil

	case cfg.DNS != nil:
		return evaluator.NewDNSEvaluator(
			evaluator.NameserversDNSOption(cfg.DNS.Nameservers),
			evaluator.TimeoutDNSOption(cfg.DNS.Timeout),
			evaluator.CacheTTLDNSOption(cfg.DNS.CacheTTL),
			evaluator.WhitelistDNSOption(cfg.DNS.Whitelist),
			evaluator.DomainsDNSOption(cfg.DNS.Domains),
			evaluator.ConfidenceDNSOption(cfg.DNS.Confidence),
			evaluator.LoggerDNSOption(log),
		), nil

	case cfg.Constant != nil:
		opinion, err := evaluator.NewOpinion(cfg.Constant.WantsFlow, cfg.Constant.Confidence)
		if err != nil {
			return nil, err
		}
		return evaluator.Constant(opinion), nil
	}

	return nil, fmt.Errorf("evaluator %s: %w", cfg.Name, ErrNoEvaluator)
}

func parseList(cfg *config.ListEvaluatorConfig, log logger.Logger) evaluator.Evaluator {
	opts := []evaluator.ListOption{
		evaluator.MatchersListOption(cfg.Matchers),
		evaluator.WhitelistListOption(cfg.Whitelist),
		evaluator.ReloadPeriodListOption(cfg.Reload),
		evaluator.LoggerListOption(log),
	}
	if cfg.Confidence > 0 || cfg.Unmatched > 0 {
		opts = append(opts, evaluator.ConfidenceListOption(cfg.Confidence, cfg.Unmatched))
	}
	if cfg.File != nil && cfg.File.Path != "" {
		opts = append(opts, evaluator.FileLoaderListOption(loader.FileLoader(cfg.File.Path)))
	}
	if cfg.Redis != nil && cfg.Redis.Addr != "" {
		redisOpts := []loader.RedisLoaderOption{
			loader.DBRedisLoaderOption(cfg.Redis.DB),
			loader.UsernameRedisLoaderOption(cfg.Redis.Username),
			loader.PasswordRedisLoaderOption(cfg.Redis.Password),
			loader.KeyRedisLoaderOption(cfg.Redis.Key),
		}
		switch cfg.Redis.Type {
		case "list":
			opts = append(opts, evaluator.RedisLoaderListOption(loader.RedisListLoader(cfg.Redis.Addr, redisOpts...)))
		case "string":
			opts = append(opts, evaluator.RedisLoaderListOption(loader.RedisStringLoader(cfg.Redis.Addr, redisOpts...)))
		default:
			opts = append(opts, evaluator.RedisLoaderListOption(loader.RedisSetLoader(cfg.Redis.Addr, redisOpts...)))
		}
	}
	if cfg.HTTP != nil && cfg.HTTP.URL != "" {
		opts = append(opts, evaluator.HTTPLoaderListOption(loader.HTTPLoader(
			cfg.HTTP.URL,
			loader.TimeoutHTTPLoaderOption(cfg.HTTP.Timeout),
		)))
	}

	return evaluator.NewListEvaluator(opts...)
}

// List resolves the named evaluators in the given order. Unknown names are skipped.
func List(names ...string) []evaluator.Evaluator {
	var evaluators []evaluator.Evaluator
	for _, name := range names {
		if !registry.EvaluatorRegistry().IsRegistered(name) {
			logger.Default().Warnf("evaluator %s not found", name)
			continue
		}
		evaluators = append(evaluators, registry.EvaluatorRegistry().Get(name))
	}
	return evaluators
}
