package evaluator

import (
	"context"
	"sync"
	"time"

	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/internal/loader"
	"github.com/fwdask/fwdask/internal/matcher"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/store"
)

const (
	DefaultListConfidence      = 90
	DefaultUnmatchedConfidence = 10
)

type listOptions struct {
	whitelist           bool
	matchers            []string
	fileLoader          loader.Loader
	redisLoader         loader.Loader
	httpLoader          loader.Loader
	period              time.Duration
	confidence          float64
	unmatchedConfidence float64
	logger              logger.Logger
}

type ListOption func(opts *listOptions)

func WhitelistListOption(whitelist bool) ListOption {
	return func(opts *listOptions) {
		opts.whitelist = whitelist
	}
}

func MatchersListOption(matchers []string) ListOption {
	return func(opts *listOptions) {
		opts.matchers = matchers
	}
}

func ReloadPeriodListOption(period time.Duration) ListOption {
	return func(opts *listOptions) {
		opts.period = period
	}
}

func FileLoaderListOption(fileLoader loader.Loader) ListOption {
	return func(opts *listOptions) {
		opts.fileLoader = fileLoader
	}
}

func RedisLoaderListOption(redisLoader loader.Loader) ListOption {
	return func(opts *listOptions) {
		opts.redisLoader = redisLoader
	}
}

func HTTPLoaderListOption(httpLoader loader.Loader) ListOption {
	return func(opts *listOptions) {
		opts.httpLoader = httpLoader
	}
}

// ConfidenceListOption sets the confidences given when an address matches
// and when nothing matches.
func ConfidenceListOption(matched, unmatched float64) ListOption {
	return func(opts *listOptions) {
		opts.confidence = matched
		opts.unmatchedConfidence = unmatched
	}
}

func LoggerListOption(logger logger.Logger) ListOption {
	return func(opts *listOptions) {
		opts.logger = logger
	}
}

// listEvaluator decides on the flow addresses (IP and MAC, source and destination)
// using IP, CIDR, MAC and wildcard patterns. In blacklist mode a match rejects the flow,
// in whitelist mode a match accepts it.
type listEvaluator struct {
	matcher    *matcher.AddressMatcher
	matched    Opinion
	unmatched  Opinion
	mu         sync.RWMutex
	cancelFunc context.CancelFunc
	options    listOptions
}

func NewListEvaluator(opts ...ListOption) Evaluator {
	options := listOptions{
		confidence:          DefaultListConfidence,
		unmatchedConfidence: DefaultUnmatchedConfidence,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.Nop()
	}

	matched, err := NewOpinion(options.whitelist, options.confidence)
	if err != nil {
		options.logger.Warnf("%v, using %d", err, DefaultListConfidence)
		matched = Opinion{WantsFlow: options.whitelist, Confidence: DefaultListConfidence}
	}
	unmatched, err := NewOpinion(!options.whitelist, options.unmatchedConfidence)
	if err != nil {
		options.logger.Warnf("%v, using %d", err, DefaultUnmatchedConfidence)
		unmatched = Opinion{WantsFlow: !options.whitelist, Confidence: DefaultUnmatchedConfidence}
	}

	ctx, cancel := context.WithCancel(context.TODO())
	e := &listEvaluator{
		matched:    matched,
		unmatched:  unmatched,
		cancelFunc: cancel,
		options:    options,
	}

	if err := e.reload(ctx); err != nil {
		options.logger.Warnf("reload: %v", err)
	}
	if e.options.period > 0 {
		go e.periodReload(ctx)
	}

	return e
}

func (e *listEvaluator) Opine(ctx context.Context, f *flow.Flow, r store.Reader) Opinion {
	addrs := []string{f.SourceMac, f.DestinationMac}
	if f.SupportsNetworkInspection() {
		addrs = append(addrs, f.NetSource, f.NetDestination)
	}

	e.mu.RLock()
	m := e.matcher
	e.mu.RUnlock()

	for _, addr := range addrs {
		if m.Match(addr) {
			e.options.logger.Debugf("%s matched", addr)
			return e.matched
		}
	}
	return e.unmatched
}

func (e *listEvaluator) periodReload(ctx context.Context) error {
	period := e.options.period
	if period < time.Second {
		period = time.Second
	}
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := e.reload(ctx); err != nil {
				e.options.logger.Warnf("reload: %v", err)
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (e *listEvaluator) reload(ctx context.Context) error {
	patterns := append([]string{}, e.options.matchers...)
	patterns = append(patterns, e.load(ctx)...)

	m := matcher.NewAddressMatcher(patterns)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.matcher = m

	return nil
}

func (e *listEvaluator) load(ctx context.Context) (patterns []string) {
	loaders := []struct {
		name   string
		loader loader.Loader
	}{
		{"file", e.options.fileLoader},
		{"redis", e.options.redisLoader},
		{"http", e.options.httpLoader},
	}
	for _, l := range loaders {
		if l.loader == nil {
			continue
		}
		v, err := loader.Patterns(ctx, l.loader)
		if err != nil {
			e.options.logger.Warnf("%s loader: %v", l.name, err)
		}
		patterns = append(patterns, v...)
	}

	e.options.logger.Debugf("load items %d", len(patterns))
	return
}

func (e *listEvaluator) Close() error {
	e.cancelFunc()
	for _, l := range []loader.Loader{e.options.fileLoader, e.options.redisLoader, e.options.httpLoader} {
		if l != nil {
			l.Close()
		}
	}
	return nil
}
