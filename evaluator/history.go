package evaluator

import (
	"context"
	"math"

	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/store"
)

type historyOptions struct {
	base     float64
	step     float64
	max      float64
	unknown  Opinion
	fallback Opinion
	logger   logger.Logger
}

type HistoryOption func(opts *historyOptions)

// ConfidenceHistoryOption sets how confidence grows with the number of recorded
// flows between the same peers: base + step*n, capped at max.
func ConfidenceHistoryOption(base, step, max float64) HistoryOption {
	return func(opts *historyOptions) {
		opts.base = base
		opts.step = step
		opts.max = max
	}
}

// UnknownPeerHistoryOption sets the opinion given to peers never seen before.
func UnknownPeerHistoryOption(o Opinion) HistoryOption {
	return func(opts *historyOptions) {
		opts.unknown = o
	}
}

// FallbackHistoryOption sets the opinion given when the store cannot be read.
func FallbackHistoryOption(o Opinion) HistoryOption {
	return func(opts *historyOptions) {
		opts.fallback = o
	}
}

func LoggerHistoryOption(logger logger.Logger) HistoryOption {
	return func(opts *historyOptions) {
		opts.logger = logger
	}
}

// historyEvaluator favors flows between network peers that already exchanged
// flows in either direction.
type historyEvaluator struct {
	options historyOptions
}

func NewHistoryEvaluator(opts ...HistoryOption) Evaluator {
	options := historyOptions{
		base:     50,
		step:     10,
		max:      95,
		unknown:  Opinion{WantsFlow: false, Confidence: 20},
		fallback: Opinion{WantsFlow: false, Confidence: 0},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.Nop()
	}
	options.max = math.Min(math.Max(options.max, 0), 100)

	return &historyEvaluator{
		options: options,
	}
}

func (e *historyEvaluator) Opine(ctx context.Context, f *flow.Flow, r store.Reader) Opinion {
	if r == nil || !f.SupportsNetworkInspection() {
		return e.options.fallback
	}

	n, err := e.count(ctx, f, r)
	if err != nil {
		e.options.logger.Warn(err)
		return e.options.fallback
	}
	if n == 0 {
		return e.options.unknown
	}

	confidence := math.Min(e.options.base+e.options.step*float64(n), e.options.max)
	o, err := NewOpinion(true, confidence)
	if err != nil {
		return e.options.fallback
	}
	return o
}

// count returns the number of recorded flows from the source to the destination
// plus the number of replies from the destination to the source.
func (e *historyEvaluator) count(ctx context.Context, f *flow.Flow, r store.Reader) (int, error) {
	outgoing, err := r.FindBySource(ctx, f.NetSource)
	if err != nil {
		return 0, err
	}
	incoming, err := r.FindByDestination(ctx, f.NetSource)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, v := range outgoing {
		if v.NetDestination == f.NetDestination {
			n++
		}
	}
	for _, v := range incoming {
		if v.NetSource == f.NetDestination {
			n++
		}
	}
	return n, nil
}
