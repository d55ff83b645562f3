package confirm

import (
	"context"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
)

type autoOptions struct {
	threshold float64
	fallback  Answer
}

type AutoOption func(opts *autoOptions)

// ThresholdAutoOption sets the minimum consensus confidence that is followed.
func ThresholdAutoOption(threshold float64) AutoOption {
	return func(opts *autoOptions) {
		opts.threshold = threshold
	}
}

// DefaultAnswerAutoOption sets the answer used below the threshold or without consensus.
func DefaultAnswerAutoOption(answer Answer) AutoOption {
	return func(opts *autoOptions) {
		opts.fallback = answer
	}
}

type autoConfirmer struct {
	options autoOptions
}

// NewAutoConfirmer creates a headless Confirmer that follows the machine consensus
// when it is confident enough.
func NewAutoConfirmer(opts ...AutoOption) Confirmer {
	options := autoOptions{
		threshold: 50,
		fallback:  Drop,
	}
	for _, opt := range opts {
		opt(&options)
	}
	return &autoConfirmer{options: options}
}

func (c *autoConfirmer) Ask(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (Answer, error) {
	if err := ctx.Err(); err != nil {
		return Drop, err
	}
	if consensus == nil || consensus.Confidence < c.options.threshold {
		return c.options.fallback, nil
	}
	if consensus.WantsFlow {
		return Forward, nil
	}
	return Drop, nil
}
