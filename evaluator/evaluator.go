package evaluator

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/store"
)

var (
	ErrConfidenceRange = errors.New("evaluator: confidence out of range [0, 100]")
)

// Opinion is the verdict proposed by a single evaluator.
// Confidence is a percentage in [0, 100].
type Opinion struct {
	WantsFlow  bool    `json:"wantsFlow"`
	Confidence float64 `json:"confidence"`
}

func NewOpinion(wantsFlow bool, confidence float64) (Opinion, error) {
	if math.IsNaN(confidence) || confidence < 0 || confidence > 100 {
		return Opinion{}, fmt.Errorf("%w: %v", ErrConfidenceRange, confidence)
	}
	return Opinion{
		WantsFlow:  wantsFlow,
		Confidence: confidence,
	}, nil
}

func (o Opinion) String() string {
	verdict := "DISCARD"
	if o.WantsFlow {
		verdict = "ACCEPT"
	}
	return fmt.Sprintf("%s THIS FLOW (confidence %.0f%%)", verdict, o.Confidence)
}

// Evaluator gives an opinion on a flow. It may consult the read-only view
// of previously recorded flows. Opine never fails: an evaluator unable to
// decide returns a low-confidence default opinion.
type Evaluator interface {
	Opine(ctx context.Context, f *flow.Flow, r store.Reader) Opinion
}

// Aggregate combines opinions into one consensus. The wanting side wins only
// when its mean confidence is strictly greater than the rejecting side's mean.
// ok is false when there are no opinions at all.
func Aggregate(opinions []Opinion) (consensus Opinion, ok bool) {
	if len(opinions) == 0 {
		return
	}

	var want, reject []float64
	for _, o := range opinions {
		if o.WantsFlow {
			want = append(want, o.Confidence)
		} else {
			reject = append(reject, o.Confidence)
		}
	}

	avgWant, avgReject := mean(want), mean(reject)
	if len(want) > 0 && (len(reject) == 0 || avgWant > avgReject) {
		return Opinion{WantsFlow: true, Confidence: avgWant}, true
	}
	return Opinion{WantsFlow: false, Confidence: avgReject}, true
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

type constantEvaluator struct {
	opinion Opinion
}

// Constant creates an evaluator that always gives the same opinion.
func Constant(opinion Opinion) Evaluator {
	return &constantEvaluator{opinion: opinion}
}

// AlwaysDrop is the baseline control evaluator: discard with 70% confidence.
func AlwaysDrop() Evaluator {
	return Constant(Opinion{WantsFlow: false, Confidence: 70})
}

func (e *constantEvaluator) Opine(ctx context.Context, f *flow.Flow, r store.Reader) Opinion {
	return e.opinion
}
