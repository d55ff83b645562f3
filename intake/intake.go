// Package intake feeds flows into the engine: JSON flows requested over NATS
// by the controller, and Ethernet frames replayed from capture files.
package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/flow"
)

// Decider is the part of the engine intake depends on.
type Decider interface {
	Decide(ctx context.Context, f *flow.Flow) (engine.Decision, error)
}

// Reply answers one flow request.
type Reply struct {
	Fingerprint string         `json:"fingerprint,omitempty"`
	Verdict     engine.Verdict `json:"verdict"`
	Error       string         `json:"error,omitempty"`
}

var (
	ErrInvalidFlow = errors.New("intake: invalid flow")
)

// Handle decodes a JSON flow and decides it.
// Failures are reported inside the reply with an undetermined verdict.
func Handle(ctx context.Context, d Decider, data []byte) Reply {
	var f flow.Flow
	if err := json.Unmarshal(data, &f); err != nil {
		return Reply{
			Verdict: engine.Undetermined,
			Error:   fmt.Errorf("%w: %v", ErrInvalidFlow, err).Error(),
		}
	}

	decision, err := d.Decide(ctx, &f)
	if err != nil {
		return Reply{
			Verdict: engine.Undetermined,
			Error:   err.Error(),
		}
	}
	return Reply{
		Fingerprint: decision.Fingerprint,
		Verdict:     decision.Verdict,
	}
}
