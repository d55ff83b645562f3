// Package recorder writes audit records of final flow decisions.
package recorder

import (
	"context"
	"encoding/json"
	"time"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
	"github.com/rs/xid"
)

// Recorder persists one serialized record.
type Recorder interface {
	Record(ctx context.Context, b []byte) error
}

// DecisionRecord is the audit entry written once per confirmed flow.
type DecisionRecord struct {
	ID          string              `json:"id"`
	Fingerprint string              `json:"fingerprint"`
	Verdict     string              `json:"verdict"`
	Flow        *flow.Flow          `json:"flow"`
	Consensus   *evaluator.Opinion  `json:"consensus,omitempty"`
	Opinions    []evaluator.Opinion `json:"opinions,omitempty"`
	StoreErr    string              `json:"storeErr,omitempty"`
	Duration    time.Duration       `json:"duration"`
	Time        time.Time           `json:"time"`
}

// NewDecisionRecord creates a record with a fresh ID.
func NewDecisionRecord(fingerprint string, verdict string, f *flow.Flow) *DecisionRecord {
	return &DecisionRecord{
		ID:          xid.New().String(),
		Fingerprint: fingerprint,
		Verdict:     verdict,
		Flow:        f,
	}
}

func (p *DecisionRecord) Record(ctx context.Context, r Recorder) error {
	if p == nil || r == nil || p.Time.IsZero() {
		return nil
	}

	data, err := json.Marshal(p)
	if err != nil {
		return err
	}

	return r.Record(ctx, data)
}
