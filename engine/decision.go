package engine

import (
	"fmt"
	"strings"
	"time"
)

// Verdict is the final fate of a flow.
type Verdict int

const (
	// Undetermined is reported when no decision could be reached.
	Undetermined Verdict = iota
	Forward
	Drop
)

func (v Verdict) String() string {
	switch v {
	case Forward:
		return "forward"
	case Drop:
		return "drop"
	default:
		return "undetermined"
	}
}

func ParseVerdict(s string) (Verdict, error) {
	switch strings.ToLower(s) {
	case "forward":
		return Forward, nil
	case "drop":
		return Drop, nil
	case "undetermined", "":
		return Undetermined, nil
	}
	return Undetermined, fmt.Errorf("unknown verdict %q", s)
}

func (v Verdict) MarshalText() ([]byte, error) {
	return []byte(v.String()), nil
}

func (v *Verdict) UnmarshalText(b []byte) (err error) {
	*v, err = ParseVerdict(string(b))
	return
}

// Decision is the final outcome for one fingerprint. It is created once,
// after confirmation, and never changes.
type Decision struct {
	Verdict     Verdict   `json:"verdict"`
	Fingerprint string    `json:"fingerprint"`
	DecidedAt   time.Time `json:"decidedAt"`
	// StoreErr is set when the flow record could not be written.
	// The decision stands regardless.
	StoreErr error `json:"-"`
}
