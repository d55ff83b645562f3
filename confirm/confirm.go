package confirm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
)

var (
	ErrClosed = errors.New("confirm: confirmer closed")
)

// Answer is the operator's final say on a flow.
type Answer int

const (
	Drop Answer = iota
	Forward
)

func (a Answer) String() string {
	if a == Forward {
		return "forward"
	}
	return "drop"
}

// Confirmer asks a human to approve or reject a flow. consensus is nil when no
// evaluator gave an opinion. An error means the question could not be answered
// (transport failure or cancellation), never that the operator refused.
type Confirmer interface {
	Ask(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (Answer, error)
}

const (
	PromptHeader = "New packet detected, accept it? [y/n]"
	AskPrompt    = "accept it? [y/n] > "
)

// Prompt renders the question shown to the operator.
func Prompt(f *flow.Flow, fingerprint string) string {
	var b strings.Builder
	b.WriteString(PromptHeader)
	b.WriteByte('\n')
	for _, line := range strings.Split(strings.TrimSuffix(f.String(), "\n"), "\n") {
		b.WriteString("\t")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "(%s)\n", fingerprint)
	b.WriteString(AskPrompt)
	return b.String()
}

// Notification renders the machine consensus shown ahead of the prompt.
func Notification(consensus *evaluator.Opinion) string {
	verdict := "DISCARD"
	if consensus.WantsFlow {
		verdict = "ACCEPT"
	}
	return fmt.Sprintf("Modules opinion: %s THIS FLOW\nConfidence: %g%%", verdict, consensus.Confidence)
}

// ParseResponse maps a console response to an answer: only "ok" forwards.
func ParseResponse(response string) Answer {
	if response == "ok" {
		return Forward
	}
	return Drop
}
