package confirm

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync/atomic"

	"github.com/fwdask/fwdask/evaluator"
	"github.com/fwdask/fwdask/flow"
)

const WithdrawnNotice = "Request withdrawn, waiting for the next flow."

type lineResult struct {
	line   string
	prompt uint64
	err    error
}

// consoleConfirmer asks on a text terminal, one question at a time.
// Every line is tagged with the last prompt shown when it was read. Lines
// tagged with a withdrawn prompt are discarded, so an answer typed for a
// question that timed out never settles a later one.
type consoleConfirmer struct {
	sem       chan struct{}
	w         io.Writer
	lines     chan lineResult
	seq       uint64
	shown     atomic.Uint64
	withdrawn atomic.Uint64
}

// NewConsoleConfirmer creates a Confirmer prompting on w and reading y/n answers from r.
func NewConsoleConfirmer(r io.Reader, w io.Writer) Confirmer {
	c := &consoleConfirmer{
		sem:   make(chan struct{}, 1),
		w:     w,
		lines: make(chan lineResult, 1),
	}
	go c.readLines(r)
	return c
}

func (c *consoleConfirmer) readLines(r io.Reader) {
	defer close(c.lines)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		c.lines <- lineResult{line: scanner.Text(), prompt: c.shown.Load()}
	}
	err := scanner.Err()
	if err == nil {
		err = io.EOF
	}
	c.lines <- lineResult{err: err}
}

func (c *consoleConfirmer) Ask(ctx context.Context, f *flow.Flow, consensus *evaluator.Opinion) (Answer, error) {
	select {
	case c.sem <- struct{}{}:
	case <-ctx.Done():
		return Drop, ctx.Err()
	}
	defer func() { <-c.sem }()

	fp, err := f.Fingerprint()
	if err != nil {
		return Drop, err
	}

	c.seq++
	seq := c.seq
	if consensus != nil {
		fmt.Fprintln(c.w, Notification(consensus))
	}
	fmt.Fprint(c.w, Prompt(f, fp))
	c.shown.Store(seq)

	for {
		select {
		case res, ok := <-c.lines:
			if !ok {
				return Drop, io.EOF
			}
			if res.err != nil {
				return Drop, res.err
			}
			if res.prompt != 0 && res.prompt <= c.withdrawn.Load() {
				continue
			}
			return parseAnswer(res.line), nil
		case <-ctx.Done():
			c.withdrawn.Store(seq)
			fmt.Fprintln(c.w)
			fmt.Fprintln(c.w, WithdrawnNotice)
			return Drop, ctx.Err()
		}
	}
}

func parseAnswer(line string) Answer {
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes", "ok":
		return Forward
	default:
		return Drop
	}
}
