package intake

import (
	"context"
	"errors"
	"io"
	"sync/atomic"

	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
	"github.com/google/gopacket/layers"
	"github.com/google/gopacket/pcapgo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

const (
	DefaultReplayWorkers = 8
)

type replayOptions struct {
	workers int
	limiter *rate.Limiter
	logger  logger.Logger
}

type ReplayOption func(opts *replayOptions)

func WorkersReplayOption(n int) ReplayOption {
	return func(opts *replayOptions) {
		opts.workers = n
	}
}

// RateReplayOption limits the number of frames decided per second.
func RateReplayOption(r float64, burst int) ReplayOption {
	return func(opts *replayOptions) {
		if r > 0 {
			if burst <= 0 {
				burst = 1
			}
			opts.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

func LoggerReplayOption(logger logger.Logger) ReplayOption {
	return func(opts *replayOptions) {
		opts.logger = logger
	}
}

// ReplayStats summarizes a replay.
type ReplayStats struct {
	Packets int64 `json:"packets"`
	Skipped int64 `json:"skipped"`
	Forward int64 `json:"forward"`
	Drop    int64 `json:"drop"`
	Failed  int64 `json:"failed"`
}

type Replayer struct {
	decider Decider
	options replayOptions
}

func NewReplayer(d Decider, opts ...ReplayOption) *Replayer {
	options := replayOptions{
		workers: DefaultReplayWorkers,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.workers <= 0 {
		options.workers = 1
	}
	if options.logger == nil {
		options.logger = logger.Default().WithFields(map[string]any{
			"kind":   "intake",
			"source": "pcap",
		})
	}

	return &Replayer{
		decider: d,
		options: options,
	}
}

// Replay reads a pcap capture of Ethernet frames and decides every frame.
// Frames are decided concurrently; frames of the same flow share one decision.
// A failed decision is counted, only read errors and cancellation abort the replay.
func (r *Replayer) Replay(ctx context.Context, in io.Reader) (ReplayStats, error) {
	var stats ReplayStats

	pr, err := pcapgo.NewReader(in)
	if err != nil {
		return stats, err
	}
	if lt := pr.LinkType(); lt != layers.LinkTypeEthernet {
		return stats, errors.New("intake: unsupported link type " + lt.String())
	}

	var forward, drop, failed, skipped atomic.Int64
	counter := metrics.GetCounter(metrics.MetricIntakeFlowsCounter, metrics.Labels{"source": "pcap"})

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.options.workers)

	for {
		data, ci, err := pr.ReadPacketData()
		if err == io.EOF {
			break
		}
		if err != nil {
			g.Wait()
			return stats, err
		}
		stats.Packets++

		f, err := DecodeFrame(data, ci.Timestamp)
		if err != nil {
			skipped.Add(1)
			continue
		}

		if r.options.limiter != nil {
			if err := r.options.limiter.Wait(gctx); err != nil {
				break
			}
		}
		if gctx.Err() != nil {
			break
		}

		counter.Inc()
		g.Go(func() error {
			d, err := r.decider.Decide(gctx, f)
			if err != nil {
				failed.Add(1)
				r.options.logger.Warnf("%s: %v", f.SourceMac, err)
				return nil
			}
			switch d.Verdict {
			case engine.Forward:
				forward.Add(1)
			case engine.Drop:
				drop.Add(1)
			}
			return nil
		})
	}
	g.Wait()

	stats.Forward = forward.Load()
	stats.Drop = drop.Load()
	stats.Failed = failed.Load()
	stats.Skipped = skipped.Load()
	return stats, ctx.Err()
}
