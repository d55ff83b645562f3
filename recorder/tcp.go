package recorder

import (
	"context"
	"net"
	"time"

	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
)

type tcpRecorderOptions struct {
	recorder string
	timeout  time.Duration
	log      logger.Logger
}

type TCPRecorderOption func(opts *tcpRecorderOptions)

func RecorderTCPRecorderOption(recorder string) TCPRecorderOption {
	return func(opts *tcpRecorderOptions) {
		opts.recorder = recorder
	}
}

func TimeoutTCPRecorderOption(timeout time.Duration) TCPRecorderOption {
	return func(opts *tcpRecorderOptions) {
		opts.timeout = timeout
	}
}

func LogTCPRecorderOption(log logger.Logger) TCPRecorderOption {
	return func(opts *tcpRecorderOptions) {
		opts.log = log
	}
}

type tcpRecorder struct {
	recorder string
	addr     string
	dialer   *net.Dialer
	log      logger.Logger
}

// TCPRecorder sends every record as one newline-terminated line over a fresh connection.
func TCPRecorder(addr string, opts ...TCPRecorderOption) Recorder {
	var options tcpRecorderOptions
	for _, opt := range opts {
		opt(&options)
	}
	if options.log == nil {
		options.log = logger.Nop()
	}

	return &tcpRecorder{
		recorder: options.recorder,
		addr:     addr,
		dialer: &net.Dialer{
			Timeout: options.timeout,
		},
		log: options.log,
	}
}

func (r *tcpRecorder) Record(ctx context.Context, b []byte) error {
	metrics.GetCounter(metrics.MetricRecorderRecordsCounter, metrics.Labels{"recorder": r.recorder}).Inc()

	c, err := r.dialer.DialContext(ctx, "tcp", r.addr)
	if err != nil {
		return err
	}
	defer c.Close()

	if deadline, ok := ctx.Deadline(); ok {
		c.SetWriteDeadline(deadline)
	}
	line := make([]byte, 0, len(b)+1)
	line = append(append(line, b...), '\n')
	if _, err = c.Write(line); err != nil {
		r.log.Warnf("record to %s: %v", r.addr, err)
	}
	return err
}
