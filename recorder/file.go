package recorder

import (
	"context"
	"errors"
	"io"
	"sync"

	"github.com/fwdask/fwdask/metrics"
)

var ErrRecorderClosed = errors.New("recorder is closed")

type fileRecorderOptions struct {
	recorder string
	sep      string
}

type FileRecorderOption func(opts *fileRecorderOptions)

func RecorderFileRecorderOption(recorder string) FileRecorderOption {
	return func(opts *fileRecorderOptions) {
		opts.recorder = recorder
	}
}

// SepFileRecorderOption sets the text appended to every record, usually "\n".
func SepFileRecorderOption(sep string) FileRecorderOption {
	return func(opts *fileRecorderOptions) {
		opts.sep = sep
	}
}

// fileRecorder appends records to a log file. Each record and its separator
// go out in a single Write so rotated files never split a record.
type fileRecorder struct {
	mu     sync.Mutex
	out    io.WriteCloser
	buf    []byte
	sep    []byte
	labels metrics.Labels
}

func FileRecorder(out io.WriteCloser, opts ...FileRecorderOption) Recorder {
	var options fileRecorderOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &fileRecorder{
		out:    out,
		sep:    []byte(options.sep),
		labels: metrics.Labels{"recorder": options.recorder},
	}
}

func (r *fileRecorder) Record(ctx context.Context, b []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.out == nil {
		return ErrRecorderClosed
	}
	metrics.GetCounter(metrics.MetricRecorderRecordsCounter, r.labels).Inc()

	r.buf = append(append(r.buf[:0], b...), r.sep...)
	_, err := r.out.Write(r.buf)
	return err
}

func (r *fileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.out == nil {
		return nil
	}
	err := r.out.Close()
	r.out = nil
	return err
}
