package recorder

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/fwdask/fwdask/metrics"
)

type httpRecorderOptions struct {
	recorder string
	timeout  time.Duration
	header   http.Header
}

type HTTPRecorderOption func(opts *httpRecorderOptions)

func RecorderHTTPRecorderOption(recorder string) HTTPRecorderOption {
	return func(opts *httpRecorderOptions) {
		opts.recorder = recorder
	}
}

func TimeoutHTTPRecorderOption(timeout time.Duration) HTTPRecorderOption {
	return func(opts *httpRecorderOptions) {
		opts.timeout = timeout
	}
}

func HeaderHTTPRecorderOption(header http.Header) HTTPRecorderOption {
	return func(opts *httpRecorderOptions) {
		opts.header = header
	}
}

type httpRecorder struct {
	recorder   string
	url        string
	header     http.Header
	httpClient *http.Client
}

// HTTPRecorder posts each record as a JSON body to url.
func HTTPRecorder(url string, opts ...HTTPRecorderOption) Recorder {
	var options httpRecorderOptions
	for _, opt := range opts {
		opt(&options)
	}

	return &httpRecorder{
		recorder: options.recorder,
		url:      url,
		header:   options.header,
		httpClient: &http.Client{
			Timeout: options.timeout,
		},
	}
}

func (r *httpRecorder) Record(ctx context.Context, b []byte) error {
	metrics.GetCounter(metrics.MetricRecorderRecordsCounter, metrics.Labels{"recorder": r.recorder}).Inc()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	if r.header != nil {
		req.Header = r.header.Clone()
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%d %s", resp.StatusCode, resp.Status)
	}

	return nil
}
