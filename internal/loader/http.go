package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// MaxHTTPPatternsSize caps the body read from a pattern endpoint.
const MaxHTTPPatternsSize = 4 << 20

type httpLoaderOptions struct {
	timeout time.Duration
	header  http.Header
}

type HTTPLoaderOption func(opts *httpLoaderOptions)

func TimeoutHTTPLoaderOption(timeout time.Duration) HTTPLoaderOption {
	return func(opts *httpLoaderOptions) {
		opts.timeout = timeout
	}
}

// HeaderHTTPLoaderOption adds request headers, e.g. an Authorization token.
func HeaderHTTPLoaderOption(header http.Header) HTTPLoaderOption {
	return func(opts *httpLoaderOptions) {
		opts.header = header
	}
}

type httpLoader struct {
	url     string
	client  *http.Client
	options httpLoaderOptions
}

// HTTPLoader fetches a plain-text pattern list with GET.
func HTTPLoader(url string, opts ...HTTPLoaderOption) Loader {
	var options httpLoaderOptions
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return &httpLoader{
		url:     url,
		client:  &http.Client{Timeout: options.timeout},
		options: options,
	}
}

func (l *httpLoader) Patterns(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.url, nil)
	if err != nil {
		return nil, err
	}
	for k, vs := range l.options.header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Accept", "text/plain")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("GET %s: %s", l.url, resp.Status)
	}
	return scanPatterns(io.LimitReader(resp.Body, MaxHTTPPatternsSize))
}

func (l *httpLoader) Close() error {
	l.client.CloseIdleConnections()
	return nil
}
