// Package plugin holds the client plumbing shared by remote evaluators and recorders.
package plugin

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/backoff"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
)

// Plugin transports.
const (
	GRPC string = "grpc"
	HTTP string = "http"
)

const (
	DefaultTimeout = 5 * time.Second
)

type Options struct {
	Token     string
	TLSConfig *tls.Config
	Header    http.Header
	Timeout   time.Duration
	// Confidence is attached to answers of plugins that reply with a bare verdict.
	Confidence float64
}

type Option func(opts *Options)

func TokenOption(token string) Option {
	return func(opts *Options) {
		opts.Token = token
	}
}

func TLSConfigOption(cfg *tls.Config) Option {
	return func(opts *Options) {
		opts.TLSConfig = cfg
	}
}

func HeaderOption(header http.Header) Option {
	return func(opts *Options) {
		opts.Header = header
	}
}

func TimeoutOption(timeout time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = timeout
	}
}

func ConfidenceOption(confidence float64) Option {
	return func(opts *Options) {
		opts.Confidence = confidence
	}
}

func NewOptions(opts ...Option) Options {
	var options Options
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}
	return options
}

// WithTimeout bounds ctx by the configured timeout, if any.
func (o *Options) WithTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if o.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, o.Timeout)
}

// DialGRPC prepares a lazily connecting client. The token travels as "token"
// request metadata on every call.
func DialGRPC(addr string, opts *Options) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	dialOpts := []grpc.DialOption{
		grpc.WithConnectParams(grpc.ConnectParams{
			Backoff:           backoff.DefaultConfig,
			MinConnectTimeout: DefaultTimeout,
		}),
	}
	if opts.TLSConfig != nil {
		creds = credentials.NewTLS(opts.TLSConfig)
		if opts.TLSConfig.ServerName != "" {
			dialOpts = append(dialOpts, grpc.WithAuthority(opts.TLSConfig.ServerName))
		}
	}
	dialOpts = append(dialOpts, grpc.WithTransportCredentials(creds))

	if opts.Token != "" {
		dialOpts = append(dialOpts, grpc.WithPerRPCCredentials(tokenCredentials{
			token:  opts.Token,
			secure: opts.TLSConfig != nil,
		}))
	}
	return grpc.NewClient(addr, dialOpts...)
}

type tokenCredentials struct {
	token  string
	secure bool
}

func (c tokenCredentials) GetRequestMetadata(ctx context.Context, uri ...string) (map[string]string, error) {
	return map[string]string{"token": c.token}, nil
}

func (c tokenCredentials) RequireTransportSecurity() bool {
	return c.secure
}

func NewHTTPClient(opts *Options) *http.Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: opts.TLSConfig,
		},
	}
}

// NewJSONRequest builds a POST carrying body as JSON, with the configured
// headers and bearer token.
func NewJSONRequest(ctx context.Context, url string, body any, opts *Options) (*http.Request, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &buf)
	if err != nil {
		return nil, err
	}
	for k, vs := range opts.Header {
		req.Header[k] = append([]string(nil), vs...)
	}
	req.Header.Set("Content-Type", "application/json")
	if opts.Token != "" {
		req.Header.Set("Authorization", "Bearer "+opts.Token)
	}
	return req, nil
}

// DecodeJSON reads a 200 response into v. Any other status is returned as an error.
func DecodeJSON(resp *http.Response, v any) error {
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return &StatusError{Code: resp.StatusCode, Status: resp.Status}
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return "plugin: unexpected status " + e.Status
}
