package service

import (
	"crypto/subtle"
	"errors"
	"net"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	DefaultPath = "/metrics"
)

type options struct {
	path     string
	username string
	password string
}

type Option func(*options)

func PathOption(path string) Option {
	return func(o *options) {
		o.path = path
	}
}

// BasicAuthOption protects the metrics endpoint with HTTP basic auth.
func BasicAuthOption(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

type Service struct {
	s  *http.Server
	ln net.Listener
}

func NewService(network, addr string, opts ...Option) (*Service, error) {
	if network == "" {
		network = "tcp"
	}
	ln, err := net.Listen(network, addr)
	if err != nil {
		return nil, err
	}

	var options options
	for _, opt := range opts {
		opt(&options)
	}
	if options.path == "" {
		options.path = DefaultPath
	}

	mux := http.NewServeMux()
	mux.Handle(options.path, handler(&options))
	return &Service{
		s: &http.Server{
			Handler: mux,
		},
		ln: ln,
	}, nil
}

func handler(options *options) http.Handler {
	h := promhttp.Handler()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if options.username != "" {
			u, p, _ := r.BasicAuth()
			if subtle.ConstantTimeCompare([]byte(u), []byte(options.username)) != 1 ||
				subtle.ConstantTimeCompare([]byte(p), []byte(options.password)) != 1 {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
		}
		h.ServeHTTP(w, r)
	})
}

func (s *Service) Serve() error {
	err := s.s.Serve(s.ln)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (s *Service) Addr() net.Addr {
	return s.ln.Addr()
}

func (s *Service) Close() error {
	return s.s.Close()
}
