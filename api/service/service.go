package service

import (
	"crypto/tls"
	"errors"
	"net"
	"net/http"
	"sync"

	"github.com/fwdask/fwdask/api"
	"github.com/fwdask/fwdask/engine"
	"github.com/gin-gonic/gin"
)

type options struct {
	accessLog  bool
	pathPrefix string
	username   string
	password   string
	cors       []string
	console    http.Handler
	tlsConfig  *tls.Config
}

type Option func(*options)

func PathPrefixOption(pathPrefix string) Option {
	return func(o *options) {
		o.pathPrefix = pathPrefix
	}
}

func AccessLogOption(enable bool) Option {
	return func(o *options) {
		o.accessLog = enable
	}
}

func BasicAuthOption(username, password string) Option {
	return func(o *options) {
		o.username = username
		o.password = password
	}
}

func CORSOption(origins []string) Option {
	return func(o *options) {
		o.cors = origins
	}
}

func ConsoleOption(console http.Handler) Option {
	return func(o *options) {
		o.console = console
	}
}

// TLSConfigOption serves the API over TLS.
func TLSConfigOption(tlsConfig *tls.Config) Option {
	return func(o *options) {
		o.tlsConfig = tlsConfig
	}
}

type Service struct {
	s         *http.Server
	ln        net.Listener
	cclose    chan struct{}
	closeOnce sync.Once
}

func NewService(network, addr string, e *engine.Engine, opts ...Option) (*Service, error) {
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

	if options.tlsConfig != nil {
		ln = tls.NewListener(ln, options.tlsConfig)
	}

	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	api.Register(r, e, &api.Options{
		AccessLog:  options.accessLog,
		PathPrefix: options.pathPrefix,
		Username:   options.username,
		Password:   options.password,
		CORS:       options.cors,
		Console:    options.console,
	})

	return &Service{
		s: &http.Server{
			Handler: r,
		},
		ln:     ln,
		cclose: make(chan struct{}),
	}, nil
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
	s.closeOnce.Do(func() {
		close(s.cclose)
	})
	return s.s.Close()
}

func (s *Service) IsClosed() bool {
	select {
	case <-s.cclose:
		return true
	default:
		return false
	}
}
