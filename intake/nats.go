package intake

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/fwdask/fwdask/engine"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/metrics"
	"github.com/nats-io/nats.go"
	"golang.org/x/time/rate"
)

const (
	DefaultNATSSubject = "fwdask.flows"
)

var (
	ErrRateLimited = errors.New("intake: rate limited")
)

type natsOptions struct {
	subject  string
	queue    string
	username string
	password string
	token    string
	timeout  time.Duration
	limiter  *rate.Limiter
	logger   logger.Logger
}

type NATSOption func(opts *natsOptions)

func SubjectNATSOption(subject string) NATSOption {
	return func(opts *natsOptions) {
		opts.subject = subject
	}
}

// QueueNATSOption joins a queue group so several instances share the load.
func QueueNATSOption(queue string) NATSOption {
	return func(opts *natsOptions) {
		opts.queue = queue
	}
}

func UserInfoNATSOption(username, password string) NATSOption {
	return func(opts *natsOptions) {
		opts.username = username
		opts.password = password
	}
}

func TokenNATSOption(token string) NATSOption {
	return func(opts *natsOptions) {
		opts.token = token
	}
}

// TimeoutNATSOption bounds how long a requester is kept waiting for its reply.
func TimeoutNATSOption(timeout time.Duration) NATSOption {
	return func(opts *natsOptions) {
		opts.timeout = timeout
	}
}

func RateNATSOption(r float64, burst int) NATSOption {
	return func(opts *natsOptions) {
		if r > 0 {
			if burst <= 0 {
				burst = 1
			}
			opts.limiter = rate.NewLimiter(rate.Limit(r), burst)
		}
	}
}

func LoggerNATSOption(logger logger.Logger) NATSOption {
	return func(opts *natsOptions) {
		opts.logger = logger
	}
}

// NATSSubscriber answers flow requests published by the controller. Each
// request carries a JSON flow and receives a JSON Reply.
type NATSSubscriber struct {
	url     string
	decider Decider
	nc      *nats.Conn
	sub     *nats.Subscription
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	options natsOptions
}

func NewNATSSubscriber(url string, d Decider, opts ...NATSOption) *NATSSubscriber {
	options := natsOptions{
		subject: DefaultNATSSubject,
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.Default().WithFields(map[string]any{
			"kind":   "intake",
			"source": "nats",
		})
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &NATSSubscriber{
		url:     url,
		decider: d,
		ctx:     ctx,
		cancel:  cancel,
		options: options,
	}
}

func (s *NATSSubscriber) Start() error {
	natsOpts := []nats.Option{
		nats.Name("fwdask"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
	}
	if s.options.username != "" {
		natsOpts = append(natsOpts, nats.UserInfo(s.options.username, s.options.password))
	}
	if s.options.token != "" {
		natsOpts = append(natsOpts, nats.Token(s.options.token))
	}

	nc, err := nats.Connect(s.url, natsOpts...)
	if err != nil {
		return err
	}
	s.nc = nc

	if s.options.queue != "" {
		s.sub, err = nc.QueueSubscribe(s.options.subject, s.options.queue, s.onMessage)
	} else {
		s.sub, err = nc.Subscribe(s.options.subject, s.onMessage)
	}
	if err != nil {
		nc.Close()
		return err
	}

	s.options.logger.Infof("subscribed to %s on %s", s.options.subject, s.url)
	return nil
}

func (s *NATSSubscriber) onMessage(msg *nats.Msg) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	metrics.GetCounter(metrics.MetricIntakeFlowsCounter, metrics.Labels{"source": "nats"}).Inc()

	go func() {
		defer s.wg.Done()

		b, _ := json.Marshal(s.handle(msg.Data))
		if msg.Reply == "" {
			return
		}
		if err := msg.Respond(b); err != nil {
			s.options.logger.Warnf("reply: %v", err)
		}
	}()
}

func (s *NATSSubscriber) handle(data []byte) Reply {
	if s.options.limiter != nil && !s.options.limiter.Allow() {
		return Reply{
			Verdict: engine.Undetermined,
			Error:   ErrRateLimited.Error(),
		}
	}

	ctx := s.ctx
	if s.options.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.options.timeout)
		defer cancel()
	}
	return Handle(ctx, s.decider, data)
}

// Close stops accepting requests, cancels the pending ones and waits for
// their replies to go out.
func (s *NATSSubscriber) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	if s.sub != nil {
		s.sub.Unsubscribe()
	}
	s.cancel()
	s.wg.Wait()
	if s.nc != nil {
		s.nc.Close()
	}
	return nil
}
