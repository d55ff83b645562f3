package evaluator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fwdask/fwdask/flow"
	"github.com/fwdask/fwdask/internal/matcher"
	"github.com/fwdask/fwdask/logger"
	"github.com/fwdask/fwdask/store"
	"github.com/miekg/dns"
	"github.com/patrickmn/go-cache"
)

const (
	DefaultDNSTimeout  = 2 * time.Second
	DefaultDNSCacheTTL = 5 * time.Minute
)

var (
	ErrNoNameServer = errors.New("evaluator: no nameserver")
)

type dnsOptions struct {
	nameservers []string
	timeout     time.Duration
	ttl         time.Duration
	whitelist   bool
	domains     []string
	confidence  float64
	fallback    Opinion
	logger      logger.Logger
}

type DNSOption func(opts *dnsOptions)

// NameserversDNSOption sets the nameservers queried in order, in host:port form.
func NameserversDNSOption(servers []string) DNSOption {
	return func(opts *dnsOptions) {
		opts.nameservers = servers
	}
}

func TimeoutDNSOption(timeout time.Duration) DNSOption {
	return func(opts *dnsOptions) {
		opts.timeout = timeout
	}
}

// CacheTTLDNSOption sets how long reverse lookups are cached.
func CacheTTLDNSOption(ttl time.Duration) DNSOption {
	return func(opts *dnsOptions) {
		opts.ttl = ttl
	}
}

func WhitelistDNSOption(whitelist bool) DNSOption {
	return func(opts *dnsOptions) {
		opts.whitelist = whitelist
	}
}

// DomainsDNSOption sets the domain patterns: 'example.com', '.example.com' or '*.example.com'.
func DomainsDNSOption(domains []string) DNSOption {
	return func(opts *dnsOptions) {
		opts.domains = domains
	}
}

func ConfidenceDNSOption(confidence float64) DNSOption {
	return func(opts *dnsOptions) {
		opts.confidence = confidence
	}
}

// FallbackDNSOption sets the opinion given when the name cannot be resolved.
func FallbackDNSOption(o Opinion) DNSOption {
	return func(opts *dnsOptions) {
		opts.fallback = o
	}
}

func LoggerDNSOption(logger logger.Logger) DNSOption {
	return func(opts *dnsOptions) {
		opts.logger = logger
	}
}

// dnsEvaluator resolves the network destination to its PTR names and
// matches them against a list of domains.
type dnsEvaluator struct {
	client    *dns.Client
	domain    matcher.Matcher
	wildcard  matcher.Matcher
	matched   Opinion
	unmatched Opinion
	cache     *cache.Cache
	options   dnsOptions
}

func NewDNSEvaluator(opts ...DNSOption) Evaluator {
	options := dnsOptions{
		timeout:    DefaultDNSTimeout,
		ttl:        DefaultDNSCacheTTL,
		confidence: 75,
		fallback:   Opinion{WantsFlow: false, Confidence: 0},
	}
	for _, opt := range opts {
		opt(&options)
	}
	if options.logger == nil {
		options.logger = logger.Nop()
	}

	var domains, wildcards []string
	for _, d := range options.domains {
		if strings.ContainsAny(d, "*?[{") {
			wildcards = append(wildcards, d)
		} else {
			domains = append(domains, d)
		}
	}

	matched, err := NewOpinion(options.whitelist, options.confidence)
	if err != nil {
		options.logger.Warn(err)
		matched = Opinion{WantsFlow: options.whitelist, Confidence: 75}
	}

	return &dnsEvaluator{
		client: &dns.Client{
			Timeout: options.timeout,
		},
		domain:    matcher.DomainMatcher(domains),
		wildcard:  matcher.WildcardMatcher(wildcards),
		matched:   matched,
		unmatched: Opinion{WantsFlow: !options.whitelist, Confidence: 100 - matched.Confidence},
		cache:     cache.New(options.ttl, 2*options.ttl),
		options:   options,
	}
}

func (e *dnsEvaluator) Opine(ctx context.Context, f *flow.Flow, r store.Reader) Opinion {
	if !f.SupportsNetworkInspection() || f.NetDestination == "" {
		return e.options.fallback
	}

	names, err := e.lookup(ctx, f.NetDestination)
	if err != nil {
		e.options.logger.Warnf("reverse lookup %s: %v", f.NetDestination, err)
		return e.options.fallback
	}
	if len(names) == 0 {
		return e.options.fallback
	}

	for _, name := range names {
		if e.domain.Match(name) || e.wildcard.Match(name) {
			e.options.logger.Debugf("%s (%s) matched", f.NetDestination, name)
			return e.matched
		}
	}
	return e.unmatched
}

func (e *dnsEvaluator) lookup(ctx context.Context, addr string) ([]string, error) {
	if v, ok := e.cache.Get(addr); ok {
		return v.([]string), nil
	}

	arpa, err := dns.ReverseAddr(addr)
	if err != nil {
		return nil, err
	}
	mq := dns.Msg{}
	mq.SetQuestion(arpa, dns.TypePTR)

	err = ErrNoNameServer
	for _, server := range e.options.nameservers {
		mr, _, er := e.client.ExchangeContext(ctx, &mq, server)
		if er != nil {
			err = er
			continue
		}
		if mr.Rcode != dns.RcodeSuccess && mr.Rcode != dns.RcodeNameError {
			err = fmt.Errorf("%s: %s", server, dns.RcodeToString[mr.Rcode])
			continue
		}

		names := []string{}
		for _, ans := range mr.Answer {
			if ptr, _ := ans.(*dns.PTR); ptr != nil {
				names = append(names, strings.TrimSuffix(ptr.Ptr, "."))
			}
		}
		e.cache.SetDefault(addr, names)
		return names, nil
	}
	return nil, err
}
