package evaluator

import (
	"context"
	"net"
	"sync/atomic"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startDNSServer(t *testing.T, names map[string]string) (string, *atomic.Int32) {
	pc, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	var queries atomic.Int32
	started := make(chan struct{})
	srv := &dns.Server{
		PacketConn:        pc,
		NotifyStartedFunc: func() { close(started) },
		Handler: dns.HandlerFunc(func(w dns.ResponseWriter, r *dns.Msg) {
			queries.Add(1)
			m := &dns.Msg{}
			m.SetReply(r)
			q := r.Question[0]
			if name, ok := names[q.Name]; ok {
				m.Answer = append(m.Answer, &dns.PTR{
					Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypePTR, Class: dns.ClassINET, Ttl: 60},
					Ptr: name,
				})
			} else {
				m.Rcode = dns.RcodeNameError
			}
			w.WriteMsg(m)
		}),
	}
	go srv.ActivateAndServe()
	<-started
	t.Cleanup(func() { srv.Shutdown() })

	return pc.LocalAddr().String(), &queries
}

func TestDNSEvaluator(t *testing.T) {
	addr, queries := startDNSServer(t, map[string]string{
		"2.0.0.10.in-addr.arpa.": "tracker.ads.example.com.",
		"3.0.0.10.in-addr.arpa.": "www.example.org.",
	})

	e := NewDNSEvaluator(
		NameserversDNSOption([]string{addr}),
		DomainsDNSOption([]string{".ads.example.com", "*.evil.net"}),
		ConfidenceDNSOption(80),
	)
	ctx := context.Background()

	assert.Equal(t, Opinion{WantsFlow: false, Confidence: 80}, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.2"), nil))
	assert.Equal(t, Opinion{WantsFlow: true, Confidence: 20}, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.3"), nil))
	// NXDOMAIN falls back
	assert.Equal(t, Opinion{WantsFlow: false, Confidence: 0}, e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.4"), nil))

	n := queries.Load()
	e.Opine(ctx, ipv4Flow("10.0.0.1", "10.0.0.2"), nil)
	assert.Equal(t, n, queries.Load(), "reverse lookups are cached")
}

func TestDNSEvaluatorUnreachable(t *testing.T) {
	fallback := Opinion{WantsFlow: false, Confidence: 3}
	e := NewDNSEvaluator(FallbackDNSOption(fallback))
	assert.Equal(t, fallback, e.Opine(context.Background(), ipv4Flow("10.0.0.1", "10.0.0.2"), nil))
	assert.Equal(t, fallback, e.Opine(context.Background(), ipv4Flow("10.0.0.1", "not-an-ip"), nil))
}
