// Package matcher tests flow addresses and reverse-resolved names against pattern lists.
package matcher

import (
	"net"
	"strings"

	"github.com/gobwas/glob"
	"github.com/yl2chen/cidranger"
)

type Matcher interface {
	Match(v string) bool
}

// rangerMatcher answers membership for single IPs and networks through a
// path-compressed trie.
type rangerMatcher struct {
	ranger cidranger.Ranger
	size   int
}

func newRangerMatcher() *rangerMatcher {
	return &rangerMatcher{ranger: cidranger.NewPCTrieRanger()}
}

func (m *rangerMatcher) insert(inet net.IPNet) {
	if m.ranger.Insert(cidranger.NewBasicRangerEntry(inet)) == nil {
		m.size++
	}
}

func (m *rangerMatcher) insertIP(ip net.IP) {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	bits := len(ip) * 8
	m.insert(net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
}

func (m *rangerMatcher) Match(s string) bool {
	if m == nil || m.size == 0 {
		return false
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return false
	}
	ok, _ := m.ranger.Contains(ip)
	return ok
}

// IPMatcher matches exact IP addresses in any textual form.
func IPMatcher(ips []net.IP) Matcher {
	m := newRangerMatcher()
	for _, ip := range ips {
		m.insertIP(ip)
	}
	return m
}

// CIDRMatcher matches addresses inside any of the networks.
func CIDRMatcher(inets []*net.IPNet) Matcher {
	m := newRangerMatcher()
	for _, inet := range inets {
		m.insert(*inet)
	}
	return m
}

type macMatcher map[string]struct{}

// MACMatcher matches hardware addresses regardless of case and separator.
func MACMatcher(macs []net.HardwareAddr) Matcher {
	m := make(macMatcher, len(macs))
	for _, mac := range macs {
		m[string(mac)] = struct{}{}
	}
	return m
}

func (m macMatcher) Match(s string) bool {
	if len(m) == 0 {
		return false
	}
	hw, err := net.ParseMAC(s)
	if err != nil {
		return false
	}
	_, ok := m[string(hw)]
	return ok
}

type domainMatcher map[string]struct{}

// DomainMatcher matches host names. A plain entry such as 'example.com' matches
// only itself; an entry with a leading dot, '.example.com', also matches every
// subdomain.
func DomainMatcher(domains []string) Matcher {
	m := make(domainMatcher, len(domains))
	for _, domain := range domains {
		m[strings.ToLower(domain)] = struct{}{}
	}
	return m
}

func (m domainMatcher) Match(name string) bool {
	if len(m) == 0 || name == "" {
		return false
	}
	name = strings.ToLower(strings.TrimSuffix(name, "."))
	if _, ok := m[name]; ok {
		return true
	}

	for suffix := name; suffix != ""; {
		if _, ok := m["."+suffix]; ok {
			return true
		}
		_, suffix, _ = strings.Cut(suffix, ".")
	}
	return false
}

type globMatcher []glob.Glob

// WildcardMatcher matches glob patterns such as '*.example.com' or '00:1a:2b:*',
// case-insensitively. Patterns that fail to compile are dropped.
func WildcardMatcher(patterns []string) Matcher {
	var m globMatcher
	for _, pattern := range patterns {
		if g, err := glob.Compile(strings.ToLower(pattern)); err == nil {
			m = append(m, g)
		}
	}
	return m
}

func (m globMatcher) Match(s string) bool {
	if len(m) == 0 {
		return false
	}
	s = strings.ToLower(s)
	for _, g := range m {
		if g.Match(s) {
			return true
		}
	}
	return false
}

// AddressMatcher matches network and hardware addresses against a mixed list
// of IP, CIDR, MAC and wildcard patterns. Anything else in the list is ignored.
type AddressMatcher struct {
	matchers []Matcher
}

func NewAddressMatcher(patterns []string) *AddressMatcher {
	nets := newRangerMatcher()
	macs := macMatcher{}
	var wildcards []string

	for _, pattern := range patterns {
		if ip := net.ParseIP(pattern); ip != nil {
			nets.insertIP(ip)
		} else if _, inet, err := net.ParseCIDR(pattern); err == nil {
			nets.insert(*inet)
		} else if mac, err := net.ParseMAC(pattern); err == nil {
			macs[string(mac)] = struct{}{}
		} else if strings.ContainsAny(pattern, "*?[{") {
			wildcards = append(wildcards, pattern)
		}
	}

	return &AddressMatcher{
		matchers: []Matcher{nets, macs, WildcardMatcher(wildcards)},
	}
}

func (m *AddressMatcher) Match(addr string) bool {
	if m == nil || addr == "" {
		return false
	}
	for _, matcher := range m.matchers {
		if matcher.Match(addr) {
			return true
		}
	}
	return false
}
