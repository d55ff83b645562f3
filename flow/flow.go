package flow

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/gopacket/layers"
)

// Flow is the tuple observed by the controller for a single unmatched packet.
// A Flow is treated as immutable once handed to the engine.
type Flow struct {
	VlanID               int       `json:"vlan"`
	EthType              int       `json:"ethType"`
	SourceMac            string    `json:"srcMac"`
	DestinationMac       string    `json:"destMac"`
	NetProtocol          int       `json:"netProtocol"`
	NetSource            string    `json:"srcIp"`
	NetDestination       string    `json:"destIp"`
	TransportSource      int       `json:"srcPort"`
	TransportDestination int       `json:"destPort"`
	Timestamp            time.Time `json:"timestamp,omitzero"`
}

// SupportsNetworkInspection reports whether the ether-type carries IPv4 or IPv6,
// in which case NetProtocol, NetSource and NetDestination are meaningful.
func (f *Flow) SupportsNetworkInspection() bool {
	switch layers.EthernetType(f.EthType) {
	case layers.EthernetTypeIPv4, layers.EthernetTypeIPv6:
		return true
	}
	return false
}

// SupportsTransportInspection reports whether the transport ports are meaningful.
func (f *Flow) SupportsTransportInspection() bool {
	proto := layers.IPProtocol(f.NetProtocol)
	switch layers.EthernetType(f.EthType) {
	case layers.EthernetTypeIPv4:
		return proto == layers.IPProtocolICMPv4 ||
			proto == layers.IPProtocolTCP ||
			proto == layers.IPProtocolUDP
	case layers.EthernetTypeIPv6:
		return proto == layers.IPProtocolICMPv6 ||
			proto == layers.IPProtocolTCP ||
			proto == layers.IPProtocolUDP
	}
	return false
}

func (f *Flow) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "src: %s\n", f.SourceMac)
	fmt.Fprintf(&b, "dst: %s\n", f.DestinationMac)
	fmt.Fprintf(&b, "vlan: %d\n", f.VlanID)
	fmt.Fprintf(&b, "ethtype: 0x%04x\n", f.EthType)
	if f.SupportsNetworkInspection() {
		fmt.Fprintf(&b, "net protocol: %d\n", f.NetProtocol)
		fmt.Fprintf(&b, "net src: %s\n", f.NetSource)
		fmt.Fprintf(&b, "net dst: %s\n", f.NetDestination)
		if f.SupportsTransportInspection() {
			fmt.Fprintf(&b, "trs src: %d\n", f.TransportSource)
			fmt.Fprintf(&b, "trs dst: %d\n", f.TransportDestination)
		}
	}
	if !f.Timestamp.IsZero() {
		fmt.Fprintf(&b, "timestamp: %s\n", f.Timestamp.Format(time.RFC3339Nano))
	}
	return b.String()
}

var ethTypeNames = map[string]layers.EthernetType{
	"arp":  layers.EthernetTypeARP,
	"ipv4": layers.EthernetTypeIPv4,
	"ipv6": layers.EthernetTypeIPv6,
	"lldp": layers.EthernetTypeLinkLayerDiscovery,
	"vlan": layers.EthernetTypeDot1Q,
}

// ParseEthType parses an ether-type given by name (arp, ipv4, ipv6, lldp, vlan),
// as a hex literal (0x0806) or as a decimal number.
func ParseEthType(s string) (int, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if v, ok := ethTypeNames[s]; ok {
		return int(v), nil
	}
	n, err := strconv.ParseUint(s, 0, 16)
	if err != nil {
		return 0, fmt.Errorf("invalid ether-type %q", s)
	}
	return int(n), nil
}
