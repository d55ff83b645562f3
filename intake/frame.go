package intake

import (
	"errors"
	"time"

	"github.com/fwdask/fwdask/flow"
	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

var (
	ErrUnsupportedFrame = errors.New("intake: not an ethernet frame")
)

// DecodeFrame extracts the flow of an Ethernet frame. 802.1Q tags give the
// VLAN and the inner ether-type. ICMP type and code take the place of the
// transport ports, as in OpenFlow matches.
func DecodeFrame(data []byte, ts time.Time) (*flow.Flow, error) {
	packet := gopacket.NewPacket(data, layers.LayerTypeEthernet, gopacket.Default)

	l := packet.Layer(layers.LayerTypeEthernet)
	if l == nil {
		return nil, ErrUnsupportedFrame
	}
	eth := l.(*layers.Ethernet)

	f := &flow.Flow{
		EthType:        int(eth.EthernetType),
		SourceMac:      eth.SrcMAC.String(),
		DestinationMac: eth.DstMAC.String(),
		Timestamp:      ts,
	}

	if l := packet.Layer(layers.LayerTypeDot1Q); l != nil {
		tag := l.(*layers.Dot1Q)
		f.VlanID = int(tag.VLANIdentifier)
		f.EthType = int(tag.Type)
	}

	switch {
	case packet.Layer(layers.LayerTypeIPv4) != nil:
		ip := packet.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
		f.NetSource = ip.SrcIP.String()
		f.NetDestination = ip.DstIP.String()
		f.NetProtocol = int(ip.Protocol)
	case packet.Layer(layers.LayerTypeIPv6) != nil:
		ip := packet.Layer(layers.LayerTypeIPv6).(*layers.IPv6)
		f.NetSource = ip.SrcIP.String()
		f.NetDestination = ip.DstIP.String()
		f.NetProtocol = int(ip.NextHeader)
	default:
		return f, nil
	}

	switch t := packet.TransportLayer().(type) {
	case *layers.TCP:
		f.NetProtocol = int(layers.IPProtocolTCP)
		f.TransportSource = int(t.SrcPort)
		f.TransportDestination = int(t.DstPort)
	case *layers.UDP:
		f.NetProtocol = int(layers.IPProtocolUDP)
		f.TransportSource = int(t.SrcPort)
		f.TransportDestination = int(t.DstPort)
	}
	if l := packet.Layer(layers.LayerTypeICMPv4); l != nil {
		icmp := l.(*layers.ICMPv4)
		f.NetProtocol = int(layers.IPProtocolICMPv4)
		f.TransportSource = int(icmp.TypeCode.Type())
		f.TransportDestination = int(icmp.TypeCode.Code())
	}
	if l := packet.Layer(layers.LayerTypeICMPv6); l != nil {
		icmp := l.(*layers.ICMPv6)
		f.NetProtocol = int(layers.IPProtocolICMPv6)
		f.TransportSource = int(icmp.TypeCode.Type())
		f.TransportDestination = int(icmp.TypeCode.Code())
	}

	return f, nil
}
