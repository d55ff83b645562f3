package intake

import (
	"net"
	"testing"
	"time"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	srcMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x01}
	dstMAC = net.HardwareAddr{0x00, 0x00, 0x00, 0x00, 0x00, 0x02}
)

func serialize(t *testing.T, ls ...gopacket.SerializableLayer) []byte {
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, ls...))
	return buf.Bytes()
}

func tcpFrame(t *testing.T, src, dst string, srcPort, dstPort int) []byte {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolTCP,
		SrcIP:    net.ParseIP(src).To4(),
		DstIP:    net.ParseIP(dst).To4(),
	}
	tcp := &layers.TCP{
		SrcPort: layers.TCPPort(srcPort),
		DstPort: layers.TCPPort(dstPort),
		SYN:     true,
		Window:  1024,
	}
	require.NoError(t, tcp.SetNetworkLayerForChecksum(ip))
	return serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		ip, tcp, gopacket.Payload([]byte("hello")),
	)
}

func arpFrame(t *testing.T) []byte {
	return serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: layers.EthernetBroadcast, EthernetType: layers.EthernetTypeARP},
		&layers.ARP{
			AddrType:          layers.LinkTypeEthernet,
			Protocol:          layers.EthernetTypeIPv4,
			HwAddressSize:     6,
			ProtAddressSize:   4,
			Operation:         layers.ARPRequest,
			SourceHwAddress:   srcMAC,
			SourceProtAddress: net.ParseIP("10.0.0.1").To4(),
			DstHwAddress:      make(net.HardwareAddr, 6),
			DstProtAddress:    net.ParseIP("10.0.0.2").To4(),
		},
	)
}

func TestDecodeTCPFrame(t *testing.T) {
	ts := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	f, err := DecodeFrame(tcpFrame(t, "10.0.0.1", "10.0.0.2", 40000, 80), ts)
	require.NoError(t, err)

	assert.Equal(t, 0x0800, f.EthType)
	assert.Equal(t, "00:00:00:00:00:01", f.SourceMac)
	assert.Equal(t, "00:00:00:00:00:02", f.DestinationMac)
	assert.Equal(t, 0, f.VlanID)
	assert.Equal(t, 6, f.NetProtocol)
	assert.Equal(t, "10.0.0.1", f.NetSource)
	assert.Equal(t, "10.0.0.2", f.NetDestination)
	assert.Equal(t, 40000, f.TransportSource)
	assert.Equal(t, 80, f.TransportDestination)
	assert.Equal(t, ts, f.Timestamp)
	assert.True(t, f.SupportsTransportInspection())
}

func TestDecodeVLANFrame(t *testing.T) {
	ip := &layers.IPv4{
		Version:  4,
		TTL:      64,
		Protocol: layers.IPProtocolUDP,
		SrcIP:    net.ParseIP("192.168.1.10").To4(),
		DstIP:    net.ParseIP("192.168.1.1").To4(),
	}
	udp := &layers.UDP{SrcPort: 5353, DstPort: 53}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeDot1Q},
		&layers.Dot1Q{VLANIdentifier: 42, Type: layers.EthernetTypeIPv4},
		ip, udp,
	)

	f, err := DecodeFrame(data, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 42, f.VlanID)
	assert.Equal(t, 0x0800, f.EthType)
	assert.Equal(t, 17, f.NetProtocol)
	assert.Equal(t, 5353, f.TransportSource)
	assert.Equal(t, 53, f.TransportDestination)
}

func TestDecodeIPv6Frame(t *testing.T) {
	ip := &layers.IPv6{
		Version:    6,
		HopLimit:   64,
		NextHeader: layers.IPProtocolUDP,
		SrcIP:      net.ParseIP("2001:db8::1"),
		DstIP:      net.ParseIP("2001:db8::2"),
	}
	udp := &layers.UDP{SrcPort: 1000, DstPort: 2000}
	require.NoError(t, udp.SetNetworkLayerForChecksum(ip))
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv6},
		ip, udp,
	)

	f, err := DecodeFrame(data, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0x86dd, f.EthType)
	assert.Equal(t, "2001:db8::1", f.NetSource)
	assert.Equal(t, "2001:db8::2", f.NetDestination)
	assert.Equal(t, 17, f.NetProtocol)
	assert.Equal(t, 1000, f.TransportSource)
	assert.Equal(t, 2000, f.TransportDestination)
}

func TestDecodeICMPFrame(t *testing.T) {
	data := serialize(t,
		&layers.Ethernet{SrcMAC: srcMAC, DstMAC: dstMAC, EthernetType: layers.EthernetTypeIPv4},
		&layers.IPv4{
			Version:  4,
			TTL:      64,
			Protocol: layers.IPProtocolICMPv4,
			SrcIP:    net.ParseIP("10.0.0.1").To4(),
			DstIP:    net.ParseIP("10.0.0.2").To4(),
		},
		&layers.ICMPv4{TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0), Id: 1, Seq: 1},
	)

	f, err := DecodeFrame(data, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 1, f.NetProtocol)
	assert.Equal(t, 8, f.TransportSource)
	assert.Equal(t, 0, f.TransportDestination)
}

func TestDecodeARPFrame(t *testing.T) {
	f, err := DecodeFrame(arpFrame(t), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, 0x0806, f.EthType)
	assert.Equal(t, "ff:ff:ff:ff:ff:ff", f.DestinationMac)
	assert.Empty(t, f.NetSource)
	assert.False(t, f.SupportsNetworkInspection())
}

func TestDecodeInvalidFrame(t *testing.T) {
	_, err := DecodeFrame([]byte{0x01, 0x02}, time.Time{})
	assert.ErrorIs(t, err, ErrUnsupportedFrame)
}
