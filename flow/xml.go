package flow

import (
	"encoding/xml"
	"io"
	"time"
)

// xmlTimeLayout matches the timestamp text of the historical flow documents.
const xmlTimeLayout = "2006-01-02 15:04:05.999999999"

type xmlFlow struct {
	XMLName     xml.Name `xml:"flow"`
	Vlan        int      `xml:"vlan"`
	EthType     int      `xml:"ethType"`
	SrcMac      string   `xml:"srcMac"`
	DestMac     string   `xml:"destMac"`
	NetProtocol int      `xml:"netProtocol"`
	SrcIP       string   `xml:"srcIp"`
	DestIP      string   `xml:"destIp"`
	SrcPort     int      `xml:"srcPort"`
	DestPort    int      `xml:"destPort"`
	Timestamp   string   `xml:"timestamp,omitempty"`
}

type xmlFlows struct {
	XMLName xml.Name   `xml:"flows"`
	Flows   []*xmlFlow `xml:"flow"`
}

// WriteXML encodes flows as a <flows> document of <flow> elements.
func WriteXML(w io.Writer, flows []*Flow) error {
	doc := xmlFlows{}
	for _, f := range flows {
		xf := &xmlFlow{
			Vlan:        f.VlanID,
			EthType:     f.EthType,
			SrcMac:      f.SourceMac,
			DestMac:     f.DestinationMac,
			NetProtocol: f.NetProtocol,
			SrcIP:       f.NetSource,
			DestIP:      f.NetDestination,
			SrcPort:     f.TransportSource,
			DestPort:    f.TransportDestination,
		}
		if !f.Timestamp.IsZero() {
			xf.Timestamp = f.Timestamp.UTC().Format(xmlTimeLayout)
		}
		doc.Flows = append(doc.Flows, xf)
	}

	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(&doc); err != nil {
		return err
	}
	return enc.Flush()
}

// ReadXML decodes a <flows> document written by WriteXML.
// Timestamps without zone information are read as UTC.
func ReadXML(r io.Reader) ([]*Flow, error) {
	var doc xmlFlows
	if err := xml.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}

	flows := make([]*Flow, 0, len(doc.Flows))
	for _, xf := range doc.Flows {
		f := &Flow{
			VlanID:               xf.Vlan,
			EthType:              xf.EthType,
			SourceMac:            xf.SrcMac,
			DestinationMac:       xf.DestMac,
			NetProtocol:          xf.NetProtocol,
			NetSource:            xf.SrcIP,
			NetDestination:       xf.DestIP,
			TransportSource:      xf.SrcPort,
			TransportDestination: xf.DestPort,
		}
		if xf.Timestamp != "" {
			ts, err := time.Parse(xmlTimeLayout, xf.Timestamp)
			if err != nil {
				return nil, err
			}
			f.Timestamp = ts
		}
		flows = append(flows, f)
	}
	return flows, nil
}
