package protocol

import (
	"encoding/binary"
	"fmt"

	"github.com/gopacket/gopacket"
)

var (
	LayerTypeRIP = gopacket.RegisterLayerType(
		1520,
		gopacket.LayerTypeMetadata{
			Name:    "RIP",
			Decoder: gopacket.DecodeFunc(decodeRIP),
		},
	)
	LayerClassRIP gopacket.LayerClass = LayerTypeRIP
)

func (p *Packet) LayerType() gopacket.LayerType {
	return LayerTypeRIP
}

func (p *Packet) CanDecode() gopacket.LayerClass {
	return LayerClassRIP
}

func (p *Packet) NextLayerType() gopacket.LayerType {
	return gopacket.LayerTypeZero
}

func (p *Packet) LayerContents() []byte {
	return p.contents
}

func (p *Packet) LayerPayload() []byte {
	return nil
}

// DecodeFromBytes implements the gopacket.DecodingLayer.DecodeFromBytes method.
func (p *Packet) DecodeFromBytes(data []byte, df gopacket.DecodeFeedback) error {
	*p = Packet{}
	src, err := decodeHeader(data)
	if err != nil {
		if df != nil && len(data) < HeaderLen {
			df.SetTruncated()
		}
		return err
	}
	rem := len(data) - HeaderLen
	if rem%EntryLen != 0 {
		if df != nil {
			df.SetTruncated()
		}
		return fmt.Errorf("%w: %d trailing bytes after header", ErrTruncatedEntry, rem)
	}
	p.Source = src
	p.Entries = make([]Entry, 0, rem/EntryLen)
	for off := HeaderLen; off < len(data); off += EntryLen {
		e, err := decodeEntry(data[off : off+EntryLen])
		if err != nil {
			p.Dropped++
			continue
		}
		p.Entries = append(p.Entries, e)
	}
	p.contents = data
	return nil
}

// SerializeTo writes the header and every entry of p. Entries are expected to
// have been validated already, see Builder.
func (p *Packet) SerializeTo(b gopacket.SerializeBuffer, opts gopacket.SerializeOptions) error {
	data, err := b.PrependBytes(HeaderLen + EntryLen*len(p.Entries))
	if err != nil {
		return err
	}
	data[0] = CommandResponse
	data[1] = Version
	binary.BigEndian.PutUint16(data[2:4], p.Source)
	for i, e := range p.Entries {
		off := HeaderLen + i*EntryLen
		e.encodeTo(data[off : off+EntryLen])
	}
	return nil
}

func decodeRIP(data []byte, pb gopacket.PacketBuilder) error {
	p := &Packet{}
	err := p.DecodeFromBytes(data, pb)
	if err != nil {
		return err
	}
	pb.AddLayer(p)
	return nil
}
