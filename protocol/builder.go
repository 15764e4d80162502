package protocol

import (
	"slices"

	"github.com/gopacket/gopacket"
)

// Builder accumulates validated entries for one packet. It is a value type:
// Add returns a new Builder and never modifies the receiver, so a partially
// built packet is never shared.
type Builder struct {
	source  uint16
	entries []Entry
	dropped int
}

func NewBuilder(source uint16) (Builder, error) {
	if !IsValidRouterId(source) {
		return Builder{}, ErrInvalidRouterId
	}
	return Builder{source: source}, nil
}

// Add appends e if it is valid. When e is invalid, the returned Builder has the
// drop recorded and the error says why.
func (b Builder) Add(e Entry) (Builder, error) {
	if err := e.Validate(); err != nil {
		b.dropped++
		return b, err
	}
	b.entries = append(slices.Clip(b.entries), e)
	return b, nil
}

func (b Builder) Len() int {
	return len(b.entries)
}

func (b Builder) Dropped() int {
	return b.dropped
}

func (b Builder) Packet() Packet {
	return Packet{
		Source:  b.source,
		Entries: slices.Clone(b.entries),
		Dropped: b.dropped,
	}
}

// Bytes emits the finished datagram.
func (b Builder) Bytes() ([]byte, error) {
	if !IsValidRouterId(b.source) {
		return nil, ErrInvalidRouterId
	}
	p := b.Packet()
	buf := gopacket.NewSerializeBuffer()
	err := gopacket.SerializeLayers(buf, gopacket.SerializeOptions{}, &p)
	if err != nil {
		return nil, err
	}
	return slices.Clone(buf.Bytes()), nil
}
