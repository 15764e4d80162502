package protocol

import (
	"encoding/binary"
	"fmt"

	"golang.org/x/exp/constraints"
)

const (
	CommandResponse = 0x02
	Version         = 0x02

	HeaderLen = 4
	EntryLen  = 20

	MaxRouterId = 64000
	// Infinity is the metric of an unreachable destination.
	Infinity = 16
)

// Entry is a single 20-byte route entry as it appears on the wire.
//
//	 0                   1                   2                   3
//	 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1 2 3 4 5 6 7 8 9 0 1
//	+-------------------------------+-------------------------------+
//	|             port              |          must be zero         |
//	+-------------------------------+-------------------------------+
//	|                           router id                           |
//	+---------------------------------------------------------------+
//	|                         must be zero                          |
//	+---------------------------------------------------------------+
//	|                         must be zero                          |
//	+---------------------------------------------------------------+
//	|                            metric                             |
//	+---------------------------------------------------------------+
type Entry struct {
	Port     uint16
	RouterId uint32
	Metric   uint32
}

func (e Entry) String() string {
	return fmt.Sprintf("(port: %d, id: %d, metric: %d)", e.Port, e.RouterId, e.Metric)
}

func IsValidRouterId[T constraints.Integer](x T) bool {
	return x >= 1 && uint64(x) <= MaxRouterId
}

func IsValidMetric[T constraints.Integer](m T) bool {
	return m >= 1 && uint64(m) <= Infinity
}

// Validate reports why an entry may not be put on the wire, if at all.
func (e Entry) Validate() error {
	if !IsValidRouterId(e.RouterId) {
		return fmt.Errorf("%w: %d", ErrInvalidRouterId, e.RouterId)
	}
	if !IsValidMetric(e.Metric) {
		return fmt.Errorf("%w: %d", ErrInvalidMetric, e.Metric)
	}
	return nil
}

func (e Entry) encodeTo(data []byte) {
	clear(data[:EntryLen])
	binary.BigEndian.PutUint16(data[0:2], e.Port)
	binary.BigEndian.PutUint32(data[4:8], e.RouterId)
	binary.BigEndian.PutUint32(data[16:20], e.Metric)
}

func decodeEntry(data []byte) (Entry, error) {
	e := Entry{
		Port:     binary.BigEndian.Uint16(data[0:2]),
		RouterId: binary.BigEndian.Uint32(data[4:8]),
		Metric:   binary.BigEndian.Uint32(data[16:20]),
	}
	if binary.BigEndian.Uint16(data[2:4]) != 0 ||
		binary.BigEndian.Uint64(data[8:16]) != 0 {
		return e, fmt.Errorf("%w: reserved bytes are not zero", ErrInvalidEntry)
	}
	if err := e.Validate(); err != nil {
		return e, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}
	return e, nil
}

// Packet is a response message: a fixed header followed by zero or more entries.
type Packet struct {
	Source  uint16
	Entries []Entry
	// Dropped counts the entries discarded while decoding or encoding this packet.
	Dropped int

	contents []byte
}

func (p *Packet) String() string {
	return fmt.Sprintf("RIPv2 response source=%d entries=%d dropped=%d", p.Source, len(p.Entries), p.Dropped)
}

// Encode serializes p, skipping entries that fail validation. The number of
// skipped entries is returned alongside the bytes.
func Encode(p Packet) ([]byte, int, error) {
	b, err := NewBuilder(p.Source)
	if err != nil {
		return nil, 0, err
	}
	for _, e := range p.Entries {
		b, _ = b.Add(e)
	}
	data, err := b.Bytes()
	if err != nil {
		return nil, 0, err
	}
	return data, b.Dropped(), nil
}

// Decode parses a datagram. Header or length corruption fails the whole
// packet, while individual bad entries are dropped and counted in Packet.Dropped.
func Decode(data []byte) (Packet, error) {
	p := Packet{}
	err := p.DecodeFromBytes(data, nil)
	return p, err
}

func decodeHeader(data []byte) (uint16, error) {
	if len(data) < HeaderLen {
		return 0, fmt.Errorf("%w: length %d less than %d", ErrMalformedHeader, len(data), HeaderLen)
	}
	if data[0] != CommandResponse {
		return 0, fmt.Errorf("%w: unexpected command %d", ErrMalformedHeader, data[0])
	}
	if data[1] != Version {
		return 0, fmt.Errorf("%w: unexpected version %d", ErrMalformedHeader, data[1])
	}
	src := binary.BigEndian.Uint16(data[2:4])
	if !IsValidRouterId(src) {
		return 0, fmt.Errorf("%w: source %w: %d", ErrMalformedHeader, ErrInvalidRouterId, src)
	}
	return src, nil
}
