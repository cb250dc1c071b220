// Package dma implements a byte staging buffer that accumulates 32-bit words
// and hands them over to a DMA-capable collaborator when polled.
package dma

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"chipset/emu/log"
	"chipset/hw/hwio"
)

const DefaultCapacity = 8192

// PortOutput is the port of the BusDMA collaborator receiving flushed data.
const PortOutput = 0

// Sink buffers words written at address 0 and flushes them to its output when
// address 0 is read. Words are stored big-endian. Writes that don't fit in the
// buffer are dropped.
type Sink struct {
	Name string

	buf     []byte
	idx     int
	out     hwio.BusDMA
	dropped uint64

	hwio.Props
}

func NewSink(name string, capacity int) *Sink {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	s := &Sink{Name: name, buf: make([]byte, capacity)}

	s.Props.Define("capacity", capacity, func(v any) (any, error) {
		n, err := hwio.AsInt(v)
		if err != nil {
			return nil, err
		}
		if n < 4 {
			return nil, errors.Wrapf(hwio.ErrInvalidValue, "capacity %d can't hold a word", n)
		}
		s.buf = make([]byte, n)
		s.idx = 0
		return n, nil
	})
	s.Props.DefineReadOnly("dropped", func() any { return s.dropped })
	return s
}

func (s *Sink) Connect(port int, peer any) error {
	if port != PortOutput {
		return hwio.InvalidPort(s.Name, port)
	}
	out, err := hwio.Want[hwio.BusDMA](port, peer, hwio.CapDMA)
	if err != nil {
		return err
	}
	s.out = out
	log.ModDMA.DebugZ("connected").String("sink", s.Name).End()
	return nil
}

// Reset discards pending data.
func (s *Sink) Reset() {
	s.idx = 0
}

func (s *Sink) Write32(addr uint32, val uint32) {
	if addr != 0 {
		return
	}
	if s.idx+4 > len(s.buf) {
		s.dropped++
		log.ModDMA.DebugZ("buffer full, dropping word").
			String("sink", s.Name).
			Hex32("val", val).
			Uint64("dropped", s.dropped).
			End()
		return
	}
	binary.BigEndian.PutUint32(s.buf[s.idx:], val)
	s.idx += 4
}

// Read32 at address 0 flushes the buffered bytes to the output, and returns
// their count. Without an output, the bytes are discarded.
func (s *Sink) Read32(addr uint32) uint32 {
	if addr != 0 {
		return 0
	}
	n := s.idx
	if s.out != nil {
		s.out.WriteDMA(0, s.buf, 0, n)
	}
	s.idx = 0
	return uint32(n)
}

// Pending returns the number of buffered bytes.
func (s *Sink) Pending() int { return s.idx }

func (s *Sink) Capacity() int { return len(s.buf) }

// Dropped returns the number of words dropped because the buffer was full.
func (s *Sink) Dropped() uint64 { return s.dropped }
