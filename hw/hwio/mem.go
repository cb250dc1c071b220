package hwio

import (
	"encoding/binary"

	"chipset/emu/log"
)

type MemFlags int

const (
	MemFlagReadWrite MemFlags = 0
	MemFlagReadOnly  MemFlags = (1 << iota) // writes are ignored
	MemFlagNoROLog                          // skip logging attempts to write when configured to readonly
)

// Mem is a linear memory area. Its size must be a power of 2: addresses are
// masked, so the content is mirrored over the whole 32-bit address space.
//
// Multi-byte accesses are little endian. DMA transfers don't wrap: the part of
// a transfer falling past the end of the buffer is zero-filled (reads) or
// dropped (writes).
type Mem struct {
	Name  string // name of the memory area (for debugging)
	Data  []byte // actual memory buffer
	Flags MemFlags

	mask uint32
}

func ispow2(n int) bool {
	return n > 0 && n&(n-1) == 0
}

// NewMem allocates a zeroed memory of the given size.
func NewMem(name string, size int, flags MemFlags) *Mem {
	return NewMemFromData(name, make([]byte, size), flags)
}

// NewMemFromData creates a memory backed by data.
func NewMemFromData(name string, data []byte, flags MemFlags) *Mem {
	if !ispow2(len(data)) {
		panic("memory buffer size is not pow2")
	}
	return &Mem{
		Name:  name,
		Data:  data,
		Flags: flags,
		mask:  uint32(len(data) - 1),
	}
}

func (m *Mem) readonly(addr uint32) bool {
	if m.Flags&MemFlagReadOnly == 0 {
		return false
	}
	if m.Flags&MemFlagNoROLog == 0 {
		log.ModBus.ErrorZ("write to readonly memory").
			String("name", m.Name).
			Hex32("addr", addr).
			End()
	}
	return true
}

func (m *Mem) Read1(addr uint32) bool {
	return GetBit8(m.Read8(addr>>3), uint(addr&7))
}

func (m *Mem) Write1(addr uint32, val bool) {
	if m.readonly(addr >> 3) {
		return
	}
	b := &m.Data[(addr>>3)&m.mask]
	if val {
		SetBit8(b, uint(addr&7))
	} else {
		ClearBit8(b, uint(addr&7))
	}
}

func (m *Mem) Read8(addr uint32) uint8 {
	return m.Data[addr&m.mask]
}

func (m *Mem) Write8(addr uint32, val uint8) {
	if m.readonly(addr) {
		return
	}
	m.Data[addr&m.mask] = val
}

func (m *Mem) Read16(addr uint32) uint16 {
	var b [2]byte
	m.gather(addr, b[:])
	return binary.LittleEndian.Uint16(b[:])
}

func (m *Mem) Write16(addr uint32, val uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], val)
	m.scatter(addr, b[:])
}

func (m *Mem) Read32(addr uint32) uint32 {
	var b [4]byte
	m.gather(addr, b[:])
	return binary.LittleEndian.Uint32(b[:])
}

func (m *Mem) Write32(addr uint32, val uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], val)
	m.scatter(addr, b[:])
}

func (m *Mem) Read64(addr uint32) uint64 {
	var b [8]byte
	m.gather(addr, b[:])
	return binary.LittleEndian.Uint64(b[:])
}

func (m *Mem) Write64(addr uint32, val uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], val)
	m.scatter(addr, b[:])
}

// gather and scatter honor mirroring byte by byte, so that multi-byte
// accesses crossing the end of the buffer wrap like the hardware would.
func (m *Mem) gather(addr uint32, b []byte) {
	for i := range b {
		b[i] = m.Data[(addr+uint32(i))&m.mask]
	}
}

func (m *Mem) scatter(addr uint32, b []byte) {
	if m.readonly(addr) {
		return
	}
	for i := range b {
		m.Data[(addr+uint32(i))&m.mask] = b[i]
	}
}

func (m *Mem) ReadDMA(addr uint32, buf []byte, off, n int) {
	dst := buf[off : off+n]
	start := int(addr & m.mask)
	copied := copy(dst, m.Data[start:])
	clear(dst[copied:])
}

func (m *Mem) WriteDMA(addr uint32, buf []byte, off, n int) {
	if m.readonly(addr) {
		return
	}
	start := int(addr & m.mask)
	copy(m.Data[start:], buf[off:off+n])
}

// Connect implements Hardware. Memories have no ports.
func (m *Mem) Connect(port int, _ any) error {
	return InvalidPort(m.Name, port)
}

// Reset clears the memory content, unless it's read-only.
func (m *Mem) Reset() {
	if m.Flags&MemFlagReadOnly == 0 {
		clear(m.Data)
	}
}
