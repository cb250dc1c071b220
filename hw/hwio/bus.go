// Package hwio defines the contracts through which emulated components talk to
// each other, and a few building blocks (memories, registers, address tables)
// to implement them.
//
// Each capability is a separate interface. A component implements as many of
// them as it needs, possibly for different logical address spaces; a 32-bit
// bus is not an extension of an 8-bit bus.
package hwio

// Bus1 is a 1-bit wide addressed bus (lines, flags, bit-addressed memory).
type Bus1 interface {
	Read1(addr uint32) bool
	Write1(addr uint32, val bool)
}

// Bus8 is an 8-bit wide addressed bus.
type Bus8 interface {
	Read8(addr uint32) uint8
	Write8(addr uint32, val uint8)
}

// Bus16 is a 16-bit wide addressed bus.
type Bus16 interface {
	Read16(addr uint32) uint16
	Write16(addr uint32, val uint16)
}

// Bus32 is a 32-bit wide addressed bus.
type Bus32 interface {
	Read32(addr uint32) uint32
	Write32(addr uint32, val uint32)
}

// Bus64 is a 64-bit wide addressed bus.
type Bus64 interface {
	Read64(addr uint32) uint64
	Write64(addr uint32, val uint64)
}

// BusDMA moves contiguous byte ranges. ReadDMA copies n bytes found at addr
// into buf[off:off+n], WriteDMA copies buf[off:off+n] to addr.
type BusDMA interface {
	ReadDMA(addr uint32, buf []byte, off, n int)
	WriteDMA(addr uint32, buf []byte, off, n int)
}

// Configurable is an out-of-band, string-keyed property store. GetConfig
// returns what was last set for key, or its default (nil if none).
type Configurable interface {
	GetConfig(key string) any
	SetConfig(key string, val any) error
	ConfigKeys() []string
}

// Clockable components advance their internal time by a number of elapsed
// ticks of the virtual clock.
type Clockable interface {
	Clock(ticks int64)
}

// Hardware is the composition contract every component supports.
//
// Connect binds a numbered port to a collaborator. The receiver checks, at
// connect time, that the peer exposes the capability the port requires. Ports
// hold references: rebinding a port never affects the previous peer.
//
// Reset brings the component back to its power-on state. It is idempotent.
type Hardware interface {
	Connect(port int, peer any) error
	Reset()
}
