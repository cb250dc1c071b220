package hwio

import (
	"fmt"
	"slices"
	"sort"

	"chipset/emu/log"
)

// log unmapped accesses (useful for debugging but verbose since software
// probes registers that don't exist).
var logUnmapped = false

type mapping struct {
	begin, end uint32 // inclusive
	io         Bus8
}

// Table dispatches Bus8 accesses to the devices mapped in it. Mapped devices
// see addresses relative to the start of their range. Unmapped reads return 0,
// unmapped writes are ignored.
type Table struct {
	Name string

	maps []mapping // sorted, non overlapping
}

func NewTable(name string) *Table {
	t := new(Table)
	t.Name = name
	return t
}

func (t *Table) Reset() {
	t.maps = t.maps[:0]
}

// Map a register bank, that is a structure containing multiple Reg8, Mem or
// Device fields. For this function to work, the bank must have gone through
// InitRegs, and registers must have a struct tag "hwio" containing:
//
//	offset=0x12     Byte-offset within the register bank at which this
//	                register is mapped. Fields without offset are ignored.
//
//	bank=NN         Ordinal bank number (default to zero). Allows a
//	                structure to expose multiple banks.
func (t *Table) MapBank(addr uint32, bank any, bankNum int) {
	regs, err := bankGetRegs(bank, bankNum)
	if err != nil {
		panic(err)
	}

	for _, reg := range regs {
		switch r := reg.regPtr.(type) {
		case *Mem:
			t.MapMem(addr+reg.offset, r)
		case *Reg8:
			t.MapReg8(addr+reg.offset, r)
		case *Device:
			t.MapDevice(addr+reg.offset, r)
		default:
			panic(fmt.Errorf("invalid reg type: %T", r))
		}
	}
}

func (t *Table) MapReg8(addr uint32, reg *Reg8) {
	t.mapBus8(addr, 1, reg)
}

func (t *Table) MapDevice(addr uint32, dev *Device) {
	t.mapBus8(addr, uint32(dev.Size), dev)
}

func (t *Table) MapMem(addr uint32, mem *Mem) {
	log.ModBus.DebugZ("mapping mem").
		Hex32("addr", addr).
		Int("size", len(mem.Data)).
		String("area", mem.Name).
		String("bus", t.Name).
		End()

	t.mapBus8(addr, uint32(len(mem.Data)), mem)
}

func (t *Table) mapBus8(addr, size uint32, io Bus8) {
	if size == 0 {
		panic(fmt.Errorf("%s: zero-sized mapping at %08x", t.Name, addr))
	}
	m := mapping{begin: addr, end: addr + size - 1, io: io}
	if m.end < m.begin {
		panic(fmt.Errorf("%s: mapping at %08x overflows address space", t.Name, addr))
	}

	i := sort.Search(len(t.maps), func(i int) bool { return t.maps[i].end >= m.begin })
	if i < len(t.maps) && t.maps[i].begin <= m.end {
		panic(fmt.Errorf("%s: mapping [%08x-%08x] overlaps [%08x-%08x]",
			t.Name, m.begin, m.end, t.maps[i].begin, t.maps[i].end))
	}
	t.maps = slices.Insert(t.maps, i, m)
}

// Unmap removes the mappings fully contained in [begin, end].
func (t *Table) Unmap(begin, end uint32) {
	t.maps = slices.DeleteFunc(t.maps, func(m mapping) bool {
		return m.begin >= begin && m.end <= end
	})
}

func (t *Table) search(addr uint32) (Bus8, uint32) {
	i := sort.Search(len(t.maps), func(i int) bool { return t.maps[i].end >= addr })
	if i < len(t.maps) && t.maps[i].begin <= addr {
		return t.maps[i].io, addr - t.maps[i].begin
	}
	return nil, 0
}

// Read8 searches in the table for the device mapped at the given address and
// forwards the read to it.
func (t *Table) Read8(addr uint32) uint8 {
	io, off := t.search(addr)
	if io == nil {
		if logUnmapped {
			log.ModBus.ErrorZ("unmapped Read8").
				String("name", t.Name).
				Hex32("addr", addr).
				End()
		}
		return 0
	}
	return io.Read8(off)
}

func (t *Table) Write8(addr uint32, val uint8) {
	io, off := t.search(addr)
	if io == nil {
		if logUnmapped {
			log.ModBus.ErrorZ("unmapped Write8").
				String("name", t.Name).
				Hex32("addr", addr).
				Hex8("val", val).
				End()
		}
		return
	}
	io.Write8(off, val)
}
