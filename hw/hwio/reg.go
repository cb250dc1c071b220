package hwio

import (
	"fmt"

	"chipset/emu/log"
)

type RWFlags uint8

const (
	ReadWriteFlag RWFlags = 0
	ReadOnlyFlag  RWFlags = (1 << iota)
	WriteOnlyFlag
)

// Reg8 is an 8-bit register. Bits set in RoMask can't be modified by writes.
type Reg8 struct {
	Name   string
	Value  uint8
	Reset  uint8 // power-on value
	RoMask uint8

	Flags   RWFlags
	ReadCb  func(val uint8) uint8
	WriteCb func(old uint8, val uint8)
}

func (reg Reg8) String() string {
	s := fmt.Sprintf("%s{%02x", reg.Name, reg.Value)
	if reg.ReadCb != nil {
		s += ",r!"
	}
	if reg.WriteCb != nil {
		s += ",w!"
	}
	return s + "}"
}

func (reg *Reg8) write(val uint8) {
	old := reg.Value
	reg.Value = (reg.Value & reg.RoMask) | (val &^ reg.RoMask)
	if reg.WriteCb != nil {
		reg.WriteCb(old, reg.Value)
	}
}

func (reg *Reg8) Write8(addr uint32, val uint8) {
	if reg.Flags&ReadOnlyFlag != 0 {
		log.ModBus.ErrorZ("invalid Write8 to readonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			End()
		return
	}
	reg.write(val)
}

func (reg *Reg8) Read8(addr uint32) uint8 {
	if reg.Flags&WriteOnlyFlag != 0 {
		log.ModBus.ErrorZ("invalid Read8 from writeonly reg").
			String("name", reg.Name).
			Hex32("addr", addr).
			End()
		return 0
	}
	if reg.ReadCb != nil {
		return reg.ReadCb(reg.Value)
	}
	return reg.Value
}

// PowerOn sets the register back to its reset value, without invoking the
// write callback.
func (reg *Reg8) PowerOn() {
	reg.Value = reg.Reset
}

// Device is a Bus8 implementation that allows manual management of an entire
// range of addresses. Addresses passed to the callbacks are relative to the
// start of the device.
type Device struct {
	Name  string // name of the area (for debugging)
	Size  int    // size in bytes
	Flags RWFlags

	ReadCb  func(addr uint32) uint8
	WriteCb func(addr uint32, val uint8)
}

func (d *Device) Read8(addr uint32) uint8 {
	switch {
	case d.Flags&WriteOnlyFlag != 0:
		log.ModBus.ErrorZ("invalid Read8 from writeonly device").
			String("name", d.Name).
			Hex32("addr", addr).
			End()
		fallthrough
	case d.ReadCb == nil:
		return 0
	}
	return d.ReadCb(addr)
}

func (d *Device) Write8(addr uint32, val uint8) {
	switch {
	case d.Flags&ReadOnlyFlag != 0:
		log.ModBus.ErrorZ("invalid Write8 to readonly device").
			String("name", d.Name).
			Hex32("addr", addr).
			End()
		fallthrough
	case d.WriteCb == nil:
		return
	}
	d.WriteCb(addr, val)
}
