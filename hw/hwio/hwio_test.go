package hwio_test

import (
	"errors"
	"testing"

	"chipset/hw/hwio"
)

type testTable struct {
	t   testing.TB
	Bus *hwio.Table

	// $0000-$07FF
	RAM hwio.Mem `hwio:"bank=0,offset=0x0,size=0x800"`

	// $2000
	Reg0 hwio.Reg8 `hwio:"bank=1,offset=0x0,reset=0x77"`
	// $2001
	Reg1 hwio.Reg8 `hwio:"bank=1,offset=0x1,rwmask=0xF0,rcb,reset=0x99"`
	// $2002
	Reg2 hwio.Reg8 `hwio:"bank=1,offset=0x2,readonly,reset=0x12"`
	// $2003
	Reg3 hwio.Reg8 `hwio:"bank=1,offset=0x3,wcb=OnReg3"`

	// $4000-$40FF
	DEV hwio.Device `hwio:"bank=2,offset=0x0,size=0x100,rcb,wcb"`
	// $4100-$41FF
	WoDEV hwio.Device `hwio:"bank=2,offset=0x100,size=0x100,writeonly,wcb"`

	devval   uint8
	reg3old  uint8
	reg3seen bool
}

func newTestTable(tb testing.TB) *testTable {
	tbl := &testTable{t: tb}
	hwio.MustInitRegs(tbl)

	tbl.Bus = hwio.NewTable("bus")
	tbl.Bus.MapBank(0x0000, tbl, 0)
	tbl.Bus.MapBank(0x2000, tbl, 1)
	tbl.Bus.MapBank(0x4000, tbl, 2)
	return tbl
}

// $2001
func (tbl *testTable) ReadREG1(val uint8) uint8 { return val + 1 }

// $2003
func (tbl *testTable) OnReg3(old, val uint8) {
	tbl.reg3old = old
	tbl.reg3seen = true
}

// $4000-40FF
func (tbl *testTable) ReadDEV(addr uint32) uint8       { return 0xE0 | uint8(addr&0x0F) }
func (tbl *testTable) WriteDEV(addr uint32, val uint8) { tbl.devval = uint8(addr) & val }

// $4100-41FF
func (tbl *testTable) WriteWODEV(addr uint32, val uint8) { tbl.devval = uint8(addr) &^ val }

func (tbl *testTable) wantRead8(addr uint32, want uint8) {
	tbl.t.Helper()

	if got := tbl.Bus.Read8(addr); got != want {
		tbl.t.Errorf("Read8(%04X) = %02X, want %02X", addr, got, want)
	}
}

func TestTableMapBank(t *testing.T) {
	tbl := newTestTable(t)

	// RAM
	tbl.wantRead8(0x0000, 0x00)
	tbl.Bus.Write8(0x0010, 0x42)
	tbl.wantRead8(0x0010, 0x42)
	if tbl.RAM.Data[0x10] != 0x42 {
		t.Errorf("RAM not written: %02X", tbl.RAM.Data[0x10])
	}

	// Registers
	tbl.wantRead8(0x2000, 0x77)
	tbl.wantRead8(0x2001, 0x9A)
	tbl.Bus.Write8(0x2001, 0x00)
	if tbl.Reg1.Value != 0x09 {
		t.Errorf("rwmask not respected: Reg1=%02X, want 09", tbl.Reg1.Value)
	}
	tbl.Bus.Write8(0x2002, 0xFF)
	tbl.wantRead8(0x2002, 0x12)

	tbl.Bus.Write8(0x2003, 0x55)
	if !tbl.reg3seen || tbl.reg3old != 0 || tbl.Reg3.Value != 0x55 {
		t.Errorf("write callback: seen=%t old=%02X val=%02X", tbl.reg3seen, tbl.reg3old, tbl.Reg3.Value)
	}

	// Devices receive relative addresses
	tbl.wantRead8(0x4005, 0xE5)
	tbl.Bus.Write8(0x40F3, 0xFF)
	if tbl.devval != 0xF3 {
		t.Errorf("DEV write: devval=%02X, want F3", tbl.devval)
	}
	tbl.wantRead8(0x4100, 0x00) // write-only
	tbl.Bus.Write8(0x4107, 0x01)
	if tbl.devval != 0x06 {
		t.Errorf("WoDEV write: devval=%02X, want 06", tbl.devval)
	}

	// Unmapped
	tbl.wantRead8(0x3000, 0x00)
	tbl.Bus.Write8(0x3000, 0xFF)
	tbl.wantRead8(0x3000, 0x00)
}

func TestTableUnmap(t *testing.T) {
	tbl := newTestTable(t)

	tbl.Bus.Unmap(0x2000, 0x2FFF)
	tbl.wantRead8(0x2000, 0x00)
	tbl.wantRead8(0x4005, 0xE5)
}

func TestTableOverlapPanics(t *testing.T) {
	tbl := hwio.NewTable("bus")
	tbl.MapMem(0x1000, hwio.NewMem("a", 0x100, 0))

	defer func() {
		if recover() == nil {
			t.Fatal("overlapping mapping should panic")
		}
	}()
	tbl.MapMem(0x10FF, hwio.NewMem("b", 0x100, 0))
}

type badCallback struct {
	Reg hwio.Reg8 `hwio:"offset=0,rcb"`
}

func (b *badCallback) ReadREG(addr uint32) uint8 { return 0 }

func TestInitRegsErrors(t *testing.T) {
	if err := hwio.InitRegs(badCallback{}); err == nil {
		t.Errorf("InitRegs should reject non-pointer")
	}
	if err := hwio.InitRegs(&badCallback{}); err == nil {
		t.Errorf("InitRegs should reject callback with wrong signature")
	}

	var missing struct {
		Reg hwio.Reg8 `hwio:"offset=0,wcb"`
	}
	if err := hwio.InitRegs(&missing); err == nil {
		t.Errorf("InitRegs should reject missing callback")
	}
}

func TestMem(t *testing.T) {
	m := hwio.NewMem("ram", 16, hwio.MemFlagReadWrite)

	m.Write32(0, 0x11223344)
	if m.Data[0] != 0x44 || m.Data[3] != 0x11 {
		t.Errorf("Write32 is not little endian: % x", m.Data[:4])
	}
	if got := m.Read16(2); got != 0x1122 {
		t.Errorf("Read16(2) = %04X, want 1122", got)
	}

	// Mirroring and wrap around.
	m.Write64(12, 0x0807060504030201)
	if got := m.Read8(16 + 12); got != 0x01 {
		t.Errorf("mirrored Read8 = %02X, want 01", got)
	}
	if m.Data[3] != 0x08 {
		t.Errorf("Write64 should wrap around: Data[3] = %02X", m.Data[3])
	}
	if got := m.Read64(12); got != 0x0807060504030201 {
		t.Errorf("Read64(12) = %016X", got)
	}

	// Bit addressing.
	m.Write8(5, 0)
	m.Write1(5*8+3, true)
	if !m.Read1(5*8+3) || m.Read8(5) != 0x08 {
		t.Errorf("Write1 failed: %02X", m.Read8(5))
	}
	m.Write1(5*8+3, false)
	if m.Read1(5*8+3) {
		t.Errorf("bit not cleared")
	}

	m.Reset()
	for i, b := range m.Data {
		if b != 0 {
			t.Fatalf("Reset didn't clear byte %d", i)
		}
	}
}

func TestMemDMA(t *testing.T) {
	m := hwio.NewMem("ram", 8, hwio.MemFlagReadWrite)

	src := []byte{0xAA, 1, 2, 3, 4, 5, 6}
	m.WriteDMA(4, src, 1, 6)
	if m.Data[4] != 1 || m.Data[7] != 4 {
		t.Errorf("WriteDMA: % x", m.Data)
	}

	dst := make([]byte, 6)
	dst[5] = 0xFF
	m.ReadDMA(4, dst, 2, 4)
	want := []byte{0, 0, 1, 2, 3, 4}
	for i := range want {
		if dst[i] != want[i] {
			t.Fatalf("ReadDMA = % x, want % x", dst, want)
		}
	}

	// Past end of buffer is zero filled.
	dst = []byte{9, 9, 9, 9}
	m.ReadDMA(6, dst, 0, 4)
	if dst[0] != 3 || dst[1] != 4 || dst[2] != 0 || dst[3] != 0 {
		t.Errorf("ReadDMA past end = % x", dst)
	}
}

func TestROM(t *testing.T) {
	rom := hwio.NewMemFromData("rom", []byte{1, 2, 3, 4}, hwio.MemFlagReadOnly|hwio.MemFlagNoROLog)
	rom.Write8(0, 0xFF)
	rom.Write32(0, 0xFFFFFFFF)
	rom.WriteDMA(0, []byte{9, 9}, 0, 2)
	rom.Reset()
	if rom.Read32(0) != 0x04030201 {
		t.Errorf("ROM was modified: % x", rom.Data)
	}

	if err := rom.Connect(0, rom); !errors.Is(err, hwio.ErrInvalidPort) {
		t.Errorf("Connect = %v, want ErrInvalidPort", err)
	}
}

func TestNonPow2MemPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("NewMem should panic on non power of 2 size")
		}
	}()
	hwio.NewMem("bad", 3, 0)
}
