// Package pcm implements an 8-channel PCM sample player. Sample data are
// signed 8-bit bytes fetched through a memory bus.
//
// Register map:
//
//	$00-$7F   channel banks, 16 bytes per channel (see channel)
//	$80       KEYON   write: start channels, read: active channels mask
//	$81       KEYOFF  write: stop channels
//	$82       MVOL    master volume
//
// The engine processes one channel slot per micro-step. A stereo sample pair
// is produced every NumChannels steps. Channel volumes are scaled by a
// per-channel envelope, clocked every 256 output frames.
package pcm

import (
	"chipset/emu/log"
	"chipset/hw/hwio"
)

const (
	NumChannels   = 8
	CyclesPerSlot = 4

	// NominalClock is the clock the chip is designed to be driven at.
	NominalClock = 1_024_000
	SampleRate   = NominalClock / (CyclesPerSlot * NumChannels)
)

var modPCM = log.NewModule("pcm")

type channel struct {
	ADDRH  hwio.Reg8 `hwio:"offset=0x0"`
	ADDRM  hwio.Reg8 `hwio:"offset=0x1"`
	ADDRL  hwio.Reg8 `hwio:"offset=0x2"`
	LENH   hwio.Reg8 `hwio:"offset=0x3"`
	LENL   hwio.Reg8 `hwio:"offset=0x4"`
	LOOPH  hwio.Reg8 `hwio:"offset=0x5"`
	LOOPL  hwio.Reg8 `hwio:"offset=0x6"`
	PITCHH hwio.Reg8 `hwio:"offset=0x7,reset=0x01"`
	PITCHL hwio.Reg8 `hwio:"offset=0x8"`
	VOLL   hwio.Reg8 `hwio:"offset=0x9"`
	VOLR   hwio.Reg8 `hwio:"offset=0xA"`
	CTRL   hwio.Reg8 `hwio:"offset=0xB,rwmask=0x01"` // bit 0: loop
	POSH   hwio.Reg8 `hwio:"offset=0xC,readonly,rcb"`
	POSL   hwio.Reg8 `hwio:"offset=0xD,readonly,rcb"`
	ENV    hwio.Reg8 `hwio:"offset=0xE,reset=0x10,wcb"` // see envelope

	active bool
	muted  bool
	pos    uint32 // 24.8 fixed point, relative to start address
	env    envelope
}

func (c *channel) regs() []*hwio.Reg8 {
	return []*hwio.Reg8{
		&c.ADDRH, &c.ADDRM, &c.ADDRL,
		&c.LENH, &c.LENL, &c.LOOPH, &c.LOOPL,
		&c.PITCHH, &c.PITCHL, &c.VOLL, &c.VOLR,
		&c.CTRL, &c.POSH, &c.POSL, &c.ENV,
	}
}

func (c *channel) ReadPOSH(uint8) uint8 { return uint8(c.pos >> 16) }
func (c *channel) ReadPOSL(uint8) uint8 { return uint8(c.pos >> 8) }

func (c *channel) WriteENV(_, val uint8) { c.env.init(val) }

func (c *channel) start() uint32 {
	return uint32(c.ADDRH.Value)<<16 | uint32(c.ADDRM.Value)<<8 | uint32(c.ADDRL.Value)
}

func (c *channel) length() uint32 { return uint32(c.LENH.Value)<<8 | uint32(c.LENL.Value) }
func (c *channel) loop() uint32   { return uint32(c.LOOPH.Value)<<8 | uint32(c.LOOPL.Value) }
func (c *channel) pitch() uint32  { return uint32(c.PITCHH.Value)<<8 | uint32(c.PITCHL.Value) }
func (c *channel) loops() bool    { return hwio.GetBit8(c.CTRL.Value, 0) }

func (c *channel) keyOn() {
	c.pos = 0
	c.active = c.length() != 0
	c.env.restart()
}

func (c *channel) advance() {
	c.pos += c.pitch()

	length := c.length()
	if c.pos>>8 < length {
		return
	}
	loop := c.loop()
	if !c.loops() || loop >= length {
		c.active = false
		return
	}
	// Keep the fractional overshoot so that looping stays in tune.
	span := (length - loop) << 8
	for c.pos>>8 >= length {
		c.pos -= span
	}
}

// Engine is the PCM chip core. It implements synth.Engine.
type Engine struct {
	mem hwio.Bus8
	bus *hwio.Table
	ch  [NumChannels]channel

	KEYON  hwio.Reg8 `hwio:"offset=0x80,rcb,wcb"`
	KEYOFF hwio.Reg8 `hwio:"offset=0x81,writeonly,wcb"`
	MVOL   hwio.Reg8 `hwio:"offset=0x82,reset=0xFF"`

	slot       int
	frames     int // output frames since the last envelope clock
	accL, accR int32
}

func New() *Engine {
	e := &Engine{bus: hwio.NewTable("pcm")}
	hwio.MustInitRegs(e)
	e.bus.MapBank(0, e, 0)
	for i := range e.ch {
		hwio.MustInitRegs(&e.ch[i])
		e.ch[i].env.init(e.ch[i].ENV.Value)
		e.bus.MapBank(uint32(i)*0x10, &e.ch[i], 0)
	}
	return e
}

func (e *Engine) ReadKEYON(uint8) uint8 {
	var mask uint8
	for i := range e.ch {
		if e.ch[i].active {
			hwio.SetBit8(&mask, uint(i))
		}
	}
	return mask
}

func (e *Engine) WriteKEYON(_, val uint8) {
	for i := range e.ch {
		if hwio.GetBit8(val, uint(i)) {
			e.ch[i].keyOn()
			modPCM.DebugZ("key on").
				Int("ch", i).
				Hex32("addr", e.ch[i].start()).
				Uint("len", uint(e.ch[i].length())).
				End()
		}
	}
}

func (e *Engine) WriteKEYOFF(_, val uint8) {
	for i := range e.ch {
		if hwio.GetBit8(val, uint(i)) {
			e.ch[i].active = false
		}
	}
}

func (e *Engine) PowerUp(mem hwio.Bus8) {
	e.mem = mem
}

func (e *Engine) Reset(hard bool) {
	for i := range e.ch {
		c := &e.ch[i]
		c.active = false
		c.pos = 0
		if hard {
			c.muted = false
			for _, r := range c.regs() {
				r.PowerOn()
			}
			c.env.reset()
			c.env.init(c.ENV.Value)
		}
	}
	if hard {
		e.KEYON.PowerOn()
		e.KEYOFF.PowerOn()
		e.MVOL.PowerOn()
	}
	e.slot = 0
	e.frames = 0
	e.accL, e.accR = 0, 0
}

func (e *Engine) StepCycles() int64 { return CyclesPerSlot }

func (e *Engine) ReadRegister(addr uint32) uint8 { return e.bus.Read8(addr) }

func (e *Engine) WriteRegister(addr uint32, val uint8) { e.bus.Write8(addr, val) }

func (e *Engine) SetChannelEnabled(ch int, enabled bool) {
	if ch >= 0 && ch < NumChannels {
		e.ch[ch].muted = !enabled
	}
}

func (e *Engine) fetch(addr uint32) int32 {
	if e.mem == nil {
		return 0
	}
	return int32(int8(e.mem.Read8(addr)))
}

func (e *Engine) Step(out []int16) []int16 {
	c := &e.ch[e.slot]
	if c.active {
		smp := e.fetch(c.start() + c.pos>>8)
		if !c.muted {
			lvl := c.env.level()
			e.accL += smp * int32(c.VOLL.Value) * lvl / 15
			e.accR += smp * int32(c.VOLR.Value) * lvl / 15
		}
		c.advance()
	}

	e.slot++
	if e.slot < NumChannels {
		return out
	}

	e.slot = 0
	out = append(out, e.mix(e.accL), e.mix(e.accR))
	e.accL, e.accR = 0, 0

	e.frames++
	if e.frames == envelopePeriod {
		e.frames = 0
		for i := range e.ch {
			e.ch[i].env.tick()
		}
	}
	return out
}

func (e *Engine) mix(acc int32) int16 {
	v := (acc * int32(e.MVOL.Value)) >> 9
	return int16(min(max(v, -32768), 32767))
}
