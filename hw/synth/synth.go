// Package synth implements a clock-driven sound chip component, wrapping an
// audio engine and forwarding the samples it produces to an output bus.
package synth

import (
	"fmt"

	"chipset/emu/log"
	"chipset/hw/hwio"
)

const NumChannels = 8

const (
	PortMemory = 0 // hwio.Bus8 the engine reads sample data from
	PortOutput = 1 // hwio.Bus32 receiving packed stereo samples at address 0
)

// Synth is a Clockable component wrapping an Engine. It exposes the engine
// registers on its 8-bit bus.
//
// Synth keeps a clock debt: Clock subtracts elapsed ticks, and each engine
// step pays back StepCycles ticks. Every produced left/right pair is pushed,
// in order, to the output as hwio.PackStereo(left, right).
type Synth struct {
	Name string

	engine Engine
	cost   int64
	debt   int64

	mem hwio.Bus8
	out hwio.Bus32

	staging []int16
	enabled [NumChannels]bool

	hwio.Props
}

func New(name string, engine Engine) *Synth {
	s := &Synth{
		Name:    name,
		engine:  engine,
		cost:    engine.StepCycles(),
		staging: make([]int16, 0, 16),
	}
	if s.cost <= 0 {
		panic(fmt.Sprintf("synth %s: engine step must cost at least 1 tick, got %d", name, s.cost))
	}

	for ch := range NumChannels {
		s.enabled[ch] = true
		s.Props.Define(fmt.Sprintf("channel.%d.enabled", ch), true, func(v any) (any, error) {
			on, err := hwio.AsBool(v)
			if err != nil {
				return nil, err
			}
			s.setChannelEnabled(ch, on)
			return on, nil
		})
	}
	s.Props.DefineReadOnly("step_cycles", func() any { return s.cost })
	return s
}

func (s *Synth) setChannelEnabled(ch int, on bool) {
	s.enabled[ch] = on
	if m, ok := s.engine.(ChannelMuter); ok {
		m.SetChannelEnabled(ch, on)
	}
	log.ModSound.InfoZ("channel enable").String("synth", s.Name).Int("ch", ch).Bool("on", on).End()
}

// Connect binds the memory (port 0) and output (port 1) collaborators.
// Connecting the memory powers the engine up.
func (s *Synth) Connect(port int, peer any) error {
	switch port {
	case PortMemory:
		mem, err := hwio.Want[hwio.Bus8](port, peer, hwio.Cap8Bit)
		if err != nil {
			return err
		}
		s.mem = mem
		s.engine.PowerUp(mem)
		s.engine.Reset(true)
		s.staging = s.staging[:0]
		for ch, on := range s.enabled {
			if !on {
				s.setChannelEnabled(ch, on)
			}
		}
	case PortOutput:
		out, err := hwio.Want[hwio.Bus32](port, peer, hwio.Cap32Bit)
		if err != nil {
			return err
		}
		s.out = out
	default:
		return hwio.InvalidPort(s.Name, port)
	}

	log.ModSound.DebugZ("connected").String("synth", s.Name).Int("port", port).End()
	return nil
}

// Reset soft-resets the engine and clears the clock debt.
func (s *Synth) Reset() {
	s.engine.Reset(false)
	s.staging = s.staging[:0]
	s.debt = 0
}

func (s *Synth) Read8(addr uint32) uint8 {
	return s.engine.ReadRegister(addr)
}

func (s *Synth) Write8(addr uint32, val uint8) {
	s.engine.WriteRegister(addr, val)
}

// Clock advances the synth by the given number of ticks, stepping the engine
// as many times as needed to pay back the clock debt.
func (s *Synth) Clock(ticks int64) {
	s.debt -= ticks
	for s.debt < 0 {
		s.staging = s.engine.Step(s.staging)
		s.debt += s.cost

		if len(s.staging) >= 2 {
			s.push()
		}
	}
	log.ModClock.DebugZ("clocked").
		String("synth", s.Name).
		Int64("ticks", ticks).
		Int64("debt", s.debt).
		End()
}

// push forwards all complete sample pairs and keeps an odd trailing sample for
// the next step.
func (s *Synth) push() {
	n := len(s.staging) &^ 1
	if s.out != nil {
		for i := 0; i < n; i += 2 {
			s.out.Write32(0, hwio.PackStereo(s.staging[i], s.staging[i+1]))
		}
	}
	rest := copy(s.staging, s.staging[n:])
	s.staging = s.staging[:rest]
}

// Debt returns the current clock debt, in ticks. Once Clock returns, it lies in
// [0, StepCycles).
func (s *Synth) Debt() int64 { return s.debt }

func (s *Synth) ChannelEnabled(ch int) bool { return s.enabled[ch] }
