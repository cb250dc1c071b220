package synth

import "chipset/hw/hwio"

// Engine is the sound-generation core wrapped by Synth. Its implementation is
// opaque to the wrapper: the wrapper only decides when to step it and where its
// samples go.
type Engine interface {
	// PowerUp initializes the engine against the memory it reads sample data
	// from.
	PowerUp(mem hwio.Bus8)

	// Reset resets the engine. A hard reset also clears its registers.
	Reset(hard bool)

	// Step executes a single micro-step and appends the produced samples, if
	// any, to out. Samples are interleaved left/right.
	Step(out []int16) []int16

	ReadRegister(addr uint32) uint8
	WriteRegister(addr uint32, val uint8)

	// StepCycles is the fixed number of clock ticks a micro-step takes.
	StepCycles() int64
}

// ChannelMuter is implemented by engines supporting per-channel muting.
type ChannelMuter interface {
	SetChannelEnabled(ch int, enabled bool)
}
