package pcm

// envelopePeriod is the number of output frames between envelope clocks
// (125Hz at the nominal clock).
const envelopePeriod = 256

// envelope is a decaying volume envelope, controlled by the channel ENV
// register:
//
//	bit 5     loop: restart at full level after reaching 0
//	bit 4     constant level, the envelope is disabled
//	bits 0-3  divider period, in envelope clocks
type envelope struct {
	constant bool
	loop     bool
	period   uint8

	divider int8
	counter uint8
}

func (env *envelope) init(reg uint8) {
	env.loop = reg&0x20 == 0x20
	env.constant = reg&0x10 == 0x10
	env.period = reg & 0x0F
}

// restart sets the envelope back to its full level.
func (env *envelope) restart() {
	env.counter = 15
	env.divider = int8(env.period)
}

func (env *envelope) reset() {
	env.constant = false
	env.loop = false
	env.period = 0
	env.divider = 0
	env.counter = 0
}

// level returns the current level, between 0 and 15.
func (env *envelope) level() int32 {
	if env.constant {
		return 15
	}
	return int32(env.counter)
}

func (env *envelope) tick() {
	env.divider--
	if env.divider >= 0 {
		return
	}
	env.divider = int8(env.period)
	if env.counter > 0 {
		env.counter--
	} else if env.loop {
		env.counter = 15
	}
}
