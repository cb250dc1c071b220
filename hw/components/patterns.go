package components

import "math"

// patternPeriod is the length, in samples, of a single waveform period.
const patternPeriod = 256

// patterns fill a memory with signed 8-bit waveforms, repeated over the whole
// buffer.
var patterns = map[string]func([]byte){
	"sine":   sine,
	"square": square,
	"saw":    saw,
	"noise":  noise,
}

func sine(buf []byte) {
	for i := range buf {
		phase := 2 * math.Pi * float64(i%patternPeriod) / patternPeriod
		buf[i] = byte(int8(math.Round(127 * math.Sin(phase))))
	}
}

func square(buf []byte) {
	hi, lo := int8(127), int8(-127)
	for i := range buf {
		if i%patternPeriod < patternPeriod/2 {
			buf[i] = byte(hi)
		} else {
			buf[i] = byte(lo)
		}
	}
}

func saw(buf []byte) {
	for i := range buf {
		buf[i] = byte(int8(i%patternPeriod - 128))
	}
}

// noise is a 15-bit LFSR, so the content is the same on every run.
func noise(buf []byte) {
	lfsr := uint16(0x7FFF)
	for i := range buf {
		var b byte
		for range 8 {
			bit := (lfsr ^ lfsr>>1) & 1
			lfsr = lfsr>>1 | bit<<14
			b = b<<1 | byte(lfsr&1)
		}
		buf[i] = b
	}
}
