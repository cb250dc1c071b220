// Package audio provides DMA collaborators consuming the stereo frames flushed
// by a sound sink: a resampler feeding the host audio device, a WAV writer and
// a null device.
//
// Frames are 4 bytes, big-endian 16-bit signed samples, left then right.
package audio

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/arl/blip"

	"chipset/emu/log"
	"chipset/hw/hwio"
)

const FrameSize = 4

// Queue receives interleaved stereo signed 16-bit little-endian samples. buf
// is only valid for the duration of the call.
type Queue interface {
	QueueAudio(buf []byte) error
}

// frames calls fn for every complete frame in buf[off:off+n].
func frames(buf []byte, off, n int, fn func(i int, l, r int16)) int {
	count := n / FrameSize
	for i := range count {
		l, r := hwio.UnpackStereo(binary.BigEndian.Uint32(buf[off+i*FrameSize:]))
		fn(i, l, r)
	}
	if n%FrameSize != 0 {
		log.ModSound.DebugZ("ignoring partial frame").Int("bytes", n%FrameSize).End()
	}
	return count
}

const (
	// blip clocks per input frame, so that the band-limited steps are placed at
	// a higher resolution than the output rate.
	clocksPerFrame = 32

	// frames processed per blip frame
	chunkFrames = 512
)

// Resampler converts frames produced at the chip sample rate to the host
// sample rate, using band-limited synthesis, and queues the result.
type Resampler struct {
	Name string

	left, right  *blip.Buffer
	prevL, prevR int16

	out   []int16
	bytes []byte
	q     Queue

	frameRate, hostRate int
}

func NewResampler(name string, frameRate, hostRate int, q Queue) (*Resampler, error) {
	if frameRate <= 0 || hostRate <= 0 {
		return nil, fmt.Errorf("resampler %s: invalid rates %d -> %d", name, frameRate, hostRate)
	}

	size := chunkFrames*hostRate/frameRate + 64
	r := &Resampler{
		Name:      name,
		left:      blip.NewBuffer(size),
		right:     blip.NewBuffer(size),
		out:       make([]int16, 2*size),
		bytes:     make([]byte, 0, 4*size),
		q:         q,
		frameRate: frameRate,
		hostRate:  hostRate,
	}
	r.left.SetRates(float64(frameRate*clocksPerFrame), float64(hostRate))
	r.right.SetRates(float64(frameRate*clocksPerFrame), float64(hostRate))
	return r, nil
}

func (r *Resampler) Connect(port int, peer any) error {
	return hwio.InvalidPort(r.Name, port)
}

func (r *Resampler) Reset() {
	r.left.Clear()
	r.right.Clear()
	r.prevL, r.prevR = 0, 0
}

// Close closes the queue if it's an io.Closer.
func (r *Resampler) Close() error {
	if c, ok := r.q.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (r *Resampler) ReadDMA(addr uint32, buf []byte, off, n int) {
	clear(buf[off : off+n])
}

func (r *Resampler) WriteDMA(addr uint32, buf []byte, off, n int) {
	for n >= FrameSize {
		chunk := min(n-n%FrameSize, chunkFrames*FrameSize)
		r.resample(buf, off, chunk)
		off += chunk
		n -= chunk
	}
}

func (r *Resampler) resample(buf []byte, off, n int) {
	count := frames(buf, off, n, func(i int, left, right int16) {
		t := uint64(i * clocksPerFrame)
		if left != r.prevL {
			r.left.AddDelta(t, int32(left)-int32(r.prevL))
			r.prevL = left
		}
		if right != r.prevR {
			r.right.AddDelta(t, int32(right)-int32(r.prevR))
			r.prevR = right
		}
	})
	r.left.EndFrame(count * clocksPerFrame)
	r.right.EndFrame(count * clocksPerFrame)

	nsamples := r.left.ReadSamples(r.out, len(r.out)/2, blip.Stereo)
	r.right.ReadSamples(r.out[1:], len(r.out)/2, blip.Stereo)
	if nsamples == 0 {
		return
	}

	r.bytes = r.bytes[:0]
	for _, s := range r.out[:2*nsamples] {
		r.bytes = binary.LittleEndian.AppendUint16(r.bytes, uint16(s))
	}
	if r.q == nil {
		return
	}
	if err := r.q.QueueAudio(r.bytes); err != nil {
		log.ModSound.DebugZ("failed to queue audio buffer").Error("err", err).End()
	}
}
