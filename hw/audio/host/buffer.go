// Package host plays audio on the host sound device.
//
// Building with the headless tag replaces the device with a player discarding
// everything it's given.
package host

import (
	"sync"
	"time"
)

const (
	Channels       = 2
	BytesPerSample = 2

	DefaultLatency = 100 * time.Millisecond
)

// buffer is a bounded byte FIFO shared between the emulation goroutine, which
// queues audio, and the audio device goroutine, which reads it. When full, the
// oldest bytes are dropped to keep latency bounded.
type buffer struct {
	mu      sync.Mutex
	data    []byte
	max     int
	dropped uint64
	starved uint64
}

func newBuffer(sampleRate int, latency time.Duration) *buffer {
	frame := Channels * BytesPerSample
	n := int(int64(sampleRate) * int64(latency) / int64(time.Second))
	return &buffer{max: max(n, 1) * frame}
}

func (b *buffer) QueueAudio(p []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.data = append(b.data, p...)
	if over := len(b.data) - b.max; over > 0 {
		// drop whole frames only
		over += (Channels*BytesPerSample - over%(Channels*BytesPerSample)) % (Channels * BytesPerSample)
		b.data = b.data[:copy(b.data, b.data[over:])]
		b.dropped += uint64(over)
	}
	return nil
}

// Read implements io.Reader. Missing data is replaced with silence, so Read
// always fills p.
func (b *buffer) Read(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := copy(p, b.data)
	b.data = b.data[:copy(b.data, b.data[n:])]
	if n < len(p) {
		clear(p[n:])
		b.starved++
	}
	return len(p), nil
}

func (b *buffer) Pending() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.data)
}

func (b *buffer) counters() (dropped, starved uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped, b.starved
}
