//go:build !headless

package host

import (
	"time"

	"github.com/ebitengine/oto/v3"
	"github.com/pkg/errors"

	"chipset/emu/log"
)

// Player queues audio for the host sound device.
type Player struct {
	*buffer

	ctx    *oto.Context
	player *oto.Player
}

// NewPlayer opens the host audio device. The amount of queued audio is bounded
// by latency.
func NewPlayer(sampleRate int, latency time.Duration) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: Channels,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   latency / 2,
	})
	if err != nil {
		return nil, errors.Wrap(err, "host audio")
	}
	<-ready

	p := &Player{
		buffer: newBuffer(sampleRate, latency),
		ctx:    ctx,
	}
	p.player = ctx.NewPlayer(p.buffer)
	p.player.Play()

	log.ModSound.InfoZ("host audio ready").
		Int("rate", sampleRate).
		Duration("latency", latency).
		End()
	return p, nil
}

func (p *Player) Close() error {
	dropped, starved := p.counters()
	log.ModSound.DebugZ("host audio closed").
		Uint64("dropped", dropped).
		Uint64("starved", starved).
		End()
	return p.player.Close()
}
