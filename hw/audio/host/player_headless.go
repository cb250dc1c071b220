//go:build headless

package host

import "time"

type Player struct{}

func NewPlayer(sampleRate int, latency time.Duration) (*Player, error) {
	return &Player{}, nil
}

func (p *Player) QueueAudio(buf []byte) error { return nil }
func (p *Player) Pending() int                { return 0 }
func (p *Player) Close() error                { return nil }
