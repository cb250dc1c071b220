package main

import (
	"context"
	"os"
	"syscall"
	"testing"

	"github.com/alecthomas/kong"

	"chipset/emu"
	"chipset/emu/log"
)

func TestRedirectToWAV(t *testing.T) {
	sys, err := emu.DefaultConfig().SelectSystem("pcm")
	if err != nil {
		t.Fatal(err)
	}
	if err := redirectToWAV(sys, "out.wav"); err != nil {
		t.Fatal(err)
	}

	if got := sys.Components[sys.Flush].Ports["0"]; got != "wav" {
		t.Errorf("flush output = %q, want wav", got)
	}
	wav, ok := sys.Components["wav"]
	if !ok || wav.Type != "wav" || wav.Args["path"] != "out.wav" {
		t.Errorf("wav component = %+v", wav)
	}
	if _, ok := sys.Components["out"]; ok {
		t.Errorf("previous output still present")
	}

	if err := redirectToWAV(sys, "again.wav"); err == nil {
		t.Errorf("second redirect should fail")
	}
}

func TestLogFlag(t *testing.T) {
	defer log.DisableDebugModules(log.ModuleMaskAll)

	var cli struct {
		Log logModMask
	}
	parser, err := kong.New(&cli)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := parser.Parse([]string{"--log=bus,dma"}); err != nil {
		t.Fatal(err)
	}
	if !log.ModBus.Enabled(log.DebugLevel) || !log.ModDMA.Enabled(log.DebugLevel) {
		t.Errorf("bus and dma debug logs not enabled")
	}
	if log.ModSound.Enabled(log.DebugLevel) {
		t.Errorf("sound debug logs enabled")
	}

	for _, bad := range []string{"--log=nope", "--log=all,no", "--log=no,bus"} {
		if _, err := parser.Parse([]string{bad}); err == nil {
			t.Errorf("Parse(%s) should fail", bad)
		}
	}
}

type fakeControl struct {
	paused bool
	resets int
}

func (c *fakeControl) SetPause(p bool) { c.paused = p }
func (c *fakeControl) Paused() bool    { return c.paused }
func (c *fakeControl) RequestReset()   { c.resets++ }

func TestControlLoop(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sigs := make(chan os.Signal)
	m := &fakeControl{}

	done := make(chan struct{})
	go func() {
		defer close(done)
		controlLoop(ctx, m, sigs)
	}()

	sigs <- syscall.SIGUSR1
	sigs <- syscall.SIGUSR2
	sigs <- syscall.SIGUSR1
	sigs <- syscall.SIGUSR1
	cancel()
	<-done

	if !m.paused || m.resets != 1 {
		t.Errorf("paused = %t, resets = %d, want true, 1", m.paused, m.resets)
	}
}
