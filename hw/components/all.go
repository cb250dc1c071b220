// Package components maps component type names, as used in system
// configurations, to their constructors.
package components

import (
	"fmt"
	"os"
	"slices"
	"time"

	"chipset/emu/log"
	"chipset/hw/audio"
	"chipset/hw/audio/host"
	"chipset/hw/dma"
	"chipset/hw/hwio"
	"chipset/hw/pcm"
	"chipset/hw/synth"
)

var modComponents = log.NewModule("components")

// Args holds the construction arguments of a component, as decoded from the
// configuration.
type Args map[string]any

type Desc struct {
	Name string
	Help string
	New  func(name string, args Args) (any, error)
}

var All = map[string]Desc{
	Mem.Name:       Mem,
	SynthPCM.Name:  SynthPCM,
	DMASink.Name:   DMASink,
	Resampler.Name: Resampler,
	WAV.Name:       WAV,
	Null.Name:      Null,
}

func Lookup(typ string) (Desc, error) {
	desc, ok := All[typ]
	if !ok {
		return Desc{}, fmt.Errorf("unknown component type %q", typ)
	}
	return desc, nil
}

// Names returns the registered type names, sorted.
func Names() []string {
	names := make([]string, 0, len(All))
	for name := range All {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

var Mem = Desc{
	Name: "mem",
	Help: "linear memory (size, file, pattern, readonly)",
	New:  newMem,
}

func newMem(name string, args Args) (any, error) {
	size, err := args.Int("size", 0x10000)
	if err != nil {
		return nil, err
	}
	file, err := args.String("file", "")
	if err != nil {
		return nil, err
	}
	pattern, err := args.String("pattern", "")
	if err != nil {
		return nil, err
	}

	var data []byte
	switch {
	case file != "" && pattern != "":
		return nil, fmt.Errorf("file and pattern are mutually exclusive")
	case file != "":
		if data, err = os.ReadFile(file); err != nil {
			return nil, err
		}
		size = max(size, len(data))
	case pattern != "":
		gen, ok := patterns[pattern]
		if !ok {
			return nil, fmt.Errorf("unknown pattern %q", pattern)
		}
		data = make([]byte, size)
		gen(data)
	}

	// Preloaded memories default to read-only so that Reset keeps their content.
	readonly, err := args.Bool("readonly", data != nil)
	if err != nil {
		return nil, err
	}

	if size <= 0 {
		return nil, fmt.Errorf("invalid size %d", size)
	}
	buf := make([]byte, nextpow2(size))
	copy(buf, data)

	var flags hwio.MemFlags
	if readonly {
		flags |= hwio.MemFlagReadOnly
	}
	modComponents.DebugZ("new memory").
		String("name", name).
		Int("size", len(buf)).
		Bool("readonly", readonly).
		End()
	return hwio.NewMemFromData(name, buf, flags), nil
}

func nextpow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

var SynthPCM = Desc{
	Name: "synth.pcm",
	Help: "8-channel PCM synthesizer (port 0: sample memory, port 1: output)",
	New: func(name string, _ Args) (any, error) {
		return synth.New(name, pcm.New()), nil
	},
}

var DMASink = Desc{
	Name: "dmasink",
	Help: "stereo frame buffer flushed through DMA (capacity, port 0: output)",
	New: func(name string, args Args) (any, error) {
		capacity, err := args.Int("capacity", dma.DefaultCapacity)
		if err != nil {
			return nil, err
		}
		if capacity < 4 {
			return nil, fmt.Errorf("invalid capacity %d", capacity)
		}
		return dma.NewSink(name, capacity), nil
	},
}

var Resampler = Desc{
	Name: "resampler",
	Help: "plays frames on the host audio device (rate, frame_rate, latency_ms)",
	New: func(name string, args Args) (any, error) {
		rate, err := args.Int("rate", 48000)
		if err != nil {
			return nil, err
		}
		frameRate, err := args.Int("frame_rate", pcm.SampleRate)
		if err != nil {
			return nil, err
		}
		latency, err := args.Int("latency_ms", int(host.DefaultLatency/time.Millisecond))
		if err != nil {
			return nil, err
		}
		player, err := host.NewPlayer(rate, time.Duration(latency)*time.Millisecond)
		if err != nil {
			return nil, err
		}
		r, err := audio.NewResampler(name, frameRate, rate, player)
		if err != nil {
			player.Close()
			return nil, err
		}
		return r, nil
	},
}

var WAV = Desc{
	Name: "wav",
	Help: "records frames to a WAV file (path, rate)",
	New: func(name string, args Args) (any, error) {
		path, err := args.String("path", "")
		if err != nil {
			return nil, err
		}
		if path == "" {
			return nil, fmt.Errorf("missing path")
		}
		rate, err := args.Int("rate", pcm.SampleRate)
		if err != nil {
			return nil, err
		}
		return audio.CreateWAV(name, path, rate)
	},
}

var Null = Desc{
	Name: "null",
	Help: "discards frames",
	New: func(name string, _ Args) (any, error) {
		return &audio.Null{Name: name}, nil
	},
}
