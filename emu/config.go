package emu

import (
	"bytes"
	_ "embed"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"

	"chipset/emu/log"
)

const (
	DefaultFlushEvery = 32768
	DefaultClockRate  = 1_024_000
)

// Config maps system names to their component graph.
type Config struct {
	System  string                   `toml:"system"`
	Systems map[string]*SystemConfig `toml:"systems"`
}

type SystemConfig struct {
	Name string `toml:"-"`

	Top        string `toml:"top"`         // clocked component
	Flush      string `toml:"flush"`       // component polled with Read32(0) after each chunk
	FlushEvery int64  `toml:"flush_every"` // ticks per chunk
	ClockRate  int64  `toml:"clock_rate"`  // ticks per second

	Components map[string]*ComponentConfig `toml:"components"`
	Pokes      []Poke                      `toml:"pokes"`
}

type ComponentConfig struct {
	Type  string            `toml:"type"`
	Args  map[string]any    `toml:"args"`
	Ports map[string]string `toml:"ports"` // port number -> component name
	Props map[string]any    `toml:"props"`
}

// Poke is an 8-bit bus write performed once the system is wired.
type Poke struct {
	Component string `toml:"component"`
	Addr      uint32 `toml:"addr"`
	Value     uint8  `toml:"value"`
}

//go:embed default.toml
var defaultConfig []byte

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	cfg, err := DecodeConfig(bytes.NewReader(defaultConfig))
	if err != nil {
		panic(fmt.Sprintf("invalid default config: %v", err))
	}
	return cfg
}

func LoadConfig(path string) (Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "load config")
	}
	defer f.Close()

	cfg, err := DecodeConfig(f)
	if err != nil {
		return Config{}, errors.Wrapf(err, "config %s", path)
	}
	return cfg, nil
}

// DecodeConfig decodes a TOML configuration. Unknown keys are rejected.
func DecodeConfig(r io.Reader) (Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(r).Decode(&cfg)
	if err != nil {
		return Config{}, err
	}
	var unknown []string
	for _, k := range md.Undecoded() {
		if !freeForm(k) {
			unknown = append(unknown, k.String())
		}
	}
	if len(unknown) > 0 {
		return Config{}, errors.Errorf("unknown keys: %s", strings.Join(unknown, ", "))
	}
	for name, sys := range cfg.Systems {
		sys.Name = name
	}
	return cfg, nil
}

// freeForm reports whether k lies in a component args or props table, whose
// keys are interpreted by the component itself.
func freeForm(k toml.Key) bool {
	// systems.<sys>.components.<name>.(args|props)...
	if len(k) < 5 || k[0] != "systems" || k[2] != "components" {
		return false
	}
	return k[4] == "args" || k[4] == "props"
}

// SystemNames returns the configured systems, sorted.
func (cfg Config) SystemNames() []string {
	names := make([]string, 0, len(cfg.Systems))
	for name := range cfg.Systems {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// SelectSystem returns the named system, or the default one if name is empty,
// with defaults applied.
func (cfg Config) SelectSystem(name string) (*SystemConfig, error) {
	if name == "" {
		name = cfg.System
	}
	sys, ok := cfg.Systems[name]
	if !ok {
		return nil, errors.Errorf("unknown system %q (available: %s)", name, strings.Join(cfg.SystemNames(), ", "))
	}
	if err := sys.check(); err != nil {
		return nil, errors.Wrapf(err, "system %s", name)
	}
	return sys, nil
}

func (sys *SystemConfig) check() error {
	if sys.FlushEvery == 0 {
		sys.FlushEvery = DefaultFlushEvery
	}
	if sys.ClockRate == 0 {
		sys.ClockRate = DefaultClockRate
	}
	if sys.FlushEvery < 0 || sys.ClockRate < 0 {
		return errors.Errorf("flush_every and clock_rate must be positive")
	}

	if sys.Top == "" {
		return errors.Errorf("no top component")
	}
	for _, name := range []string{sys.Top, sys.Flush} {
		if _, ok := sys.Components[name]; name != "" && !ok {
			return errors.Errorf("unknown component %q", name)
		}
	}
	for name, cc := range sys.Components {
		if cc.Type == "" {
			return errors.Errorf("component %s: missing type", name)
		}
		for port, peer := range cc.Ports {
			if _, ok := sys.Components[peer]; !ok {
				return errors.Errorf("component %s: port %s: unknown component %q", name, port, peer)
			}
		}
	}
	for i, p := range sys.Pokes {
		if _, ok := sys.Components[p.Component]; !ok {
			return errors.Errorf("poke #%d: unknown component %q", i, p.Component)
		}
	}

	log.ModConfig.DebugZ("system config").
		String("name", sys.Name).
		String("top", sys.Top).
		String("flush", sys.Flush).
		Int("components", len(sys.Components)).
		End()
	return nil
}
