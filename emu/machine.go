package emu

import (
	"context"
	"io"
	"slices"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"chipset/emu/log"
	"chipset/hw/components"
	"chipset/hw/hwio"
)

type poke struct {
	name string
	bus  hwio.Bus8
	addr uint32
	val  uint8
}

// Machine is a wired system. Its loop clocks the top component in chunks and
// polls the flush component after each of them.
type Machine struct {
	Name string

	// Pace, when set, throttles Run to the configured clock rate.
	Pace bool

	names      []string // sorted
	comps      map[string]any
	top        hwio.Clockable
	flush      hwio.Bus32
	flushEvery int64
	clockRate  int64
	pokes      []poke

	ticks   atomic.Int64
	flushes int
	flushed uint64

	// These are accessed concurrently by the machine loop and its controller.
	paused atomic.Bool
	stop   atomic.Bool
	reset  atomic.Bool
}

// Build instantiates the components of a system, configures and wires them.
//
// The build order is: construction, properties, reset, port connections (by
// component name, then port number) and finally pokes.
func Build(sys *SystemConfig) (*Machine, error) {
	m := &Machine{
		Name:       sys.Name,
		comps:      make(map[string]any, len(sys.Components)),
		flushEvery: sys.FlushEvery,
		clockRate:  sys.ClockRate,
	}
	if m.flushEvery <= 0 {
		m.flushEvery = DefaultFlushEvery
	}
	if m.clockRate <= 0 {
		m.clockRate = DefaultClockRate
	}
	for name := range sys.Components {
		m.names = append(m.names, name)
	}
	slices.Sort(m.names)

	if err := m.build(sys); err != nil {
		m.Close()
		return nil, errors.Wrapf(err, "build %s", sys.Name)
	}

	log.ModEmu.InfoZ("machine ready").
		String("system", m.Name).
		Int("components", len(m.comps)).
		Int64("clock_rate", m.clockRate).
		End()
	return m, nil
}

func (m *Machine) build(sys *SystemConfig) error {
	for _, name := range m.names {
		cc := sys.Components[name]
		desc, err := components.Lookup(cc.Type)
		if err != nil {
			return errors.Wrapf(err, "component %s", name)
		}
		c, err := desc.New(name, cc.Args)
		if err != nil {
			return errors.Wrapf(err, "component %s (%s)", name, cc.Type)
		}
		m.comps[name] = c
		log.ModEmu.DebugZ("component created").
			String("name", name).
			String("type", cc.Type).
			Stringer("caps", hwio.CapsOf(c)).
			End()
	}

	for _, name := range m.names {
		props := sys.Components[name].Props
		if len(props) == 0 {
			continue
		}
		cfg, ok := m.comps[name].(hwio.Configurable)
		if !ok {
			return errors.Errorf("component %s isn't configurable", name)
		}
		keys := make([]string, 0, len(props))
		for k := range props {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			if err := cfg.SetConfig(k, props[k]); err != nil {
				return errors.Wrapf(err, "component %s", name)
			}
		}
	}

	m.resetAll()

	for _, name := range m.names {
		if err := m.connect(name, sys.Components[name].Ports); err != nil {
			return errors.Wrapf(err, "component %s", name)
		}
	}

	var err error
	if m.top, err = hwio.Want[hwio.Clockable](0, m.comps[sys.Top], hwio.CapClock); err != nil {
		return errors.Wrapf(err, "top component %s", sys.Top)
	}
	if sys.Flush != "" {
		if m.flush, err = hwio.Want[hwio.Bus32](0, m.comps[sys.Flush], hwio.Cap32Bit); err != nil {
			return errors.Wrapf(err, "flush component %s", sys.Flush)
		}
	}

	for i, p := range sys.Pokes {
		bus, err := hwio.Want[hwio.Bus8](0, m.comps[p.Component], hwio.Cap8Bit)
		if err != nil {
			return errors.Wrapf(err, "poke #%d (%s)", i, p.Component)
		}
		m.pokes = append(m.pokes, poke{name: p.Component, bus: bus, addr: p.Addr, val: p.Value})
	}
	m.applyPokes()
	return nil
}

func (m *Machine) connect(name string, ports map[string]string) error {
	if len(ports) == 0 {
		return nil
	}
	hw, ok := m.comps[name].(hwio.Hardware)
	if !ok {
		return errors.Errorf("%T has no ports", m.comps[name])
	}

	nums := make([]int, 0, len(ports))
	for p := range ports {
		n, err := strconv.Atoi(p)
		if err != nil {
			return errors.Errorf("invalid port %q", p)
		}
		nums = append(nums, n)
	}
	slices.Sort(nums)

	for _, n := range nums {
		peer := ports[strconv.Itoa(n)]
		if err := hw.Connect(n, m.comps[peer]); err != nil {
			return errors.Wrapf(err, "connect to %s", peer)
		}
		log.ModEmu.DebugZ("connected").
			String("from", name).
			Int("port", n).
			String("to", peer).
			End()
	}
	return nil
}

func (m *Machine) resetAll() {
	for _, name := range m.names {
		if hw, ok := m.comps[name].(hwio.Hardware); ok {
			hw.Reset()
		}
	}
}

func (m *Machine) applyPokes() {
	for _, p := range m.pokes {
		p.bus.Write8(p.addr, p.val)
	}
}

// Component returns the named component, or nil.
func (m *Machine) Component(name string) any { return m.comps[name] }

// ComponentNames returns the component names, sorted.
func (m *Machine) ComponentNames() []string { return slices.Clone(m.names) }

func (m *Machine) AddLogContext(z *log.EntryZ) {
	z.Int64("tick", m.ticks.Load())
}

// Reset resets every component and replays the pokes.
func (m *Machine) Reset() {
	m.resetAll()
	m.applyPokes()
	log.ModEmu.InfoZ("machine reset").String("system", m.Name).End()
}

// Run clocks the machine for the given number of ticks, or until stopped if
// ticks is 0 or less. Cancellation is checked between chunks.
func (m *Machine) Run(ctx context.Context, ticks int64) error {
	log.AddContext(m)
	defer log.RemoveContext(m)

	var (
		done int64 // ticks run by this call

		// pacing baseline, moved forward after a pause
		paceStart = time.Now()
		paced     int64
	)
	for ticks <= 0 || done < ticks {
		if err := ctx.Err(); err != nil {
			return err
		}
		if m.stop.CompareAndSwap(true, false) {
			break
		}
		if m.reset.CompareAndSwap(true, false) {
			m.Reset()
		}
		if m.paused.Load() {
			// Don't burn cpu while paused.
			time.Sleep(10 * time.Millisecond)
			paceStart, paced = time.Now(), 0
			continue
		}

		n := m.flushEvery
		if ticks > 0 {
			n = min(n, ticks-done)
		}
		m.top.Clock(n)
		m.ticks.Add(n)
		done += n
		paced += n
		m.doFlush()

		if m.Pace {
			due := paceStart.Add(time.Duration(float64(paced) / float64(m.clockRate) * float64(time.Second)))
			if wait := time.Until(due); wait > 0 {
				select {
				case <-ctx.Done():
				case <-time.After(wait):
				}
			}
		}
	}
	return nil
}

func (m *Machine) doFlush() {
	if m.flush == nil {
		return
	}
	n := m.flush.Read32(0)
	m.flushes++
	m.flushed += uint64(n)
	log.ModDMA.DebugZ("flush").Uint64("bytes", uint64(n)).End()
}

// SetPause, Stop and RequestReset control the machine loop in a
// concurrent-safe way. A Stop ends the current Run, or the next one if none is
// running; later runs are unaffected.

func (m *Machine) SetPause(pause bool) { m.paused.Store(pause) }
func (m *Machine) Paused() bool        { return m.paused.Load() }
func (m *Machine) Stop()               { m.stop.Store(true) }
func (m *Machine) RequestReset()       { m.reset.Store(true) }

// Close closes the components implementing io.Closer. It returns the first
// error.
func (m *Machine) Close() error {
	var first error
	for _, name := range m.names {
		c, ok := m.comps[name].(io.Closer)
		if !ok {
			continue
		}
		if err := c.Close(); err != nil {
			log.ModEmu.WarnZ("close failed").String("name", name).Error("err", err).End()
			if first == nil {
				first = errors.Wrapf(err, "close %s", name)
			}
		}
	}
	return first
}

type Stats struct {
	Ticks        int64
	Flushes      int
	FlushedBytes uint64
	Dropped      map[string]uint64 // per sink
}

func (m *Machine) Stats() Stats {
	st := Stats{
		Ticks:        m.ticks.Load(),
		Flushes:      m.flushes,
		FlushedBytes: m.flushed,
		Dropped:      make(map[string]uint64),
	}
	for _, name := range m.names {
		if d, ok := m.comps[name].(interface{ Dropped() uint64 }); ok {
			st.Dropped[name] = d.Dropped()
		}
	}
	return st
}
