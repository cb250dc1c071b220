package synth

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/Sirupsen/logrus.v0"

	"chipset/emu/log"
	"chipset/hw/hwio"
)

// scriptEngine emits the scripted samples, one script entry per step.
type scriptEngine struct {
	cost    int64
	script  [][]int16
	steps   int
	regs    [4]uint8
	mem     hwio.Bus8
	resets  []bool
	powerUp int
	muted   map[int]bool
}

func (e *scriptEngine) PowerUp(mem hwio.Bus8) { e.mem = mem; e.powerUp++ }
func (e *scriptEngine) Reset(hard bool)       { e.resets = append(e.resets, hard) }
func (e *scriptEngine) StepCycles() int64     { return e.cost }

func (e *scriptEngine) Step(out []int16) []int16 {
	if len(e.script) > 0 {
		out = append(out, e.script[e.steps%len(e.script)]...)
	}
	e.steps++
	return out
}

func (e *scriptEngine) ReadRegister(addr uint32) uint8 {
	if addr < uint32(len(e.regs)) {
		return e.regs[addr]
	}
	return 0
}

func (e *scriptEngine) WriteRegister(addr uint32, val uint8) {
	if addr < uint32(len(e.regs)) {
		e.regs[addr] = val
	}
}

func (e *scriptEngine) SetChannelEnabled(ch int, on bool) {
	if e.muted == nil {
		e.muted = make(map[int]bool)
	}
	e.muted[ch] = !on
}

// recorder records 32-bit bus writes.
type recorder struct {
	writes []uint32
	addrs  []uint32
}

func (r *recorder) Read32(addr uint32) uint32 { return 0 }

func (r *recorder) Write32(addr uint32, val uint32) {
	r.addrs = append(r.addrs, addr)
	r.writes = append(r.writes, val)
}

func newTestSynth(t *testing.T, cost int64, script ...[]int16) (*Synth, *scriptEngine, *recorder) {
	t.Helper()

	eng := &scriptEngine{cost: cost, script: script}
	s := New("test", eng)
	out := &recorder{}
	if err := s.Connect(PortMemory, hwio.NewMem("rom", 16, hwio.MemFlagReadOnly)); err != nil {
		t.Fatal(err)
	}
	if err := s.Connect(PortOutput, out); err != nil {
		t.Fatal(err)
	}
	return s, eng, out
}

func TestClockSteps(t *testing.T) {
	tests := []struct {
		name      string
		cost      int64
		ticks     []int64
		wantSteps int
		wantDebt  int64
	}{
		{"single tick", 4, []int64{1}, 1, 3},
		{"exact", 4, []int64{8}, 2, 0},
		{"partial", 4, []int64{9}, 3, 3},
		{"paid ahead", 4, []int64{1, 1, 1}, 1, 1},
		{"zero ticks", 4, []int64{0}, 0, 0},
		{"huge", 3, []int64{3_000_000}, 1_000_000, 0},
		{"unit cost", 1, []int64{5, 7}, 12, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, eng, _ := newTestSynth(t, tt.cost)
			for _, n := range tt.ticks {
				s.Clock(n)
			}
			if eng.steps != tt.wantSteps {
				t.Errorf("steps = %d, want %d", eng.steps, tt.wantSteps)
			}
			if s.Debt() != tt.wantDebt {
				t.Errorf("debt = %d, want %d", s.Debt(), tt.wantDebt)
			}
		})
	}
}

func TestClockAssociative(t *testing.T) {
	splits := [][2]int64{{0, 1000}, {1, 999}, {333, 667}, {500, 500}, {999, 1}, {7, 993}}

	s, _, ref := newTestSynth(t, 32, []int16{}, []int16{1, 2}, []int16{3, 4, 5, 6})
	s.Clock(1000)

	for _, sp := range splits {
		s, _, out := newTestSynth(t, 32, []int16{}, []int16{1, 2}, []int16{3, 4, 5, 6})
		s.Clock(sp[0])
		s.Clock(sp[1])
		if diff := cmp.Diff(ref.writes, out.writes); diff != "" {
			t.Errorf("Clock(%d)+Clock(%d) differs from Clock(1000) (-want +got):\n%s", sp[0], sp[1], diff)
		}
	}
}

func TestSamplesOrder(t *testing.T) {
	s, _, out := newTestSynth(t, 1,
		[]int16{0x1234, 0x5678},
		[]int16{},
		[]int16{-1, 2, 3, -4},
	)
	s.Clock(3)

	want := []uint32{0x12345678, 0xFFFF0002, 0x0003FFFC}
	if diff := cmp.Diff(want, out.writes); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
	for _, a := range out.addrs {
		if a != 0 {
			t.Fatalf("sample written at address %d, want 0", a)
		}
	}
}

func TestOddSampleCarried(t *testing.T) {
	s, _, out := newTestSynth(t, 1, []int16{10, 20, 30}, []int16{40})
	s.Clock(2)

	want := []uint32{
		hwio.PackStereo(10, 20),
		hwio.PackStereo(30, 40),
	}
	if diff := cmp.Diff(want, out.writes); diff != "" {
		t.Errorf("samples mismatch (-want +got):\n%s", diff)
	}
}

func TestConnectMemoryPowersUp(t *testing.T) {
	eng := &scriptEngine{cost: 2}
	s := New("test", eng)

	mem := hwio.NewMem("ram", 16, 0)
	if err := s.Connect(PortMemory, mem); err != nil {
		t.Fatal(err)
	}
	if eng.powerUp != 1 || eng.mem != mem {
		t.Errorf("engine not powered up against the memory bus")
	}
	if diff := cmp.Diff([]bool{true}, eng.resets); diff != "" {
		t.Errorf("resets mismatch (-want +got):\n%s", diff)
	}

	s.Clock(5)
	s.Reset()
	if s.Debt() != 0 {
		t.Errorf("debt after reset = %d", s.Debt())
	}
	if diff := cmp.Diff([]bool{true, false}, eng.resets); diff != "" {
		t.Errorf("resets mismatch (-want +got):\n%s", diff)
	}
}

type dmaOnly struct{}

func (dmaOnly) ReadDMA(uint32, []byte, int, int)  {}
func (dmaOnly) WriteDMA(uint32, []byte, int, int) {}

func TestConnectCapabilityMismatch(t *testing.T) {
	s, eng, out := newTestSynth(t, 1, []int16{1, 2})

	err := s.Connect(PortOutput, dmaOnly{})
	if !errors.Is(err, hwio.ErrCapabilityMismatch) {
		t.Fatalf("Connect(output, dmaOnly) = %v, want capability mismatch", err)
	}
	err = s.Connect(PortMemory, dmaOnly{})
	if !errors.Is(err, hwio.ErrCapabilityMismatch) {
		t.Fatalf("Connect(memory, dmaOnly) = %v, want capability mismatch", err)
	}
	if eng.powerUp != 1 {
		t.Errorf("failed connect powered up the engine")
	}

	// Previous bindings are untouched.
	s.Clock(1)
	if len(out.writes) != 1 {
		t.Errorf("output binding lost after failed connect: %d writes", len(out.writes))
	}

	if err := s.Connect(2, out); !errors.Is(err, hwio.ErrInvalidPort) {
		t.Errorf("Connect(2) = %v, want ErrInvalidPort", err)
	}
}

func TestRebindOutput(t *testing.T) {
	s, _, first := newTestSynth(t, 1, []int16{1, 2})
	s.Clock(1)

	second := &recorder{}
	if err := s.Connect(PortOutput, second); err != nil {
		t.Fatal(err)
	}
	s.Clock(2)

	if len(first.writes) != 1 || len(second.writes) != 2 {
		t.Errorf("writes: first=%d second=%d, want 1 and 2", len(first.writes), len(second.writes))
	}
}

func TestUnboundOutput(t *testing.T) {
	eng := &scriptEngine{cost: 1, script: [][]int16{{1, 2}}}
	s := New("test", eng)
	s.Clock(10)
	if eng.steps != 10 {
		t.Errorf("engine should advance without output: %d steps", eng.steps)
	}
}

func TestRegisterPassThrough(t *testing.T) {
	s, eng, _ := newTestSynth(t, 4)

	s.Write8(2, 0xAB)
	if eng.regs[2] != 0xAB || s.Read8(2) != 0xAB {
		t.Errorf("register write not forwarded")
	}
	if eng.steps != 0 || s.Debt() != 0 {
		t.Errorf("register access has timing side effects")
	}
	if s.Read8(100) != 0 {
		t.Errorf("unknown register should read 0")
	}
}

func TestChannelConfig(t *testing.T) {
	s, eng, _ := newTestSynth(t, 4)

	for ch := range NumChannels {
		if !s.ChannelEnabled(ch) {
			t.Fatalf("channel %d disabled by default", ch)
		}
	}
	if err := s.SetConfig("channel.3.enabled", false); err != nil {
		t.Fatal(err)
	}
	if s.ChannelEnabled(3) || !eng.muted[3] {
		t.Errorf("channel 3 not muted")
	}
	if got := s.GetConfig("channel.3.enabled"); got != false {
		t.Errorf("GetConfig = %v, want false", got)
	}
	if err := s.SetConfig("channel.3.enabled", 1); err == nil {
		t.Errorf("SetConfig with int should fail")
	}
	if got := s.GetConfig("step_cycles"); got != int64(4) {
		t.Errorf("step_cycles = %v, want 4", got)
	}
	if err := s.SetConfig("step_cycles", 8); !errors.Is(err, hwio.ErrReadOnly) {
		t.Errorf("SetConfig(step_cycles) = %v, want ErrReadOnly", err)
	}

	// Muting survives power-up.
	eng.muted = nil
	if err := s.Connect(PortMemory, hwio.NewMem("ram", 4, 0)); err != nil {
		t.Fatal(err)
	}
	if !eng.muted[3] {
		t.Errorf("channel 3 unmuted by power-up")
	}
}

func TestClockLog(t *testing.T) {
	var buf bytes.Buffer
	logrus.SetOutput(&buf)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	log.EnableDebugModules(log.ModClock.Mask())
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		log.DisableDebugModules(log.ModuleMaskAll)
	})

	s, _, _ := newTestSynth(t, 4)
	s.Clock(9)

	out := buf.String()
	for _, want := range []string{"_mod=clock", "synth=test", "ticks=9", "debt=3"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q doesn't contain %q", out, want)
		}
	}
}
