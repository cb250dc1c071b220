package log

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"

	"gopkg.in/Sirupsen/logrus.v0"
)

func captureLogs(t *testing.T) *bytes.Buffer {
	t.Helper()

	buf := &bytes.Buffer{}
	logrus.SetOutput(buf)
	logrus.SetFormatter(&logrus.TextFormatter{DisableColors: true})
	t.Cleanup(func() {
		logrus.SetOutput(os.Stderr)
		DisableDebugModules(ModuleMaskAll)
		disabled = false
	})
	return buf
}

type tickContext struct{ tick int64 }

func (c *tickContext) AddLogContext(z *EntryZ) { z.Int64("tick", c.tick) }

func TestDisabledEntryIsNil(t *testing.T) {
	buf := captureLogs(t)

	z := ModSound.DebugZ("not shown")
	if z != nil {
		t.Fatalf("DebugZ on disabled module returned non-nil entry")
	}

	// Chaining on a nil entry must not panic.
	z.String("a", "b").Hex8("h", 0x12).Bool("ok", true).End()

	if buf.Len() != 0 {
		t.Errorf("unexpected output: %q", buf.String())
	}
}

func TestEntryZFields(t *testing.T) {
	buf := captureLogs(t)
	EnableDebugModules(ModDMA.Mask())

	ModDMA.DebugZ("flush").
		Hex32("addr", 0xCAFE).
		Int("len", 8192).
		Error("err", errors.New("boom")).
		End()

	out := buf.String()
	for _, want := range []string{"flush", "addr=0000cafe", "len=8192", "err=boom", "_mod=dma"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q doesn't contain %q", out, want)
		}
	}
}

func TestWarningsAlwaysEnabled(t *testing.T) {
	buf := captureLogs(t)

	ModBus.WarnZ("unmapped").Hex16("addr", 0x4000).End()

	if !strings.Contains(buf.String(), "addr=4000") {
		t.Errorf("warning not logged: %q", buf.String())
	}

	Disable()
	buf.Reset()
	ModBus.WarnZ("unmapped").End()
	if buf.Len() != 0 {
		t.Errorf("logging not disabled: %q", buf.String())
	}
}

func TestLogContext(t *testing.T) {
	buf := captureLogs(t)

	ctx := &tickContext{tick: 1234}
	AddContext(ctx)
	defer RemoveContext(ctx)

	ModClock.ErrorZ("late").End()
	if !strings.Contains(buf.String(), "tick=1234") {
		t.Errorf("context field missing: %q", buf.String())
	}

	RemoveContext(ctx)
	buf.Reset()
	ModClock.ErrorZ("late").End()
	if strings.Contains(buf.String(), "tick=") {
		t.Errorf("removed context still logged: %q", buf.String())
	}
}

func TestModuleByName(t *testing.T) {
	mod := NewModule("testmod")
	got, ok := ModuleByName("testmod")
	if !ok || got != mod {
		t.Fatalf("ModuleByName(testmod) = %v, %t, want %v, true", got, ok, mod)
	}
	if _, ok := ModuleByName("<error>"); ok {
		t.Errorf("ModuleByName should not resolve the error placeholder")
	}
	if _, ok := ModuleByName("nonexistent"); ok {
		t.Errorf("ModuleByName(nonexistent) should fail")
	}
}
