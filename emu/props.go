package emu

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/go-faster/jx"

	"chipset/hw/hwio"
)

// DumpProps writes, as a JSON object, the properties of every configurable
// component of m, keyed by component name.
func DumpProps(w io.Writer, m *Machine) error {
	var e jx.Encoder
	e.SetIdent(2)

	e.ObjStart()
	for _, name := range m.names {
		cfg, ok := m.comps[name].(hwio.Configurable)
		if !ok {
			continue
		}
		e.FieldStart(name)
		e.ObjStart()
		for _, key := range cfg.ConfigKeys() {
			e.FieldStart(key)
			encodeValue(&e, cfg.GetConfig(key))
		}
		e.ObjEnd()
	}
	e.ObjEnd()

	_, err := w.Write(append(e.Bytes(), '\n'))
	return err
}

// WriteStats writes the machine statistics as a JSON object.
func WriteStats(w io.Writer, st Stats) error {
	var e jx.Encoder

	e.ObjStart()
	e.FieldStart("ticks")
	e.Int64(st.Ticks)
	e.FieldStart("flushes")
	e.Int(st.Flushes)
	e.FieldStart("flushed_bytes")
	e.UInt64(st.FlushedBytes)
	e.FieldStart("dropped")
	e.ObjStart()
	for _, name := range slices.Sorted(maps.Keys(st.Dropped)) {
		e.FieldStart(name)
		e.UInt64(st.Dropped[name])
	}
	e.ObjEnd()
	e.ObjEnd()

	_, err := w.Write(append(e.Bytes(), '\n'))
	return err
}

func encodeValue(e *jx.Encoder, v any) {
	switch v := v.(type) {
	case nil:
		e.Null()
	case bool:
		e.Bool(v)
	case string:
		e.Str(v)
	case int:
		e.Int(v)
	case int64:
		e.Int64(v)
	case uint64:
		e.UInt64(v)
	case float64:
		e.Float64(v)
	case fmt.Stringer:
		e.Str(v.String())
	default:
		e.Str(fmt.Sprint(v))
	}
}
