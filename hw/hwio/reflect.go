package hwio

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type regInfo struct {
	regPtr any
	offset uint32
}

type tagOpts map[string]string

func parseTag(tag string) tagOpts {
	opts := make(tagOpts)
	for _, kv := range strings.Split(tag, ",") {
		kv = strings.TrimSpace(kv)
		if kv == "" {
			continue
		}
		k, v, _ := strings.Cut(kv, "=")
		opts[k] = v
	}
	return opts
}

func (o tagOpts) uint(key string, bits int) (uint64, bool, error) {
	s, ok := o[key]
	if !ok {
		return 0, false, nil
	}
	v, err := strconv.ParseUint(s, 0, bits)
	if err != nil {
		return 0, true, fmt.Errorf("invalid %s=%q: %w", key, s, err)
	}
	return v, true, nil
}

func structFields(data any) (reflect.Value, error) {
	v := reflect.ValueOf(data)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return reflect.Value{}, fmt.Errorf("hwio: expected pointer to struct, got %T", data)
	}
	return v.Elem(), nil
}

// bankGetRegs returns the registers of the given bank, in declaration order.
func bankGetRegs(data any, bankNum int) ([]regInfo, error) {
	sv, err := structFields(data)
	if err != nil {
		return nil, err
	}

	var regs []regInfo
	for i := range sv.NumField() {
		f := sv.Type().Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)

		off, ok, err := opts.uint("offset", 32)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if !ok {
			continue
		}
		bank, _, err := opts.uint("bank", 8)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", f.Name, err)
		}
		if int(bank) != bankNum {
			continue
		}
		regs = append(regs, regInfo{
			regPtr: sv.Field(i).Addr().Interface(),
			offset: uint32(off),
		})
	}
	return regs, nil
}

func method[T any](sv reflect.Value, name string) (T, error) {
	var zero T
	m := sv.Addr().MethodByName(name)
	if !m.IsValid() {
		return zero, fmt.Errorf("missing callback method %s", name)
	}
	cb, ok := m.Interface().(T)
	if !ok {
		return zero, fmt.Errorf("callback method %s has type %s, want %T", name, m.Type(), zero)
	}
	return cb, nil
}

func cbName(opts tagOpts, key, prefix, field string) (string, bool) {
	name, ok := opts[key]
	if !ok {
		return "", false
	}
	if name == "" {
		name = prefix + strings.ToUpper(field)
	}
	return name, true
}

// InitRegs initializes the registers declared in the structure pointed to by
// data, according to their "hwio" struct tags:
//
//	reset=0x12      power-on value (Reg8)
//	rwmask=0xF0     writable bits, others are read-only (Reg8)
//	size=0x100      size of the area (Mem, Device)
//	readonly        writes are rejected
//	writeonly       reads are rejected (Reg8, Device)
//	rcb[=Method]    read callback, defaults to ReadFIELDNAME
//	wcb[=Method]    write callback, defaults to WriteFIELDNAME
func InitRegs(data any) error {
	sv, err := structFields(data)
	if err != nil {
		return err
	}

	for i := range sv.NumField() {
		f := sv.Type().Field(i)
		tag, ok := f.Tag.Lookup("hwio")
		if !ok {
			continue
		}
		opts := parseTag(tag)
		fv := sv.Field(i)

		if err := initReg(sv, f.Name, fv.Addr().Interface(), opts); err != nil {
			return fmt.Errorf("hwio: %s.%s: %w", sv.Type().Name(), f.Name, err)
		}
	}
	return nil
}

func initReg(sv reflect.Value, name string, reg any, opts tagOpts) error {
	_, ro := opts["readonly"]
	_, wo := opts["writeonly"]

	switch r := reg.(type) {
	case *Reg8:
		r.Name = name
		reset, _, err := opts.uint("reset", 8)
		if err != nil {
			return err
		}
		r.Reset = uint8(reset)
		r.Value = r.Reset
		if mask, ok, err := opts.uint("rwmask", 8); err != nil {
			return err
		} else if ok {
			r.RoMask = ^uint8(mask)
		}
		if ro {
			r.Flags |= ReadOnlyFlag
		}
		if wo {
			r.Flags |= WriteOnlyFlag
		}
		if n, ok := cbName(opts, "rcb", "Read", name); ok {
			if r.ReadCb, err = method[func(uint8) uint8](sv, n); err != nil {
				return err
			}
		}
		if n, ok := cbName(opts, "wcb", "Write", name); ok {
			if r.WriteCb, err = method[func(uint8, uint8)](sv, n); err != nil {
				return err
			}
		}

	case *Device:
		r.Name = name
		size, ok, err := opts.uint("size", 32)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("device without size")
		}
		r.Size = int(size)
		if ro {
			r.Flags |= ReadOnlyFlag
		}
		if wo {
			r.Flags |= WriteOnlyFlag
		}
		if n, ok := cbName(opts, "rcb", "Read", name); ok {
			if r.ReadCb, err = method[func(uint32) uint8](sv, n); err != nil {
				return err
			}
		}
		if n, ok := cbName(opts, "wcb", "Write", name); ok {
			if r.WriteCb, err = method[func(uint32, uint8)](sv, n); err != nil {
				return err
			}
		}

	case *Mem:
		if r.Name == "" {
			r.Name = name
		}
		size, ok, err := opts.uint("size", 32)
		if err != nil {
			return err
		}
		if ok && r.Data == nil {
			r.Data = make([]byte, size)
		}
		if !ispow2(len(r.Data)) {
			return fmt.Errorf("memory buffer size is not pow2")
		}
		r.mask = uint32(len(r.Data) - 1)
		if ro {
			r.Flags |= MemFlagReadOnly
		}

	default:
		return fmt.Errorf("unsupported register type %T", reg)
	}
	return nil
}

// MustInitRegs is like InitRegs but panics on error.
func MustInitRegs(data any) {
	if err := InitRegs(data); err != nil {
		panic(err)
	}
}
