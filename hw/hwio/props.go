package hwio

import (
	"fmt"
	"math"
	"slices"

	"github.com/pkg/errors"
)

var (
	ErrReadOnly     = errors.New("read-only property")
	ErrInvalidValue = errors.New("invalid property value")
)

type prop struct {
	def      any
	val      any
	set      bool
	readonly bool
	get      func() any
	validate func(v any) (any, error)
}

// Props is a ready-to-embed Configurable implementation. Defined keys have a
// default value and optionally a validator, which can convert the value and
// apply it to the component. Undefined keys are stored as-is.
type Props struct {
	m map[string]*prop
}

func (p *Props) entry(key string) *prop {
	if p.m == nil {
		p.m = make(map[string]*prop)
	}
	e, ok := p.m[key]
	if !ok {
		e = &prop{}
		p.m[key] = e
	}
	return e
}

// Define declares key with its default value. validate, if not nil, is called
// by SetConfig and returns the value to store.
func (p *Props) Define(key string, def any, validate func(v any) (any, error)) {
	e := p.entry(key)
	e.def = def
	e.validate = validate
}

// DefineReadOnly declares a key whose value is computed by get.
func (p *Props) DefineReadOnly(key string, get func() any) {
	e := p.entry(key)
	e.readonly = true
	e.get = get
}

func (p *Props) GetConfig(key string) any {
	e, ok := p.m[key]
	switch {
	case !ok:
		return nil
	case e.get != nil:
		return e.get()
	case e.set:
		return e.val
	}
	return e.def
}

func (p *Props) SetConfig(key string, val any) error {
	e := p.entry(key)
	if e.readonly {
		return errors.Wrapf(ErrReadOnly, "%q", key)
	}
	if e.validate != nil {
		v, err := e.validate(val)
		if err != nil {
			return errors.Wrapf(err, "%q", key)
		}
		val = v
	}
	e.val = val
	e.set = true
	return nil
}

// ConfigKeys returns all keys, sorted.
func (p *Props) ConfigKeys() []string {
	keys := make([]string, 0, len(p.m))
	for k := range p.m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// AsInt converts v, usually decoded from a configuration file, to an int.
func AsInt(v any) (int, error) {
	switch n := v.(type) {
	case int:
		return n, nil
	case int8:
		return int(n), nil
	case int16:
		return int(n), nil
	case int32:
		return int(n), nil
	case int64:
		if n < math.MinInt || n > math.MaxInt {
			break
		}
		return int(n), nil
	case uint8:
		return int(n), nil
	case uint16:
		return int(n), nil
	case uint32:
		return int(n), nil
	case float64:
		if n == math.Trunc(n) && n >= math.MinInt && n < -float64(math.MinInt) {
			return int(n), nil
		}
	}
	return 0, errors.Wrapf(ErrInvalidValue, "%v (%T) is not an integer", v, v)
}

func AsBool(v any) (bool, error) {
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return false, errors.Wrapf(ErrInvalidValue, "%v (%T) is not a boolean", v, v)
}

func AsString(v any) (string, error) {
	switch s := v.(type) {
	case string:
		return s, nil
	case fmt.Stringer:
		return s.String(), nil
	}
	return "", errors.Wrapf(ErrInvalidValue, "%v (%T) is not a string", v, v)
}
