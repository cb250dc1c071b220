package components

import (
	"github.com/pkg/errors"

	"chipset/hw/hwio"
)

func (a Args) Int(key string, def int) (int, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	n, err := hwio.AsInt(v)
	return n, errors.Wrapf(err, "arg %q", key)
}

func (a Args) String(key, def string) (string, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	s, err := hwio.AsString(v)
	return s, errors.Wrapf(err, "arg %q", key)
}

func (a Args) Bool(key string, def bool) (bool, error) {
	v, ok := a[key]
	if !ok {
		return def, nil
	}
	b, err := hwio.AsBool(v)
	return b, errors.Wrapf(err, "arg %q", key)
}
