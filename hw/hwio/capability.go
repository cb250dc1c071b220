package hwio

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

//go:generate go tool stringer -type=Capability -linecomment

// Capability identifies one of the contracts defined in this package.
type Capability uint8

const (
	Cap1Bit      Capability = iota // bus1
	Cap8Bit                        // bus8
	Cap16Bit                       // bus16
	Cap32Bit                       // bus32
	Cap64Bit                       // bus64
	CapDMA                         // dma
	CapClock                       // clockable
	CapConfig                      // configurable
	CapHardware                    // hardware

	numCapabilities
)

// CapSet is a set of capabilities.
type CapSet uint16

func (cs CapSet) Has(c Capability) bool { return cs&(1<<c) != 0 }

func (cs CapSet) String() string {
	var names []string
	for c := range numCapabilities {
		if cs.Has(c) {
			names = append(names, c.String())
		}
	}
	return strings.Join(names, ",")
}

// CapsOf reports the capabilities implemented by peer.
func CapsOf(peer any) CapSet {
	var cs CapSet
	set := func(c Capability, ok bool) {
		if ok {
			cs |= 1 << c
		}
	}

	_, ok := peer.(Bus1)
	set(Cap1Bit, ok)
	_, ok = peer.(Bus8)
	set(Cap8Bit, ok)
	_, ok = peer.(Bus16)
	set(Cap16Bit, ok)
	_, ok = peer.(Bus32)
	set(Cap32Bit, ok)
	_, ok = peer.(Bus64)
	set(Cap64Bit, ok)
	_, ok = peer.(BusDMA)
	set(CapDMA, ok)
	_, ok = peer.(Clockable)
	set(CapClock, ok)
	_, ok = peer.(Configurable)
	set(CapConfig, ok)
	_, ok = peer.(Hardware)
	set(CapHardware, ok)
	return cs
}

var (
	// ErrCapabilityMismatch is matched by every *CapabilityError.
	ErrCapabilityMismatch = errors.New("capability mismatch")

	// ErrInvalidPort is returned when connecting a port a component doesn't
	// define.
	ErrInvalidPort = errors.New("invalid port")
)

// CapabilityError reports a peer lacking the capability required by a port.
type CapabilityError struct {
	Port int
	Want Capability
	Peer any
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("port %d: %T doesn't implement %s (has %s)", e.Port, e.Peer, e.Want, CapsOf(e.Peer))
}

func (e *CapabilityError) Is(target error) bool { return target == ErrCapabilityMismatch }

// Want returns peer as T, the interface required by the given port, or a
// *CapabilityError.
func Want[T any](port int, peer any, c Capability) (T, error) {
	t, ok := peer.(T)
	if !ok {
		var zero T
		return zero, &CapabilityError{Port: port, Want: c, Peer: peer}
	}
	return t, nil
}

// InvalidPort returns an error wrapping ErrInvalidPort.
func InvalidPort(name string, port int) error {
	return errors.Wrapf(ErrInvalidPort, "%s: port %d", name, port)
}
