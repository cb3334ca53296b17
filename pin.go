// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"github.com/db47h/ticksim/internal/hdl"
	"github.com/pkg/errors"
)

// PinKind is the direction of a connector.
//
type PinKind int

// Connector kinds.
//
const (
	Source PinKind = iota
	Sink
	Bidirectional
)

func (k PinKind) String() string {
	switch k {
	case Source:
		return "source"
	case Sink:
		return "sink"
	case Bidirectional:
		return "bidirectional"
	}
	return "invalid"
}

// Drives returns true if a connector of kind k can drive a link.
//
func (k PinKind) Drives() bool { return k == Source || k == Bidirectional }

// Receives returns true if a connector of kind k can receive from a link.
//
func (k PinKind) Receives() bool { return k == Sink || k == Bidirectional }

// A PinRef identifies a connector by component index and connector ordinal.
// Component indices are machine wide.
//
type PinRef struct {
	Comp int
	Pin  int
}

// Connector is a named endpoint on a component.
//
type Connector struct {
	Name     string
	Kind     PinKind
	Required bool // must be linked before the machine can run
	FanOut   bool // a source may drive more than one link
	Clock    bool // clock input, used for timing checks
	Width    int  // width in bits
	Index    int  // ordinal within the owning component

	owner int   // machine wide component index
	out   []int // links driven by this connector (board link indices)
	in    []int // links driving this connector
	wired int   // pending wires not yet turned into links

	value  []byte // last value seen on this pin
	faults []*Fault
	trace  *Trace
}

// Owner returns the machine wide index of the component owning the connector.
//
func (c *Connector) Owner() int { return c.owner }

// Out returns the indices of the links driven by c.
//
func (c *Connector) Out() []int { return c.out }

// In returns the indices of the links driving c.
//
func (c *Connector) In() []int { return c.in }

// Linked returns true if the connector has at least one link or pending wire.
//
func (c *Connector) Linked() bool { return len(c.out)+len(c.in)+c.wired > 0 }

// Value returns the last value seen on the pin. The returned slice must not be
// modified.
//
func (c *Connector) Value() []byte { return c.value }

// Connectable returns true if the connector accepts another link.
//
func (c *Connector) Connectable() bool {
	if c.Kind == Source && !c.FanOut {
		return len(c.out)+c.wired == 0
	}
	return true
}

// IO expands a pin list description like "a, b, bus[2]" to
// []string{"a", "b", "bus[0]", "bus[1]"}. It panics on syntax errors.
//
func IO(spec string) []string {
	pins, err := hdl.ParseIO(spec)
	if err != nil {
		panic(errors.Wrap(err, "IO"))
	}
	return pins
}

// BusPinName returns the name of the i-th pin of the given bus.
//
func BusPinName(bus string, i int) string {
	return hdl.BusPinName(bus, i)
}

// Pins is a list of pins of a single component, as returned by
// Component.Pin and Component.Pins. Lookup errors are deferred until the
// Pins are used in Board.Attach.
//
type Pins struct {
	c       *Component
	idx     []int
	trivial bool // whole bus in index order
	err     error
}

// Component returns the component owning the pins.
//
func (p Pins) Component() *Component { return p.c }

// Indices returns the connector ordinals.
//
func (p Pins) Indices() []int { return p.idx }

// Len returns the number of pins.
//
func (p Pins) Len() int { return len(p.idx) }

// Err returns the lookup error, if any.
//
func (p Pins) Err() error { return p.err }
