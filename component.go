// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"strings"

	"github.com/db47h/ticksim/internal/hdl"
	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

type refKind int

const (
	refNone refKind = iota
	refSource
	refSink
)

// pinTiming holds the timing information of a single input pin.
//
type pinTiming struct {
	lastEdge      int64 // tick of the last clock edge seen by the component
	lastChange    int64 // tick of the last data change on the pin
	lastClock     bool  // last state of a clock pin
	setupReported int64
	holdReported  int64
}

// Component is a node of the simulation graph: a Device together with its
// connectors and kernel bookkeeping.
//
type Component struct {
	// ClockDomain is the clock domain of the component. 0 means asynchronous.
	ClockDomain int
	// SetupTime and HoldTime are the setup and hold times of the component's
	// inputs, in ticks. Timing checks are disabled when 0.
	SetupTime int64
	HoldTime  int64

	board   *Board
	index   int // machine wide index
	name    string
	spec    *PartSpec
	dev     Device
	conns   []Connector
	byName  map[string]int
	changed bool
	ref     refKind

	timing     []pinTiming
	deps       []int
	dependents []int
	topo       int
}

// Name returns the component name.
//
func (c *Component) Name() string { return c.name }

// Class returns the class of the component's part.
//
func (c *Component) Class() string { return c.spec.Class }

// Index returns the machine wide index of the component.
//
func (c *Component) Index() int { return c.index }

// Board returns the board the component is mounted on.
//
func (c *Component) Board() *Board { return c.board }

// Device returns the component's device.
//
func (c *Component) Device() Device { return c.dev }

// Spec returns the component's part specification.
//
func (c *Component) Spec() *PartSpec { return c.spec }

// Connectors returns the component's connectors in ordinal order.
//
func (c *Component) Connectors() []Connector { return c.conns }

// Connector returns the connector with the given ordinal.
//
func (c *Component) Connector(pin int) *Connector {
	if pin < 0 || pin >= len(c.conns) {
		return nil
	}
	return &c.conns[pin]
}

// PinIndex returns the ordinal of the named pin.
//
func (c *Component) PinIndex(name string) (int, bool) {
	n, ok := c.byName[name]
	return n, ok
}

// Dependencies returns the indices of the components driving c.
// Only valid after Machine.Init.
//
func (c *Component) Dependencies() []int { return c.deps }

// Dependents returns the indices of the components driven by c.
// Only valid after Machine.Init.
//
func (c *Component) Dependents() []int { return c.dependents }

// TopoIndex returns the position of c in the scheduling order.
//
func (c *Component) TopoIndex() int { return c.topo }

// SetChanged flags an observable state change during the current tick.
//
func (c *Component) SetChanged() { c.changed = true }

// Changed returns the state of the changed flag.
//
func (c *Component) Changed() bool { return c.changed }

// Tick returns the current tick of the machine.
//
func (c *Component) Tick() int64 { return c.board.m.tick }

// ClockState returns the state of the component's clock domain.
//
func (c *Component) ClockState() bool {
	d := c.board.m.Domain(c.ClockDomain)
	return d != nil && d.State
}

// Logf logs a message tagged with the component name.
//
func (c *Component) Logf(format string, args ...interface{}) {
	c.board.m.log.Logf(logger.Allow, c.name, format, args...)
}

// UnknownPin returns the error reported for an invalid pin ordinal.
//
func (c *Component) UnknownPin(pin int) error {
	return errors.Errorf("%s: unknown pin %d", c.name, pin)
}

// CheckPut validates pin and width of a value written to c.
// Device PutRaw implementations should call it first.
//
func (c *Component) CheckPut(pin int, data []byte, bits int) error {
	if pin < 0 || pin >= len(c.conns) {
		return c.UnknownPin(pin)
	}
	cn := &c.conns[pin]
	if cn.Kind == Source {
		return errors.Errorf("%s: write to output pin %s", c.name, cn.Name)
	}
	if bits != cn.Width || len(data) != ByteSize(bits) {
		return errors.Errorf("%s: width mismatch on pin %s: got %d bits, expected %d", c.name, cn.Name, bits, cn.Width)
	}
	return nil
}

// Value returns the last value seen on the given pin.
//
func (c *Component) Value(pin int) uint64 {
	if pin < 0 || pin >= len(c.conns) {
		return 0
	}
	return Uint(c.conns[pin].value)
}

// Pin returns the named pin. If name is a bus name, all the bus pins are
// returned.
//
func (c *Component) Pin(name string) Pins {
	if n, ok := c.byName[name]; ok {
		return Pins{c: c, idx: []int{n}, trivial: true}
	}
	var idx []int
	for i := 0; ; i++ {
		n, ok := c.byName[BusPinName(name, i)]
		if !ok {
			break
		}
		idx = append(idx, n)
	}
	if len(idx) == 0 {
		return Pins{c: c, err: errors.Errorf("%s: no pin or bus named %q", c.name, name)}
	}
	return Pins{c: c, idx: idx, trivial: true}
}

// Pins returns the pins matching a pin list like "a, b" or a bus range like
// "d[0..3]".
//
func (c *Component) Pins(spec string) Pins {
	var all Pins
	all.c = c
	all.trivial = true
	for _, part := range strings.Split(spec, ",") {
		ref, err := hdl.ParseRef(strings.TrimSpace(part))
		if err != nil {
			return Pins{c: c, err: errors.Wrap(err, c.name)}
		}
		if ref.Comp != "" {
			return Pins{c: c, err: errors.Errorf("%s: unexpected component name in %q", c.name, part)}
		}
		p := c.refPins(ref)
		if p.err != nil {
			return p
		}
		all.idx = append(all.idx, p.idx...)
		all.trivial = all.trivial && p.trivial
	}
	return all
}

func (c *Component) refPins(ref hdl.Ref) Pins {
	if len(ref.Pins) == 1 && !ref.Bus {
		return c.Pin(ref.Pins[0])
	}
	p := Pins{c: c}
	for _, n := range ref.Pins {
		i, ok := c.byName[n]
		if !ok {
			return Pins{c: c, err: errors.Errorf("%s: no pin named %q", c.name, n)}
		}
		p.idx = append(p.idx, i)
	}
	p.trivial = ref.Pins[0] == BusPinName(ref.Name, 0) && c.Pin(ref.Name).Len() == len(ref.Pins)
	return p
}

// All returns all the pins of c.
//
func (c *Component) All() Pins {
	idx := make([]int, len(c.conns))
	for i := range idx {
		idx[i] = i
	}
	return Pins{c: c, idx: idx, trivial: true}
}
