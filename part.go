// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"io"
)

// A Device is the per-instance state of a component together with the three
// operations the simulation kernel invokes on it. Devices never call into the
// kernel other than through the *Component handle and Port they are given.
//
type Device interface {
	// Tick advances the device one discrete step. It must call c.SetChanged()
	// if and only if an observable output changes.
	Tick(c *Component) error
	// Process pushes the value of pin op.Pin into dst. Devices do nothing
	// for input pins and for bidirectional pins they are not driving.
	Process(c *Component, op *Op, dst Port) error
	// PutRaw accepts a value written into pin. The bit width must match the
	// declared pin width. data must not be retained nor modified.
	PutRaw(c *Component, pin int, data []byte, bits int) error
}

// StateHasher is implemented by devices whose private state is not fully
// visible on their pins. The kernel uses it to detect oscillations.
//
type StateHasher interface {
	HashState(w io.Writer)
}

// Port is the destination of a write operation. Put forwards the value,
// possibly altered by active faults, to the PutRaw method of the destination
// device.
//
type Port interface {
	Put(data []byte, bits int) error
}

// A MountFn builds the device for a new component. MountFn's should query
// the socket for pin ordinals and keep them in the returned device.
//
// For example, a Not gate can be defined like this:
//
//	not := &ticksim.PartSpec{
//		Class: "NOT",
//		Inputs: ticksim.IO("in"),
//		Outputs: ticksim.IO("out"),
//		Mount: func(s *ticksim.Socket) ticksim.Device {
//			return &notDevice{in: s.Pin("in"), out: s.Pin("out")}
//		}}
//
type MountFn func(s *Socket) Device

// A PartSpec wraps a part specification (its blueprint). PartSpecs are
// immutable once used and may be shared by any number of components.
//
// Pin ordinals follow declaration order: inputs, then outputs, then
// bidirectional pins.
//
type PartSpec struct {
	// Class name.
	Class string
	// Input (sink) pin names. Use the IO() function to expand a description
	// like "a, b, bus[2]".
	Inputs []string
	// Output (source) pin names.
	Outputs []string
	// Bidirectional pin names.
	Bidir []string
	// Optional lists the input pins that need not be wired. Outputs and
	// bidirectional pins are always optional.
	Optional []string
	// Single lists the output pins that may drive a single link only.
	Single []string
	// Clocks lists the clock input pins.
	Clocks []string
	// Widths maps pin names to their width in bits. Pins not listed are 1 bit
	// wide.
	Widths map[string]int
	// Mount function (see MountFn).
	Mount MountFn
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func (p *PartSpec) connectors(owner int) []Connector {
	conns := make([]Connector, 0, len(p.Inputs)+len(p.Outputs)+len(p.Bidir))
	add := func(names []string, kind PinKind) {
		for _, n := range names {
			w := 1
			if p.Widths != nil && p.Widths[n] > 0 {
				w = p.Widths[n]
			}
			conns = append(conns, Connector{
				Name:     n,
				Kind:     kind,
				Required: kind == Sink && !contains(p.Optional, n),
				FanOut:   kind != Source || !contains(p.Single, n),
				Clock:    kind != Source && contains(p.Clocks, n),
				Width:    w,
				Index:    len(conns),
				owner:    owner,
				value:    make([]byte, ByteSize(w)),
			})
		}
	}
	add(p.Inputs, Sink)
	add(p.Outputs, Source)
	add(p.Bidir, Bidirectional)
	return conns
}

// A Socket maps a part's pin names to connector ordinals while a component is
// being mounted.
//
type Socket struct {
	c *Component
}

// Component returns the component being mounted.
//
func (s *Socket) Component() *Component { return s.c }

// Pin returns the ordinal of the given pin name.
// This function panics if the pin does not exist.
//
func (s *Socket) Pin(name string) int {
	n, ok := s.c.byName[name]
	if !ok {
		panic("pin " + name + " does not exist")
	}
	return n
}

// Bus returns the ordinals of the pins of the given bus name.
// This function panics if the bus does not have the requested size.
//
func (s *Socket) Bus(name string, size int) []int {
	out := make([]int, size)
	for i := range out {
		n, ok := s.c.byName[BusPinName(name, i)]
		if !ok {
			panic("bus " + name + " does not exist or is too small")
		}
		out[i] = n
	}
	return out
}
