// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"io"
	"strconv"

	"github.com/db47h/ticksim"
)

// SwitchDevice is a user controlled source. Values set with Set or SetValue
// are published on the next tick.
//
type SwitchDevice struct {
	pinVals
	pins  []int
	v     uint64
	dirty bool
}

func newSwitch(class string, outputs []string, widths map[string]int) *ticksim.PartSpec {
	return &ticksim.PartSpec{
		Class:   class,
		Outputs: outputs,
		Widths:  widths,
		Mount: func(s *ticksim.Socket) ticksim.Device {
			c := s.Component()
			d := &SwitchDevice{pinVals: newPinVals(c), dirty: true}
			for i := range c.Connectors() {
				d.pins = append(d.pins, i)
			}
			return d
		},
	}
}

// Switch is a 1 bit user controlled input.
//
//	Outputs: out
//
var Switch = newSwitch("Switch", ticksim.IO(pOut), nil)

// SwitchN returns an n bits input. Bit i of the value set is driven on out[i].
//
//	Outputs: out[n]
//
func SwitchN(n int) *ticksim.PartSpec {
	return newSwitch("Switch"+strconv.Itoa(n), ticksim.IO("out["+strconv.Itoa(n)+"]"), nil)
}

// WordSwitch returns an input driving a single pin of the given width.
//
//	Outputs: out (width bits)
//
func WordSwitch(width int) *ticksim.PartSpec {
	return newSwitch("WordSwitch"+strconv.Itoa(width), ticksim.IO(pOut), map[string]int{pOut: width})
}

// AsSwitch returns the device of a switch component.
//
func AsSwitch(c *ticksim.Component) *SwitchDevice {
	s, _ := c.Device().(*SwitchDevice)
	return s
}

// Set sets the switch state. For multi bit switches, it sets all bits.
//
func (s *SwitchDevice) Set(b bool) {
	if b {
		s.SetValue(^uint64(0))
	} else {
		s.SetValue(0)
	}
}

// SetValue sets the switch value.
//
func (s *SwitchDevice) SetValue(v uint64) {
	s.v = v
	s.dirty = true
}

// Value returns the last value set.
//
func (s *SwitchDevice) Value() uint64 { return s.v }

func (s *SwitchDevice) Tick(c *ticksim.Component) error {
	if !s.dirty {
		return nil
	}
	s.dirty = false
	v := s.v
	for _, pin := range s.pins {
		s.set(c, pin, v)
		v >>= uint(s.bits[pin])
	}
	return nil
}

func (s *SwitchDevice) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return s.process(c, op, dst)
}

func (s *SwitchDevice) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return c.UnknownPin(pin)
}

// ProbeDevice captures the values written to its input pins.
//
type ProbeDevice struct {
	pinVals
}

func newProbe(class string, inputs []string, widths map[string]int) *ticksim.PartSpec {
	return &ticksim.PartSpec{
		Class:  class,
		Inputs: inputs,
		Widths: widths,
		Mount: func(s *ticksim.Socket) ticksim.Device {
			return &ProbeDevice{pinVals: newPinVals(s.Component())}
		},
	}
}

// Probe is a 1 bit output probe.
//
//	Inputs: in
//
var Probe = newProbe("Probe", ticksim.IO(pIn), nil)

// ProbeN returns an n bits output probe. Bit i of the probe value is read
// from in[i].
//
//	Inputs: in[n]
//
func ProbeN(n int) *ticksim.PartSpec {
	return newProbe("Probe"+strconv.Itoa(n), ticksim.IO("in["+strconv.Itoa(n)+"]"), nil)
}

// WordProbe returns a probe with a single input pin of the given width.
//
//	Inputs: in (width bits)
//
func WordProbe(width int) *ticksim.PartSpec {
	return newProbe("WordProbe"+strconv.Itoa(width), ticksim.IO(pIn), map[string]int{pIn: width})
}

// AsProbe returns the device of a probe component.
//
func AsProbe(c *ticksim.Component) *ProbeDevice {
	p, _ := c.Device().(*ProbeDevice)
	return p
}

// Value returns the value captured by the probe.
//
func (p *ProbeDevice) Value() uint64 {
	var v uint64
	shift := uint(0)
	for i := range p.vals {
		v |= p.get(i) << shift
		shift += uint(p.bits[i])
	}
	return v
}

// Bool returns true if any bit of the probe value is set.
//
func (p *ProbeDevice) Bool() bool { return p.Value() != 0 }

func (p *ProbeDevice) Tick(c *ticksim.Component) error { return nil }

func (p *ProbeDevice) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return nil
}

func (p *ProbeDevice) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return p.put(c, pin, data, bits)
}

// Clock outputs the state of the component's clock domain.
//
//	Outputs: out
//
var Clock = &ticksim.PartSpec{
	Class:   "Clock",
	Outputs: ticksim.IO(pOut),
	Mount: func(s *ticksim.Socket) ticksim.Device {
		return &clock{pinVals: newPinVals(s.Component()), out: s.Pin(pOut)}
	},
}

type clock struct {
	pinVals
	out int
}

func (k *clock) Tick(c *ticksim.Component) error {
	k.setBool(c, k.out, c.ClockState())
	return nil
}

func (k *clock) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return k.process(c, op, dst)
}

func (k *clock) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return c.UnknownPin(pin)
}

// ClockGate is a gated clock. When en is low, out keeps its last value.
//
//	Inputs: ck, en
//	Outputs: out
//	Function: if en { out = ck }
//
var ClockGate = &ticksim.PartSpec{
	Class:   "ClockGate",
	Inputs:  ticksim.IO("ck, en"),
	Outputs: ticksim.IO(pOut),
	Clocks:  ticksim.IO(pCk),
	Mount: func(s *ticksim.Socket) ticksim.Device {
		return &clockGate{pinVals: newPinVals(s.Component()), ck: s.Pin(pCk), en: s.Pin(pEn), out: s.Pin(pOut)}
	},
}

type clockGate struct {
	pinVals
	ck, en, out int
}

func (g *clockGate) Tick(c *ticksim.Component) error {
	if g.bool(g.en) {
		g.setBool(c, g.out, g.bool(g.ck))
	}
	return nil
}

func (g *clockGate) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return g.process(c, op, dst)
}

func (g *clockGate) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return g.put(c, pin, data, bits)
}

// Transceiver returns a bus transceiver of the given width. When oe is high,
// in is driven on the bidirectional pin d. Otherwise, out follows the value
// received on d.
//
//	Inputs: in (width bits), oe
//	Outputs: out (width bits)
//	Bidirectional: d (width bits)
//
func Transceiver(width int) *ticksim.PartSpec {
	return &ticksim.PartSpec{
		Class:   "Transceiver" + strconv.Itoa(width),
		Inputs:  ticksim.IO("in, oe"),
		Outputs: ticksim.IO(pOut),
		Bidir:   ticksim.IO(pD),
		Widths:  map[string]int{pIn: width, pOut: width, pD: width},
		Mount: func(s *ticksim.Socket) ticksim.Device {
			return &transceiver{
				pinVals: newPinVals(s.Component()),
				in:      s.Pin(pIn), oe: s.Pin("oe"), out: s.Pin(pOut), d: s.Pin(pD),
			}
		},
	}
}

type transceiver struct {
	pinVals
	in, oe, out, d int
	driving        bool
}

func (t *transceiver) Tick(c *ticksim.Component) error {
	drive := t.bool(t.oe)
	if drive != t.driving {
		t.driving = drive
		c.SetChanged()
	}
	if drive {
		t.set(c, t.out, t.get(t.in))
	} else {
		t.set(c, t.out, t.get(t.d))
	}
	return nil
}

func (t *transceiver) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	if op.Pin != t.d {
		return t.process(c, op, dst)
	}
	if !t.driving {
		return nil
	}
	return dst.Put(t.vals[t.in], t.bits[t.in])
}

func (t *transceiver) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return t.put(c, pin, data, bits)
}

var (
	// High is a constant 1.
	//
	//	Outputs: out[0]
	//
	High = constant("High", true)
	// Low is a constant 0.
	//
	//	Outputs: out[0]
	//
	Low = constant("Low", false)
)

func constant(class string, v bool) *ticksim.PartSpec {
	sp := ticksim.ConstSpec(v, 1)
	sp.Class = class
	return sp
}

func (t *transceiver) HashState(w io.Writer) {
	w.Write(bstate(t.driving))
}
