// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"strconv"
)

// refSpec returns the part specification of a reference. Source references
// drive a constant value on all their pins, sink references accept and
// discard any value.
//
func refSpec(kind refKind, widths []int, v bool) *PartSpec {
	sp := &PartSpec{Class: "Reference", Widths: make(map[string]int, len(widths))}
	for i, w := range widths {
		var n string
		if kind == refSource {
			n = BusPinName("out", i)
			sp.Outputs = append(sp.Outputs, n)
		} else {
			n = BusPinName("in", i)
			sp.Inputs = append(sp.Inputs, n)
		}
		sp.Widths[n] = w
	}
	if kind == refSink {
		sp.Mount = func(*Socket) Device { return sinkRef{} }
		return sp
	}
	sp.Mount = func(s *Socket) Device {
		d := &sourceRef{vals: make([][]byte, len(widths))}
		for i, w := range widths {
			buf := make([]byte, ByteSize(w))
			if v {
				PutUint(buf, Mask(w))
			}
			d.vals[i] = buf
			d.bits = append(d.bits, w)
		}
		return d
	}
	return sp
}

type sourceRef struct {
	vals [][]byte
	bits []int
}

func (r *sourceRef) Tick(*Component) error { return nil }

func (r *sourceRef) Process(c *Component, op *Op, dst Port) error {
	if op.Pin < 0 || op.Pin >= len(r.vals) {
		return c.UnknownPin(op.Pin)
	}
	return dst.Put(r.vals[op.Pin], r.bits[op.Pin])
}

func (r *sourceRef) PutRaw(c *Component, pin int, _ []byte, _ int) error {
	return c.UnknownPin(pin)
}

type sinkRef struct{}

func (sinkRef) Tick(*Component) error { return nil }

func (sinkRef) Process(*Component, *Op, Port) error { return nil }

func (sinkRef) PutRaw(c *Component, pin int, data []byte, bits int) error {
	return c.CheckPut(pin, data, bits)
}

// ConstSpec returns the specification of a constant source with a single
// output pin "out[0]" of the given width, all bits set to v.
//
func ConstSpec(v bool, width int) *PartSpec {
	sp := refSpec(refSource, []int{width}, v)
	sp.Class = "Const" + strconv.Itoa(width)
	return sp
}
