// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package hwlib provides a library of reusable parts for ticksim.
//
// Copyright 2018 Denis Bernard <db047h@gmail.com>
//
// This package is licensed under the MIT license. See license text in the LICENSE file.
//
package hwlib

import (
	"io"

	"github.com/db47h/ticksim"
)

// common pin names
const (
	pA    = "a"
	pB    = "b"
	pIn   = "in"
	pSel  = "sel"
	pOut  = "out"
	pCin  = "cin"
	pCout = "cout"
	pD    = "d"
	pQ    = "q"
	pNQ   = "~q"
	pCk   = "ck"
	pEn   = "en"
	pClr  = "clr"
	pLoad = "load"
)

// A combFn computes the outputs of a combinational part. v holds the input
// values followed by the output values, in pin ordinal order.
//
type combFn func(v []uint64)

// pinVals holds the values of a device's pins, indexed by pin ordinal.
//
type pinVals struct {
	vals [][]byte
	bits []int
}

func newPinVals(c *ticksim.Component) pinVals {
	conns := c.Connectors()
	p := pinVals{vals: make([][]byte, len(conns)), bits: make([]int, len(conns))}
	for i := range conns {
		p.vals[i] = make([]byte, ticksim.ByteSize(conns[i].Width))
		p.bits[i] = conns[i].Width
	}
	return p
}

func (p *pinVals) get(pin int) uint64 { return ticksim.Uint(p.vals[pin]) }

func (p *pinVals) bool(pin int) bool { return ticksim.Bool(p.vals[pin]) }

// set sets the value of an output pin and flags c as changed if the value
// differs from the previous one.
//
func (p *pinVals) set(c *ticksim.Component, pin int, v uint64) {
	v &= ticksim.Mask(p.bits[pin])
	if ticksim.Uint(p.vals[pin]) != v {
		ticksim.PutUint(p.vals[pin], v)
		c.SetChanged()
	}
}

func (p *pinVals) setBool(c *ticksim.Component, pin int, b bool) { p.set(c, pin, b2u(b)) }

// put latches a value written to an input or bidirectional pin.
//
func (p *pinVals) put(c *ticksim.Component, pin int, data []byte, bits int) error {
	if err := c.CheckPut(pin, data, bits); err != nil {
		return err
	}
	copy(p.vals[pin], data)
	return nil
}

// process writes the value of an output pin to dst.
//
func (p *pinVals) process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	if op.Pin < 0 || op.Pin >= len(p.vals) {
		return c.UnknownPin(op.Pin)
	}
	if c.Connector(op.Pin).Kind == ticksim.Sink {
		return nil
	}
	return dst.Put(p.vals[op.Pin], p.bits[op.Pin])
}

func (p *pinVals) hash(w io.Writer, pins ...int) {
	for _, pin := range pins {
		w.Write(p.vals[pin])
	}
}

// comb is a combinational device. Outputs are recomputed from the last input
// values on every tick.
//
type comb struct {
	pinVals
	fn  combFn
	v   []uint64
	nIn int
}

func combSpec(class string, inputs, outputs []string, fn combFn) *ticksim.PartSpec {
	return &ticksim.PartSpec{
		Class:   class,
		Inputs:  inputs,
		Outputs: outputs,
		Mount: func(s *ticksim.Socket) ticksim.Device {
			c := s.Component()
			return &comb{pinVals: newPinVals(c), fn: fn, v: make([]uint64, len(c.Connectors())), nIn: len(inputs)}
		},
	}
}

func (d *comb) Tick(c *ticksim.Component) error {
	for i := range d.v {
		if i < d.nIn {
			d.v[i] = d.get(i)
		} else {
			d.v[i] = 0
		}
	}
	d.fn(d.v)
	for i := d.nIn; i < len(d.v); i++ {
		d.set(c, i, d.v[i])
	}
	return nil
}

func (d *comb) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return d.process(c, op, dst)
}

func (d *comb) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return d.put(c, pin, data, bits)
}

func (d *comb) HashState(w io.Writer) {
	for _, v := range d.vals[d.nIn:] {
		w.Write(v)
	}
}

// bits returns n single bit values of v starting at index from as an integer.
// v[from] is the lsb.
//
func bits(v []uint64, from, n int) uint64 {
	var x uint64
	for i := n - 1; i >= 0; i-- {
		x = x<<1 | v[from+i]&1
	}
	return x
}

// setBits is the reverse of bits.
//
func setBits(v []uint64, from, n int, x uint64) {
	for i := 0; i < n; i++ {
		v[from+i] = x & 1
		x >>= 1
	}
}

func b2u(b bool) uint64 {
	if b {
		return 1
	}
	return 0
}

// linked returns true if the given pin has at least one link.
//
func linked(c *ticksim.Component, pin int) bool {
	cn := c.Connector(pin)
	return cn != nil && len(cn.In())+len(cn.Out()) > 0
}
