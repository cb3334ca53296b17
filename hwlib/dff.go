// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"io"
	"strconv"

	"github.com/db47h/ticksim"
)

// edge tracks the rising edges of a clock input. Since a component may be
// ticked several times during a simulation tick, the last clock state is
// updated on every tick and an edge is reported only once.
//
type edge struct {
	ck   int
	last bool
}

func (e *edge) rising(p *pinVals) bool {
	ck := p.bool(e.ck)
	r := ck && !e.last
	e.last = ck
	return r
}

// high returns the state of an optional input pin, def if it is not linked.
//
func high(c *ticksim.Component, p *pinVals, pin int, def bool) bool {
	if !linked(c, pin) {
		return def
	}
	return p.bool(pin)
}

func bstate(b bool) []byte { return ticksim.Bit(b) }

// DFF is a data flip flop with enable and asynchronous clear.
//
//	Inputs: d, ck, en, clr
//	Outputs: q, ~q
//	Function: if clr { q = 0 } else if rising(ck) && en { q = d }
//
// en and clr are optional. An unconnected en is high, an unconnected clr is
// low.
//
var DFF = &ticksim.PartSpec{
	Class:    "DFF",
	Inputs:   ticksim.IO("d, ck, en, clr"),
	Outputs:  ticksim.IO("q, ~q"),
	Optional: ticksim.IO("en, clr"),
	Clocks:   ticksim.IO(pCk),
	Mount: func(s *ticksim.Socket) ticksim.Device {
		return &dff{
			pinVals: newPinVals(s.Component()),
			edge:    edge{ck: s.Pin(pCk)},
			d:       s.Pin(pD), en: s.Pin(pEn), clr: s.Pin(pClr),
			q: s.Pin(pQ), nq: s.Pin(pNQ),
		}
	},
}

type dff struct {
	pinVals
	edge
	d, en, clr, q, nq int
	state             bool
}

func (f *dff) Tick(c *ticksim.Component) error {
	r := f.rising(&f.pinVals)
	if high(c, &f.pinVals, f.clr, false) {
		f.state = false
	} else if r && high(c, &f.pinVals, f.en, true) {
		f.state = f.bool(f.d)
	}
	f.setBool(c, f.q, f.state)
	f.setBool(c, f.nq, !f.state)
	return nil
}

func (f *dff) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return f.process(c, op, dst)
}

func (f *dff) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return f.put(c, pin, data, bits)
}

func (f *dff) HashState(w io.Writer) {
	w.Write(bstate(f.state))
	w.Write(bstate(f.last))
}

// JKFF is a JK flip flop with asynchronous clear.
//
//	Inputs: j, k, ck, clr
//	Outputs: q, ~q
//	Function: on rising(ck): j=1,k=0: q = 1; j=0,k=1: q = 0; j=k=1: q = !q
//
// clr is optional.
//
var JKFF = &ticksim.PartSpec{
	Class:    "JKFF",
	Inputs:   ticksim.IO("j, k, ck, clr"),
	Outputs:  ticksim.IO("q, ~q"),
	Optional: ticksim.IO(pClr),
	Clocks:   ticksim.IO(pCk),
	Mount: func(s *ticksim.Socket) ticksim.Device {
		return &jkff{
			pinVals: newPinVals(s.Component()),
			edge:    edge{ck: s.Pin(pCk)},
			j:       s.Pin("j"), k: s.Pin("k"), clr: s.Pin(pClr),
			q: s.Pin(pQ), nq: s.Pin(pNQ),
		}
	},
}

type jkff struct {
	pinVals
	edge
	j, k, clr, q, nq int
	state            bool
}

func (f *jkff) Tick(c *ticksim.Component) error {
	r := f.rising(&f.pinVals)
	if high(c, &f.pinVals, f.clr, false) {
		f.state = false
	} else if r {
		switch j, k := f.bool(f.j), f.bool(f.k); {
		case j && k:
			f.state = !f.state
		case j:
			f.state = true
		case k:
			f.state = false
		}
	}
	f.setBool(c, f.q, f.state)
	f.setBool(c, f.nq, !f.state)
	return nil
}

func (f *jkff) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return f.process(c, op, dst)
}

func (f *jkff) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return f.put(c, pin, data, bits)
}

func (f *jkff) HashState(w io.Writer) {
	w.Write(bstate(f.state))
	w.Write(bstate(f.last))
}

// counter is the common implementation of registers and counters.
//
type counter struct {
	pinVals
	edge
	n             int
	d, q          []int
	en, load, clr int // -1 if missing
	co            int // -1 if missing
	ripple        bool
	state         uint64
}

func (r *counter) opt(c *ticksim.Component, pin int, def bool) bool {
	if pin < 0 {
		return def
	}
	return high(c, &r.pinVals, pin, def)
}

func (r *counter) Tick(c *ticksim.Component) error {
	rise := r.rising(&r.pinVals)
	max := ticksim.Mask(r.n)
	en := r.opt(c, r.en, true)
	switch {
	case r.opt(c, r.clr, false):
		r.state = 0
	case !rise:
	case r.d != nil && r.opt(c, r.load, r.co < 0):
		var v uint64
		for i, pin := range r.d {
			v |= r.get(pin) << uint(i)
		}
		r.state = v
	case r.ripple:
		// stage i toggles on the falling edge of stage i-1
		for i := 0; i < r.n; i++ {
			r.state ^= 1 << uint(i)
			if r.state&(1<<uint(i)) != 0 {
				break
			}
		}
	case r.co >= 0 && en:
		r.state = (r.state + 1) & max
	}
	for i, pin := range r.q {
		r.set(c, pin, r.state>>uint(i)&1)
	}
	if r.co >= 0 {
		r.setBool(c, r.co, en && r.state == max)
	}
	return nil
}

func (r *counter) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	return r.process(c, op, dst)
}

func (r *counter) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return r.put(c, pin, data, bits)
}

func (r *counter) HashState(w io.Writer) {
	var buf [8]byte
	ticksim.PutUint(buf[:], r.state)
	w.Write(buf[:])
	w.Write(bstate(r.last))
}

func pinOrNone(s *ticksim.Socket, name string) int {
	if n, ok := s.Component().PinIndex(name); ok {
		return n
	}
	return -1
}

func mountCounter(n int, ripple bool) ticksim.MountFn {
	return func(s *ticksim.Socket) ticksim.Device {
		r := &counter{
			pinVals: newPinVals(s.Component()),
			edge:    edge{ck: s.Pin(pCk)},
			n:       n,
			q:       s.Bus(pQ, n),
			en:      pinOrNone(s, pEn),
			load:    pinOrNone(s, pLoad),
			clr:     pinOrNone(s, pClr),
			co:      pinOrNone(s, "co"),
			ripple:  ripple,
		}
		if _, ok := s.Component().PinIndex(ticksim.BusPinName(pD, 0)); ok {
			r.d = s.Bus(pD, n)
		}
		return r
	}
}

// RegisterN returns a n bits register with asynchronous clear.
//
//	Inputs: d[n], ck, load, clr
//	Outputs: q[n]
//	Function: if clr { q = 0 } else if rising(ck) && load { q = d }
//
// load and clr are optional. An unconnected load is high.
//
func RegisterN(n int) *ticksim.PartSpec {
	ns := strconv.Itoa(n)
	return &ticksim.PartSpec{
		Class:    "Register" + ns,
		Inputs:   ticksim.IO("d[" + ns + "], ck, load, clr"),
		Outputs:  ticksim.IO("q[" + ns + "]"),
		Optional: ticksim.IO("load, clr"),
		Clocks:   ticksim.IO(pCk),
		Mount:    mountCounter(n, false),
	}
}

// CounterN returns a n bits synchronous counter with parallel load,
// count enable and asynchronous clear.
//
//	Inputs: d[n], ck, en, load, clr
//	Outputs: q[n], co
//	Function: if clr { q = 0 } else if rising(ck) { if load { q = d } else if en { q++ } }
//	          co = en && q == 2^n-1
//
// All inputs but ck are optional. Unconnected inputs are low, except en which
// is high.
//
func CounterN(n int) *ticksim.PartSpec {
	ns := strconv.Itoa(n)
	return &ticksim.PartSpec{
		Class:    "Counter" + ns,
		Inputs:   ticksim.IO("d[" + ns + "], ck, en, load, clr"),
		Outputs:  ticksim.IO("q[" + ns + "], co"),
		Optional: ticksim.IO("d[" + ns + "], en, load, clr"),
		Clocks:   ticksim.IO(pCk),
		Mount:    mountCounter(n, false),
	}
}

// RippleCounterN returns a n bits ripple counter built from toggle flip
// flops. The first stage toggles on rising edges of ck, the following ones on
// the falling edge of the previous stage.
//
//	Inputs: ck, clr
//	Outputs: q[n]
//
// clr is optional.
//
func RippleCounterN(n int) *ticksim.PartSpec {
	ns := strconv.Itoa(n)
	return &ticksim.PartSpec{
		Class:    "RippleCounter" + ns,
		Inputs:   ticksim.IO("ck, clr"),
		Outputs:  ticksim.IO("q[" + ns + "]"),
		Optional: ticksim.IO(pClr),
		Clocks:   ticksim.IO(pCk),
		Mount:    mountCounter(n, true),
	}
}

var (
	// Register4 is a 4 bits register.
	Register4 = RegisterN(4)
	// Counter4 is a 4 bits counter.
	Counter4 = CounterN(4)
	// RippleCounter4 is a 4 bits ripple counter.
	RippleCounter4 = RippleCounterN(4)
)
