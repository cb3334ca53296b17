// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"strconv"
	"strings"

	"github.com/db47h/ticksim/internal/hdl"
	"github.com/pkg/errors"
)

// A Link is a directed edge from a driver connector to a receiver connector.
//
type Link struct {
	Driver   PinRef
	Receiver PinRef
}

type wire struct {
	drv, rcv PinRef
}

type refKey struct {
	comp, pin, count int
}

type constKey struct {
	v     bool
	width int
}

// WiringError lists all the wiring problems found on a board.
//
type WiringError struct {
	Board string
	Errs  []error
}

func (e *WiringError) Error() string {
	var b strings.Builder
	b.WriteString("board ")
	b.WriteString(e.Board)
	b.WriteString(": ")
	for i, err := range e.Errs {
		if i > 0 {
			b.WriteString("; ")
		}
		b.WriteString(err.Error())
	}
	return b.String()
}

// Board is a group of components whose wiring is validated together.
//
type Board struct {
	m      *Machine
	name   string
	comps  []*Component
	byName map[string]*Component
	links  []Link
	wires  []wire
	refs   map[refKey]*Component
	consts map[constKey]*Component
	errs   []error
	frozen bool
}

func newBoard(m *Machine, name string) *Board {
	return &Board{
		m:      m,
		name:   name,
		byName: make(map[string]*Component),
		refs:   make(map[refKey]*Component),
		consts: make(map[constKey]*Component),
	}
}

// Name returns the board name.
//
func (b *Board) Name() string { return b.name }

// Machine returns the machine owning the board.
//
func (b *Board) Machine() *Machine { return b.m }

// Components returns the components mounted on the board.
//
func (b *Board) Components() []*Component { return b.comps }

// Component returns the named component or nil.
//
func (b *Board) Component(name string) *Component { return b.byName[name] }

// Links returns the board links. Links are only available once the machine
// has been initialized.
//
func (b *Board) Links() []Link { return b.links }

// Connector returns the connector referenced by r.
//
func (b *Board) Connector(r PinRef) *Connector {
	return &b.m.comps[r.Comp].conns[r.Pin]
}

func (b *Board) fail(err error) error {
	b.errs = append(b.errs, err)
	return err
}

// Add mounts a new component built from spec. It panics if the machine has
// already been initialized.
//
func (b *Board) Add(name string, spec *PartSpec) *Component {
	if b.frozen {
		panic("ticksim: Add called on a frozen board")
	}
	m := b.m
	c := &Component{
		board:  b,
		index:  len(m.comps),
		name:   name,
		spec:   spec,
		byName: make(map[string]int),
		topo:   -1,
	}
	c.conns = spec.connectors(c.index)
	for i := range c.conns {
		c.byName[c.conns[i].Name] = i
	}
	if _, ok := b.byName[name]; ok {
		b.fail(errors.Errorf("duplicate component name %q", name))
	}
	b.byName[name] = c
	b.comps = append(b.comps, c)
	m.comps = append(m.comps, c)
	if spec.Mount == nil {
		b.fail(errors.Errorf("%s: part %s has no mount function", name, spec.Class))
		c.dev = sinkRef{}
	} else {
		c.dev = spec.Mount(&Socket{c})
	}
	return c
}

// Attach connects the pins in from to the pins in to. Single pins are
// connected together; equally sized whole buses are connected pin-wise in
// index order; otherwise the first min(len(from), len(to)) pins are connected
// pairwise.
//
// Direction is decided by the pin kinds, not the argument order, except
// between two bidirectional pins where from drives.
//
func (b *Board) Attach(from, to Pins) error {
	if b.frozen {
		return errors.New("board " + b.name + " is frozen")
	}
	if from.err != nil {
		return b.fail(from.err)
	}
	if to.err != nil {
		return b.fail(to.err)
	}
	if from.c == nil || to.c == nil || from.c.board != b || to.c.board != b {
		return b.fail(errors.New("attach: component not mounted on board " + b.name))
	}
	if from.c == to.c {
		return b.fail(errors.Errorf("attach: self connection on %s", from.c.name))
	}
	na, nb := from.Len(), to.Len()
	if na == 0 || nb == 0 {
		return b.fail(errors.Errorf("attach %s to %s: empty pin list", from.c.name, to.c.name))
	}
	n := na
	switch {
	case na == 1 && nb == 1:
	case na == nb && from.trivial && to.trivial:
	default:
		if nb < n {
			n = nb
		}
		if na != nb {
			b.m.log.Logf(b.m, "wiring", "%s to %s: %d pins to %d pins, connecting the first %d", from.c.name, to.c.name, na, nb, n)
		}
	}
	for i := 0; i < n; i++ {
		if err := b.attachPin(from.c, from.idx[i], to.c, to.idx[i]); err != nil {
			return b.fail(err)
		}
	}
	return nil
}

func (b *Board) attachPin(ca *Component, pa int, cb *Component, pb int) error {
	x, y := &ca.conns[pa], &cb.conns[pb]
	pinName := func(c *Component, cn *Connector) string { return c.name + "." + cn.Name }

	drv, rcv, ok := classify(ca, x, cb, y)
	if !ok {
		return errors.Errorf("cannot connect %s (%s) to %s (%s)", pinName(ca, x), x.Kind, pinName(cb, y), y.Kind)
	}
	if x.Width != y.Width {
		return errors.Errorf("width mismatch between %s (%d bits) and %s (%d bits)", pinName(ca, x), x.Width, pinName(cb, y), y.Width)
	}
	dc := &b.m.comps[drv.Comp].conns[drv.Pin]
	if !dc.Connectable() {
		return errors.Errorf("%s cannot drive more than one link", pinName(b.m.comps[drv.Comp], dc))
	}
	x.wired++
	y.wired++
	b.wires = append(b.wires, wire{drv, rcv})
	return nil
}

// classify decides which end of a pin pair drives the link.
//
func classify(ca *Component, x *Connector, cb *Component, y *Connector) (drv, rcv PinRef, ok bool) {
	a, bb := PinRef{ca.index, x.Index}, PinRef{cb.index, y.Index}
	valid := func(d *Connector, r *Connector) bool { return d.Kind.Drives() && r.Kind.Receives() }

	switch {
	case ca.ref != refNone && cb.ref == refNone:
		if ca.ref == refSink {
			return bb, a, valid(y, x)
		}
		return a, bb, valid(x, y)
	case cb.ref != refNone && ca.ref == refNone:
		if cb.ref == refSink {
			return a, bb, valid(x, y)
		}
		return bb, a, valid(y, x)
	case x.Kind == Sink && y.Kind != Sink:
		return bb, a, valid(y, x)
	case y.Kind == Sink && x.Kind != Sink:
		return a, bb, valid(x, y)
	case x.Kind == Source && y.Kind != Source:
		return a, bb, valid(x, y)
	case y.Kind == Source && x.Kind != Source:
		return bb, a, valid(y, x)
	}
	// both sinks, both sources or both bidirectional
	return a, bb, valid(x, y)
}

// Connect connects two pins given as textual references like "fa.s",
// "ram.d" (whole bus) or "ram.d[0..3]".
//
func (b *Board) Connect(from, to string) error {
	pf, err := b.Resolve(from)
	if err != nil {
		return b.fail(err)
	}
	pt, err := b.Resolve(to)
	if err != nil {
		return b.fail(err)
	}
	return b.Attach(pf, pt)
}

// Wire connects the pins of a wire description like "a.out -> fa.a".
//
func (b *Board) Wire(wire string) error {
	from, to, err := hdl.ParseWire(wire)
	if err != nil {
		return b.fail(errors.Wrapf(err, "wire %q", wire))
	}
	pf, err := b.refPins(from)
	if err != nil {
		return b.fail(err)
	}
	pt, err := b.refPins(to)
	if err != nil {
		return b.fail(err)
	}
	return b.Attach(pf, pt)
}

// Resolve returns the pins designated by a textual reference like "fa.s" or
// "ram.d[0..3]". Lookup errors are returned immediately.
//
func (b *Board) Resolve(ref string) (Pins, error) {
	r, err := hdl.ParseRef(ref)
	if err != nil {
		return Pins{}, err
	}
	return b.refPins(r)
}

func (b *Board) refPins(r hdl.Ref) (Pins, error) {
	if r.Comp == "" {
		return Pins{}, errors.Errorf("missing component name in pin reference %q", r.Name)
	}
	c := b.byName[r.Comp]
	if c == nil {
		return Pins{}, errors.Errorf("no component named %q on board %s", r.Comp, b.name)
	}
	p := c.refPins(r)
	return p, p.err
}

// AddReference allocates a placeholder reference wired to count consecutive
// pins of c starting at ordinal pin. Sink pins get a constant 0 source,
// source and bidirectional pins get a passive sink. References are
// deduplicated by (c, pin, count).
//
func (b *Board) AddReference(c *Component, pin, count int) (*Component, error) {
	if count <= 0 {
		count = 1
	}
	key := refKey{c.index, pin, count}
	if r := b.refs[key]; r != nil {
		return r, nil
	}
	if c.board != b {
		return nil, b.fail(errors.Errorf("reference: %s is not mounted on board %s", c.name, b.name))
	}
	if pin < 0 || pin+count > len(c.conns) {
		return nil, b.fail(errors.Errorf("reference: pin range %d+%d out of bounds for %s", pin, count, c.name))
	}
	sinks := 0
	widths := make([]int, count)
	for i := 0; i < count; i++ {
		cn := &c.conns[pin+i]
		if cn.Kind == Sink {
			sinks++
		}
		widths[i] = cn.Width
	}
	if sinks != 0 && sinks != count {
		return nil, b.fail(errors.Errorf("reference: mixed pin kinds on %s", c.name))
	}
	kind := refSink
	if sinks == count {
		kind = refSource
	}
	r := b.Add(c.name+".ref"+strconv.Itoa(pin)+"_"+strconv.Itoa(count), refSpec(kind, widths, false))
	r.ref = kind
	idx := make([]int, count)
	for i := range idx {
		idx[i] = pin + i
	}
	if err := b.Attach(r.All(), Pins{c: c, idx: idx}); err != nil {
		return nil, err
	}
	b.refs[key] = r
	return r, nil
}

// Tie connects all the given sink pins to a constant value shared by the
// whole board.
//
func (b *Board) Tie(p Pins, v bool) error {
	if p.err != nil {
		return b.fail(p.err)
	}
	for _, i := range p.idx {
		w := p.c.conns[i].Width
		k := constKey{v, w}
		cst := b.consts[k]
		if cst == nil {
			name := "const0"
			if v {
				name = "const1"
			}
			if w != 1 {
				name += "_" + strconv.Itoa(w)
			}
			cst = b.Add(name, refSpec(refSource, []int{w}, v))
			cst.ref = refSource
			b.consts[k] = cst
		}
		if err := b.Attach(cst.Pin("out[0]"), Pins{c: p.c, idx: []int{i}, trivial: true}); err != nil {
			return err
		}
	}
	return nil
}

// FullyWired checks that every required connector has at least one link and
// every component exposes at least one pin. All problems found, including
// earlier Attach failures, are reported in a single *WiringError.
//
func (b *Board) FullyWired() error {
	errs := append([]error(nil), b.errs...)
	for _, c := range b.comps {
		if len(c.conns) == 0 {
			errs = append(errs, errors.Errorf("%s exposes no pins", c.name))
		}
		for i := range c.conns {
			cn := &c.conns[i]
			if cn.Required && !cn.Linked() {
				errs = append(errs, errors.Errorf("pin %s.%s not connected", c.name, cn.Name))
			}
		}
	}
	if len(errs) > 0 {
		return &WiringError{Board: b.name, Errs: errs}
	}
	return nil
}

// linkBasePass turns pending wires into links, one link per unordered pin
// pair, and registers them on both connectors.
//
func (b *Board) linkBasePass() {
	type pair struct{ a, b PinRef }
	seen := make(map[pair]bool, len(b.wires))
	for _, w := range b.wires {
		k := pair{w.drv, w.rcv}
		if w.rcv.Comp < w.drv.Comp || w.rcv.Comp == w.drv.Comp && w.rcv.Pin < w.drv.Pin {
			k = pair{w.rcv, w.drv}
		}
		if seen[k] {
			b.m.log.Logf(b.m, "wiring", "duplicate wire %s.%s -> %s.%s ignored",
				b.m.comps[w.drv.Comp].name, b.Connector(w.drv).Name,
				b.m.comps[w.rcv.Comp].name, b.Connector(w.rcv).Name)
			continue
		}
		seen[k] = true
		li := len(b.links)
		b.links = append(b.links, Link{Driver: w.drv, Receiver: w.rcv})
		d, r := b.Connector(w.drv), b.Connector(w.rcv)
		d.out = append(d.out, li)
		r.in = append(r.in, li)
	}
	for _, c := range b.comps {
		for i := range c.conns {
			c.conns[i].wired = 0
		}
	}
	b.wires = nil
	b.frozen = true
}
