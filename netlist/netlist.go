// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package netlist loads machine descriptions from YAML files.
//
// A netlist lists clock domains, boards with their parts and wires, the
// signals to trace and the faults to inject:
//
//	config: { max_iterations: 1000, seed: 1 }
//	domains: [ { name: fast, hz: 0.5 } ]
//	boards:
//	  - name: main
//	    parts:
//	      - { name: a, type: Switch }
//	      - { name: fa, type: FullAdder, domain: fast, setup: 1, hold: 1 }
//	    wires:
//	      - a.out -> fa.a
//	    tie: { "fa.cin": 0 }
//	traces: [ fa.s ]
//	faults:
//	  - { kind: stuck1, target: fa.a, start: 3, duration: 2 }
//
// Part types are the names registered in package hwlib.
//
package netlist

import (
	"io"
	"os"
	"sort"
	"strings"

	"github.com/db47h/ticksim"
	"github.com/db47h/ticksim/hwlib"
	"github.com/db47h/ticksim/internal/hdl"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// A Netlist is the decoded form of a netlist file.
//
type Netlist struct {
	Config  ticksim.Config `yaml:"config"`
	Domains []Domain       `yaml:"domains"`
	Boards  []Board        `yaml:"boards"`
	Traces  []string       `yaml:"traces"`
	Faults  []Fault        `yaml:"faults"`
}

// Domain is a named clock domain.
//
type Domain struct {
	Name string  `yaml:"name"`
	Hz   float64 `yaml:"hz"`
}

// Board describes a board: its parts, the wires between them and the pins
// tied to constant values. Wires use the "comp.pin -> comp.pin" syntax.
//
type Board struct {
	Name  string            `yaml:"name"`
	Parts []Part            `yaml:"parts"`
	Wires []string          `yaml:"wires"`
	Tie   map[string]uint64 `yaml:"tie"`
}

// Part is a component instance.
//
type Part struct {
	Name   string       `yaml:"name"`
	Type   string       `yaml:"type"`
	Params hwlib.Params `yaml:"params"`
	Domain string       `yaml:"domain"`
	Setup  int64        `yaml:"setup"`
	Hold   int64        `yaml:"hold"`
}

// Fault is a fault to inject. Target and Partner are pin references like
// "fa.a" or "main/fa.a". A zero or negative Duration makes the fault
// permanent.
//
type Fault struct {
	Kind        string  `yaml:"kind"`
	Target      string  `yaml:"target"`
	Start       int64   `yaml:"start"`
	Duration    int64   `yaml:"duration"`
	Probability float64 `yaml:"probability"`
	Extra       int64   `yaml:"extra"`
	Partner     string  `yaml:"partner"`
}

// Parse decodes a netlist. Unknown fields are errors. Config values not set
// in the netlist keep their default value.
//
func Parse(r io.Reader) (*Netlist, error) {
	n := &Netlist{Config: ticksim.DefaultConfig()}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(n); err != nil {
		if err == io.EOF {
			return nil, errors.New("empty netlist")
		}
		return nil, errors.Wrap(err, "netlist")
	}
	return n, nil
}

// ParseFile decodes the named netlist file.
//
func ParseFile(name string) (*Netlist, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	n, err := Parse(f)
	if err != nil {
		return nil, errors.Wrap(err, name)
	}
	return n, nil
}

// Build creates and initializes a machine from the netlist.
//
func (n *Netlist) Build() (*ticksim.Machine, error) {
	m := ticksim.NewMachine(n.Config)
	domains := map[string]int{"async": 0, "": 0}
	for _, d := range n.Domains {
		if _, ok := domains[d.Name]; ok {
			return nil, errors.Errorf("duplicate clock domain %q", d.Name)
		}
		id := m.CreateDomain(d.Hz)
		m.Domain(id).Name = d.Name
		domains[d.Name] = id
	}
	for i := range n.Boards {
		if err := n.Boards[i].build(m, domains); err != nil {
			return nil, err
		}
	}
	if err := m.Init(); err != nil {
		return nil, err
	}
	for _, t := range n.Traces {
		if err := addTraces(m, t); err != nil {
			return nil, errors.Wrapf(err, "trace %q", t)
		}
	}
	for i := range n.Faults {
		if err := n.Faults[i].inject(m); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (bd *Board) build(m *ticksim.Machine, domains map[string]int) error {
	b := m.AddBoard(bd.Name)
	for _, p := range bd.Parts {
		if p.Name == "" {
			return errors.Errorf("board %s: part of type %q has no name", bd.Name, p.Type)
		}
		if b.Component(p.Name) != nil {
			return errors.Errorf("board %s: duplicate part name %q", bd.Name, p.Name)
		}
		spec, err := hwlib.New(p.Type, p.Params)
		if err != nil {
			return errors.Wrapf(err, "board %s: part %s", bd.Name, p.Name)
		}
		id, ok := domains[p.Domain]
		if !ok {
			return errors.Errorf("board %s: part %s: unknown clock domain %q", bd.Name, p.Name, p.Domain)
		}
		c := b.Add(p.Name, spec)
		c.ClockDomain = id
		c.SetupTime = p.Setup
		c.HoldTime = p.Hold
	}
	// Wiring errors are collected by the board and reported by Init.
	for _, w := range bd.Wires {
		_ = b.Wire(w)
	}
	refs := make([]string, 0, len(bd.Tie))
	for r := range bd.Tie {
		refs = append(refs, r)
	}
	sort.Strings(refs)
	for _, r := range refs {
		pins, err := b.Resolve(r)
		if err != nil {
			return errors.Wrapf(err, "board %s: tie %q", bd.Name, r)
		}
		v := bd.Tie[r]
		c := pins.Component()
		for i, idx := range pins.Indices() {
			_ = b.Tie(c.Pin(c.Connector(idx).Name), v>>uint(i)&1 != 0)
		}
	}
	return nil
}

// splitRef splits a possibly board qualified pin reference like "main/fa.s"
// into its component name, as understood by Machine.Component, and pin
// reference.
//
func splitRef(s string) (string, hdl.Ref, error) {
	var board string
	if i := strings.IndexByte(s, '/'); i >= 0 {
		board, s = s[:i+1], s[i+1:]
	}
	r, err := hdl.ParseRef(s)
	if err != nil {
		return "", r, err
	}
	if r.Comp == "" {
		return "", r, errors.Errorf("missing component name in %q", s)
	}
	return board + r.Comp, r, nil
}

// pinNames returns the names of the individual pins designated by a pin
// reference.
//
func pinNames(m *ticksim.Machine, s string) (string, []string, error) {
	comp, r, err := splitRef(s)
	if err != nil {
		return "", nil, err
	}
	c := m.Component(comp)
	if c == nil {
		return "", nil, errors.Errorf("unknown component %q", comp)
	}
	if len(r.Pins) == 1 && !r.Bus {
		// plain pin or whole bus
		pins := c.Pin(r.Pins[0])
		if err := pins.Err(); err != nil {
			return "", nil, err
		}
		names := make([]string, pins.Len())
		for i, idx := range pins.Indices() {
			names[i] = c.Connector(idx).Name
		}
		return comp, names, nil
	}
	for _, pin := range r.Pins {
		if _, ok := c.PinIndex(pin); !ok {
			return "", nil, errors.Errorf("%s: unknown pin %q", comp, pin)
		}
	}
	return comp, r.Pins, nil
}

func addTraces(m *ticksim.Machine, s string) error {
	comp, names, err := pinNames(m, s)
	if err != nil {
		return err
	}
	for _, pin := range names {
		if _, err := m.AddSignalTrace(comp, pin); err != nil {
			return err
		}
	}
	return nil
}

func (f *Fault) pin(m *ticksim.Machine, s string) (string, string, error) {
	comp, names, err := pinNames(m, s)
	if err != nil {
		return "", "", err
	}
	if len(names) != 1 {
		return "", "", errors.Errorf("%q designates %d pins, expected one", s, len(names))
	}
	return comp, names[0], nil
}

func (f *Fault) inject(m *ticksim.Machine) error {
	kind, err := ticksim.ParseFaultKind(f.Kind)
	if err != nil {
		return errors.Wrapf(err, "fault on %q", f.Target)
	}
	ft := ticksim.Fault{
		Kind:        kind,
		Start:       f.Start,
		Duration:    f.Duration,
		Probability: f.Probability,
		Extra:       f.Extra,
	}
	if ft.Duration <= 0 {
		ft.Duration = -1
	}
	if ft.Comp, ft.Pin, err = f.pin(m, f.Target); err != nil {
		return errors.Wrapf(err, "%s fault", kind)
	}
	if kind == ticksim.Short {
		if f.Partner == "" {
			return errors.Errorf("short fault on %q: missing partner", f.Target)
		}
		if ft.PartnerComp, ft.PartnerPin, err = f.pin(m, f.Partner); err != nil {
			return errors.Wrapf(err, "%s fault", kind)
		}
	}
	if m.Faults().Add(ft) == 0 {
		return errors.Errorf("%s fault on %q rejected", kind, f.Target)
	}
	return nil
}
