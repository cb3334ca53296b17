// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"testing"

	"github.com/db47h/ticksim"
	"github.com/db47h/ticksim/hwlib"
)

// Harness wires a single part to one switch per input pin and one probe per
// output pin. Bidirectional pins are connected to a transceiver that can drive
// the pin or capture its value.
//
type Harness struct {
	T    testing.TB
	M    *ticksim.Machine
	B    *ticksim.Board
	Part *ticksim.Component

	in  map[string]*hwlib.SwitchDevice
	out map[string]*hwlib.ProbeDevice
	oe  map[string]*hwlib.SwitchDevice
}

// NewHarness mounts the part spec on a new machine with the default
// configuration. Optional input pins are left unconnected unless listed in
// optional. The single name "*" connects all optional pins.
//
func NewHarness(t testing.TB, spec *ticksim.PartSpec, optional ...string) *Harness {
	t.Helper()
	return NewHarnessConfig(t, ticksim.DefaultConfig(), spec, optional...)
}

// NewHarnessConfig is like NewHarness with a custom machine configuration.
//
func NewHarnessConfig(t testing.TB, cfg ticksim.Config, spec *ticksim.PartSpec, optional ...string) *Harness {
	t.Helper()
	m := ticksim.NewMachine(cfg)
	h := &Harness{
		T:   t,
		M:   m,
		B:   m.AddBoard("test"),
		in:  make(map[string]*hwlib.SwitchDevice),
		out: make(map[string]*hwlib.ProbeDevice),
		oe:  make(map[string]*hwlib.SwitchDevice),
	}
	all := len(optional) == 1 && optional[0] == "*"
	h.Part = h.B.Add("dut", spec)
	for _, cn := range h.Part.Connectors() {
		cn := cn
		switch cn.Kind {
		case ticksim.Sink:
			if !cn.Required && !all && !contains(optional, cn.Name) {
				continue
			}
			h.in[cn.Name] = h.source("sw_"+cn.Name, cn.Width, h.Part.Pin(cn.Name))
		case ticksim.Source:
			h.out[cn.Name] = h.sink("p_"+cn.Name, cn.Width, h.Part.Pin(cn.Name))
		case ticksim.Bidirectional:
			tx := h.B.Add("tx_"+cn.Name, hwlib.Transceiver(cn.Width))
			h.in[cn.Name] = h.source("sw_"+cn.Name, cn.Width, tx.Pin("in"))
			h.oe[cn.Name] = h.source("oe_"+cn.Name, 1, tx.Pin("oe"))
			h.out[cn.Name] = h.sink("p_"+cn.Name, cn.Width, tx.Pin("out"))
			h.attach(tx.Pin("d"), h.Part.Pin(cn.Name))
		}
	}
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	return h
}

func contains(l []string, s string) bool {
	for _, v := range l {
		if v == s {
			return true
		}
	}
	return false
}

func (h *Harness) attach(from, to ticksim.Pins) {
	h.T.Helper()
	if err := h.B.Attach(from, to); err != nil {
		h.T.Fatal(err)
	}
}

func (h *Harness) source(name string, width int, to ticksim.Pins) *hwlib.SwitchDevice {
	h.T.Helper()
	sp := hwlib.Switch
	if width > 1 {
		sp = hwlib.WordSwitch(width)
	}
	c := h.B.Add(name, sp)
	h.attach(c.Pin("out"), to)
	return hwlib.AsSwitch(c)
}

func (h *Harness) sink(name string, width int, from ticksim.Pins) *hwlib.ProbeDevice {
	h.T.Helper()
	sp := hwlib.Probe
	if width > 1 {
		sp = hwlib.WordProbe(width)
	}
	c := h.B.Add(name, sp)
	h.attach(from, c.Pin("in"))
	return hwlib.AsProbe(c)
}

// Inputs returns the names of the connected input pins.
//
func (h *Harness) Inputs() []string {
	var l []string
	for _, cn := range h.Part.Connectors() {
		if _, ok := h.in[cn.Name]; ok {
			l = append(l, cn.Name)
		}
	}
	return l
}

// Outputs returns the names of the output and bidirectional pins.
//
func (h *Harness) Outputs() []string {
	var l []string
	for _, cn := range h.Part.Connectors() {
		if _, ok := h.out[cn.Name]; ok {
			l = append(l, cn.Name)
		}
	}
	return l
}

// SetValue sets the value of an input pin for the next tick.
//
func (h *Harness) SetValue(pin string, v uint64) {
	h.T.Helper()
	s, ok := h.in[pin]
	if !ok {
		h.T.Fatalf("no input pin %q", pin)
	}
	s.SetValue(v)
}

// Set sets the value of a single bit input pin.
//
func (h *Harness) Set(pin string, b bool) {
	h.T.Helper()
	var v uint64
	if b {
		v = 1
	}
	h.SetValue(pin, v)
}

// SetBus sets the pins bus[0] to bus[n-1] to the bits of v.
//
func (h *Harness) SetBus(bus string, n int, v uint64) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.SetValue(ticksim.BusPinName(bus, i), v>>uint(i)&1)
	}
}

// Drive drives a bidirectional pin with v.
//
func (h *Harness) Drive(pin string, v uint64) {
	h.T.Helper()
	oe, ok := h.oe[pin]
	if !ok {
		h.T.Fatalf("no bidirectional pin %q", pin)
	}
	h.in[pin].SetValue(v)
	oe.Set(true)
}

// Release stops driving a bidirectional pin.
//
func (h *Harness) Release(pin string) {
	h.T.Helper()
	oe, ok := h.oe[pin]
	if !ok {
		h.T.Fatalf("no bidirectional pin %q", pin)
	}
	oe.Set(false)
}

// Tick runs a single machine tick and fails the test on error.
//
func (h *Harness) Tick() {
	h.T.Helper()
	if err := h.M.Tick(); err != nil {
		h.T.Fatal(err)
	}
}

// Run runs n ticks.
//
func (h *Harness) Run(n int) {
	h.T.Helper()
	for i := 0; i < n; i++ {
		h.Tick()
	}
}

// Get returns the value of an output pin.
//
func (h *Harness) Get(pin string) uint64 {
	h.T.Helper()
	p, ok := h.out[pin]
	if !ok {
		h.T.Fatalf("no output pin %q", pin)
	}
	return p.Value()
}

// Bool returns the value of a single bit output pin.
//
func (h *Harness) Bool(pin string) bool { return h.Get(pin) != 0 }

// Bus returns the value of the pins bus[0] to bus[n-1].
//
func (h *Harness) Bus(bus string, n int) uint64 {
	h.T.Helper()
	var v uint64
	for i := 0; i < n; i++ {
		v |= h.Get(ticksim.BusPinName(bus, i)) << uint(i)
	}
	return v
}
