// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"sort"

	"github.com/db47h/ticksim"
	"github.com/pkg/errors"
)

// Params holds the parameters of a parametric part, as decoded from a
// netlist file.
//
type Params map[string]interface{}

// Int returns the named integer parameter or def if not set.
//
func (p Params) Int(name string, def int) (int, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case uint64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, errors.Errorf("parameter %s: expected an integer, got %v", name, v)
}

// Bool returns the named boolean parameter or def if not set.
//
func (p Params) Bool(name string, def bool) (bool, error) {
	v, ok := p[name]
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, errors.Errorf("parameter %s: expected a boolean, got %v", name, v)
	}
	return b, nil
}

// Bytes returns the named list of byte values or nil if not set.
//
func (p Params) Bytes(name string) ([]byte, error) {
	v, ok := p[name]
	if !ok {
		return nil, nil
	}
	l, ok := v.([]interface{})
	if !ok {
		return nil, errors.Errorf("parameter %s: expected a list, got %v", name, v)
	}
	out := make([]byte, len(l))
	for i := range l {
		n, err := Params{name: l[i]}.Int(name, 0)
		if err != nil {
			return nil, err
		}
		if n < 0 || n > 255 {
			return nil, errors.Errorf("parameter %s: value %d out of range", name, n)
		}
		out[i] = byte(n)
	}
	return out, nil
}

// A Factory returns the part specification for the given parameters.
//
type Factory func(p Params) (*ticksim.PartSpec, error)

func fixed(sp *ticksim.PartSpec) Factory {
	return func(Params) (*ticksim.PartSpec, error) { return sp, nil }
}

func sized(def int, fn func(n int) *ticksim.PartSpec, param string) Factory {
	return func(p Params) (*ticksim.PartSpec, error) {
		n, err := p.Int(param, def)
		if err != nil {
			return nil, err
		}
		if n < 1 || n > 64 {
			return nil, errors.Errorf("parameter %s: invalid value %d", param, n)
		}
		return fn(n), nil
	}
}

func memory(p Params) (*ticksim.PartSpec, error) {
	size, err := p.Int("size", 256)
	if err != nil {
		return nil, err
	}
	abits, err := p.Int("addr_bits", 8)
	if err != nil {
		return nil, err
	}
	if size < 1 || abits < 1 || abits > 32 || size > 1<<uint(abits) {
		return nil, errors.Errorf("memory: invalid size %d for %d address bits", size, abits)
	}
	rom, err := p.Bool("rom", false)
	if err != nil {
		return nil, err
	}
	init, err := p.Bytes("init")
	if err != nil {
		return nil, err
	}
	return Memory(size, abits, rom, init), nil
}

var registry = map[string]Factory{
	"NOT":            fixed(Not),
	"AND":            fixed(And),
	"NAND":           fixed(Nand),
	"OR":             fixed(Or),
	"NOR":            fixed(Nor),
	"XOR":            fixed(Xor),
	"XNOR":           fixed(Xnor),
	"HalfAdder":      fixed(HalfAdder),
	"FullAdder":      fixed(FullAdder),
	"Adder":          sized(4, AdderN, "bits"),
	"Adder4":         fixed(Adder4),
	"AddSub":         sized(4, AddSubN, "bits"),
	"AddSub4":        fixed(AddSub4),
	"Mux2":           fixed(Mux2),
	"Mux4":           fixed(Mux4),
	"Demux":          fixed(Demux),
	"Decoder2to4":    fixed(Decoder2to4),
	"Decoder3to8":    fixed(Decoder3to8),
	"Encoder4to2":    fixed(Encoder4to2),
	"Encoder8to3":    fixed(Encoder8to3),
	"DFF":            fixed(DFF),
	"JKFF":           fixed(JKFF),
	"Register":       sized(4, RegisterN, "bits"),
	"Register4":      fixed(Register4),
	"Counter":        sized(4, CounterN, "bits"),
	"Counter4":       fixed(Counter4),
	"RippleCounter":  sized(4, RippleCounterN, "bits"),
	"RippleCounter4": fixed(RippleCounter4),
	"Memory":         memory,
	"Switch":         fixed(Switch),
	"SwitchN":        sized(8, SwitchN, "bits"),
	"WordSwitch":     sized(8, WordSwitch, "width"),
	"Probe":          fixed(Probe),
	"ProbeN":         sized(8, ProbeN, "bits"),
	"WordProbe":      sized(8, WordProbe, "width"),
	"Clock":          fixed(Clock),
	"ClockGate":      fixed(ClockGate),
	"Transceiver":    sized(8, Transceiver, "width"),
	"High":           fixed(High),
	"Low":            fixed(Low),
}

// Register registers a part factory under the given type name. It replaces
// any previously registered factory with the same name.
//
func Register(name string, f Factory) { registry[name] = f }

// Lookup returns the factory registered under the given name.
//
func Lookup(name string) (Factory, bool) {
	f, ok := registry[name]
	return f, ok
}

// New returns the part specification for the given type name and parameters.
//
func New(name string, p Params) (*ticksim.PartSpec, error) {
	f, ok := registry[name]
	if !ok {
		return nil, errors.Errorf("unknown part type %q", name)
	}
	sp, err := f(p)
	return sp, errors.Wrapf(err, "part type %s", name)
}

// Names returns the sorted names of all registered parts.
//
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
