package netlist_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/ticksim"
	"github.com/db47h/ticksim/hwlib"
	"github.com/db47h/ticksim/netlist"
)

const adder = `
config: { seed: 7, quiet: true }
domains: [ { name: fast, hz: 0.5 } ]
boards:
  - name: main
    parts:
      - { name: a, type: Switch }
      - { name: b, type: Switch }
      - { name: fa, type: FullAdder, domain: fast, setup: 1, hold: 1 }
      - { name: ps, type: Probe }
      - { name: pc, type: Probe }
    wires:
      - a.out -> fa.a
      - b.out -> fa.b
      - fa.s -> ps.in
      - fa.cout -> pc.in
    tie: { "fa.cin": 1 }
  - name: aux
    parts:
      - { name: mx, type: Mux4 }
      - { name: p, type: Probe }
    wires:
      - mx.out -> p.in
    tie: { "mx.in": 0x2, "mx.sel": 1 }
traces: [ main/fa.s, "mx.sel[0..1]" ]
faults:
  - { kind: stuck1, target: fa.a, start: 3, duration: 2 }
`

func build(t *testing.T, src string) *ticksim.Machine {
	t.Helper()
	n, err := netlist.Parse(strings.NewReader(src))
	if err != nil {
		t.Fatal(err)
	}
	m, err := n.Build()
	if err != nil {
		t.Fatal(err)
	}
	return m
}

func TestBuild(t *testing.T) {
	m := build(t, adder)
	cfg := m.Config()
	if cfg.Seed != 7 || !cfg.Quiet {
		t.Errorf("config not decoded: %+v", cfg)
	}
	if cfg.MaxIterations != ticksim.DefaultConfig().MaxIterations {
		t.Errorf("MaxIterations = %d, expected the default", cfg.MaxIterations)
	}
	fa := m.Component("fa")
	if fa == nil {
		t.Fatal("component fa not found")
	}
	if d := m.Domain(fa.ClockDomain); d == nil || d.Name != "fast" {
		t.Errorf("fa: bad clock domain %d", fa.ClockDomain)
	}
	if fa.SetupTime != 1 || fa.HoldTime != 1 {
		t.Errorf("fa: setup %d, hold %d", fa.SetupTime, fa.HoldTime)
	}
	if len(m.SignalTraces()) != 3 {
		t.Errorf("got %d traces, expected 3", len(m.SignalTraces()))
	}
	if m.SignalTrace("mx", "sel[1]") == nil {
		t.Error("missing trace on mx.sel[1]")
	}

	s := hwlib.AsProbe(m.Component("ps"))
	c := hwlib.AsProbe(m.Component("pc"))
	// a = b = 0, cin = 1; a is stuck at 1 for ticks 3 and 4.
	for tick := 0; tick < 7; tick++ {
		if err := m.Tick(); err != nil {
			t.Fatal(err)
		}
		stuck := tick == 3 || tick == 4
		if s.Bool() == stuck || c.Bool() != stuck {
			t.Errorf("tick %d: s = %v, cout = %v", tick, s.Bool(), c.Bool())
		}
	}
	if !hwlib.AsProbe(m.Component("aux/p")).Bool() {
		t.Error("mux output should be high")
	}
}

func TestParseFile(t *testing.T) {
	name := filepath.Join(t.TempDir(), "adder.yaml")
	if err := os.WriteFile(name, []byte(adder), 0644); err != nil {
		t.Fatal(err)
	}
	n, err := netlist.ParseFile(name)
	if err != nil {
		t.Fatal(err)
	}
	if len(n.Boards) != 2 || len(n.Boards[0].Parts) != 5 || len(n.Faults) != 1 {
		t.Fatalf("bad decoding: %+v", n)
	}
	if _, err = netlist.ParseFile(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}

func TestParams(t *testing.T) {
	m := build(t, `
boards:
  - name: main
    parts:
      - { name: rom, type: Memory, params: { size: 4, addr_bits: 2, rom: true, init: [1, 2, 3, 4] } }
      - { name: addr, type: WordSwitch, params: { width: 2 } }
      - { name: sw, type: SwitchN, params: { bits: 3 } }
    wires:
      - addr.out -> rom.a
    tie: { "rom.~cs": 0, "rom.~oe": 0, "rom.~wr": 1 }
`)
	if v := hwlib.AsMemory(m.Component("rom")).Peek(2); v != 3 {
		t.Errorf("rom[2] = %d, expected 3", v)
	}
	if n := m.Component("sw").Pin("out").Len(); n != 3 {
		t.Errorf("sw has %d outputs, expected 3", n)
	}
}

func TestErrors(t *testing.T) {
	td := []struct {
		name string
		src  string
		err  string
	}{
		{"empty", ``, "empty netlist"},
		{"unknown field", `boards: [ { name: x, colour: red } ]`, "colour"},
		{"unknown type", `boards: [ { name: x, parts: [ { name: p, type: Flux } ] } ]`, "Flux"},
		{"unnamed part", `boards: [ { name: x, parts: [ { type: NOT } ] } ]`, "has no name"},
		{"duplicate part", `boards: [ { name: x, parts: [ { name: n, type: NOT }, { name: n, type: NOT } ] } ]`, "duplicate part"},
		{"duplicate domain", `domains: [ { name: d, hz: 1 }, { name: d, hz: 2 } ]`, "duplicate clock domain"},
		{"unknown domain", `boards: [ { name: x, parts: [ { name: n, type: NOT, domain: slow } ] } ]`, "slow"},
		{"bad wire", `
boards:
  - name: x
    parts: [ { name: n, type: NOT }, { name: p, type: Probe } ]
    wires: [ "n.out => p.in" ]`, "n.out => p.in"},
		{"unwired", `boards: [ { name: x, parts: [ { name: n, type: NOT } ] } ]`, "not connected"},
		{"bad tie", `boards: [ { name: x, parts: [ { name: n, type: NOT } ], tie: { "q.in": 1 } } ]`, "no component named"},
		{"bad trace", `
boards: [ { name: x, parts: [ { name: n, type: NOT } ], tie: { "n.in": 1 } } ]
traces: [ n.foo ]`, "n.foo"},
		{"bad fault kind", `
boards: [ { name: x, parts: [ { name: n, type: NOT } ], tie: { "n.in": 1 } } ]
faults: [ { kind: melted, target: n.in } ]`, "melted"},
		{"short without partner", `
boards: [ { name: x, parts: [ { name: n, type: NOT } ], tie: { "n.in": 1 } } ]
faults: [ { kind: short, target: n.in } ]`, "missing partner"},
		{"rejected fault", `
boards: [ { name: x, parts: [ { name: n, type: NOT } ], tie: { "n.in": 1 } } ]
faults: [ { kind: noise, target: n.in, probability: 2 } ]`, "rejected"},
	}
	for _, d := range td {
		t.Run(d.name, func(t *testing.T) {
			n, err := netlist.Parse(strings.NewReader(d.src))
			if err == nil {
				_, err = n.Build()
			}
			if err == nil {
				t.Fatal("expected an error")
			}
			if !strings.Contains(err.Error(), d.err) {
				t.Fatalf("error %q does not mention %q", err, d.err)
			}
		})
	}
}
