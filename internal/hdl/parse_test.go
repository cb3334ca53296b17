package hdl

import (
	"reflect"
	"testing"
)

func TestParseIO(t *testing.T) {
	td := []struct {
		in  string
		out []string
		err bool
	}{
		{"", nil, false},
		{"a", []string{"a"}, false},
		{"a, b, ~q", []string{"a", "b", "~q"}, false},
		{"in[2], sel", []string{"in[0]", "in[1]", "sel"}, false},
		{"a[2]b", nil, true},
		{"a, [2]", nil, true},
		{"a[x]", nil, true},
		{"a[2", nil, true},
	}
	for _, d := range td {
		out, err := ParseIO(d.in)
		if (err != nil) != d.err {
			t.Errorf("ParseIO(%q): unexpected error status %v", d.in, err)
			continue
		}
		if !d.err && !reflect.DeepEqual(out, d.out) {
			t.Errorf("ParseIO(%q) = %v, expected %v", d.in, out, d.out)
		}
	}
}

func TestParseRef(t *testing.T) {
	td := []struct {
		in  string
		ref Ref
		err bool
	}{
		{"fa.s", Ref{Comp: "fa", Name: "s", Pins: []string{"s"}}, false},
		{"s", Ref{Name: "s", Pins: []string{"s"}}, false},
		{"ram.d[3]", Ref{Comp: "ram", Name: "d", Pins: []string{"d[3]"}}, false},
		{"ram.d[0..2]", Ref{Comp: "ram", Name: "d", Pins: []string{"d[0]", "d[1]", "d[2]"}, Bus: true}, false},
		{"ff.~q", Ref{Comp: "ff", Name: "~q", Pins: []string{"~q"}}, false},
		{"ram.d[2..0]", Ref{}, true},
		{"ram.", Ref{}, true},
		{"ram.d x", Ref{}, true},
	}
	for _, d := range td {
		ref, err := ParseRef(d.in)
		if (err != nil) != d.err {
			t.Errorf("ParseRef(%q): unexpected error status %v", d.in, err)
			continue
		}
		if !d.err && !reflect.DeepEqual(ref, d.ref) {
			t.Errorf("ParseRef(%q) = %+v, expected %+v", d.in, ref, d.ref)
		}
	}
}

func TestParseWire(t *testing.T) {
	from, to, err := ParseWire("sw.out -> fa.a")
	if err != nil {
		t.Fatal(err)
	}
	if from.Comp != "sw" || from.Pins[0] != "out" || to.Comp != "fa" || to.Pins[0] != "a" {
		t.Fatalf("unexpected wire %+v -> %+v", from, to)
	}
	if _, _, err = ParseWire("sw.out fa.a"); err == nil {
		t.Fatal("expected error for missing arrow")
	}
	if _, _, err = ParseWire("sw.out -> fa.a -> x"); err == nil {
		t.Fatal("expected error for trailing input")
	}
}
