package hwlib_test

import (
	"strconv"
	"testing"
	"testing/quick"

	"github.com/db47h/ticksim"
	hl "github.com/db47h/ticksim/hwlib"
	"github.com/db47h/ticksim/hwtest"
)

func TestFullAdder(t *testing.T) {
	td := []struct {
		a, b, cin bool
		s, cout   bool
	}{
		{false, false, false, false, false},
		{false, false, true, true, false},
		{false, true, false, true, false},
		{false, true, true, false, true},
		{true, false, false, true, false},
		{true, false, true, false, true},
		{true, true, false, false, true},
		{true, true, true, true, true},
	}
	h := hwtest.NewHarness(t, hl.FullAdder)
	for _, d := range td {
		h.Set("a", d.a)
		h.Set("b", d.b)
		h.Set("cin", d.cin)
		h.Tick()
		if h.Bool("s") != d.s || h.Bool("cout") != d.cout {
			t.Errorf("%v + %v + %v: expected s=%v cout=%v, got s=%v cout=%v",
				d.a, d.b, d.cin, d.s, d.cout, h.Bool("s"), h.Bool("cout"))
		}
	}
}

// rippleAdder builds a 4 bits ripple carry adder from full adders on a board.
//
func rippleAdder(t *testing.T) (m *ticksim.Machine, a, b, cin *hl.SwitchDevice, s, cout *hl.ProbeDevice) {
	m = ticksim.NewMachine(ticksim.DefaultConfig())
	bd := m.AddBoard("main")
	sa := bd.Add("a", hl.SwitchN(4))
	sb := bd.Add("b", hl.SwitchN(4))
	sc := bd.Add("cin", hl.Switch)
	ps := bd.Add("s", hl.ProbeN(4))
	pc := bd.Add("cout", hl.Probe)
	carry := "cin.out"
	for i := 0; i < 4; i++ {
		fa := "fa" + strconv.Itoa(i)
		bd.Add(fa, hl.FullAdder)
		is := "[" + strconv.Itoa(i) + "]"
		hwtest.ExpectSuccess(t, bd.Connect("a.out"+is, fa+".a"))
		hwtest.ExpectSuccess(t, bd.Connect("b.out"+is, fa+".b"))
		hwtest.ExpectSuccess(t, bd.Connect(carry, fa+".cin"))
		hwtest.ExpectSuccess(t, bd.Connect(fa+".s", "s.in"+is))
		carry = fa + ".cout"
	}
	hwtest.ExpectSuccess(t, bd.Connect(carry, "cout.in"))
	if err := m.Init(); err != nil {
		t.Fatal(err)
	}
	return m, hl.AsSwitch(sa), hl.AsSwitch(sb), hl.AsSwitch(sc), hl.AsProbe(ps), hl.AsProbe(pc)
}

func TestAdder4(t *testing.T) {
	m, a, b, cin, s, cout := rippleAdder(t)
	f := func(x, y uint8, c bool) bool {
		x &= 15
		y &= 15
		a.SetValue(uint64(x))
		b.SetValue(uint64(y))
		cin.Set(c)
		if err := m.Tick(); err != nil {
			t.Fatal(err)
		}
		sum := uint64(x) + uint64(y)
		if c {
			sum++
		}
		return s.Value() == sum&15 && cout.Bool() == (sum > 15)
	}
	if err := quick.Check(f, nil); err != nil {
		t.Fatal(err)
	}
	// no feedback in a ripple adder
	hwtest.ExpectEquality(t, len(m.FeedbackGroups()), 0)

	hwtest.CheckPart(t, hl.Adder4, func(in []uint64) []uint64 {
		var x, y uint64
		for i := 0; i < 4; i++ {
			x |= in[i] << uint(i)
			y |= in[4+i] << uint(i)
		}
		sum := x + y + in[8]
		return []uint64{sum & 1, sum >> 1 & 1, sum >> 2 & 1, sum >> 3 & 1, sum >> 4 & 1}
	})
}

func TestAddSub4(t *testing.T) {
	h := hwtest.NewHarness(t, hl.AddSub4)
	for x := uint64(0); x < 16; x++ {
		for y := uint64(0); y < 16; y++ {
			h.SetBus("a", 4, x)
			h.SetBus("b", 4, y)
			h.Set("cin", false)

			h.Set("sub", false)
			h.Tick()
			if s, c := h.Bus("s", 4), h.Bool("cout"); s != (x+y)&15 || c != (x+y > 15) {
				t.Fatalf("%d + %d: got %d, carry %v", x, y, s, c)
			}

			h.Set("sub", true)
			h.Tick()
			// cout is the inverted borrow
			if s, c := h.Bus("s", 4), h.Bool("cout"); s != (x-y)&15 || c != (x >= y) {
				t.Fatalf("%d - %d: got %d, carry %v", x, y, s, c)
			}
		}
	}
}

func TestAdderN(t *testing.T) {
	hwtest.ComparePart(t, hl.Adder4, hl.AdderN(4))
	h := hwtest.NewHarness(t, hl.AdderN(8))
	h.SetBus("a", 8, 200)
	h.SetBus("b", 8, 100)
	h.Tick()
	hwtest.ExpectEquality(t, h.Bus("s", 8), 300&255)
	hwtest.ExpectEquality(t, h.Bool("cout"), true)
}
