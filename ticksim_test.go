package ticksim_test

import (
	"strings"
	"testing"

	"github.com/db47h/ticksim"
	hl "github.com/db47h/ticksim/hwlib"
	"github.com/db47h/ticksim/hwtest"
	"github.com/pkg/errors"
)

func trace(t *testing.T, err error) {
	t.Helper()
	if err, ok := err.(interface {
		StackTrace() errors.StackTrace
	}); ok {
		for _, f := range err.StackTrace() {
			t.Logf("%+v ", f)
		}
	}
}

func initMachine(t *testing.T, m *ticksim.Machine) {
	t.Helper()
	if err := m.Init(); err != nil {
		trace(t, err)
		t.Fatal(err)
	}
}

func connect(t *testing.T, b *ticksim.Board, wires ...string) {
	t.Helper()
	for i := 0; i+1 < len(wires); i += 2 {
		if err := b.Connect(wires[i], wires[i+1]); err != nil {
			t.Fatal(err)
		}
	}
}

func tieBus(t *testing.T, b *ticksim.Board, c *ticksim.Component, bus string, n int, v uint64) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := b.Tie(c.Pin(ticksim.BusPinName(bus, i)), v>>uint(i)&1 != 0); err != nil {
			t.Fatal(err)
		}
	}
}

func TestWiring_errors(t *testing.T) {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	b.Add("n1", hl.Not)
	b.Add("n2", hl.Not)
	b.Add("w", hl.WordProbe(8))
	b.Add("a", hl.And)

	td := []struct {
		from, to string
	}{
		{"n1.out", "n2.out"}, // two sources
		{"n1.out", "w.in"},   // width mismatch
		{"n1.in", "n1.out"},  // self connection
		{"n1.foo", "n2.in"},  // unknown pin
		{"zz.out", "n2.in"},  // unknown component
	}
	for _, d := range td {
		hwtest.ExpectFailure(t, b.Connect(d.from, d.to))
	}
	hwtest.ExpectSuccess(t, b.Connect("n1.out", "n2.in"))
	hwtest.ExpectFailure(t, b.Wire("n1.out => a.b"))
	hwtest.ExpectFailure(t, b.Wire("n1.out -> zz.in"))
	hwtest.ExpectSuccess(t, b.Wire("n1.out -> a.b"))

	err := m.Init()
	if err == nil {
		t.Fatal("Init succeeded on a badly wired board")
	}
	for _, s := range []string{"pin n1.in not connected", "pin a.a not connected", "width mismatch", "self connection"} {
		if !strings.Contains(err.Error(), s) {
			t.Errorf("missing %q in %v", s, err)
		}
	}
	hwtest.ExpectFailure(t, m.Tick())
}

func TestWiring_single(t *testing.T) {
	single := *hl.Not
	single.Single = []string{"out"}
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	b.Add("sw", hl.Switch)
	b.Add("n", &single)
	b.Add("p1", hl.Probe)
	b.Add("p2", hl.Probe)
	connect(t, b, "sw.out", "n.in", "n.out", "p1.in")
	hwtest.ExpectFailure(t, b.Connect("n.out", "p2.in"))
	// fan-out is fine on regular outputs
	connect(t, b, "sw.out", "p2.in")
	hwtest.ExpectFailure(t, m.Init())
}

func TestWiring_freeze(t *testing.T) {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	sw := b.Add("sw", hl.Switch)
	n := b.Add("n", hl.Not)
	p := b.Add("p", hl.Probe)
	connect(t, b, "sw.out", "n.in", "n.out", "p.in", "n.in", "sw.out")
	initMachine(t, m)

	// the duplicate wire is ignored
	if len(b.Links()) != 2 {
		t.Fatalf("expected 2 links, got %d", len(b.Links()))
	}
	for _, l := range b.Links() {
		dc, rc := m.Components()[l.Driver.Comp], m.Components()[l.Receiver.Comp]
		if dc.Board() != b || rc.Board() != b {
			t.Fatalf("link %v references a component of another board", l)
		}
		if !b.Connector(l.Driver).Kind.Drives() || !b.Connector(l.Receiver).Kind.Receives() {
			t.Fatalf("bad link %v", l)
		}
	}
	for _, c := range m.Components() {
		for _, cn := range c.Connectors() {
			if cn.Required && !cn.Linked() {
				t.Fatalf("%s.%s not linked", c.Name(), cn.Name)
			}
		}
	}
	if sw.Connector(0).Out()[0] != n.Connector(0).In()[0] {
		t.Fatal("link not registered on both connectors")
	}

	hwtest.ExpectFailure(t, b.Connect("sw.out", "p.in"))
	hwtest.ExpectFailure(t, m.Init())
	func() {
		defer func() {
			if recover() == nil {
				t.Error("Add did not panic on a frozen board")
			}
		}()
		b.Add("late", hl.Not)
	}()
	_ = p
}

func TestAddReference(t *testing.T) {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	and := b.Add("and", hl.Nand)
	p := b.Add("p", hl.Probe)
	r, err := b.AddReference(and, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	r2, err := b.AddReference(and, 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if r != r2 {
		t.Fatal("references not deduplicated")
	}
	// passive sink on the output
	if _, err = b.AddReference(and, 2, 1); err != nil {
		t.Fatal(err)
	}
	connect(t, b, "and.out", "p.in")
	initMachine(t, m)
	hwtest.ExpectSuccess(t, m.Tick())
	hwtest.ExpectEquality(t, hl.AsProbe(p).Bool(), true)

	// mixed pin kinds are rejected and fail Init
	m = ticksim.NewMachine(ticksim.DefaultConfig())
	b = m.AddBoard("main")
	and = b.Add("and", hl.Nand)
	_, err = b.AddReference(and, 1, 2)
	hwtest.ExpectFailure(t, err)
	hwtest.ExpectFailure(t, m.Init())
}

// rippleAdder wires n full adders into a ripple carry adder.
//
func rippleAdder(t *testing.T, n int) *ticksim.Machine {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	a := b.Add("a", hl.SwitchN(n))
	bb := b.Add("b", hl.SwitchN(n))
	s := b.Add("s", hl.ProbeN(n+1))
	for i := 0; i < n; i++ {
		fa := b.Add("fa"+string(rune('0'+i)), hl.FullAdder)
		hwtest.ExpectSuccess(t, b.Attach(a.Pin(ticksim.BusPinName("out", i)), fa.Pin("a")))
		hwtest.ExpectSuccess(t, b.Attach(bb.Pin(ticksim.BusPinName("out", i)), fa.Pin("b")))
		hwtest.ExpectSuccess(t, b.Attach(fa.Pin("s"), s.Pin(ticksim.BusPinName("in", i))))
		if i == 0 {
			hwtest.ExpectSuccess(t, b.Tie(fa.Pin("cin"), false))
		} else {
			prev := b.Component("fa" + string(rune('0'+i-1)))
			hwtest.ExpectSuccess(t, b.Attach(prev.Pin("cout"), fa.Pin("cin")))
		}
		if i == n-1 {
			hwtest.ExpectSuccess(t, b.Attach(fa.Pin("cout"), s.Pin(ticksim.BusPinName("in", n))))
		}
	}
	initMachine(t, m)
	return m
}

func TestOps_driverBeforeReceiver(t *testing.T) {
	m := rippleAdder(t, 4)
	if len(m.FeedbackGroups()) != 0 {
		t.Fatalf("unexpected feedback groups: %v", m.FeedbackGroups())
	}
	ops := m.Ops()
	tickPos := make(map[int]int)
	for i, op := range ops {
		if op.Kind == ticksim.OpTick {
			if _, ok := tickPos[op.Dest]; ok {
				t.Fatalf("component %d ticked twice", op.Dest)
			}
			tickPos[op.Dest] = i
		}
	}
	if len(tickPos) != len(m.Components()) {
		t.Fatalf("%d tick ops for %d components", len(tickPos), len(m.Components()))
	}
	for i, op := range ops {
		if op.Kind != ticksim.OpWrite {
			continue
		}
		if tickPos[op.Proc] > i {
			t.Fatalf("op %d: write from %d before its tick", i, op.Proc)
		}
		if tickPos[op.Dest] < i {
			t.Fatalf("op %d: write to %d after its tick", i, op.Dest)
		}
	}

	sw := m.Component("main/a")
	hl.AsSwitch(sw).SetValue(11)
	hl.AsSwitch(m.Component("b")).SetValue(7)
	hwtest.ExpectSuccess(t, m.Tick())
	hwtest.ExpectEquality(t, hl.AsProbe(m.Component("s")).Value(), 18)
}

func TestFixpoint(t *testing.T) {
	const depth = 5
	for _, conservative := range []bool{true, false} {
		cfg := ticksim.DefaultConfig()
		cfg.ConservativeWrites = conservative
		m := ticksim.NewMachine(cfg)
		b := m.AddBoard("main")
		sw := b.Add("sw", hl.Switch)
		prev := "sw.out"
		for i := 0; i < depth; i++ {
			name := "n" + string(rune('0'+i))
			b.Add(name, hl.Not)
			connect(t, b, prev, name+".in")
			prev = name + ".out"
		}
		p := b.Add("p", hl.Probe)
		connect(t, b, prev, "p.in")
		initMachine(t, m)

		for i, v := range []bool{false, true, true, false} {
			hl.AsSwitch(sw).Set(v)
			hwtest.ExpectSuccess(t, m.Tick())
			st := m.LastTick()
			if !st.Converged || st.Iterations > depth+1 {
				t.Fatalf("conservative=%v tick %d: %+v", conservative, i, st)
			}
			hwtest.ExpectEquality(t, hl.AsProbe(p).Bool(), !v)
		}
	}
}

func TestFixpoint_componentOrder(t *testing.T) {
	cfg := ticksim.DefaultConfig()
	cfg.UseTopologicalOrdering = false
	m := ticksim.NewMachine(cfg)
	b := m.AddBoard("main")
	// added in reverse order
	p := b.Add("p", hl.Probe)
	b.Add("n1", hl.Not)
	b.Add("n0", hl.Not)
	sw := b.Add("sw", hl.Switch)
	connect(t, b, "sw.out", "n0.in", "n0.out", "n1.in", "n1.out", "p.in")
	initMachine(t, m)
	if m.Ops()[0].Kind != ticksim.OpTick || m.Ops()[0].Dest != p.Index() {
		t.Fatal("component order not preserved")
	}
	hl.AsSwitch(sw).Set(true)
	hwtest.ExpectSuccess(t, m.Tick())
	if !m.LastTick().Converged {
		t.Fatalf("%+v", m.LastTick())
	}
	hwtest.ExpectEquality(t, hl.AsProbe(p).Bool(), true)
}

func notRing(t *testing.T, cfg ticksim.Config) *ticksim.Machine {
	m := ticksim.NewMachine(cfg)
	b := m.AddBoard("main")
	b.Add("n1", hl.Not)
	b.Add("n2", hl.Not)
	connect(t, b, "n1.out", "n2.in", "n2.out", "n1.in")
	initMachine(t, m)
	return m
}

func TestOscillation(t *testing.T) {
	cfg := ticksim.DefaultConfig()
	m := notRing(t, cfg)
	if g := m.FeedbackGroups(); len(g) != 1 || len(g[0]) != 2 {
		t.Fatalf("bad feedback groups %v", g)
	}
	hwtest.ExpectSuccess(t, m.Tick())
	st := m.LastTick()
	if !st.Oscillated || st.Converged || st.Exhausted || st.Iterations > cfg.MaxIterations {
		t.Fatalf("%+v", st)
	}
	hwtest.ExpectEquality(t, m.Stats().Oscillations, 1)
	found := false
	for _, e := range m.Log().Find("engine") {
		if strings.Contains(e.Detail, "oscillation") {
			found = true
		}
	}
	if !found {
		t.Fatal("oscillation not logged")
	}
}

func TestOscillation_exhausted(t *testing.T) {
	cfg := ticksim.DefaultConfig()
	cfg.MaxIterations = 20
	cfg.HistoryWindow = 1
	m := notRing(t, cfg)
	hwtest.ExpectSuccess(t, m.Tick())
	st := m.LastTick()
	if !st.Exhausted || st.Iterations != 20 {
		t.Fatalf("%+v", st)
	}
	hwtest.ExpectEquality(t, m.Stats().Exhausted, 1)
}

func TestAddSub4_scenario(t *testing.T) {
	td := []struct {
		sub bool
		s   uint64
	}{
		{false, 8},
		{true, 2},
	}
	for _, d := range td {
		m := ticksim.NewMachine(ticksim.DefaultConfig())
		b := m.AddBoard("main")
		as := b.Add("as", hl.AddSub4)
		s := b.Add("s", hl.ProbeN(4))
		co := b.Add("co", hl.Probe)
		tieBus(t, b, as, "a", 4, 5)
		tieBus(t, b, as, "b", 4, 3)
		hwtest.ExpectSuccess(t, b.Tie(as.Pin("sub"), d.sub))
		hwtest.ExpectSuccess(t, b.Tie(as.Pin("cin"), false))
		connect(t, b, "as.s", "s.in", "as.cout", "co.in")
		initMachine(t, m)
		hwtest.ExpectSuccess(t, m.Tick())
		hwtest.ExpectEquality(t, hl.AsProbe(s).Value(), d.s)
		hwtest.ExpectEquality(t, hl.AsProbe(co).Bool(), d.sub)
	}
}

func TestDFF_clear_scenario(t *testing.T) {
	h := hwtest.NewHarness(t, hl.DFF, "*")
	h.Set("d", true)
	h.Set("en", true)
	h.Set("ck", true)
	h.Tick()
	hwtest.ExpectEquality(t, h.Bool("q"), true)
	for i := 0; i < 8; i++ {
		h.Set("clr", true)
		h.Set("d", i&1 != 0)
		h.Set("ck", i&2 != 0)
		h.Set("en", i&4 != 0)
		h.Tick()
		if h.Bool("q") || !h.Bool("~q") {
			t.Fatalf("d=%v ck=%v en=%v: DFF not cleared", i&1 != 0, i&2 != 0, i&4 != 0)
		}
	}
}

func TestCounter_rollover_scenario(t *testing.T) {
	h := hwtest.NewHarness(t, hl.Counter4, "en", "clr")
	for i := 0; i < 4; i++ {
		if _, err := h.M.AddSignalTrace("dut", ticksim.BusPinName("q", i)); err != nil {
			t.Fatal(err)
		}
	}
	h.Set("clr", true)
	h.Tick()
	h.Set("clr", false)
	h.Set("en", true)
	h.Tick()
	hwtest.ExpectEquality(t, h.Bus("q", 4), 0)
	for i := 0; i < 16; i++ {
		h.Set("ck", true)
		h.Tick()
		h.Set("ck", false)
		h.Tick()
	}
	hwtest.ExpectEquality(t, h.Bus("q", 4), 0)
	seen := make(map[string]int)
	for _, tr := range h.M.Transitions() {
		seen[tr.Pin]++
	}
	for i := 0; i < 4; i++ {
		if n := seen[ticksim.BusPinName("q", i)]; n == 0 {
			t.Errorf("no transition on q[%d]", i)
		}
	}
	// q[0] toggles on every edge
	hwtest.ExpectEquality(t, seen["q[0]"], 16)
}

func buildCounter(t *testing.T) *ticksim.Machine {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	d := m.CreateDomain(0.5)
	b := m.AddBoard("main")
	clk := b.Add("clk", hl.Clock)
	cnt := b.Add("cnt", hl.Counter4)
	b.Add("p", hl.ProbeN(4))
	hwtest.ExpectSuccess(t, m.AssignDomain(clk, d))
	hwtest.ExpectSuccess(t, m.AssignDomain(cnt, d))
	connect(t, b, "clk.out", "cnt.ck", "cnt.q", "p.in")
	initMachine(t, m)
	for _, pin := range []string{"clk.out", "p.in[0]", "p.in[1]", "cnt.q[2]"} {
		i := strings.IndexByte(pin, '.')
		if _, err := m.AddSignalTrace(pin[:i], pin[i+1:]); err != nil {
			t.Fatal(err)
		}
	}
	if m.Faults().ScheduleNoise("p", "in[0]", 0.3, 0, -1) == 0 {
		t.Fatal("noise fault rejected")
	}
	return m
}

func TestDeterminism(t *testing.T) {
	m1, m2 := buildCounter(t), buildCounter(t)
	hwtest.ExpectSuccess(t, m1.Run(64))
	hwtest.ExpectSuccess(t, m2.Run(64))
	v1, v2 := m1.ExportVCD(), m2.ExportVCD()
	if v1 != v2 {
		t.Fatalf("VCD output differs:\n%s\n----\n%s", v1, v2)
	}
	if !strings.Contains(v1, "$var reg 8 ! clk_out $end") || !strings.Contains(v1, "#2\n") {
		t.Fatalf("unexpected VCD output:\n%s", v1)
	}
}

func TestClockEdges(t *testing.T) {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	d := m.CreateDomain(0.25)
	b := m.AddBoard("main")
	clk := b.Add("clk", hl.Clock)
	cnt := b.Add("cnt", hl.Counter4)
	q := b.Add("q", hl.ProbeN(4))
	hwtest.ExpectSuccess(t, m.AssignDomain(clk, d))
	hwtest.ExpectSuccess(t, m.AssignDomain(cnt, d))
	hwtest.ExpectFailure(t, m.AssignDomain(q, 42))
	connect(t, b, "clk.out", "cnt.ck", "cnt.q", "q.in")
	initMachine(t, m)
	if mem := m.Domain(d).Members(); len(mem) != 2 {
		t.Fatalf("bad domain members: %v", mem)
	}
	// period 4: rising edges at ticks 4, 12, 20, 28 and 36.
	hwtest.ExpectSuccess(t, m.Run(40))
	hwtest.ExpectEquality(t, m.Domain(d).Edges, 5)
	hwtest.ExpectEquality(t, hl.AsProbe(q).Value(), 5)

	// a domain with no frequency never toggles
	z := m.CreateDomain(0)
	hwtest.ExpectSuccess(t, m.AssignDomain(clk, z))
	hwtest.ExpectSuccess(t, m.Run(40))
	hwtest.ExpectEquality(t, m.Domain(z).Edges, 0)
	hwtest.ExpectEquality(t, hl.AsProbe(q).Value(), 5)
}

func TestBreakpoints(t *testing.T) {
	m := notRing(t, ticksim.DefaultConfig())
	m.AddBreakpoint(3)
	m.AddBreakpoint(5)
	hwtest.ExpectSuccess(t, m.Run(10))
	hwtest.ExpectEquality(t, m.CurrentTick(), 4)
	hwtest.ExpectEquality(t, m.Paused(), true)
	m.Resume()
	m.RemoveBreakpoint(5)
	hwtest.ExpectSuccess(t, m.Run(3))
	hwtest.ExpectEquality(t, m.CurrentTick(), 7)
	hwtest.ExpectEquality(t, m.Paused(), false)
	m.AddBreakpoint(8)
	m.ClearBreakpoints()
	hwtest.ExpectSuccess(t, m.Run(3))
	hwtest.ExpectEquality(t, m.CurrentTick(), 10)
}

func TestLogging(t *testing.T) {
	m := notRing(t, ticksim.DefaultConfig())
	if m.Log().Count("engine") == 0 {
		t.Fatal("initialization not logged")
	}

	cfg := ticksim.DefaultConfig()
	cfg.Quiet = true
	m = notRing(t, cfg)
	hwtest.ExpectEquality(t, m.Log().Count("engine"), 0)
	hwtest.ExpectSuccess(t, m.Tick())
	// warnings are logged regardless
	hwtest.ExpectEquality(t, m.Log().Count("engine"), 1)
}

// broken is a device whose Tick always fails.
//
type broken struct{ recorder }

func (b *broken) Tick(c *ticksim.Component) error { return errors.New("blown fuse") }

func TestStats_opFailures(t *testing.T) {
	m := ticksim.NewMachine(ticksim.DefaultConfig())
	b := m.AddBoard("main")
	b.Add("x", &ticksim.PartSpec{
		Class:    "Broken",
		Inputs:   ticksim.IO("in"),
		Optional: ticksim.IO("in"),
		Mount:    func(*ticksim.Socket) ticksim.Device { return &broken{} },
	})
	initMachine(t, m)

	var total int64
	for i := 0; i < 3; i++ {
		hwtest.ExpectFailure(t, m.Tick())
		n := m.LastTick().OpFailures
		if n == 0 {
			t.Fatalf("tick %d: no op failure recorded", i)
		}
		total += int64(n)
		hwtest.ExpectEquality(t, m.Stats().OpFailures, total)
	}
	// failed ticks are complete
	hwtest.ExpectEquality(t, m.Stats().Ticks, int64(3))
	if m.Log().Count("engine") == 0 {
		t.Error("op failures not logged")
	}
}

// recorder records all the values written to its input pin.
//
type recorder struct {
	seen []uint64
}

func (r *recorder) Tick(c *ticksim.Component) error { return nil }

func (r *recorder) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error { return nil }

func (r *recorder) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	if err := c.CheckPut(pin, data, bits); err != nil {
		return err
	}
	r.seen = append(r.seen, ticksim.Uint(data))
	return nil
}

var recorderSpec = &ticksim.PartSpec{
	Class:    "Recorder",
	Inputs:   ticksim.IO("in"),
	Optional: ticksim.IO("in"),
	Mount:    func(*ticksim.Socket) ticksim.Device { return &recorder{} },
}

// switchProbe returns a machine with a switch sw driving a probe p.
//
func switchProbe(t *testing.T, cfg ticksim.Config) (*ticksim.Machine, *hl.SwitchDevice, *hl.ProbeDevice) {
	m := ticksim.NewMachine(cfg)
	b := m.AddBoard("main")
	sw := b.Add("sw", hl.Switch)
	p := b.Add("p", hl.Probe)
	connect(t, b, "sw.out", "p.in")
	initMachine(t, m)
	return m, hl.AsSwitch(sw), hl.AsProbe(p)
}
