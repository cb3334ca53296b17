// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"math/rand"
	"sort"
	"strings"

	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

// FaultKind is the kind of an injected fault.
//
type FaultKind int

// Fault kinds.
//
const (
	StuckAt0 FaultKind = iota
	StuckAt1
	Open
	Short
	Noise
	Delay
)

var faultNames = [...]string{"stuck0", "stuck1", "open", "short", "noise", "delay"}

func (k FaultKind) String() string {
	if k < 0 || int(k) >= len(faultNames) {
		return "invalid"
	}
	return faultNames[k]
}

// ParseFaultKind returns the fault kind with the given name as returned by
// FaultKind.String.
//
func ParseFaultKind(s string) (FaultKind, error) {
	s = strings.ToLower(s)
	for i, n := range faultNames {
		if n == s {
			return FaultKind(i), nil
		}
	}
	return 0, errors.Errorf("unknown fault kind %q", s)
}

// A Fault describes a fault on a single pin. Faults are active for ticks in
// the range [Start, Start+Duration). A negative Duration makes the fault
// permanent.
//
type Fault struct {
	ID       int
	Comp     string
	Pin      string
	Kind     FaultKind
	Start    int64
	Duration int64
	// Probability of a bit flip per write for Noise faults.
	Probability float64
	// Extra is the delay in ticks of Delay faults.
	Extra int64
	// PartnerComp and PartnerPin name the other end of a Short.
	PartnerComp string
	PartnerPin  string
	Active      bool

	conn    *Connector
	partner *Connector
	pending map[pendingKey]*PinWrite
	flips   map[pendingKey]int
}

type pendingKey struct {
	at        int64
	comp, pin int
}

func (f *Fault) activeAt(t int64) bool {
	return t >= f.Start && (f.Duration < 0 || t < f.Start+f.Duration)
}

type faultResult int

const (
	faultDeliver faultResult = iota
	faultDrop
	faultDefer
)

// Injector schedules faults and applies them on the write path of the
// faulty pins. Faults on input pins alter the values received by the pin,
// faults on output pins alter the values written to all the pin's links.
//
type Injector struct {
	m      *Machine
	faults []*Fault
	nextID int
	rng    *rand.Rand
}

func newInjector(m *Machine) *Injector {
	return &Injector{m: m, nextID: 1, rng: rand.New(rand.NewSource(m.cfg.Seed))}
}

// Add schedules a copy of f and returns its id. It returns 0 if the
// fault target cannot be resolved.
//
func (inj *Injector) Add(f Fault) int {
	m := inj.m
	c, n, err := m.lookupPin(f.Comp, f.Pin)
	if err != nil {
		m.log.Logf(logger.Allow, "fault", "%s fault ignored: %v", f.Kind, err)
		return 0
	}
	f.conn = &c.conns[n]
	switch f.Kind {
	case StuckAt0, StuckAt1, Open:
	case Noise:
		if f.Probability < 0 || f.Probability > 1 {
			m.log.Logf(logger.Allow, "fault", "noise fault on %s.%s ignored: invalid probability %g", f.Comp, f.Pin, f.Probability)
			return 0
		}
	case Delay:
		if f.Extra < 1 {
			f.Extra = 1
		}
		f.pending = make(map[pendingKey]*PinWrite)
	case Short:
		pc, pn, err := m.lookupPin(f.PartnerComp, f.PartnerPin)
		if err != nil {
			m.log.Logf(logger.Allow, "fault", "short on %s.%s ignored: %v", f.Comp, f.Pin, err)
			return 0
		}
		f.partner = &pc.conns[pn]
		if f.partner.Width != f.conn.Width {
			m.log.Logf(logger.Allow, "fault", "short on %s.%s ignored: width mismatch with %s.%s", f.Comp, f.Pin, f.PartnerComp, f.PartnerPin)
			return 0
		}
	default:
		m.log.Logf(logger.Allow, "fault", "fault on %s.%s ignored: invalid kind %d", f.Comp, f.Pin, int(f.Kind))
		return 0
	}
	f.ID = inj.nextID
	f.Active = false
	inj.nextID++
	nf := f
	inj.faults = append(inj.faults, &nf)
	m.log.Logf(m, "fault", "fault %d: %s on %s.%s from tick %d for %d ticks", f.ID, f.Kind, f.Comp, f.Pin, f.Start, f.Duration)
	return f.ID
}

// ScheduleStuckAt schedules a stuck-at-0 or stuck-at-1 fault.
//
func (inj *Injector) ScheduleStuckAt(comp, pin string, v bool, start, duration int64) int {
	k := StuckAt0
	if v {
		k = StuckAt1
	}
	return inj.Add(Fault{Comp: comp, Pin: pin, Kind: k, Start: start, Duration: duration})
}

// ScheduleOpen schedules an open circuit: writes to the pin are dropped.
//
func (inj *Injector) ScheduleOpen(comp, pin string, start, duration int64) int {
	return inj.Add(Fault{Comp: comp, Pin: pin, Kind: Open, Start: start, Duration: duration})
}

// ScheduleNoise schedules a noise fault flipping a random bit of each value
// written with probability p.
//
func (inj *Injector) ScheduleNoise(comp, pin string, p float64, start, duration int64) int {
	return inj.Add(Fault{Comp: comp, Pin: pin, Kind: Noise, Probability: p, Start: start, Duration: duration})
}

// ScheduleDelay schedules a delay fault: values reach the pin extra ticks
// later.
//
func (inj *Injector) ScheduleDelay(comp, pin string, extra, start, duration int64) int {
	return inj.Add(Fault{Comp: comp, Pin: pin, Kind: Delay, Extra: extra, Start: start, Duration: duration})
}

// ScheduleShort schedules a short between two pins: values written to the
// first pin are replaced with the value last seen on the partner pin.
//
func (inj *Injector) ScheduleShort(comp, pin, partnerComp, partnerPin string, start, duration int64) int {
	return inj.Add(Fault{Comp: comp, Pin: pin, Kind: Short, PartnerComp: partnerComp, PartnerPin: partnerPin,
		Start: start, Duration: duration})
}

// RemoveFault removes a fault. It returns false if there is no such fault.
//
func (inj *Injector) RemoveFault(id int) bool {
	for i, f := range inj.faults {
		if f.ID == id {
			inj.faults = append(inj.faults[:i], inj.faults[i+1:]...)
			if f.Active {
				inj.detach(f)
			}
			return true
		}
	}
	inj.m.log.Logf(logger.Allow, "fault", "remove: unknown fault id %d", id)
	return false
}

// Fault returns the fault with the given id or nil.
//
func (inj *Injector) Fault(id int) *Fault {
	for _, f := range inj.faults {
		if f.ID == id {
			return f
		}
	}
	return nil
}

// Faults returns all scheduled faults in id order.
//
func (inj *Injector) Faults() []*Fault { return inj.faults }

// Active returns the currently active faults.
//
func (inj *Injector) Active() []*Fault {
	var l []*Fault
	for _, f := range inj.faults {
		if f.Active {
			l = append(l, f)
		}
	}
	return l
}

func (inj *Injector) attach(f *Fault) {
	c := f.conn
	c.faults = append(c.faults, f)
	sort.Slice(c.faults, func(i, j int) bool { return c.faults[i].ID < c.faults[j].ID })
}

func (inj *Injector) detach(f *Fault) {
	c := f.conn
	for i, ff := range c.faults {
		if ff == f {
			c.faults = append(c.faults[:i], c.faults[i+1:]...)
			break
		}
	}
}

// update activates and deactivates faults for the current tick.
//
func (inj *Injector) update() {
	t := inj.m.tick
	for _, f := range inj.faults {
		on := f.activeAt(t)
		if on != f.Active {
			f.Active = on
			if on {
				inj.attach(f)
				inj.m.log.Logf(inj.m, "fault", "tick %d: fault %d (%s on %s.%s) active", t, f.ID, f.Kind, f.Comp, f.Pin)
			} else {
				inj.detach(f)
				inj.m.log.Logf(inj.m, "fault", "tick %d: fault %d (%s on %s.%s) cleared", t, f.ID, f.Kind, f.Comp, f.Pin)
			}
		}
		for k := range f.pending {
			if k.at < t {
				delete(f.pending, k)
			}
		}
		for k := range f.flips {
			if k.at < t {
				delete(f.flips, k)
			}
		}
	}
}

// apply applies faults in order to a value written to pin of dest.
//
func (inj *Injector) apply(faults []*Fault, dest *Component, pin int, buf []byte, bits int) faultResult {
	for _, f := range faults {
		switch f.Kind {
		case StuckAt0:
			for i := range buf {
				buf[i] = 0
			}
		case StuckAt1:
			PutUint(buf, Mask(bits))
		case Open:
			return faultDrop
		case Noise:
			if b := inj.flip(f, dest, pin, bits); b >= 0 {
				buf[b/8] ^= 1 << uint(b%8)
			}
		case Short:
			copy(buf, f.partner.value)
		case Delay:
			inj.delay(f, dest, pin, buf, bits)
			return faultDefer
		}
	}
	return faultDeliver
}

// flip returns the bit flipped by a noise fault in values written to pin of
// dest during the current tick, or -1 if none. There is a single draw per tick
// and destination pin: all the writes of a tick see the same noise.
//
func (inj *Injector) flip(f *Fault, dest *Component, pin int, bits int) int {
	k := pendingKey{at: inj.m.tick, comp: dest.index, pin: pin}
	if b, ok := f.flips[k]; ok {
		return b
	}
	b := -1
	if inj.rng.Float64() < f.Probability {
		b = inj.rng.Intn(bits)
	}
	if f.flips == nil {
		f.flips = make(map[pendingKey]int)
	}
	f.flips[k] = b
	return b
}

// delay queues a value for delivery f.Extra ticks later. Only the last value
// written during a tick is delivered.
//
func (inj *Injector) delay(f *Fault, dest *Component, pin int, buf []byte, bits int) {
	m := inj.m
	k := pendingKey{at: m.tick + f.Extra, comp: dest.index, pin: pin}
	if w := f.pending[k]; w != nil {
		copy(w.Data, buf)
		return
	}
	w := &PinWrite{Comp: dest.index, Pin: pin, Data: append([]byte(nil), buf...), Bits: bits}
	f.pending[k] = w
	m.ScheduleEvent(f.Extra, w)
}

// VerifyFaultTolerance runs the machine for the given number of ticks with f
// scheduled, starting at the current tick if f.Start is in the past. It
// returns false if a tick fails or if the number of timing violations exceeds
// maxViolations. The fault is removed before returning.
//
func (m *Machine) VerifyFaultTolerance(f Fault, ticks int64, maxViolations int64) bool {
	if f.Start < m.tick {
		f.Start = m.tick
	}
	id := m.faults.Add(f)
	if id == 0 {
		return false
	}
	defer m.faults.RemoveFault(id)
	before := m.stats.TimingViolations
	for i := int64(0); i < ticks; i++ {
		if err := m.Tick(); err != nil {
			m.log.Logf(logger.Allow, "fault", "fault %d: %v", id, err)
			return false
		}
	}
	v := m.stats.TimingViolations - before
	m.log.Logf(m, "fault", "fault %d: %d violation(s) in %d ticks", id, v, ticks)
	return v <= maxViolations
}
