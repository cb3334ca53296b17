// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"github.com/pkg/errors"
)

// A Trace records the values seen on a single pin. Values written during a
// tick are coalesced, the last one wins, and recorded at the end of the tick.
//
type Trace struct {
	Comp    string
	Pin     string
	Width   int
	Enabled bool
	// Ticks and Values are the recorded samples.
	Ticks  []int64
	Values []uint64

	conn    *Connector
	pending []byte
	dirty   bool
}

// Reset clears the trace history.
//
func (t *Trace) Reset() {
	t.Ticks = t.Ticks[:0]
	t.Values = t.Values[:0]
	t.dirty = false
}

// ValueAt returns the value of the signal at the given tick and false if
// nothing was recorded at or before that tick.
//
func (t *Trace) ValueAt(tick int64) (uint64, bool) {
	v, ok := uint64(0), false
	for i, tt := range t.Ticks {
		if tt > tick {
			break
		}
		v, ok = t.Values[i], true
	}
	return v, ok
}

func (t *Trace) sample(data []byte) {
	if !t.Enabled {
		return
	}
	copy(t.pending, data)
	t.dirty = true
}

// A Transition is a value change of a traced signal.
//
type Transition struct {
	Tick int64
	Comp string
	Pin  string
	From uint64
	To   uint64
}

// AddSignalTrace starts tracing the given pin. If the pin is already traced,
// the existing trace is returned.
//
// Only values written through links are seen by a trace: unlinked pins
// are never sampled.
//
func (m *Machine) AddSignalTrace(comp, pin string) (*Trace, error) {
	c, n, err := m.lookupPin(comp, pin)
	if err != nil {
		m.log.Logf(m, "trace", "%v", err)
		return nil, errors.Wrap(err, "add trace")
	}
	cn := &c.conns[n]
	if cn.trace != nil {
		return cn.trace, nil
	}
	t := &Trace{
		Comp:    c.name,
		Pin:     cn.Name,
		Width:   cn.Width,
		Enabled: true,
		conn:    cn,
		pending: make([]byte, len(cn.value)),
	}
	cn.trace = t
	m.traces = append(m.traces, t)
	return t, nil
}

// SignalTrace returns the trace of the given pin or nil.
//
func (m *Machine) SignalTrace(comp, pin string) *Trace {
	c, n, err := m.lookupPin(comp, pin)
	if err != nil {
		return nil
	}
	return c.conns[n].trace
}

// RemoveSignalTrace stops tracing the given pin and drops its history.
//
func (m *Machine) RemoveSignalTrace(comp, pin string) bool {
	t := m.SignalTrace(comp, pin)
	if t == nil {
		return false
	}
	t.conn.trace = nil
	for i, tt := range m.traces {
		if tt == t {
			m.traces = append(m.traces[:i], m.traces[i+1:]...)
			break
		}
	}
	return true
}

// ClearSignalTraces removes all traces.
//
func (m *Machine) ClearSignalTraces() {
	for _, t := range m.traces {
		t.conn.trace = nil
	}
	m.traces = nil
}

// EnableSignalTrace enables or disables the trace of the given pin. Disabled
// traces record nothing and are skipped by exports.
//
func (m *Machine) EnableSignalTrace(comp, pin string, on bool) error {
	t := m.SignalTrace(comp, pin)
	if t == nil {
		return errors.Errorf("no trace on %s.%s", comp, pin)
	}
	t.Enabled = on
	return nil
}

// SignalTraces returns all traces in the order they were added.
//
func (m *Machine) SignalTraces() []*Trace { return m.traces }

// Transitions returns the transition log.
//
func (m *Machine) Transitions() []Transition { return m.transitions }

// ClearTransitions empties the transition log.
//
func (m *Machine) ClearTransitions() { m.transitions = m.transitions[:0] }

func (m *Machine) flushTraces() {
	for _, t := range m.traces {
		if !t.dirty {
			continue
		}
		t.dirty = false
		v := Uint(t.pending)
		if n := len(t.Values); n > 0 && t.Values[n-1] != v {
			m.transition(Transition{Tick: m.tick, Comp: t.Comp, Pin: t.Pin, From: t.Values[n-1], To: v})
		}
		t.Ticks = append(t.Ticks, m.tick)
		t.Values = append(t.Values, v)
	}
}

func (m *Machine) transition(tr Transition) {
	if len(m.transitions) >= m.cfg.MaxTransitions {
		n := copy(m.transitions, m.transitions[1:])
		m.transitions = m.transitions[:n]
	}
	m.transitions = append(m.transitions, tr)
	if m.cfg.LogTransitions {
		m.log.Logf(m, "transition", "tick %d: %s.%s %d -> %d", tr.Tick, tr.Comp, tr.Pin, tr.From, tr.To)
	}
}
