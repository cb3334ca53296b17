// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"bytes"
	"time"

	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

// TickStats reports how the evaluation loop of a single tick terminated.
//
type TickStats struct {
	Tick       int64
	Iterations int
	Converged  bool // fixpoint reached
	Oscillated bool // a previous state came back
	Exhausted  bool // MaxIterations reached
	OpFailures int
}

// port is the Port handed to Device.Process for write ops. It applies
// faults, latches and traces the value, then forwards it to the destination.
//
type port struct {
	m          *Machine
	op         *Op
	proc, dest *Component
}

func (p *port) Put(data []byte, bits int) error {
	m, op := p.m, p.op
	if bits != op.Bits || len(data) != op.Bytes {
		return errors.Errorf("%s: width mismatch on pin %s: got %d bits, expected %d",
			p.proc.name, p.proc.conns[op.Pin].Name, bits, op.Bits)
	}
	buf := op.buf
	copy(buf, data)

	res := faultDeliver
	pc := &p.proc.conns[op.Pin]
	if len(pc.faults) > 0 {
		res = m.faults.apply(pc.faults, p.dest, op.DestPin, buf, bits)
	}
	if !bytes.Equal(pc.value, buf) {
		copy(pc.value, buf)
	}
	if pc.trace != nil {
		pc.trace.sample(buf)
	}
	if res != faultDeliver {
		return nil
	}

	dc := &p.dest.conns[op.DestPin]
	if len(dc.faults) > 0 {
		if res = m.faults.apply(dc.faults, p.dest, op.DestPin, buf, bits); res != faultDeliver {
			return nil
		}
	}
	return m.deliver(p.dest, op.DestPin, buf, bits)
}

// deliver latches a value on a receiving pin and hands it to the device.
//
func (m *Machine) deliver(c *Component, pin int, data []byte, bits int) error {
	cn := &c.conns[pin]
	if bits != cn.Width || len(data) != len(cn.value) {
		return errors.Errorf("%s: width mismatch on pin %s: got %d bits, expected %d", c.name, cn.Name, bits, cn.Width)
	}
	changed := !bytes.Equal(cn.value, data)
	if changed {
		m.pinChanged(c, pin, data)
		copy(cn.value, data)
	}
	if cn.trace != nil {
		cn.trace.sample(data)
	}
	if err := c.dev.PutRaw(c, pin, data, bits); err != nil {
		return err
	}
	if changed || m.cfg.ConservativeWrites {
		c.changed = true
	}
	return nil
}

// settle runs the op list until a fixpoint, an oscillation or the iteration
// bound is reached.
//
func (m *Machine) settle() TickStats {
	st := TickStats{Tick: m.tick}
	m.history = m.history[:0]
	prof := m.prof.active

	for it := 0; it < m.cfg.MaxIterations; it++ {
		st.Iterations = it + 1
		anyChanged := false
		for i := range m.ops {
			op := &m.ops[i]
			var t0 time.Time
			if prof {
				t0 = time.Now()
			}
			dest := m.comps[op.Dest]
			switch op.Kind {
			case OpWrite:
				proc := m.comps[op.Proc]
				m.port.op, m.port.proc, m.port.dest = op, proc, dest
				if err := proc.dev.Process(proc, op, &m.port); err != nil {
					st.OpFailures++
					m.log.Logf(logger.Allow, "engine", "tick %d: processing %s.%s -> %s.%s failed: %v",
						m.tick, proc.name, proc.conns[op.Pin].Name, dest.name, dest.conns[op.DestPin].Name, err)
				}
				if m.cfg.ConservativeWrites || dest.changed {
					anyChanged = true
				}
			case OpTick:
				dest.changed = false
				if err := dest.dev.Tick(dest); err != nil {
					st.OpFailures++
					m.log.Logf(logger.Allow, "engine", "tick %d: %s tick failed: %v", m.tick, dest.name, err)
				}
				if dest.changed {
					anyChanged = true
				}
				m.checkTiming(dest)
			}
			if prof {
				m.prof.sample(dest, time.Since(t0))
			}
		}

		h := m.stateHash()
		if n := len(m.history); n > 0 && m.history[n-1] == h {
			st.Converged = true
			break
		}
		if m.seen(h) {
			st.Oscillated = true
			m.stats.Oscillations++
			m.log.Logf(logger.Allow, "engine", "tick %d: oscillation detected after %d iterations", m.tick, st.Iterations)
			break
		}
		if len(m.history) >= m.cfg.HistoryWindow {
			copy(m.history, m.history[1:])
			m.history = m.history[:len(m.history)-1]
		}
		m.history = append(m.history, h)
		if !anyChanged {
			st.Converged = true
			break
		}
	}
	if !st.Converged && !st.Oscillated {
		st.Exhausted = true
		m.stats.Exhausted++
		m.log.Logf(logger.Allow, "engine", "tick %d: no convergence after %d iterations", m.tick, st.Iterations)
	}
	m.stats.OpFailures += int64(st.OpFailures)
	return st
}

func (m *Machine) seen(h uint64) bool {
	for _, v := range m.history {
		if v == h {
			return true
		}
	}
	return false
}

// stateHash hashes all pin latches and private device states.
//
func (m *Machine) stateHash() uint64 {
	h := m.hasher
	h.Reset()
	for _, c := range m.comps {
		for i := range c.conns {
			h.Write(c.conns[i].value)
		}
		if sh, ok := c.dev.(StateHasher); ok {
			sh.HashState(h)
		}
	}
	return h.Sum64()
}
