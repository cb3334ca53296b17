// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"container/heap"

	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

// An Action is a deferred operation run by the event queue.
//
type Action interface {
	Execute(m *Machine) error
}

// ActionFunc adapts a function to the Action interface.
//
type ActionFunc func(m *Machine) error

// Execute calls f(m).
//
func (f ActionFunc) Execute(m *Machine) error { return f(m) }

// PinWrite is an Action that writes a value directly into a component pin,
// bypassing links and faults.
//
type PinWrite struct {
	Comp int // machine wide component index
	Pin  int
	Data []byte
	Bits int
}

// Execute implements Action.
//
func (w *PinWrite) Execute(m *Machine) error {
	if w.Comp < 0 || w.Comp >= len(m.comps) {
		return errors.Errorf("pin write: unknown component %d", w.Comp)
	}
	c := m.comps[w.Comp]
	if err := c.CheckPut(w.Pin, w.Data, w.Bits); err != nil {
		return errors.Wrap(err, "pin write")
	}
	return m.deliver(c, w.Pin, w.Data, w.Bits)
}

type event struct {
	at  int64
	seq uint64
	a   Action
}

type eventQueue []*event

func (q eventQueue) Len() int { return len(q) }

func (q eventQueue) Less(i, j int) bool {
	if q[i].at != q[j].at {
		return q[i].at < q[j].at
	}
	return q[i].seq < q[j].seq
}

func (q eventQueue) Swap(i, j int)       { q[i], q[j] = q[j], q[i] }
func (q *eventQueue) Push(x interface{}) { *q = append(*q, x.(*event)) }

func (q *eventQueue) Pop() interface{} {
	old := *q
	n := len(old) - 1
	e := old[n]
	old[n] = nil
	*q = old[:n]
	return e
}

// ScheduleEvent schedules a to run at the beginning of tick CurrentTick()+delay,
// before clock domains are updated. Events scheduled for the same tick run in
// scheduling order. Negative delays are treated as 0.
//
func (m *Machine) ScheduleEvent(delay int64, a Action) {
	if delay < 0 {
		delay = 0
	}
	heap.Push(&m.events, &event{at: m.tick + delay, seq: m.evSeq, a: a})
	m.evSeq++
}

// PendingEvents returns the number of events in the queue.
//
func (m *Machine) PendingEvents() int { return len(m.events) }

func (m *Machine) runEvents() {
	for len(m.events) > 0 && m.events[0].at <= m.tick {
		e := heap.Pop(&m.events).(*event)
		if err := e.a.Execute(m); err != nil {
			m.stats.EventFailures++
			m.log.Logf(logger.Allow, "event", "tick %d: event scheduled for tick %d failed: %v", m.tick, e.at, err)
		}
	}
}
