// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"math"

	"github.com/db47h/ticksim/logger"
)

const noTick = math.MinInt64 / 2

// clockEdge records a clock edge on all the pins of c.
//
func (m *Machine) clockEdge(c *Component) {
	for i := range c.timing {
		c.timing[i].lastEdge = m.tick
	}
}

// pinChanged updates the timing state of a pin about to latch data.
//
func (m *Machine) pinChanged(c *Component, pin int, data []byte) {
	if c.timing == nil {
		return
	}
	cn := &c.conns[pin]
	if cn.Clock {
		if !Bool(cn.value) && Bool(data) {
			m.clockEdge(c)
		}
		return
	}
	c.timing[pin].lastChange = m.tick
}

// checkTiming runs the setup and hold checks on the inputs of c.
//
// Setup is violated when the last data change seen at a clock edge at tick t
// happened at or after t-SetupTime, including a change in tick t itself. Hold
// is violated when data changes less than HoldTime ticks after an edge. The
// two checks are independent: a change in the edge tick can violate both.
//
func (m *Machine) checkTiming(c *Component) {
	if c.SetupTime <= 0 && c.HoldTime <= 0 {
		return
	}
	for i := range c.timing {
		cn := &c.conns[i]
		if cn.Kind == Source || cn.Clock {
			continue
		}
		t := &c.timing[i]
		if t.lastEdge == noTick {
			continue
		}
		if c.SetupTime > 0 && t.lastEdge == m.tick && t.setupReported != t.lastEdge {
			if t.lastChange != noTick && t.lastChange >= t.lastEdge-c.SetupTime {
				t.setupReported = t.lastEdge
				m.violation(c, cn, "setup", t.lastEdge-t.lastChange, c.SetupTime)
			}
		}
		if c.HoldTime > 0 && t.lastChange >= t.lastEdge && t.lastChange-t.lastEdge < c.HoldTime && t.holdReported != t.lastChange {
			t.holdReported = t.lastChange
			m.violation(c, cn, "hold", t.lastChange-t.lastEdge, c.HoldTime)
		}
	}
}

func (m *Machine) violation(c *Component, cn *Connector, kind string, got, want int64) {
	m.stats.TimingViolations++
	m.log.Logf(logger.Allow, "timing", "tick %d: %s violation on %s.%s: data changed %d tick(s) from clock edge, %s time is %d",
		m.tick, kind, c.name, cn.Name, got, kind, want)
}
