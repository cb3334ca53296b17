// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

// A ClockDomain is a group of components sharing a clock. Domain 0 always
// exists and holds asynchronous components. It toggles every tick but its
// edges are not seen by timing checks.
//
type ClockDomain struct {
	ID     int
	Name   string
	Hz     float64
	Period float64 // ticks between toggles, +Inf if Hz is 0
	State  bool
	// LastToggle is the tick of the last toggle.
	LastToggle int64
	// Edges counts rising edges.
	Edges int64

	members []int
}

// Members returns the indices of the components in the domain.
//
func (d *ClockDomain) Members() []int { return d.members }

type cdcKey struct {
	from, to int
	link     Link
}

// CreateDomain creates a new clock domain toggling every 1/(hz*multiplier)
// ticks, where multiplier is Config.GlobalMultiplier. A domain with hz <= 0
// never toggles.
//
func (m *Machine) CreateDomain(hz float64) int {
	d := &ClockDomain{ID: len(m.domains), Hz: hz, Period: -1}
	if hz > 0 {
		d.Period = 1 / (hz * m.cfg.GlobalMultiplier)
	}
	m.domains = append(m.domains, d)
	m.log.Logf(m, "cdc", "clock domain %d: %g Hz", d.ID, hz)
	return d.ID
}

// Domain returns the clock domain with the given id or nil.
//
func (m *Machine) Domain(id int) *ClockDomain {
	if id < 0 || id >= len(m.domains) {
		return nil
	}
	return m.domains[id]
}

// Domains returns all clock domains, domain 0 included.
//
func (m *Machine) Domains() []*ClockDomain { return m.domains }

// AssignDomain moves c to the given clock domain.
//
func (m *Machine) AssignDomain(c *Component, id int) error {
	if m.Domain(id) == nil {
		return errors.Errorf("assign %s: unknown clock domain %d", c.name, id)
	}
	c.ClockDomain = id
	if m.inited {
		m.updateMembers()
	}
	return nil
}

func (m *Machine) updateMembers() {
	for _, d := range m.domains {
		d.members = d.members[:0]
	}
	for _, c := range m.comps {
		if d := m.Domain(c.ClockDomain); d != nil {
			d.members = append(d.members, c.index)
		}
	}
}

// updateDomains toggles the clock domains whose period has elapsed. Rising
// edges are recorded as clock edges on all member components.
//
func (m *Machine) updateDomains() {
	for _, d := range m.domains {
		if d.Period <= 0 || float64(m.tick-d.LastToggle) < d.Period {
			continue
		}
		d.State = !d.State
		d.LastToggle = m.tick
		if !d.State {
			continue
		}
		d.Edges++
		if d.ID == 0 {
			continue
		}
		for _, ci := range d.members {
			m.clockEdge(m.comps[ci])
		}
	}
}

// checkCDC warns about links crossing clock domains. Each crossing is
// reported once per check interval.
//
func (m *Machine) checkCDC() {
	for _, b := range m.boards {
		for _, l := range b.links {
			dc, rc := m.comps[l.Driver.Comp], m.comps[l.Receiver.Comp]
			if dc.ref != refNone || rc.ref != refNone || dc.ClockDomain == rc.ClockDomain {
				continue
			}
			k := cdcKey{dc.ClockDomain, rc.ClockDomain, l}
			if t, ok := m.cdcSeen[k]; ok && m.tick-t < int64(m.cfg.CDCInterval) {
				continue
			}
			m.cdcSeen[k] = m.tick
			m.stats.CDCWarnings++
			m.log.Logf(logger.Allow, "cdc", "tick %d: %s.%s (domain %d) -> %s.%s (domain %d) crosses clock domains",
				m.tick, dc.name, dc.conns[l.Driver.Pin].Name, dc.ClockDomain,
				rc.name, rc.conns[l.Receiver.Pin].Name, rc.ClockDomain)
		}
	}
}
