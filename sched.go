// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"container/heap"
	"sort"
	"strings"
)

// OpKind is the kind of a runtime operation.
//
type OpKind int

// Operation kinds.
//
const (
	OpWrite OpKind = iota
	OpTick
)

func (k OpKind) String() string {
	if k == OpTick {
		return "tick"
	}
	return "write"
}

// Op is a runtime operation. Write ops push the value of the processor's pin
// Pin to the destination's pin DestPin. Tick ops tick Dest, Proc is equal to
// Dest.
//
type Op struct {
	Kind     OpKind
	Proc     int // processor component index
	Dest     int // destination component index
	Pin      int // source pin ordinal
	DestPin  int // destination pin ordinal
	Bytes    int
	Bits     int
	Priority int // non-zero for the read half of a bidirectional pair
	// Successor is the index in the op list of the write op paired with
	// this read op on a bidirectional link, or -1.
	Successor int

	buf []byte
}

// sccHeap is a min-heap of strongly connected component ids ordered by the
// smallest component index they contain.
//
type sccHeap struct {
	ids []int
	key []int
}

func (h *sccHeap) Len() int           { return len(h.ids) }
func (h *sccHeap) Less(i, j int) bool { return h.key[h.ids[i]] < h.key[h.ids[j]] }
func (h *sccHeap) Swap(i, j int)      { h.ids[i], h.ids[j] = h.ids[j], h.ids[i] }
func (h *sccHeap) Push(x interface{}) { h.ids = append(h.ids, x.(int)) }

func (h *sccHeap) Pop() interface{} {
	n := len(h.ids) - 1
	v := h.ids[n]
	h.ids = h.ids[:n]
	return v
}

// dependencyGraph fills in the dependency and dependent sets of all
// components from the board links.
//
func (m *Machine) dependencyGraph() {
	type edge struct{ a, b int }
	seen := make(map[edge]bool)
	for _, c := range m.comps {
		c.deps, c.dependents = nil, nil
	}
	for _, b := range m.boards {
		for _, l := range b.links {
			e := edge{l.Driver.Comp, l.Receiver.Comp}
			if e.a == e.b || seen[e] {
				continue
			}
			seen[e] = true
			m.comps[e.a].dependents = append(m.comps[e.a].dependents, e.b)
			m.comps[e.b].deps = append(m.comps[e.b].deps, e.a)
		}
	}
	for _, c := range m.comps {
		sort.Ints(c.deps)
		sort.Ints(c.dependents)
	}
}

// tarjan returns the strongly connected components of the dependency graph,
// each sorted by component index, and the scc id of each component.
//
func (m *Machine) tarjan() (sccs [][]int, id []int) {
	n := len(m.comps)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	id = make([]int, n)
	for i := range index {
		index[i] = -1
	}
	var stack []int
	next := 0

	var visit func(v int)
	visit = func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
		for _, w := range m.comps[v].dependents {
			if index[w] < 0 {
				visit(w)
				if low[w] < low[v] {
					low[v] = low[w]
				}
			} else if onStack[w] && index[w] < low[v] {
				low[v] = index[w]
			}
		}
		if low[v] == index[v] {
			var scc []int
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				id[w] = len(sccs)
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			sort.Ints(scc)
			sccs = append(sccs, scc)
		}
	}
	for v := 0; v < n; v++ {
		if index[v] < 0 {
			visit(v)
		}
	}
	return sccs, id
}

// schedule returns the evaluation order as a list of groups. Groups of more
// than one component are feedback loops.
//
func (m *Machine) schedule() [][]int {
	n := len(m.comps)
	if !m.cfg.UseTopologicalOrdering {
		groups := make([][]int, n)
		for i := range groups {
			groups[i] = []int{i}
		}
		return groups
	}

	sccs, id := m.tarjan()
	// Kahn's algorithm over the condensation graph.
	indeg := make([]int, len(sccs))
	succ := make([][]int, len(sccs))
	for v := 0; v < n; v++ {
		for _, w := range m.comps[v].dependents {
			if id[v] != id[w] {
				succ[id[v]] = append(succ[id[v]], id[w])
				indeg[id[w]]++
			}
		}
	}
	h := &sccHeap{key: make([]int, len(sccs))}
	for i, s := range sccs {
		h.key[i] = s[0]
		if indeg[i] == 0 {
			h.ids = append(h.ids, i)
		}
	}
	heap.Init(h)
	groups := make([][]int, 0, len(sccs))
	for h.Len() > 0 {
		s := heap.Pop(h).(int)
		groups = append(groups, sccs[s])
		for _, t := range succ[s] {
			if indeg[t]--; indeg[t] == 0 {
				heap.Push(h, t)
			}
		}
	}
	return groups
}

// buildOps emits the runtime op list.
//
func (m *Machine) buildOps() {
	m.dependencyGraph()
	groups := m.schedule()
	m.ops = m.ops[:0]
	m.feedback = m.feedback[:0]

	pos := 0
	for _, g := range groups {
		for _, c := range g {
			m.comps[c].topo = pos
			pos++
		}
		if len(g) > 1 {
			m.feedback = append(m.feedback, g)
			names := make([]string, len(g))
			for i, c := range g {
				names[i] = m.comps[c].name
			}
			m.log.Logf(m, "sched", "feedback group: %s", strings.Join(names, ", "))
		}
		// a feedback group ticks all its members before propagating any
		// value so that members see the values of the previous iteration.
		for _, c := range g {
			m.ops = append(m.ops, Op{Kind: OpTick, Proc: c, Dest: c, Pin: -1, DestPin: -1, Successor: -1})
			if len(g) == 1 {
				m.emitWrites(c)
			}
		}
		if len(g) > 1 {
			for _, c := range g {
				m.emitWrites(c)
			}
		}
	}
}

func (m *Machine) emitWrites(ci int) {
	c := m.comps[ci]
	for p := range c.conns {
		for _, li := range c.conns[p].out {
			l := c.board.links[li]
			d, r := c.board.Connector(l.Driver), c.board.Connector(l.Receiver)
			op := Op{
				Kind:      OpWrite,
				Proc:      l.Driver.Comp,
				Dest:      l.Receiver.Comp,
				Pin:       l.Driver.Pin,
				DestPin:   l.Receiver.Pin,
				Bits:      d.Width,
				Bytes:     ByteSize(d.Width),
				Successor: -1,
			}
			op.buf = make([]byte, op.Bytes)
			if d.Kind == Bidirectional && r.Kind == Bidirectional {
				// read then write: the reverse direction is executed last and
				// wins if both ends drive.
				op.Priority = 1
				op.Successor = len(m.ops) + 1
				m.ops = append(m.ops, op)
				op = Op{
					Kind:      OpWrite,
					Proc:      l.Receiver.Comp,
					Dest:      l.Driver.Comp,
					Pin:       l.Receiver.Pin,
					DestPin:   l.Driver.Pin,
					Bits:      r.Width,
					Bytes:     ByteSize(r.Width),
					Successor: -1,
					buf:       make([]byte, ByteSize(r.Width)),
				}
			}
			m.ops = append(m.ops, op)
		}
	}
}
