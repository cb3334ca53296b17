// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"hash"
	"hash/fnv"
	"strings"

	"github.com/db47h/ticksim/logger"
	"github.com/pkg/errors"
)

// Config holds the tunables of a Machine.
//
type Config struct {
	// MaxIterations bounds the number of evaluation passes per tick.
	MaxIterations int `yaml:"max_iterations"`
	// HistoryWindow is the number of state hashes kept for oscillation
	// detection.
	HistoryWindow int `yaml:"history_window"`
	// UseTopologicalOrdering orders ops by dependency. When false, components
	// are evaluated in the order they were added.
	UseTopologicalOrdering bool `yaml:"topological"`
	// ConservativeWrites makes every write count as a change, even if the
	// delivered value is the same as the latched one.
	ConservativeWrites bool `yaml:"conservative_writes"`
	// GlobalMultiplier scales the frequency of all clock domains.
	GlobalMultiplier float64 `yaml:"global_multiplier"`
	// CDCInterval is the number of ticks between clock domain crossing
	// checks. 0 disables the checks.
	CDCInterval int `yaml:"cdc_interval"`
	// MaxTransitions caps the transition log.
	MaxTransitions int `yaml:"max_transitions"`
	// MaxProfiledComponents caps the number of profiled components.
	MaxProfiledComponents int `yaml:"max_profiled_components"`
	// ProfileSamples is the number of recent samples kept per component for
	// median and percentile computations.
	ProfileSamples int `yaml:"profile_samples"`
	// MaxLogEntries caps the machine log.
	MaxLogEntries int `yaml:"max_log_entries"`
	// LogTransitions logs every signal transition.
	LogTransitions bool `yaml:"log_transitions"`
	// Quiet suppresses informational log entries. Warnings are always logged.
	Quiet bool `yaml:"quiet"`
	// Seed seeds the random generator used by noise faults.
	Seed int64 `yaml:"seed"`
}

// DefaultConfig returns the default configuration.
//
func DefaultConfig() Config {
	return Config{
		MaxIterations:          1000,
		HistoryWindow:          10,
		UseTopologicalOrdering: true,
		ConservativeWrites:     true,
		GlobalMultiplier:       1,
		CDCInterval:            100,
		MaxTransitions:         10000,
		MaxProfiledComponents:  1000,
		ProfileSamples:         256,
		MaxLogEntries:          logger.DefaultMaxEntries,
		LogTransitions:         true,
		Seed:                   1,
	}
}

func (cfg *Config) sanitize() {
	d := DefaultConfig()
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = d.MaxIterations
	}
	if cfg.HistoryWindow <= 0 {
		cfg.HistoryWindow = d.HistoryWindow
	}
	if cfg.GlobalMultiplier <= 0 {
		cfg.GlobalMultiplier = d.GlobalMultiplier
	}
	if cfg.CDCInterval < 0 {
		cfg.CDCInterval = 0
	}
	if cfg.MaxTransitions <= 0 {
		cfg.MaxTransitions = d.MaxTransitions
	}
	if cfg.MaxProfiledComponents <= 0 {
		cfg.MaxProfiledComponents = d.MaxProfiledComponents
	}
	if cfg.ProfileSamples <= 0 {
		cfg.ProfileSamples = d.ProfileSamples
	}
}

// Stats holds the machine wide counters.
//
type Stats struct {
	Ticks            int64
	TimingViolations int64
	CDCWarnings      int64
	OpFailures       int64
	EventFailures    int64
	Oscillations     int64
	Exhausted        int64
}

// Machine is the top-level simulation object. It owns boards, clock domains,
// the event queue, tracers, the fault injector and the profiler.
//
// A Machine is not safe for concurrent use.
//
type Machine struct {
	cfg    Config
	log    *logger.Logger
	boards []*Board
	comps  []*Component

	ops      []Op
	feedback [][]int
	port     port
	hasher   hash.Hash64
	history  []uint64
	inited   bool
	tick     int64

	domains []*ClockDomain
	cdcSeen map[cdcKey]int64
	events  eventQueue
	evSeq   uint64

	traces      []*Trace
	transitions []Transition

	breakpoints map[int64]bool
	paused      bool

	faults *Injector
	prof   *Profiler
	stats  Stats
	last   TickStats
}

// NewMachine returns a new Machine. Zero values in cfg are replaced by their
// defaults.
//
func NewMachine(cfg Config) *Machine {
	cfg.sanitize()
	m := &Machine{
		cfg:         cfg,
		log:         logger.New(cfg.MaxLogEntries),
		hasher:      fnv.New64a(),
		cdcSeen:     make(map[cdcKey]int64),
		breakpoints: make(map[int64]bool),
	}
	m.port.m = m
	m.domains = []*ClockDomain{{Name: "async", Period: 1}}
	m.faults = newInjector(m)
	m.prof = newProfiler(m)
	return m
}

// AllowLogging implements logger.Permission.
//
func (m *Machine) AllowLogging() bool { return !m.cfg.Quiet }

// Config returns the machine configuration.
//
func (m *Machine) Config() Config { return m.cfg }

// Log returns the machine log.
//
func (m *Machine) Log() *logger.Logger { return m.log }

// AddBoard adds a new board to the machine.
//
func (m *Machine) AddBoard(name string) *Board {
	if m.inited {
		panic("AddBoard: machine already initialized")
	}
	b := newBoard(m, name)
	m.boards = append(m.boards, b)
	return b
}

// Boards returns the machine boards.
//
func (m *Machine) Boards() []*Board { return m.boards }

// Components returns all the components of the machine, indexed by their
// machine wide index.
//
func (m *Machine) Components() []*Component { return m.comps }

// Component returns the named component. The name may be qualified with the
// board name as in "board/comp". Unqualified names are looked up in all
// boards in order.
//
func (m *Machine) Component(name string) *Component {
	if i := strings.IndexByte(name, '/'); i >= 0 {
		for _, b := range m.boards {
			if b.name == name[:i] {
				return b.Component(name[i+1:])
			}
		}
		return nil
	}
	for _, b := range m.boards {
		if c := b.Component(name); c != nil {
			return c
		}
	}
	return nil
}

// lookupPin resolves a component and pin name to a connector.
//
func (m *Machine) lookupPin(comp, pin string) (*Component, int, error) {
	c := m.Component(comp)
	if c == nil {
		return nil, -1, errors.Errorf("unknown component %q", comp)
	}
	n, ok := c.PinIndex(pin)
	if !ok {
		return nil, -1, errors.Errorf("%s: unknown pin %q", comp, pin)
	}
	return c, n, nil
}

// Init freezes the wiring, validates it and builds the op list. It must be
// called once, before the first tick.
//
func (m *Machine) Init() error {
	if m.inited {
		return errors.New("machine already initialized")
	}
	var errs []string
	for _, b := range m.boards {
		if err := b.FullyWired(); err != nil {
			errs = append(errs, err.Error())
		}
	}
	for _, c := range m.comps {
		if m.Domain(c.ClockDomain) == nil {
			errs = append(errs, "component "+c.name+": unknown clock domain")
		}
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "\n"))
	}
	for _, b := range m.boards {
		b.linkBasePass()
	}
	for _, c := range m.comps {
		c.timing = make([]pinTiming, len(c.conns))
		for i := range c.timing {
			c.timing[i] = pinTiming{lastEdge: noTick, lastChange: noTick,
				setupReported: noTick, holdReported: noTick}
		}
	}
	m.updateMembers()
	m.buildOps()
	m.inited = true
	m.log.Logf(m, "engine", "initialized: %d boards, %d components, %d ops", len(m.boards), len(m.comps), len(m.ops))
	return nil
}

// Ops returns the runtime op list. Only valid after Init.
//
func (m *Machine) Ops() []Op { return m.ops }

// FeedbackGroups returns the groups of components evaluated as feedback
// loops, each sorted by component index.
//
func (m *Machine) FeedbackGroups() [][]int { return m.feedback }

// CurrentTick returns the number of the next tick to run, which is also the
// number of ticks run so far.
//
func (m *Machine) CurrentTick() int64 { return m.tick }

// Stats returns the machine counters.
//
func (m *Machine) Stats() Stats { return m.stats }

// LastTick returns the statistics of the last tick.
//
func (m *Machine) LastTick() TickStats { return m.last }

// Faults returns the fault injector.
//
func (m *Machine) Faults() *Injector { return m.faults }

// Profiler returns the machine profiler.
//
func (m *Machine) Profiler() *Profiler { return m.prof }

// Tick runs a single simulation step: due events, fault windows, clock
// domains, then the evaluation loop until it settles. The returned error
// summarizes the operations that failed during the tick. Failed ticks are
// nonetheless complete and the machine can proceed.
//
func (m *Machine) Tick() error {
	if !m.inited {
		return errors.New("tick: machine not initialized")
	}
	m.runEvents()
	m.faults.update()
	m.updateDomains()
	if m.cfg.CDCInterval > 0 && m.tick%int64(m.cfg.CDCInterval) == 0 {
		m.checkCDC()
	}
	st := m.settle()
	m.flushTraces()
	m.last = st
	if m.breakpoints[m.tick] {
		m.paused = true
		m.log.Logf(m, "breakpoint", "paused after tick %d", m.tick)
	}
	m.tick++
	m.stats.Ticks++
	if st.OpFailures > 0 {
		return errors.Errorf("tick %d: %d operation(s) failed", st.Tick, st.OpFailures)
	}
	return nil
}

// Run runs n ticks. It stops early on the first failed tick or when a
// breakpoint is hit.
//
func (m *Machine) Run(n int64) error {
	for i := int64(0); i < n; i++ {
		if err := m.Tick(); err != nil {
			return err
		}
		if m.paused {
			return nil
		}
	}
	return nil
}

// AddBreakpoint sets a breakpoint on the given tick. The machine pauses
// after that tick completes.
//
func (m *Machine) AddBreakpoint(tick int64) { m.breakpoints[tick] = true }

// RemoveBreakpoint removes a breakpoint.
//
func (m *Machine) RemoveBreakpoint(tick int64) { delete(m.breakpoints, tick) }

// ClearBreakpoints removes all breakpoints.
//
func (m *Machine) ClearBreakpoints() {
	for k := range m.breakpoints {
		delete(m.breakpoints, k)
	}
}

// Paused returns true if a breakpoint was hit since the last call to Resume.
//
func (m *Machine) Paused() bool { return m.paused }

// Resume clears the pause flag.
//
func (m *Machine) Resume() { m.paused = false }
