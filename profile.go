// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"
)

// ProfileRow is the profile of a single component.
//
type ProfileRow struct {
	Component string
	Class     string
	Count     int64
	Total     time.Duration
	Min       time.Duration
	Max       time.Duration
	Mean      time.Duration
	StdDev    time.Duration
	Median    time.Duration
	P95       time.Duration
}

type profEntry struct {
	comp    *Component
	count   int64
	total   time.Duration
	min     time.Duration
	max     time.Duration
	samples []float64 // ring of recent samples, in ns
	next    int
}

// Profiler measures the time spent executing ops, per destination component.
//
type Profiler struct {
	m       *Machine
	active  bool
	session uuid.UUID
	started time.Time
	elapsed time.Duration
	entries map[int]*profEntry
	dropped int64
}

func newProfiler(m *Machine) *Profiler {
	return &Profiler{m: m, entries: make(map[int]*profEntry)}
}

// Start starts a new profiling session. Previous measurements are kept
// unless Reset is called.
//
func (p *Profiler) Start() {
	if p.active {
		return
	}
	p.active = true
	p.session = uuid.New()
	p.started = time.Now()
	p.m.log.Logf(p.m, "profile", "session %s started", p.session)
}

// Stop stops profiling.
//
func (p *Profiler) Stop() {
	if !p.active {
		return
	}
	p.active = false
	p.elapsed += time.Since(p.started)
	p.m.log.Logf(p.m, "profile", "session %s stopped", p.session)
}

// Active returns true if the profiler is running.
//
func (p *Profiler) Active() bool { return p.active }

// Session returns the id of the current or last session.
//
func (p *Profiler) Session() uuid.UUID { return p.session }

// Reset discards all measurements.
//
func (p *Profiler) Reset() {
	p.entries = make(map[int]*profEntry)
	p.dropped = 0
	p.elapsed = 0
	if p.active {
		p.started = time.Now()
	}
}

// Dropped returns the number of samples ignored because the maximum number of
// profiled components was reached.
//
func (p *Profiler) Dropped() int64 { return p.dropped }

func (p *Profiler) sample(c *Component, d time.Duration) {
	e := p.entries[c.index]
	if e == nil {
		if len(p.entries) >= p.m.cfg.MaxProfiledComponents {
			p.dropped++
			return
		}
		e = &profEntry{comp: c, min: d, samples: make([]float64, 0, p.m.cfg.ProfileSamples)}
		p.entries[c.index] = e
	}
	e.count++
	e.total += d
	if d < e.min {
		e.min = d
	}
	if d > e.max {
		e.max = d
	}
	if len(e.samples) < cap(e.samples) {
		e.samples = append(e.samples, float64(d))
	} else {
		e.samples[e.next] = float64(d)
		e.next = (e.next + 1) % len(e.samples)
	}
}

// Rows returns the profile of all components, by decreasing total time.
//
func (p *Profiler) Rows() []ProfileRow {
	rows := make([]ProfileRow, 0, len(p.entries))
	for _, e := range p.entries {
		r := ProfileRow{
			Component: e.comp.name,
			Class:     e.comp.spec.Class,
			Count:     e.count,
			Total:     e.total,
			Min:       e.min,
			Max:       e.max,
		}
		if len(e.samples) > 0 {
			s := append([]float64(nil), e.samples...)
			sort.Float64s(s)
			mean, std := stat.MeanStdDev(s, nil)
			if len(s) < 2 {
				std = 0
			}
			r.Mean = time.Duration(mean)
			r.StdDev = time.Duration(std)
			r.Median = time.Duration(stat.Quantile(0.5, stat.Empirical, s, nil))
			r.P95 = time.Duration(stat.Quantile(0.95, stat.Empirical, s, nil))
		}
		rows = append(rows, r)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Total != rows[j].Total {
			return rows[i].Total > rows[j].Total
		}
		return rows[i].Component < rows[j].Component
	})
	return rows
}

// Report writes a tabular report of the profile to w.
//
func (p *Profiler) Report(w io.Writer) error {
	el := p.elapsed
	if p.active {
		el += time.Since(p.started)
	}
	if _, err := fmt.Fprintf(w, "session %s, %d ticks, %v elapsed\n", p.session, p.m.stats.Ticks, el); err != nil {
		return errors.Wrap(err, "profile report")
	}
	tw := tabwriter.NewWriter(w, 0, 8, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "component\tclass\tcount\ttotal\tmin\tmax\tmean\tstddev\tmedian\tp95\t")
	for _, r := range p.Rows() {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%v\t%v\t%v\t%v\t%v\t%v\t%v\t\n",
			r.Component, r.Class, r.Count, r.Total, r.Min, r.Max, r.Mean, r.StdDev, r.Median, r.P95)
	}
	if p.dropped > 0 {
		fmt.Fprintf(tw, "(%d samples dropped)\t\t\t\t\t\t\t\t\t\t\n", p.dropped)
	}
	return errors.Wrap(tw.Flush(), "profile report")
}
