// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/bradleyjkemp/memviz"
	"github.com/db47h/ticksim"
	"github.com/db47h/ticksim/netlist"
	"github.com/go-echarts/statsview"
	"github.com/go-echarts/statsview/viewer"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

type runOptions struct {
	ticks      int64
	breaks     []int64
	vcd        string
	wave       string
	wav        string
	wavPin     string
	wavRate    int
	plot       string
	profile    bool
	statsview  string
	memviz     string
	verbose    bool
	logEntries int
}

var runOpts runOptions

var runCmd = &cobra.Command{
	Use:   "run <netlist>",
	Short: "Run a netlist for a number of ticks",
	Long: `Run loads a netlist, runs it for the requested number of ticks and
writes the traced signals to the requested files. Breakpoints pause the run
and print the machine state before resuming.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.OutOrStdout(), args[0], &runOpts)
	},
}

func init() {
	f := runCmd.Flags()
	f.Int64VarP(&runOpts.ticks, "ticks", "n", 100, "number of ticks to run")
	f.Int64SliceVar(&runOpts.breaks, "break", nil, "pause after the given ticks")
	f.StringVar(&runOpts.vcd, "vcd", "", "write traced signals to a VCD `file`")
	f.StringVar(&runOpts.wave, "wave", "", "write traced signals to a tab separated `file`")
	f.StringVar(&runOpts.wav, "wav", "", "write the signal selected by --wav-pin to a WAV `file`")
	f.StringVar(&runOpts.wavPin, "wav-pin", "", "traced pin written by --wav, as comp.pin")
	f.IntVar(&runOpts.wavRate, "wav-rate", 8, "WAV samples per tick")
	f.StringVar(&runOpts.plot, "plot", "", "plot traced signals to a PNG `file`")
	f.BoolVar(&runOpts.profile, "profile", false, "profile components and print a report")
	f.StringVar(&runOpts.statsview, "statsview", "", "serve runtime statistics on `addr` until interrupted")
	f.StringVar(&runOpts.memviz, "memviz", "", "write a graphviz dump of the decoded netlist to `file`")
	f.BoolVarP(&runOpts.verbose, "verbose", "v", false, "echo the machine log to stderr")
	f.IntVar(&runOpts.logEntries, "log", 10, "number of log entries printed after the run")
	rootCmd.AddCommand(runCmd)
}

func run(w io.Writer, name string, o *runOptions) error {
	n, err := netlist.ParseFile(name)
	if err != nil {
		return err
	}
	if o.memviz != "" {
		if err = writeFile(o.memviz, func(f io.Writer) error {
			memviz.Map(f, n)
			return nil
		}); err != nil {
			return err
		}
	}
	if o.statsview != "" {
		viewer.SetConfiguration(viewer.WithAddr(o.statsview))
		go statsview.New().Start()
		fmt.Fprintf(w, "stats server available at http://%s/debug/statsview\n", o.statsview)
	}

	m, err := n.Build()
	if err != nil {
		return err
	}
	if o.verbose {
		m.Log().SetEcho(os.Stderr)
	}
	for _, t := range o.breaks {
		m.AddBreakpoint(t)
	}
	if o.profile {
		m.Profiler().Start()
	}

	id := uuid.New()
	fmt.Fprintf(w, "run %s: %s, %d ticks\n", id, name, o.ticks)
	for m.CurrentTick() < o.ticks {
		if err = m.Run(o.ticks - m.CurrentTick()); err != nil {
			// op failures are logged and counted, keep going
			fmt.Fprintln(w, err)
		}
		if m.Paused() {
			fmt.Fprintf(w, "break at tick %d\n", m.CurrentTick()-1)
			printTraces(w, m)
			m.Resume()
		}
	}
	printStats(w, m)
	if o.logEntries > 0 && m.Log().Len() > 0 {
		fmt.Fprintln(w, "log:")
		m.Log().Tail(w, o.logEntries)
	}

	if o.profile {
		m.Profiler().Stop()
		if err = m.Profiler().Report(w); err != nil {
			return err
		}
	}
	if err = export(m, o); err != nil {
		return err
	}
	if o.statsview != "" {
		fmt.Fprintln(w, "press ctrl-c to quit")
		c := make(chan os.Signal, 1)
		signal.Notify(c, os.Interrupt)
		<-c
	}
	return nil
}

func export(m *ticksim.Machine, o *runOptions) error {
	if o.vcd != "" {
		if err := m.ExportVCDFile(o.vcd); err != nil {
			return err
		}
	}
	if o.wave != "" {
		if err := m.ExportWaveform(o.wave); err != nil {
			return err
		}
	}
	if o.wav != "" {
		i := strings.LastIndexByte(o.wavPin, '.')
		if i < 0 {
			return errors.Errorf("--wav-pin: expected comp.pin, got %q", o.wavPin)
		}
		if err := m.ExportWAV(o.wav, o.wavPin[:i], o.wavPin[i+1:], o.wavRate); err != nil {
			return err
		}
	}
	if o.plot != "" {
		if err := m.ExportPlot(o.plot); err != nil {
			return err
		}
	}
	return nil
}

func printTraces(w io.Writer, m *ticksim.Machine) {
	for _, t := range m.SignalTraces() {
		v, _ := t.ValueAt(m.CurrentTick() - 1)
		fmt.Fprintf(w, "  %s.%s = %#x\n", t.Comp, t.Pin, v)
	}
}

func printStats(w io.Writer, m *ticksim.Machine) {
	s := m.Stats()
	fmt.Fprintf(w, "ticks: %d, timing violations: %d, CDC warnings: %d\n", s.Ticks, s.TimingViolations, s.CDCWarnings)
	fmt.Fprintf(w, "op failures: %d, event failures: %d, oscillations: %d, exhausted: %d\n",
		s.OpFailures, s.EventFailures, s.Oscillations, s.Exhausted)
}

func writeFile(name string, fn func(w io.Writer) error) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	defer func() {
		if e := f.Close(); err == nil {
			err = e
		}
	}()
	return fn(f)
}
