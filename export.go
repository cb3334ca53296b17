// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

import (
	"os"

	"github.com/db47h/ticksim/waveform"
	"github.com/pkg/errors"
)

// Signals returns the recorded values of all enabled traces.
//
func (m *Machine) Signals() []waveform.Signal {
	var sigs []waveform.Signal
	for _, t := range m.traces {
		if t.Enabled {
			sigs = append(sigs, t.signal())
		}
	}
	return sigs
}

func (t *Trace) signal() waveform.Signal {
	return waveform.Signal{
		Name:   t.Comp + "." + t.Pin,
		Width:  t.Width,
		Ticks:  append([]int64(nil), t.Ticks...),
		Values: append([]uint64(nil), t.Values...),
	}
}

// ExportVCDFile writes the VCD dump of the enabled traces to the given file.
//
func (m *Machine) ExportVCDFile(path string) error {
	return errors.Wrap(os.WriteFile(path, []byte(m.ExportVCD()), 0644), "export vcd")
}

// ExportWaveform writes the enabled traces to the given file as tab separated
// values.
//
func (m *Machine) ExportWaveform(path string) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export waveform")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrap(cerr, "export waveform")
		}
	}()
	return waveform.WriteTSV(f, m.Signals())
}

// ExportWAV writes the trace of the given pin to a WAV file.
//
func (m *Machine) ExportWAV(path, comp, pin string, samplesPerTick int) (err error) {
	t := m.SignalTrace(comp, pin)
	if t == nil {
		return errors.Errorf("export wav: no trace on %s.%s", comp, pin)
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "export wav")
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = errors.Wrap(cerr, "export wav")
		}
	}()
	return waveform.WriteWAV(f, t.signal(), samplesPerTick, waveform.DefaultSampleRate)
}

// ExportPlot plots the enabled traces to the given image file.
//
func (m *Machine) ExportPlot(path string) error {
	return waveform.SavePlot(path, "ticksim", m.Signals())
}
