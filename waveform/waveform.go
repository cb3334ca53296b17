// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

// Package waveform writes recorded digital signals as plain text dumps, WAV
// audio files and plots.
//
package waveform

import (
	"bufio"
	"io"
	"strconv"

	"github.com/pkg/errors"
)

// A Signal is a sampled digital signal. Ticks are in increasing order and
// Values[i] is the value of the signal from Ticks[i] until the next sample.
//
type Signal struct {
	Name   string
	Width  int
	Ticks  []int64
	Values []uint64
}

// Len returns the number of samples.
//
func (s *Signal) Len() int { return len(s.Ticks) }

// Span returns the first and last ticks of the signal.
//
func (s *Signal) Span() (first, last int64) {
	if len(s.Ticks) == 0 {
		return 0, 0
	}
	return s.Ticks[0], s.Ticks[len(s.Ticks)-1]
}

// At returns the value of the signal at tick t. It returns false if t is
// before the first sample.
//
func (s *Signal) At(t int64) (uint64, bool) {
	v, ok := uint64(0), false
	for i, tt := range s.Ticks {
		if tt > t {
			break
		}
		v, ok = s.Values[i], true
	}
	return v, ok
}

// WriteTSV writes the signals as tab separated values. Each signal starts with
// a "# name" header line, followed by one "tick\tvalue" line per sample and
// an empty line.
//
func WriteTSV(w io.Writer, sigs []Signal) error {
	bw := bufio.NewWriter(w)
	var buf []byte
	for _, s := range sigs {
		if len(s.Ticks) != len(s.Values) {
			return errors.Errorf("signal %s: %d ticks for %d values", s.Name, len(s.Ticks), len(s.Values))
		}
		bw.WriteString("# " + s.Name + "\n")
		for i, t := range s.Ticks {
			buf = strconv.AppendInt(buf[:0], t, 10)
			buf = append(buf, '\t')
			buf = strconv.AppendUint(buf, s.Values[i], 10)
			buf = append(buf, '\n')
			bw.Write(buf)
		}
		bw.WriteByte('\n')
	}
	return errors.Wrap(bw.Flush(), "write tsv")
}
