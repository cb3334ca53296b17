// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package waveform

import (
	"io"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/pkg/errors"
)

// DefaultSampleRate is the sample rate used by WriteWAV when none is given.
//
const DefaultSampleRate = 44100

const (
	wavBitDepth = 16
	wavHigh     = 1<<(wavBitDepth-1) - 1
	wavFormat   = 1 // PCM
)

// WriteWAV writes s as a mono 16 bits PCM wave file, each tick lasting
// samplesPerTick samples. Single bit signals swing between the minimum and
// maximum amplitudes. Wider signals are scaled to the full amplitude range.
//
func WriteWAV(w io.WriteSeeker, s Signal, samplesPerTick, sampleRate int) error {
	if samplesPerTick <= 0 {
		return errors.Errorf("wav %s: invalid number of samples per tick %d", s.Name, samplesPerTick)
	}
	if sampleRate <= 0 {
		sampleRate = DefaultSampleRate
	}
	if s.Len() == 0 {
		return errors.Errorf("wav %s: empty signal", s.Name)
	}
	width := s.Width
	if width <= 0 {
		width = 1
	}
	if width > 16 {
		width = 16
	}
	max := float64(uint64(1)<<uint(width) - 1)

	first, last := s.Span()
	n := int(last-first+1) * samplesPerTick
	data := make([]int, 0, n)
	var v uint64
	i := 0
	for t := first; t <= last; t++ {
		for ; i < len(s.Ticks) && s.Ticks[i] <= t; i++ {
			v = s.Values[i]
		}
		if v > uint64(max) {
			v = uint64(max)
		}
		a := int((float64(v)/max*2 - 1) * wavHigh)
		for j := 0; j < samplesPerTick; j++ {
			data = append(data, a)
		}
	}

	enc := wav.NewEncoder(w, sampleRate, wavBitDepth, 1, wavFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: 1, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: wavBitDepth,
	}
	if err := enc.Write(buf); err != nil {
		return errors.Wrapf(err, "wav %s", s.Name)
	}
	return errors.Wrapf(enc.Close(), "wav %s", s.Name)
}
