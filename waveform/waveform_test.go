package waveform_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/db47h/ticksim/waveform"
	"github.com/go-audio/wav"
)

var testSigs = []waveform.Signal{
	{Name: "clk", Width: 1, Ticks: []int64{0, 1, 2, 3}, Values: []uint64{0, 1, 0, 1}},
	{Name: "q", Width: 4, Ticks: []int64{1, 3}, Values: []uint64{5, 15}},
}

func TestWriteTSV(t *testing.T) {
	var b bytes.Buffer
	if err := waveform.WriteTSV(&b, testSigs); err != nil {
		t.Fatal(err)
	}
	expected := "# clk\n0\t0\n1\t1\n2\t0\n3\t1\n\n# q\n1\t5\n3\t15\n\n"
	if b.String() != expected {
		t.Fatalf("expected:\n%q\ngot:\n%q", expected, b.String())
	}

	bad := []waveform.Signal{{Name: "bad", Ticks: []int64{0}}}
	if err := waveform.WriteTSV(&b, bad); err == nil {
		t.Fatal("expected error on malformed signal")
	}
}

func TestSignalAt(t *testing.T) {
	s := testSigs[1]
	td := []struct {
		t  int64
		v  uint64
		ok bool
	}{
		{0, 0, false},
		{1, 5, true},
		{2, 5, true},
		{3, 15, true},
		{10, 15, true},
	}
	for _, d := range td {
		v, ok := s.At(d.t)
		if v != d.v || ok != d.ok {
			t.Errorf("At(%d): expected %d, %v, got %d, %v", d.t, d.v, d.ok, v, ok)
		}
	}
}

func decodeWAV(t *testing.T, s waveform.Signal, samplesPerTick int) []int {
	t.Helper()
	name := filepath.Join(t.TempDir(), s.Name+".wav")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if err = waveform.WriteWAV(f, s, samplesPerTick, 8000); err != nil {
		f.Close()
		t.Fatal(err)
	}
	if err = f.Close(); err != nil {
		t.Fatal(err)
	}

	r, err := os.Open(name)
	if err != nil {
		t.Fatal(err)
	}
	defer r.Close()
	dec := wav.NewDecoder(r)
	if !dec.IsValidFile() {
		t.Fatal("invalid wav file")
	}
	buf, err := dec.FullPCMBuffer()
	if err != nil {
		t.Fatal(err)
	}
	if dec.SampleRate != 8000 || dec.NumChans != 1 || dec.BitDepth != 16 {
		t.Fatalf("bad format: %d Hz, %d channels, %d bits", dec.SampleRate, dec.NumChans, dec.BitDepth)
	}
	return buf.Data
}

func TestWriteWAV(t *testing.T) {
	data := decodeWAV(t, testSigs[0], 10)
	if len(data) != 40 {
		t.Fatalf("expected 40 samples, got %d", len(data))
	}
	for i, v := range data {
		high := (i/10)%2 == 1
		if high != (v > 0) {
			t.Fatalf("sample %d: bad level %d", i, v)
		}
	}
}

func TestWriteWAV_sparse(t *testing.T) {
	// q holds 5 on ticks 1 and 2, then 15 on tick 3
	data := decodeWAV(t, testSigs[1], 2)
	if len(data) != 6 {
		t.Fatalf("expected 6 samples, got %d", len(data))
	}
	for i := 1; i < 4; i++ {
		if data[i] != data[0] {
			t.Fatalf("sample %d: expected %d, got %d", i, data[0], data[i])
		}
	}
	if data[0] >= 0 || data[4] != 1<<15-1 || data[5] != data[4] {
		t.Fatalf("bad levels: %v", data)
	}

	// long traces with a change every 1000 ticks
	var long waveform.Signal
	long.Name, long.Width = "long", 1
	for i := 0; i < 100; i++ {
		long.Ticks = append(long.Ticks, int64(i*1000))
		long.Values = append(long.Values, uint64(i&1))
	}
	data = decodeWAV(t, long, 1)
	if len(data) != 99001 {
		t.Fatalf("expected 99001 samples, got %d", len(data))
	}
	for i, v := range data {
		if high := (i/1000)&1 == 1; high != (v > 0) {
			t.Fatalf("sample %d: bad level %d", i, v)
		}
	}
}

func TestWriteWAV_errors(t *testing.T) {
	name := filepath.Join(t.TempDir(), "bad.wav")
	f, err := os.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err = waveform.WriteWAV(f, testSigs[0], 0, 0); err == nil {
		t.Fatal("expected error with 0 samples per tick")
	}
	if err = waveform.WriteWAV(f, waveform.Signal{Name: "empty"}, 1, 0); err == nil {
		t.Fatal("expected error on empty signal")
	}
}

func TestWritePlot(t *testing.T) {
	var b bytes.Buffer
	if err := waveform.WritePlot(&b, "svg", "test", testSigs); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(b.String(), "<svg") {
		t.Fatal("output is not an svg image")
	}
	name := filepath.Join(t.TempDir(), "plot.png")
	if err := waveform.SavePlot(name, "test", testSigs); err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(name); err != nil || fi.Size() == 0 {
		t.Fatalf("plot not saved: %v", err)
	}
}
