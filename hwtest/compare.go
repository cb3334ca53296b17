// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwtest

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/db47h/ticksim"
)

// maxExhaustive is the maximum number of input bits tested exhaustively.
// Parts with more input bits are tested with random inputs.
//
const maxExhaustive = 12

func inputBits(h *Harness) (names []string, widths []int, total int) {
	for _, n := range h.Inputs() {
		i, _ := h.Part.PinIndex(n)
		w := h.Part.Connector(i).Width
		names = append(names, n)
		widths = append(widths, w)
		total += w
	}
	return names, widths, total
}

// forEachInput calls fn with successive input vectors: all 0, all 1, then
// every combination if the total input width is small enough, or 1<<12
// random ones otherwise.
//
func forEachInput(widths []int, total int, seed int64, fn func(v []uint64)) {
	v := make([]uint64, len(widths))
	fn(v)
	for i, w := range widths {
		v[i] = ticksim.Mask(w)
	}
	fn(v)
	if total <= maxExhaustive {
		for n := uint64(0); n < 1<<uint(total); n++ {
			x := n
			for i, w := range widths {
				v[i] = x & ticksim.Mask(w)
				x >>= uint(w)
			}
			fn(v)
		}
		return
	}
	rnd := rand.New(rand.NewSource(seed))
	for n := 0; n < 1<<maxExhaustive; n++ {
		for i, w := range widths {
			v[i] = rnd.Uint64() & ticksim.Mask(w)
		}
		fn(v)
	}
}

func inputString(names []string, v []uint64) string {
	var b strings.Builder
	for i, n := range names {
		if b.Len() > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s=%d", n, v[i])
	}
	return b.String()
}

// ComparePart takes two parts and compares their outputs given the same
// inputs. Both parts must have the same pin interface. Each input vector is
// applied for a single tick, so sequential parts are compared along the same
// input sequence.
//
func ComparePart(t *testing.T, part1, part2 *ticksim.PartSpec) {
	t.Helper()
	h1, h2 := NewHarness(t, part1, "*"), NewHarness(t, part2, "*")

	// compare specs
	c1, c2 := h1.Part.Connectors(), h2.Part.Connectors()
	if len(c1) != len(c2) {
		t.Fatalf("%s has %d pins, %s has %d", part1.Class, len(c1), part2.Class, len(c2))
	}
	for i := range c1 {
		if c1[i].Name != c2[i].Name || c1[i].Kind != c2[i].Kind || c1[i].Width != c2[i].Width {
			t.Fatalf("pin %d: %s %s/%d != %s %s/%d", i, c1[i].Name, c1[i].Kind, c1[i].Width, c2[i].Name, c2[i].Kind, c2[i].Width)
		}
	}

	names, widths, total := inputBits(h1)
	outs := h1.Outputs()
	forEachInput(widths, total, 1, func(v []uint64) {
		for i, n := range names {
			h1.SetValue(n, v[i])
			h2.SetValue(n, v[i])
		}
		h1.Tick()
		h2.Tick()
		for _, o := range outs {
			if a, b := h1.Get(o), h2.Get(o); a != b {
				t.Fatalf("%s: %s: %s=%d, %s: %s=%d", inputString(names, v), part1.Class, o, a, part2.Class, o, b)
			}
		}
	})
}

// CheckPart checks a combinational part against a model. The model function
// receives the input values in pin order and returns the expected outputs in
// pin order.
//
func CheckPart(t *testing.T, part *ticksim.PartSpec, model func(in []uint64) []uint64) {
	t.Helper()
	h := NewHarness(t, part, "*")
	names, widths, total := inputBits(h)
	outs := h.Outputs()
	forEachInput(widths, total, 1, func(v []uint64) {
		for i, n := range names {
			h.SetValue(n, v[i])
		}
		h.Tick()
		exp := model(v)
		if len(exp) != len(outs) {
			t.Fatalf("model returned %d values for %d outputs", len(exp), len(outs))
		}
		for i, o := range outs {
			if got := h.Get(o); got != exp[i] {
				t.Fatalf("%s %s: expected %s=%d, got %d", part.Class, inputString(names, v), o, exp[i], got)
			}
		}
	})
}
