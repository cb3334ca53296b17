// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/ticksim"
)

// Mux2 is a multiplexer.
//
//	Inputs: a, b, sel
//	Outputs: out
//	Function: if sel == 0 { out = a } else { out = b }
//
var Mux2 = combSpec("MUX", ticksim.IO("a, b, sel"), ticksim.IO(pOut),
	func(v []uint64) {
		if v[2] == 0 {
			v[3] = v[0]
		} else {
			v[3] = v[1]
		}
	})

// Mux4 is a 4 way multiplexer.
//
//	Inputs: in[4], sel[2]
//	Outputs: out
//	Function: out = in[sel]
//
var Mux4 = combSpec("MUX4", ticksim.IO("in[4], sel[2]"), ticksim.IO(pOut),
	func(v []uint64) {
		v[6] = v[bits(v, 4, 2)]
	})

// Demux is a demultiplexer.
//
//	Inputs: in, sel
//	Outputs: a, b
//	Function: if sel == 0 { a = in; b = 0 } else { a = 0; b = in }
//
var Demux = combSpec("DMUX", ticksim.IO("in, sel"), ticksim.IO("a, b"),
	func(v []uint64) {
		v[2+v[1]] = v[0]
	})

// DecoderN returns a n to 2^n decoder.
//
//	Inputs: in[n]
//	Outputs: out[2^n]
//	Function: out[in] = 1, all other outputs are 0.
//
func DecoderN(n int) *ticksim.PartSpec {
	m := 1 << uint(n)
	return combSpec("Decoder"+strconv.Itoa(n)+"to"+strconv.Itoa(m),
		ticksim.IO("in["+strconv.Itoa(n)+"]"), ticksim.IO("out["+strconv.Itoa(m)+"]"),
		func(v []uint64) {
			v[n+int(bits(v, 0, n))] = 1
		})
}

// EncoderN returns a 2^n to n priority encoder. The highest input set wins.
//
//	Inputs: in[2^n]
//	Outputs: out[n], v
//	Function: out = index of the highest input set, v = 1 if any input is set.
//
func EncoderN(n int) *ticksim.PartSpec {
	m := 1 << uint(n)
	return combSpec("Encoder"+strconv.Itoa(m)+"to"+strconv.Itoa(n),
		ticksim.IO("in["+strconv.Itoa(m)+"]"), ticksim.IO("out["+strconv.Itoa(n)+"], v"),
		func(v []uint64) {
			for i := m - 1; i >= 0; i-- {
				if v[i] != 0 {
					setBits(v, m, n, uint64(i))
					v[m+n] = 1
					return
				}
			}
		})
}

var (
	// Decoder2to4 is a 2 to 4 decoder.
	Decoder2to4 = DecoderN(2)
	// Decoder3to8 is a 3 to 8 decoder.
	Decoder3to8 = DecoderN(3)
	// Encoder4to2 is a 4 to 2 priority encoder.
	Encoder4to2 = EncoderN(2)
	// Encoder8to3 is a 8 to 3 priority encoder.
	Encoder8to3 = EncoderN(3)
)
