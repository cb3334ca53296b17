// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"strconv"

	"github.com/db47h/ticksim"
)

// HalfAdder is a half adder.
//
//	Inputs: a, b
//	Outputs: s, c
//	Function: s = lsb(a + b)
//	          c = msb(a + b)
//
var HalfAdder = combSpec("HalfAdder", ticksim.IO("a, b"), ticksim.IO("s, c"),
	func(v []uint64) {
		v[2] = v[0] ^ v[1]
		v[3] = v[0] & v[1]
	})

// FullAdder is a 3 bit adder.
//
//	Inputs: a, b, cin
//	Outputs: s, cout
//	Function: s = lsb(a + b + cin)
//	          cout = msb(a + b + cin)
//
var FullAdder = combSpec("FullAdder", ticksim.IO("a, b, cin"), ticksim.IO("s, cout"),
	func(v []uint64) {
		sum := v[0] + v[1] + v[2]
		v[3] = sum & 1
		v[4] = sum >> 1
	})

// AdderN returns a N-bits adder with carry in.
//
//	Inputs: a[bits], b[bits], cin
//	Outputs: s[bits], cout
//	Function: s = a + b + cin, cout is the carry out.
//
func AdderN(n int) *ticksim.PartSpec {
	return combSpec("Adder"+strconv.Itoa(n),
		ticksim.IO("a["+strconv.Itoa(n)+"], b["+strconv.Itoa(n)+"], cin"),
		ticksim.IO("s["+strconv.Itoa(n)+"], cout"),
		func(v []uint64) {
			sum := bits(v, 0, n) + bits(v, n, n) + v[2*n]
			setBits(v, 2*n+1, n, sum)
			v[3*n+1] = sum >> uint(n) & 1
		})
}

// AddSubN returns a N-bits adder/subtractor. When sub is set, b is
// inverted and so is cin, so that a - b is computed with cin = 0.
//
//	Inputs: a[bits], b[bits], sub, cin
//	Outputs: s[bits], cout
//	Function: s = a + (b ^ sub) + (cin ^ sub)
//
func AddSubN(n int) *ticksim.PartSpec {
	return combSpec("AddSub"+strconv.Itoa(n),
		ticksim.IO("a["+strconv.Itoa(n)+"], b["+strconv.Itoa(n)+"], sub, cin"),
		ticksim.IO("s["+strconv.Itoa(n)+"], cout"),
		func(v []uint64) {
			sub := v[2*n]
			b := bits(v, n, n)
			if sub != 0 {
				b = ^b & ticksim.Mask(n)
			}
			sum := bits(v, 0, n) + b + (v[2*n+1] ^ sub)
			setBits(v, 2*n+2, n, sum)
			v[3*n+2] = sum >> uint(n) & 1
		})
}

// Adder4 is a 4 bits adder.
//
var Adder4 = AdderN(4)

// AddSub4 is a 4 bits adder/subtractor.
//
var AddSub4 = AddSubN(4)
