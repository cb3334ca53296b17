// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import "github.com/db47h/ticksim"

// Not is a NOT gate.
//
//	Inputs: in
//	Outputs: out
//	Function: out = !in
//
var Not = combSpec("NOT", ticksim.IO(pIn), ticksim.IO(pOut), func(v []uint64) { v[1] = ^v[0] & 1 })

func newGate(name string, fn func(a, b uint64) uint64) *ticksim.PartSpec {
	return combSpec(name, gateIn, gateOut, func(v []uint64) { v[2] = fn(v[0], v[1]) & 1 })
}

var (
	gateIn  = ticksim.IO("a, b")
	gateOut = ticksim.IO(pOut)

	// And is a AND gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = a && b
	//
	And = newGate("AND", func(a, b uint64) uint64 { return a & b })

	// Nand is a NAND gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = !(a && b)
	//
	Nand = newGate("NAND", func(a, b uint64) uint64 { return ^(a & b) })

	// Or is a OR gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = a || b
	//
	Or = newGate("OR", func(a, b uint64) uint64 { return a | b })

	// Nor is a NOR gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = !(a || b)
	//
	Nor = newGate("NOR", func(a, b uint64) uint64 { return ^(a | b) })

	// Xor is a XOR gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = a && !b || !a && b
	//
	Xor = newGate("XOR", func(a, b uint64) uint64 { return a ^ b })

	// Xnor is a XNOR gate.
	//
	//	Inputs: a, b
	//	Outputs: out
	//	Function: out = a && b || !a && !b
	//
	Xnor = newGate("XNOR", func(a, b uint64) uint64 { return ^(a ^ b) })
)
