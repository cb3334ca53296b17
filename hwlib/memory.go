// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package hwlib

import (
	"io"
	"strconv"

	"github.com/db47h/ticksim"
)

// Memory returns a byte wide RAM, or ROM if rom is true, of the given size.
// The memory is initialized with the contents of init.
//
//	Inputs: a (addrBits wide), ~cs, ~oe, ~wr
//	Bidirectional: d (8 bits wide)
//	Function: if !~cs && !~wr { mem[a] = d }
//	          if !~cs && !~oe && ~wr { d = mem[a] }
//
// ~wr is optional and reads high when not connected. Writes to a ROM and
// accesses out of range are ignored.
//
func Memory(size, addrBits int, rom bool, init []byte) *ticksim.PartSpec {
	class := "RAM"
	sp := &ticksim.PartSpec{
		Inputs:   ticksim.IO("a, ~cs, ~oe, ~wr"),
		Bidir:    ticksim.IO(pD),
		Optional: ticksim.IO("~wr"),
		Widths:   map[string]int{pA: addrBits, pD: 8},
	}
	if rom {
		class = "ROM"
	}
	sp.Class = class + strconv.Itoa(size)
	sp.Mount = func(s *ticksim.Socket) ticksim.Device {
		m := &MemoryDevice{
			pinVals: newPinVals(s.Component()),
			a:       s.Pin(pA),
			cs:      s.Pin("~cs"),
			oe:      s.Pin("~oe"),
			wr:      s.Pin("~wr"),
			d:       s.Pin(pD),
			mem:     make([]byte, size),
			rom:     rom,
			out:     make([]byte, 1),
		}
		copy(m.mem, init)
		return m
	}
	return sp
}

// MemoryDevice is the device of a Memory part.
//
type MemoryDevice struct {
	pinVals
	a, cs, oe, wr, d int
	mem              []byte
	rom              bool
	driving          bool
	out              []byte
	writes           uint64
}

// AsMemory returns the device of a Memory component.
//
func AsMemory(c *ticksim.Component) *MemoryDevice {
	m, _ := c.Device().(*MemoryDevice)
	return m
}

// Size returns the size of the memory in bytes.
//
func (m *MemoryDevice) Size() int { return len(m.mem) }

// Peek returns the byte at the given address.
//
func (m *MemoryDevice) Peek(addr int) byte {
	if addr < 0 || addr >= len(m.mem) {
		return 0
	}
	return m.mem[addr]
}

// Load copies data to memory at the given address, regardless of the ROM
// flag.
//
func (m *MemoryDevice) Load(addr int, data []byte) {
	if addr < 0 || addr >= len(m.mem) {
		return
	}
	copy(m.mem[addr:], data)
}

// Driving returns true if the memory is driving its data bus.
//
func (m *MemoryDevice) Driving() bool { return m.driving }

func (m *MemoryDevice) Tick(c *ticksim.Component) error {
	a := m.get(m.a)
	inRange := a < uint64(len(m.mem))
	addr := int(a)
	sel := !m.bool(m.cs)
	wr := !high(c, &m.pinVals, m.wr, true)
	if sel && wr && !m.rom && inRange {
		if v := byte(m.get(m.d)); m.mem[addr] != v {
			m.mem[addr] = v
			m.writes++
			c.SetChanged()
		}
	}
	drive := sel && !wr && !m.bool(m.oe)
	var out byte
	if drive && inRange {
		out = m.mem[addr]
	}
	if drive != m.driving || out != m.out[0] {
		m.driving = drive
		m.out[0] = out
		c.SetChanged()
	}
	return nil
}

func (m *MemoryDevice) Process(c *ticksim.Component, op *ticksim.Op, dst ticksim.Port) error {
	if op.Pin != m.d {
		return m.process(c, op, dst)
	}
	if !m.driving {
		return nil
	}
	return dst.Put(m.out, 8)
}

func (m *MemoryDevice) PutRaw(c *ticksim.Component, pin int, data []byte, bits int) error {
	return m.put(c, pin, data, bits)
}

func (m *MemoryDevice) HashState(w io.Writer) {
	w.Write(m.out)
	w.Write(bstate(m.driving))
	var buf [8]byte
	ticksim.PutUint(buf[:], m.writes)
	w.Write(buf[:])
}
