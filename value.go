// Copyright 2018 Denis Bernard <db047h@gmail.com>
// Licensed under the MIT license. See license text in the LICENSE file.

package ticksim

// Pin values are little-endian bit vectors stored in byte lanes. A 1 bit pin
// uses a single byte where only bit 0 is significant.

var (
	lo = []byte{0}
	hi = []byte{1}
)

// Bit returns the single byte encoding of a 1 bit value. The returned slice
// is shared and must not be modified.
//
func Bit(v bool) []byte {
	if v {
		return hi
	}
	return lo
}

// Bool returns bit 0 of data.
//
func Bool(data []byte) bool {
	return len(data) > 0 && data[0]&1 != 0
}

// Uint decodes data as a little-endian unsigned integer.
//
func Uint(data []byte) uint64 {
	var v uint64
	for i := len(data) - 1; i >= 0; i-- {
		v = v<<8 | uint64(data[i])
	}
	return v
}

// PutUint encodes v into buf as a little-endian unsigned integer.
//
func PutUint(buf []byte, v uint64) {
	for i := range buf {
		buf[i] = byte(v)
		v >>= 8
	}
}

// ByteSize returns the number of byte lanes needed for bits bits.
//
func ByteSize(bits int) int {
	return (bits + 7) / 8
}

// Mask returns a mask of the given bit width.
//
func Mask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<uint(bits) - 1
}
