package mixfs

import (
	"encoding/binary"
	"hash/crc32"
	"math/bits"
)

// maxIDNameLen is the number of significant characters in a classic MIX id
const maxIDNameLen = 12

// IDOf computes the MIX id of a file name as used by Tiberian Dawn and Red
// Alert archives. Only the base name counts, compared case-insensitively and
// cut to 12 characters.
//
// The name is packed into a zero-filled buffer and consumed in 4-byte
// little-endian words until a word starts with a zero byte; each word is
// added to the running id after rotating it left by one bit.
func IDOf(name string) uint32 {
	var buf [16]byte
	base := baseName(name)
	n := 0
	for i := 0; i < len(base) && n < maxIDNameLen; i++ {
		buf[n] = upperASCII(base[i])
		n++
	}

	var id uint32
	for i := 0; buf[i] != 0; i += 4 {
		id = bits.RotateLeft32(id, 1) + binary.LittleEndian.Uint32(buf[i:i+4])
	}
	return id
}

// TSIDOf computes the id Tiberian Sun archives use: a CRC-32 over the
// uppercase name padded to a multiple of four. A name whose length is not a
// multiple of four gets one byte holding the remainder, followed by copies of
// the first byte of the last partial word.
func TSIDOf(name string) uint32 {
	base := baseName(name)
	buf := make([]byte, 0, len(base)+4)
	for i := 0; i < len(base); i++ {
		buf = append(buf, upperASCII(base[i]))
	}

	l := len(buf)
	if rem := l & 3; rem != 0 {
		aligned := l &^ 3
		buf = append(buf, byte(rem))
		for i := 0; i < 3-rem; i++ {
			buf = append(buf, buf[aligned])
		}
	}

	return crc32.ChecksumIEEE(buf)
}

// baseName strips any directory part, accepting both separators.
func baseName(name string) string {
	for i := len(name) - 1; i >= 0; i-- {
		if name[i] == '/' || name[i] == '\\' {
			return name[i+1:]
		}
	}
	return name
}

func upperASCII(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}
