// Package leb128 decodes the Little Endian Base 128 variable-length integer
// encoding used throughout DWARF (DWARFv5 section 7.6, page 161 and
// following) for ULEB128 and SLEB128 values.
package leb128

import "io"

// Reader is an io.ByteReader with a Len method, satisfied by bytes.Buffer
// and bytes.Reader.
type Reader interface {
	io.ByteReader
	Len() int
}

// DecodeUnsigned decodes an unsigned LEB128 value from buf, returning the
// value and the number of bytes consumed.
func DecodeUnsigned(buf Reader) (uint64, uint32) {
	var (
		result uint64
		shift uint64
		length uint32
	)

	if buf.Len() == 0 {
		return 0, 0
	}

	for {
		b, err := buf.ReadByte()
		if err != nil {
			panic("leb128: could not read ULEB128 byte")
		}
		length++

		result |= uint64(b&0x7f) << shift

		if b&0x80 == 0 {
			break
		}
		shift += 7
	}

	return result, length
}

// DecodeSigned decodes a signed LEB128 value from buf, returning the value
// and the number of bytes consumed.
func DecodeSigned(buf Reader) (int64, uint32) {
	var (
		b byte
		err error
		result int64
		shift uint64
		length uint32
	)

	if buf.Len() == 0 {
		return 0, 0
	}

	for {
		b, err = buf.ReadByte()
		if err != nil {
			panic("leb128: could not read SLEB128 byte")
		}
		length++

		result |= (int64(b) & 0x7f) << shift
		shift += 7
		if b&0x80 == 0 {
			break
		}
	}

	if shift < 8*uint64(length) && b&0x40 != 0 {
		result |= -(1 << shift)
	}

	return result, length
}
