package dwarf

import (
	"bytes"
	"encoding/binary"

	"github.com/jimmychang851129/pstack/dwarf/leb128"
)

// Reader is a positioned cursor over one backing section. It
// borrows its bytes rather than owning them; the section itself is owned
// by whatever loaded it (see pkg/sections for the memory-mapped case) and
// must outlive every Reader built over it.
//
// Modeled on pkg/dwarf/util/buf.go, generalized to not require a
// *debug/dwarf.Data: a Reader only needs the raw bytes, a byte order and
// a section name for error messages.
type Reader struct {
	section string
	order binary.ByteOrder
	off Offset
	data []byte
}

// NewReader returns a Reader over data, starting at off, diagnosing
// out-of-bounds reads as belonging to the named section.
func NewReader(section string, data []byte, off Offset, order binary.ByteOrder) *Reader {
	if order == nil {
		order = binary.LittleEndian
	}
	return &Reader{section: section, order: order, off: off, data: data[off:]}
}

// Offset returns the reader's current position within its section.
func (r *Reader) Offset() Offset { return r.off }

// Len returns the number of unread bytes.
func (r *Reader) Len() int { return len(r.data) }

func (r *Reader) bytes(n int) []byte {
	if len(r.data) < n {
		panic(&BadEncodingError{Section: r.section, Offset: r.off})
	}
	b := r.data[:n]
	r.data = r.data[n:]
	r.off += Offset(n)
	return b
}

// Skip advances the cursor by n bytes without interpreting them.
func (r *Reader) Skip(n int) { r.bytes(n) }

// U8 reads one unsigned byte.
func (r *Reader) U8() uint8 { return r.bytes(1)[0] }

// U16 reads a 2-byte unsigned integer.
func (r *Reader) U16() uint16 { return r.order.Uint16(r.bytes(2)) }

// U32 reads a 4-byte unsigned integer.
func (r *Reader) U32() uint32 { return r.order.Uint32(r.bytes(4)) }

// U64 reads an 8-byte unsigned integer.
func (r *Reader) U64() uint64 { return r.order.Uint64(r.bytes(8)) }

// Uint reads an n-byte (1..8) unsigned integer, matching the variable
// width that offset-size/address-size-dependent forms need.
func (r *Reader) Uint(n int) uint64 {
	switch n {
	case 1:
		return uint64(r.U8())
	case 2:
		return uint64(r.U16())
	case 3:
		b := r.bytes(3)
		// 3-byte forms (strx3/addrx3) are always encoded little endian by
		// producers; widen by hand since binary.ByteOrder has no Uint24.
		return uint64(b[0]) | uint64(b[1])<<8 | uint64(b[2])<<16
	case 4:
		return uint64(r.U32())
	case 5, 6, 7:
		b := r.bytes(n)
		var v uint64
		for i := 0; i < n; i++ {
			if r.order == binary.BigEndian {
				v = v<<8 | uint64(b[i])
			} else {
				v |= uint64(b[i]) << (8 * uint(i))
			}
		}
		return v
	case 8:
		return r.U64()
	default:
		panic(&InvariantViolatedError{What: "Reader.Uint: unsupported width"})
	}
}

// Int reads an n-byte two's-complement signed integer.
func (r *Reader) Int(n int) int64 {
	u := r.Uint(n)
	bits := uint(n * 8)
	if bits < 64 && u&(1<<(bits-1)) != 0 {
		return int64(u) - int64(1<<bits)
	}
	return int64(u)
}

// Uleb128 reads an unsigned LEB128 value and advances past it.
func (r *Reader) Uleb128() uint64 {
	v, n := leb128.DecodeUnsigned(bytes.NewBuffer(r.data))
	r.Skip(int(n))
	return v
}

// Sleb128 reads a signed LEB128 value.
func (r *Reader) Sleb128() int64 {
	v, n := leb128.DecodeSigned(bytes.NewBuffer(r.data))
	r.Skip(int(n))
	return v
}

// String reads a NUL-terminated string and discards the terminator.
func (r *Reader) String() string {
	i := bytes.IndexByte(r.data, 0)
	if i < 0 {
		panic(&BadEncodingError{Section: r.section, Offset: r.off})
	}
	s := string(r.data[:i])
	r.Skip(i + 1)
	return s
}
