// Package sections memory-maps an ELF file's DWARF debug sections for the
// dwarf core to borrow bytes from.
package sections

import (
	"bytes"
	"compress/zlib"
	"debug/elf"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"
)

// SectionReader owns a memory-mapped ELF file and hands out byte slices
// into it for each named DWARF section. Close unmaps the file; slices
// handed out before Close become invalid afterward, matching the
// borrow-don't-own contract DIE/Block values rely on.
type SectionReader struct {
	file *os.File
	data []byte // the full mmap'd image

	Info []byte
	Abbrev []byte
	Str []byte
	LineStr []byte
	StrOffsets []byte
	Addr []byte
	Ranges []byte
	RngLists []byte
}

// Open mmaps path and slices out the .debug_* sections the dwarf core
// consumes. Sections absent from the file are left nil.
func Open(path string) (*SectionReader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	ef, err := elf.NewFile(f)
	if err != nil {
		f.Close()
		return nil, err
	}

	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	size := st.Size()
	if size == 0 {
		f.Close()
		return nil, fmt.Errorf("sections: %s is empty", path)
	}

	pagesize := int64(os.Getpagesize())
	mapLen := (size + pagesize - 1) &^ (pagesize - 1)
	data, err := unix.Mmap(int(f.Fd()), 0, int(mapLen), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("sections: mmap %s: %w", path, err)
	}
	data = data[:size]

	sr := &SectionReader{file: f, data: data}
	fields := []struct {
		name string
		dst *[]byte
	}{
		{"info", &sr.Info},
		{"abbrev", &sr.Abbrev},
		{"str", &sr.Str},
		{"line_str", &sr.LineStr},
		{"str_offsets", &sr.StrOffsets},
		{"addr", &sr.Addr},
		{"ranges", &sr.Ranges},
		{"rnglists", &sr.RngLists},
	}
	for _, fl := range fields {
		b, err := debugSection(ef, data, fl.name)
		if err != nil {
			continue // absent section, leave nil
		}
		*fl.dst = b
	}
	return sr, nil
}

// Close unmaps the section reader's backing file. Byte slices it handed
// out must not be used afterward.
func (sr *SectionReader) Close() error {
	err := unix.Munmap(sr.data)
	if cerr := sr.file.Close(); err == nil {
		err = cerr
	}
	return err
}

// debugSection returns the .debug_<name> section's bytes, sliced directly
// out of the mmap when the section is stored uncompressed, or decompressed
// into a fresh buffer when it is zlib-compressed (.zdebug_<name> or a
// SHF_COMPRESSED .debug_<name>) -- grounded on godwarf/sections.go's
// GetDebugSectionElf/decompressMaybe, generalized to read from an mmap
// image rather than through debug/elf's own Section.Data.
func debugSection(ef *elf.File, image []byte, name string) ([]byte, error) {
	sec := ef.Section(".debug_" + name)
	if sec != nil {
		if sec.Flags&elf.SHF_COMPRESSED != 0 {
			return sec.Data()
		}
		return sliceSection(image, sec)
	}
	sec = ef.Section(".zdebug_" + name)
	if sec == nil {
		return nil, fmt.Errorf("could not find .debug_%s section", name)
	}
	raw, err := sliceSection(image, sec)
	if err != nil {
		return nil, err
	}
	return decompressZdebug(raw)
}

func sliceSection(image []byte, sec *elf.Section) ([]byte, error) {
	start := sec.Offset
	end := start + sec.Size
	if end > uint64(len(image)) {
		return nil, fmt.Errorf("section %s extends past end of file", sec.Name)
	}
	return image[start:end], nil
}

func decompressZdebug(b []byte) ([]byte, error) {
	if len(b) < 12 || string(b[:4]) != "ZLIB" {
		return b, nil
	}
	dlen := binary.BigEndian.Uint64(b[4:12])
	dbuf := make([]byte, dlen)
	r, err := zlib.NewReader(bytes.NewBuffer(b[12:]))
	if err != nil {
		return nil, err
	}
	if _, err := io.ReadFull(r, dbuf); err != nil {
		return nil, err
	}
	if err := r.Close(); err != nil {
		return nil, err
	}
	return dbuf, nil
}
