// Package altfile adapts a second, independently opened DWZ "alternate"
// debug file into a dwarf.AltFile, so GNU_strp_alt/GNU_ref_alt attributes
// in the primary file resolve instead of falling back to the
// "(alt string table unavailable)" sentinel or NoAltReferenceError.
package altfile

import (
	"github.com/jimmychang851129/pstack/dwarf"
	"github.com/jimmychang851129/pstack/pkg/sections"
)

// File wraps the alternate file's own info catalog and backing section
// reader, implementing dwarf.AltFile against them.
type File struct {
	sr   *sections.SectionReader
	info *dwarf.Info
}

// Open mmaps path and parses its .debug_info as a standalone catalog,
// suitable for attaching to a primary dwarf.Info's Alt field.
func Open(path string) (*File, error) {
	sr, err := sections.Open(path)
	if err != nil {
		return nil, err
	}
	info := dwarf.NewInfo()
	info.InfoSection = sr.Info
	info.AbbrevSection = sr.Abbrev
	info.StrSection = sr.Str
	info.LineStrSection = sr.LineStr
	info.StrOffsetsSection = sr.StrOffsets
	info.AddrSection = sr.Addr
	info.RangesSection = sr.Ranges
	info.RngListsSection = sr.RngLists
	if err := dwarf.ParseUnits(info); err != nil {
		sr.Close()
		return nil, err
	}
	return &File{sr: sr, info: info}, nil
}

// Close unmaps the alternate file.
func (f *File) Close() error {
	return f.sr.Close()
}

// AltString implements dwarf.AltFile.
func (f *File) AltString(off dwarf.Offset) (string, error) {
	if int(off) >= len(f.sr.Str) {
		return "", &dwarf.BadEncodingError{Section: "alt str", Offset: off}
	}
	r := dwarf.NewReader("alt str", f.sr.Str, off, nil)
	return r.String(), nil
}

// AltDIE implements dwarf.AltFile.
func (f *File) AltDIE(off dwarf.Offset) (dwarf.DIE, error) {
	return f.info.OffsetToDIE(off)
}
