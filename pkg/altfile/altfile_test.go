package altfile

import (
	"encoding/binary"
	"testing"

	"github.com/jimmychang851129/pstack/dwarf"
	"github.com/jimmychang851129/pstack/pkg/sections"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// altCatalog builds a one-unit, one-DIE catalog ("compile_unit", no
// children) and wraps it the way Open would, without touching a real
// ELF file.
func altCatalog(t *testing.T) *File {
	t.Helper()

	abbrev := []byte{
		1, 0x11, 0,
		0x03, 0x0e, // name, strp
		0, 0,
		0,
	}
	entry := []byte{1}
	entry = append(entry, le32(0)...) // name -> strp offset 0 ("unit")

	body := []byte{4, 0}
	body = append(body, le32(0)...) // abbrev_offset
	body = append(body, 8)          // addr_size
	body = append(body, entry...)

	data := le32(uint32(len(body)))
	data = append(data, body...)

	sr := &sections.SectionReader{
		Str: []byte("unit\x00"),
	}
	info := dwarf.NewInfo()
	info.AbbrevSection = abbrev
	info.StrSection = sr.Str
	info.InfoSection = data
	if err := dwarf.ParseUnits(info); err != nil {
		t.Fatalf("ParseUnits: %v", err)
	}
	return &File{sr: sr, info: info}
}

func TestAltStringReadsFromAlternateStrTable(t *testing.T) {
	f := altCatalog(t)
	s, err := f.AltString(0)
	if err != nil {
		t.Fatalf("AltString: %v", err)
	}
	if s != "unit" {
		t.Fatalf("AltString = %q, want %q", s, "unit")
	}
}

func TestAltStringRejectsOutOfBoundsOffset(t *testing.T) {
	f := altCatalog(t)
	if _, err := f.AltString(100); err == nil {
		t.Fatal("expected an error for an out-of-bounds alt string offset")
	}
}

func TestAltDIEResolvesRootByOffset(t *testing.T) {
	f := altCatalog(t)
	root, err := f.info.Units()[0].Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	d, err := f.AltDIE(root.Offset)
	if err != nil {
		t.Fatalf("AltDIE: %v", err)
	}
	if d.Tag() != dwarf.TagCompileUnit {
		t.Fatalf("AltDIE tag = %v, want TagCompileUnit", d.Tag())
	}
}
