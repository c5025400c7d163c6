package dwarf

import "testing"

func TestIndexedLookup(t *testing.T) {
	section := append(append([]byte{}, le64(0)...), le64(0xdeadbeef)...)
	section = append(section, le64(0x12345678)...)

	off, err := indexedLookup(section, 8, 1, 8, "addr")
	if err != nil {
		t.Fatalf("indexedLookup: %v", err)
	}
	if off != 0x12345678 {
		t.Fatalf("got %#x, want 0x12345678", off)
	}
}

func TestIndexedLookupOutOfBounds(t *testing.T) {
	section := make([]byte, 8)
	_, err := indexedLookup(section, 4, 3, 8, "addr")
	if _, ok := err.(*BadEncodingError); !ok {
		t.Fatalf("got %T (%v), want *BadEncodingError", err, err)
	}
}

// strxCarryingAbbrev declares a childless DIE with one `name` attribute
// encoded as strx, plus an AttrStrOffsetsBase so resolveBases has something
// to find on a root DIE.
func strxCarryingAbbrev() []byte {
	return []byte{
		1, 0x34, 0,
		0x72, 0x17, // str_offsets_base, sec_offset
		0x03, 0x1a, // name, strx
		0, 0,
		0,
	}
}

func TestResolveStrx(t *testing.T) {
	strSection := []byte("\x00\x00\x00\x00hello\x00")

	strOffsets := append([]byte{}, le32(0)...)
	strOffsets = append(strOffsets, le32(4)...) // index 1 -> offset 4, "hello"

	info := &Info{
		AbbrevSection: strxCarryingAbbrev(),
		StrSection: strSection,
		StrOffsetsSection: strOffsets,
	}
	u := newUnit(info, 0, 0x100, 0x0B, 5, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1)
	infoBytes = append(infoBytes, le32(0)...) // str_offsets_base = 0
	infoBytes = append(infoBytes, 1) // strx index = 1 (ULEB128)
	info.InfoSection = infoBytes

	root, err := u.offsetToDIE(DIE{}, 0x0B)
	if err != nil {
		t.Fatalf("offsetToDIE: %v", err)
	}
	if got := root.Name(); got != "hello" {
		t.Fatalf("name = %q, want hello", got)
	}
}

func TestResolveAddrx(t *testing.T) {
	addrSection := append([]byte{}, le64(0)...)
	addrSection = append(addrSection, le64(0x401000)...)

	abbrev := []byte{
		1, 0x34, 0,
		0x73, 0x17, // addr_base, sec_offset
		0x11, 0x1b, // low_pc, addrx
		0, 0,
		0,
	}
	info := &Info{AbbrevSection: abbrev, AddrSection: addrSection}
	u := newUnit(info, 0, 0x100, 0x0B, 5, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1)
	infoBytes = append(infoBytes, le32(0)...) // addr_base = 0
	infoBytes = append(infoBytes, 1) // addrx index = 1 (ULEB128)
	info.InfoSection = infoBytes

	root, err := u.offsetToDIE(DIE{}, 0x0B)
	if err != nil {
		t.Fatalf("offsetToDIE: %v", err)
	}
	lowPC := root.Attribute(AttrLowpc, true)
	if !lowPC.Valid() {
		t.Fatal("expected a valid low_pc attribute")
	}
	addr, err := lowPC.Address()
	if err != nil {
		t.Fatalf("Address: %v", err)
	}
	if addr != 0x401000 {
		t.Fatalf("got %#x, want 0x401000", addr)
	}
}
