package dwarf

import (
	"encoding/binary"
	"testing"
)

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func le64(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

// compileUnitAbbrev builds a single-entry abbreviation table: code 1 is
// compile_unit, has children, with (name strp)(low_pc addr)(high_pc data4).
func compileUnitAbbrev() []byte {
	return []byte{
		1, 0x11, 1,
		0x03, 0x0e,
		0x11, 0x01,
		0x12, 0x06,
		0, 0,
		0,
	}
}

// S1 — Abbrev decode.
func TestS1AbbrevDecodeAndContainsAddress(t *testing.T) {
	str := make([]byte, 0x20)
	str = append(str, []byte("hello.c\x00")...)

	info := &Info{AbbrevSection: compileUnitAbbrev(), StrSection: str}
	u := newUnit(info, 0, 0x100, 0x0B, 4, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1)
	infoBytes = append(infoBytes, le32(0x20)...)
	infoBytes = append(infoBytes, le64(0x400000)...)
	infoBytes = append(infoBytes, le32(0x100)...)
	infoBytes = append(infoBytes, 0)
	info.InfoSection = infoBytes

	root, err := u.offsetToDIE(DIE{}, 0x0B)
	if err != nil {
		t.Fatalf("offsetToDIE: %v", err)
	}
	if root.Tag() != TagCompileUnit {
		t.Fatalf("tag = %v, want compile_unit", root.Tag())
	}
	if got := root.Name(); got != "hello.c" {
		t.Fatalf("name = %q, want hello.c", got)
	}
	if c, err := root.ContainsAddress(0x400080); err != nil || c != ContainsYes {
		t.Fatalf("containsAddress(0x400080) = %v, %v, want YES", c, err)
	}
	if c, err := root.ContainsAddress(0x400100); err != nil || c != ContainsNo {
		t.Fatalf("containsAddress(0x400100) = %v, %v, want NO", c, err)
	}

	n := 0
	it := root.Children()
	for it.Next() {
		n++
	}
	if err := it.Err(); err != nil {
		t.Fatalf("children: %v", err)
	}
	if n != 0 {
		t.Fatalf("got %d children, want 0", n)
	}
	if root.raw.nextSibling == 0 {
		t.Fatal("next_sibling should be known after exhausting children")
	}
}

// highPcSdataAbbrev declares high_pc as DW_FORM_sdata, a form the
// original containsAddress switch never treats as relative-to-low_pc.
func highPcSdataAbbrev() []byte {
	return []byte{
		1, 0x11, 0,
		0x11, 0x01,
		0x12, 0x0d,
		0, 0,
		0,
	}
}

func TestContainsAddressRejectsUnsupportedHighPcForm(t *testing.T) {
	info := &Info{AbbrevSection: highPcSdataAbbrev()}
	u := newUnit(info, 0, 0x100, 0x0B, 4, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1)
	infoBytes = append(infoBytes, le64(0x400000)...)
	infoBytes = append(infoBytes, 0x20) // high_pc as sleb128, value 0x20
	info.InfoSection = infoBytes

	root, err := u.offsetToDIE(DIE{}, 0x0B)
	if err != nil {
		t.Fatalf("offsetToDIE: %v", err)
	}
	if _, err := root.ContainsAddress(0x400010); err == nil {
		t.Fatal("expected an UnsupportedFormError for high_pc as sdata")
	} else if _, ok := err.(*UnsupportedFormError); !ok {
		t.Fatalf("err = %T %v, want *UnsupportedFormError", err, err)
	}
}

// derefChainAbbrev builds a two-abbreviation table: code 1 is a
// childless subprogram with only abstract_origin (ref4); code 2 is a
// childless subprogram with only a name (strp).
func derefChainAbbrev() []byte {
	return []byte{
		1, 0x2e, 0,
		0x31, 0x13,
		0, 0,
		2, 0x2e, 0,
		0x03, 0x0e,
		0, 0,
		0,
	}
}

// S2 — Dereference chain.
func TestS2DereferenceChain(t *testing.T) {
	info := &Info{AbbrevSection: derefChainAbbrev(), StrSection: []byte("foo\x00")}
	u := newUnit(info, 0, 0x100, 0, 4, 8, 4, 0)

	// B (code 2, name strp=0, i.e. "foo") at 0x10; A (code 1,
	// abstract_origin ref4=0x10, i.e. -> B) at 0x20.
	infoBytes := make([]byte, 0x25)
	infoBytes[0x10] = 2
	copy(infoBytes[0x11:0x15], le32(0))
	infoBytes[0x20] = 1
	copy(infoBytes[0x21:0x25], le32(0x10))
	info.InfoSection = infoBytes

	a, err := u.offsetToDIE(DIE{}, 0x20)
	if err != nil {
		t.Fatalf("offsetToDIE(A): %v", err)
	}
	nameAttr := a.Attribute(AttrName, false)
	if !nameAttr.Valid() {
		t.Fatal("A.attribute(name, local=false) should follow abstract_origin to B")
	}
	s, err := nameAttr.String()
	if err != nil || s != "foo" {
		t.Fatalf("A's dereferenced name = %q, %v, want foo", s, err)
	}

	if a2 := a.Attribute(AttrName, true); a2.Valid() {
		t.Fatal("A.attribute(name, local=true) should not dereference")
	}
}

// S4 — Lazy parent.
func TestS4LazyParentResolution(t *testing.T) {
	// root (code 1, compile_unit, has children) at 0x0B; one child, a
	// childless subprogram (code 2) with no attributes, at the offset
	// right after the root's own values.
	abbrev := []byte{
		1, 0x11, 1,
		0, 0,
		2, 0x2e, 0,
		0, 0,
		0,
	}
	info := &Info{AbbrevSection: abbrev}
	u := newUnit(info, 0, 0x100, 0x0B, 4, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1) // root, offset 0x0B, firstChild = 0x0C
	infoBytes = append(infoBytes, 2) // child, offset 0x0C
	infoBytes = append(infoBytes, 0) // terminator ending root's children, offset 0x0D
	info.InfoSection = infoBytes

	child, err := u.offsetToDIE(DIE{}, 0x0C)
	if err != nil {
		t.Fatalf("offsetToDIE(child): %v", err)
	}
	if child.raw.parent != 0 {
		t.Fatal("direct offset lookup should leave parent unknown")
	}

	p1, err := child.ParentOffset()
	if err != nil {
		t.Fatalf("ParentOffset: %v", err)
	}
	if p1 != 0x0B {
		t.Fatalf("parent = %#x, want 0x0B", p1)
	}

	p2, err := child.ParentOffset()
	if err != nil || p2 != p1 {
		t.Fatalf("second ParentOffset call: %#x, %v, want %#x, nil", p2, err, p1)
	}
}

func TestFindEntryForAddr(t *testing.T) {
	// root (code 1, compile_unit, has children, no pc attrs) at offset
	// 0x0B; child subprogram (code 2, has children, low_pc as addr,
	// high_pc as data4) at 0x0C.
	abbrev := []byte{
		1, 0x11, 1,
		0, 0,
		2, 0x2e, 1,
		0x11, 0x01,
		0x12, 0x06,
		0, 0,
		0,
	}
	info := &Info{AbbrevSection: abbrev}
	u := newUnit(info, 0, 0x200, 0x0B, 4, 8, 4, 0)

	infoBytes := make([]byte, 0x0B)
	infoBytes = append(infoBytes, 1) // root @0x0B
	childOff := len(infoBytes)
	infoBytes = append(infoBytes, 2)
	infoBytes = append(infoBytes, le64(0x1000)...)
	infoBytes = append(infoBytes, le32(0x100)...)
	infoBytes = append(infoBytes, 0) // terminator ending child's (empty) children
	infoBytes = append(infoBytes, 0) // terminator ending root's children
	info.InfoSection = infoBytes

	root, err := u.offsetToDIE(DIE{}, 0x0B)
	if err != nil {
		t.Fatalf("offsetToDIE(root): %v", err)
	}

	found, err := root.FindEntryForAddr(0x1080, TagSubprogram, false)
	if err != nil {
		t.Fatalf("FindEntryForAddr: %v", err)
	}
	if found.Null() || found.Offset != Offset(childOff) {
		t.Fatalf("found = %+v, want subprogram at %#x", found, childOff)
	}

	notFound, err := root.FindEntryForAddr(0x5000, TagSubprogram, false)
	if err != nil {
		t.Fatalf("FindEntryForAddr (miss): %v", err)
	}
	if !notFound.Null() {
		t.Fatalf("expected no match outside the subprogram's range, got %+v", notFound)
	}
}
