package dwarf

import "testing"

func TestDecodeEntryValuesMatchFormCount(t *testing.T) {
	info := &Info{AbbrevSection: compileUnitAbbrev()}
	u := newUnit(info, 0, 0x100, 0, 4, 8, 4, 0)

	data := []byte{1}
	data = append(data, le32(0x20)...)
	data = append(data, le64(0x400000)...)
	data = append(data, le32(0x100)...)
	r := NewReader("info", data, 0, nil)

	raw, _, err := decodeEntry(u, r, 0)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if len(raw.values) != len(raw.abbrev.Forms) {
		t.Fatalf("values.length = %d, forms.length = %d, want equal", len(raw.values), len(raw.abbrev.Forms))
	}
}

func TestDecodeEntryTerminator(t *testing.T) {
	info := &Info{AbbrevSection: compileUnitAbbrev()}
	u := newUnit(info, 0, 0x100, 0, 4, 8, 4, 0)

	r := NewReader("info", []byte{0}, 0, nil)
	raw, termOff, err := decodeEntry(u, r, 0x10)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if raw != nil {
		t.Fatal("terminator should decode to a nil rawDIE")
	}
	if termOff != 1 {
		t.Fatalf("terminatorEnd = %d, want 1", termOff)
	}
}

func TestDecodeEntryUnknownAbbrev(t *testing.T) {
	info := &Info{AbbrevSection: compileUnitAbbrev()}
	u := newUnit(info, 0, 0x100, 0, 4, 8, 4, 0)

	r := NewReader("info", []byte{99}, 0, nil)
	_, _, err := decodeEntry(u, r, 0)
	if _, ok := err.(*UnknownAbbrevError); !ok {
		t.Fatalf("got %T (%v), want *UnknownAbbrevError", err, err)
	}
}

func TestDecodeEntryChildlessSetsNextSiblingImmediately(t *testing.T) {
	// code 1, subprogram, no children, no forms.
	abbrev := []byte{1, 0x2e, 0, 0, 0, 0}
	info := &Info{AbbrevSection: abbrev}
	u := newUnit(info, 0, 0x100, 0, 4, 8, 4, 0)

	r := NewReader("info", []byte{1, 0xAA}, 0, nil)
	raw, _, err := decodeEntry(u, r, 0)
	if err != nil {
		t.Fatalf("decodeEntry: %v", err)
	}
	if raw.firstChild != 0 {
		t.Fatalf("firstChild = %#x, want 0 (no children)", raw.firstChild)
	}
	if raw.nextSibling != 1 {
		t.Fatalf("nextSibling = %#x, want 1 (immediately after the code byte)", raw.nextSibling)
	}
}
