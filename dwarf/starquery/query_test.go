package starquery

import (
	"encoding/binary"
	"testing"

	"github.com/jimmychang851129/pstack/dwarf"
)

func le16(v uint16) []byte {
	b := make([]byte, 2)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func le32(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

// subprogramDIE builds a single childless subprogram DIE ("main", with
// DW_AT_external) as the root of a one-unit catalog, for exercising
// tag/name/attr against a real, fully parsed DIE.
func subprogramDIE(t *testing.T) dwarf.DIE {
	t.Helper()

	abbrev := []byte{
		1, 0x2e, 0,
		0x03, 0x0e, // name, strp
		0x3f, 0x19, // external, flag_present
		0, 0,
		0,
	}

	entry := []byte{1} // abbrev code
	entry = append(entry, le32(0)...) // name -> strp offset 0 ("main")

	body := le16(4) // version
	body = append(body, le32(0)...) // abbrev_offset
	body = append(body, 8) // addr_size
	body = append(body, entry...)

	data := le32(uint32(len(body)))
	data = append(data, body...)

	info := dwarf.NewInfo()
	info.AbbrevSection = abbrev
	info.StrSection = []byte("main\x00")
	info.InfoSection = data

	if err := dwarf.ParseUnits(info); err != nil {
		t.Fatalf("ParseUnits: %v", err)
	}
	units := info.Units()
	if len(units) != 1 {
		t.Fatalf("got %d units, want 1", len(units))
	}
	root, err := units[0].Root()
	if err != nil {
		t.Fatalf("Root: %v", err)
	}
	return root
}

func TestMatchOnTagAndName(t *testing.T) {
	d := subprogramDIE(t)
	p, err := Compile(`tag == "subprogram" and name == "main"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := p.Match(d)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatal("expected the predicate to match")
	}
}

func TestMatchOnAttrAndHasAttr(t *testing.T) {
	d := subprogramDIE(t)
	p, err := Compile(`has_attr("external") and attr("name") == "main"`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	ok, err := p.Match(d)
	if err != nil {
		t.Fatalf("Match: %v", err)
	}
	if !ok {
		t.Fatal("expected the predicate to match")
	}
}

func TestMatchUnknownAttrName(t *testing.T) {
	d := subprogramDIE(t)
	p, err := Compile(`attr("not_a_real_attribute") == 1`)
	if err != nil {
		t.Fatalf("Compile: %v", err)
	}
	if _, err := p.Match(d); err == nil {
		t.Fatal("expected an error for an unknown attribute name")
	}
}
