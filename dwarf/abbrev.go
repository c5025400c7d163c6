package dwarf

// FormEntry is one (attribute, form) pair declared by an abbreviation, in
// declaration order. For FormImplicitConst it also carries the constant
// embedded in the abbreviation table itself.
type FormEntry struct {
	Attr Attr
	Form Form
	ImplicitConst int64
}

// Abbreviation is the decoded schema shared by every DIE in a unit that
// carries the same abbreviation code. It is immutable once built.
type Abbreviation struct {
	Code uint64
	Tag Tag
	HasChildren bool
	Forms []FormEntry

	attrIndex map[Attr]int
	siblingIdx int // index into Forms of a `sibling` form entry, or -1
}

// Pos returns the index of name within this abbreviation's ordered form
// list, or -1 if this abbreviation does not declare that attribute.
func (a *Abbreviation) Pos(name Attr) int {
	if i, ok := a.attrIndex[name]; ok {
		return i
	}
	return -1
}

// AbbrevTable is the per-unit mapping from abbreviation code to
// Abbreviation. It is read-only once built.
type AbbrevTable struct {
	byCode map[uint64]*Abbreviation
}

// Find returns the abbreviation for code, or UnknownAbbrevError if the
// unit's table has no such entry.
func (t *AbbrevTable) Find(code uint64) (*Abbreviation, error) {
	a, ok := t.byCode[code]
	if !ok {
		return nil, &UnknownAbbrevError{Code: code}
	}
	return a, nil
}

// ParseAbbrevTable decodes the sequence of abbreviation declarations
// starting at off within a .debug_abbrev section, stopping at the
// table-terminating zero code (DWARFv5 section 7.5.3).
func ParseAbbrevTable(data []byte, off Offset) (table *AbbrevTable, err error) {
	defer func() {
		if p := recover(); p != nil {
			if be, ok := p.(*BadEncodingError); ok {
				err = be
				return
			}
			panic(p)
		}
	}()

	r := NewReader("abbrev", data, off, nil)
	table = &AbbrevTable{byCode: make(map[uint64]*Abbreviation)}

	for r.Len() > 0 {
		code := r.Uleb128()
		if code == 0 {
			break
		}
		a := &Abbreviation{
			Code: code,
			Tag: Tag(r.Uleb128()),
			siblingIdx: -1,
			attrIndex: make(map[Attr]int),
		}
		a.HasChildren = r.U8() != 0

		for {
			attr := Attr(r.Uleb128())
			form := Form(r.Uleb128())
			if attr == 0 && form == 0 {
				break
			}
			fe := FormEntry{Attr: attr, Form: form}
			if form == FormImplicitConst {
				fe.ImplicitConst = r.Sleb128()
			}
			idx := len(a.Forms)
			a.Forms = append(a.Forms, fe)
			a.attrIndex[attr] = idx
			if attr == AttrSibling {
				a.siblingIdx = idx
			}
		}

		table.byCode[code] = a
	}
	return table, nil
}
