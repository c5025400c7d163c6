package dwarf

// rawDIE is the decoded record at one offset. It is
// interned per unit -- Unit.dieCache guarantees at most one rawDIE per
// (unit, offset), which is what makes the lazy parent/nextSibling
// back-fill in die.go safe.
type rawDIE struct {
	abbrev *Abbreviation
	values []attrValue

	parent Offset // 0 => unknown, discovered lazily via tree walk
	firstChild Offset // 0 => no children
	nextSibling Offset // 0 => unknown, discovered by walking this DIE's children
}

// decodeEntry decodes one entry. r must be positioned at the start of
// the entry (its abbreviation code). parent is the offset of the DIE that
// is decoding this one as a child, or 0 if unknown (e.g. a direct
// offset-to-DIE lookup into the middle of a unit).
//
// A terminator (abbreviation code 0) returns (nil, end, nil), where end is
// the offset immediately after it; that offset becomes the caller's
// nextSibling.
func decodeEntry(u *Unit, r *Reader, parent Offset) (raw *rawDIE, terminatorEnd Offset, err error) {
	defer func() {
		if p := recover(); p != nil {
			if be, ok := p.(*BadEncodingError); ok {
				err = be
				return
			}
			panic(p)
		}
	}()

	code := r.Uleb128()
	if code == 0 {
		return nil, r.Offset(), nil
	}

	abbrev, err := u.abbreviations()
	if err != nil {
		return nil, 0, err
	}
	a, err := abbrev.Find(code)
	if err != nil {
		return nil, 0, err
	}

	raw = &rawDIE{abbrev: a, parent: parent, values: make([]attrValue, len(a.Forms))}

	for i, fe := range a.Forms {
		v, err := decodeAttrValue(r, fe, u)
		if err != nil {
			return nil, 0, err
		}
		raw.values[i] = v
		if i == a.siblingIdx {
			raw.nextSibling = Offset(v.num) + u.Offset
		}
	}

	if a.HasChildren {
		raw.firstChild = r.Offset()
	} else {
		raw.nextSibling = r.Offset()
		raw.firstChild = 0
	}

	return raw, 0, nil
}
