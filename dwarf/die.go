package dwarf

import "fmt"

// DIE is a value-like cursor over a decoded entry.
// The zero value is the null DIE: the sentinel iteration and lookup use for
// "not found". Copying a DIE is cheap and safe; the shared *rawDIE handle
// is what carries the mutable parent/nextSibling back-fill.
type DIE struct {
	unit *Unit
	Offset Offset
	raw *rawDIE
}

// Null reports whether d is the sentinel "no such DIE" value.
func (d DIE) Null() bool { return d.raw == nil }

// Unit returns the compilation unit d belongs to.
func (d DIE) Unit() *Unit { return d.unit }

// Tag returns d's abbreviation tag, or 0 for the null DIE.
func (d DIE) Tag() Tag {
	if d.Null() {
		return 0
	}
	return d.raw.abbrev.Tag
}

// HasChildren reports whether d's abbreviation declares children.
func (d DIE) HasChildren() bool {
	if d.Null() {
		return false
	}
	return d.raw.abbrev.HasChildren
}

// Name returns the DW_AT_name attribute as a string, or "" if absent or
// unreadable. Callers that need to distinguish "absent" from "present but
// empty" should use Attribute(AttrName, false) directly.
func (d DIE) Name() string {
	a := d.Attribute(AttrName, false)
	if !a.Valid() {
		return ""
	}
	s, err := a.String()
	if err != nil {
		return ""
	}
	return s
}

// offsetToDIE resolves off to a DIE within this unit, consulting and
// populating the unit's Raw DIE cache.
// parentHint is the DIE whose child list is being walked, or the null DIE
// when offset is an arbitrary lookup into the middle of the unit; either
// way it is what receives the decoded entry's parent field, and it is what
// absorbs a terminator's "next sibling starts here" side effect.
func (u *Unit) offsetToDIE(parentHint DIE, off Offset) (DIE, error) {
	u.mu.Lock()
	if raw, ok := u.dieCache[off]; ok {
		u.mu.Unlock()
		return DIE{unit: u, Offset: off, raw: raw}, nil
	}
	u.mu.Unlock()

	r := NewReader("info", u.Catalog.InfoSection, off, nil)
	parentOff := Offset(0)
	if !parentHint.Null() {
		parentOff = parentHint.Offset
	}

	raw, termOff, err := decodeEntry(u, r, parentOff)
	if err != nil {
		return DIE{}, err
	}

	if raw == nil {
		// Terminator: offset did not name a DIE at all, it named the code-0
		// byte ending parentHint's child list.
		if !parentHint.Null() {
			u.mu.Lock()
			if parentHint.raw.nextSibling == 0 {
				parentHint.raw.nextSibling = termOff
			}
			u.mu.Unlock()
		}
		return DIE{}, nil
	}

	u.mu.Lock()
	if existing, ok := u.dieCache[off]; ok {
		raw = existing
	} else {
		u.dieCache[off] = raw
	}
	u.mu.Unlock()

	return DIE{unit: u, Offset: off, raw: raw}, nil
}

// FirstChild returns the DIE at raw.firstChild, or the null DIE if d has
// none.
func (d DIE) FirstChild() (DIE, error) {
	if d.Null() {
		return DIE{}, &InvariantViolatedError{What: "firstChild of null DIE"}
	}
	if d.raw.firstChild == 0 {
		return DIE{}, nil
	}
	return d.unit.offsetToDIE(d, d.raw.firstChild)
}

// NextSibling returns d's next sibling, discovering it by walking d's own
// children to exhaustion if it is not yet known.
// parent is the DIE whose child list d itself belongs to, and is what the
// returned sibling's parent field is attributed to.
func (d DIE) NextSibling(parent DIE) (DIE, error) {
	if d.Null() {
		return DIE{}, &InvariantViolatedError{What: "nextSibling of null DIE"}
	}
	if d.raw.nextSibling == 0 {
		it := d.Children()
		for it.Next() {
		}
		if err := it.Err(); err != nil {
			return DIE{}, err
		}
	}
	if d.raw.nextSibling == 0 {
		return DIE{}, nil
	}
	return d.unit.offsetToDIE(parent, d.raw.nextSibling)
}

// ChildIter is the cursor Children returns. Advance it with Next, read the
// current child with DIE, and check Err after the loop -- the bufio.Scanner
// shape, chosen because the facade has no natural slice to hand back.
type ChildIter struct {
	parent DIE
	current DIE
	started bool
	err error
}

// Children returns an iterator over d's direct children, in file order.
// Advancing the iterator updates the parent field of any child still
// carrying parent == 0 --
// this is how a DIE reached by a direct offset lookup acquires a correct
// parent without a dedicated tree walk.
func (d DIE) Children() *ChildIter {
	return &ChildIter{parent: d}
}

// Next advances the iterator. It returns false once the children are
// exhausted or an error occurs; call Err to distinguish the two.
func (it *ChildIter) Next() bool {
	if it.err != nil {
		return false
	}
	var next DIE
	var err error
	if !it.started {
		it.started = true
		next, err = it.parent.FirstChild()
	} else {
		if it.current.Null() {
			return false
		}
		next, err = it.current.NextSibling(it.parent)
	}
	if err != nil {
		it.err = err
		return false
	}
	if next.Null() {
		it.current = DIE{}
		return false
	}
	if next.raw.parent == 0 {
		next.raw.parent = it.parent.Offset
	}
	it.current = next
	return true
}

// DIE returns the child the most recent call to Next positioned on.
func (it *ChildIter) DIE() DIE { return it.current }

// Err returns the error that stopped iteration, if any.
func (it *ChildIter) Err() error { return it.err }

// derefChain is the fixed, deterministic order the attribute dereference
// chain tries: abstract_origin before specification.
var derefChain = []Attr{AttrAbstractOrigin, AttrSpecification}

// invalidAttribute is the sentinel DIE.Attribute returns on a miss.
var invalidAttribute = Attribute{idx: -1}

// Attribute is a handle to one (name, form, value) triple on a DIE. The
// zero value is not meaningful; use invalidAttribute / DIE.Attribute's
// return instead of constructing one directly.
type Attribute struct {
	die DIE
	idx int // index into die.raw.abbrev.Forms and die.raw.values; -1 => invalid
}

// Valid reports whether this Attribute actually refers to a declared form
// entry.
func (a Attribute) Valid() bool { return a.idx >= 0 }

// Name returns the attribute's name, or 0 if invalid.
func (a Attribute) Name() Attr {
	if !a.Valid() {
		return 0
	}
	return a.die.raw.abbrev.Forms[a.idx].Attr
}

// Form returns the attribute's on-wire form, or 0 if invalid.
func (a Attribute) Form() Form {
	if !a.Valid() {
		return 0
	}
	return a.die.raw.abbrev.Forms[a.idx].Form
}

func (a Attribute) value() attrValue { return a.die.raw.values[a.idx] }

// Attribute looks up name: a direct hit on this DIE's own abbreviation,
// or -- for non-local lookups of names other than
// declaration/abstract_origin/specification themselves -- a dereference
// through abstract_origin or specification to the DIE that actually
// carries the attribute.
func (d DIE) Attribute(name Attr, local bool) Attribute {
	if d.Null() {
		return invalidAttribute
	}
	if idx := d.raw.abbrev.Pos(name); idx >= 0 {
		return Attribute{die: d, idx: idx}
	}
	if local || name == AttrDeclaration || name == AttrAbstractOrigin || name == AttrSpecification {
		return invalidAttribute
	}
	for _, alt := range derefChain {
		ao := d.Attribute(alt, true)
		if !ao.Valid() {
			continue
		}
		target, err := ao.Reference()
		if err != nil || target.Null() || sameDIE(target, d) {
			continue
		}
		return target.Attribute(name, false)
	}
	return invalidAttribute
}

func sameDIE(a, b DIE) bool {
	return a.unit == b.unit && a.Offset == b.Offset
}

// AttrPair is one entry of DIE.Attributes, pairing an attribute's declared
// name with the handle to read it.
type AttrPair struct {
	Name Attr
	Attribute Attribute
}

// Attributes returns every attribute d's abbreviation declares, in
// declaration order.
func (d DIE) Attributes() []AttrPair {
	if d.Null() {
		return nil
	}
	out := make([]AttrPair, len(d.raw.abbrev.Forms))
	for i, fe := range d.raw.abbrev.Forms {
		out[i] = AttrPair{Name: fe.Attr, Attribute: Attribute{die: d, idx: i}}
	}
	return out
}

// Unsigned coerces the attribute to an unsigned integer. Accepts data1..8, udata/sdata, implicit_const,
// sec_offset, and addr.
func (a Attribute) Unsigned() (uint64, error) {
	if !a.Valid() {
		return 0, &WrongFormError{Wanted: "unsigned"}
	}
	v := a.value()
	switch a.Form() {
	case FormData1, FormData2, FormData4, FormData8, FormUdata, FormSecOffset, FormAddr:
		return v.num, nil
	case FormSdata, FormImplicitConst:
		return uint64(v.sval), nil
	default:
		return 0, &WrongFormError{Form: a.Form(), Wanted: "unsigned"}
	}
}

// Signed coerces the attribute to a signed integer. Accepts data1..8,
// udata/sdata, implicit_const, sec_offset -- but not addr.
func (a Attribute) Signed() (int64, error) {
	if !a.Valid() {
		return 0, &WrongFormError{Wanted: "signed"}
	}
	v := a.value()
	switch a.Form() {
	case FormData1, FormData2, FormData4, FormData8, FormUdata, FormSecOffset:
		return int64(v.num), nil
	case FormSdata, FormImplicitConst:
		return v.sval, nil
	default:
		return 0, &WrongFormError{Form: a.Form(), Wanted: "signed"}
	}
}

// Flag coerces the attribute to a boolean. Accepts flag and flag_present.
// Needed by any caller reading DW_AT_external/DW_AT_declaration directly
// rather than only by name equality.
func (a Attribute) Flag() (bool, error) {
	if !a.Valid() {
		return false, &WrongFormError{Wanted: "flag"}
	}
	switch a.Form() {
	case FormFlag, FormFlagPresent:
		return a.value().flag, nil
	default:
		return false, &WrongFormError{Form: a.Form(), Wanted: "flag"}
	}
}

const altStringUnavailable = "(alt string table unavailable)"

// String coerces the attribute to a string, resolving strp/line_strp/strx*
// against the unit's string tables and GNU_strp_alt against the optional
// alternate file.
func (a Attribute) String() (string, error) {
	if !a.Valid() {
		return "", &WrongFormError{Wanted: "string"}
	}
	v := a.value()
	u := a.die.unit
	switch a.Form() {
	case FormStrp:
		return readSectionString(u.Catalog.StrSection, Offset(v.num))
	case FormLineStrp:
		return readSectionString(u.Catalog.LineStrSection, Offset(v.num))
	case FormString:
		return readSectionString(u.Catalog.InfoSection, Offset(v.num))
	case FormStrx, FormStrx1, FormStrx2, FormStrx3, FormStrx4:
		off, err := u.resolveStrx(v.num)
		if err != nil {
			return "", err
		}
		return readSectionString(u.Catalog.StrSection, off)
	case FormGNUStrpAlt:
		if u.Catalog.Alt == nil {
			return altStringUnavailable, nil
		}
		return u.Catalog.Alt.AltString(Offset(v.num))
	default:
		return "", &WrongFormError{Form: a.Form(), Wanted: "string"}
	}
}

func readSectionString(section []byte, off Offset) (string, error) {
	r := NewReader("string", section, off, nil)
	return r.String(), nil
}

// Reference coerces the attribute to the DIE it refers to. Resolution tries the owning unit's own offset range
// first, falling back to the info catalog for cross-unit references.
func (a Attribute) Reference() (DIE, error) {
	if !a.Valid() {
		return DIE{}, &WrongFormError{Wanted: "reference"}
	}
	v := a.value()
	u := a.die.unit
	switch a.Form() {
	case FormRefAddr:
		return u.resolveReference(Offset(v.num))
	case FormRef1, FormRef2, FormRef4, FormRef8, FormRefUdata:
		return u.resolveReference(Offset(v.num) + u.Offset)
	case FormGNURefAlt:
		if u.Catalog.Alt == nil {
			return DIE{}, &NoAltReferenceError{}
		}
		return u.Catalog.Alt.AltDIE(Offset(v.num))
	default:
		return DIE{}, &WrongFormError{Form: a.Form(), Wanted: "reference"}
	}
}

// Address coerces the attribute to a machine address, resolving the
// indexed addrx forms against the unit's .debug_addr table -- addrx
// values otherwise have no resolution path since Unsigned alone can't
// dereference them.
func (a Attribute) Address() (uint64, error) {
	if !a.Valid() {
		return 0, &WrongFormError{Wanted: "address"}
	}
	v := a.value()
	switch a.Form() {
	case FormAddr:
		return v.num, nil
	case FormAddrx, FormAddrx1, FormAddrx3, FormAddrx4:
		return a.die.unit.resolveAddrx(v.num)
	default:
		return 0, &WrongFormError{Form: a.Form(), Wanted: "address"}
	}
}

// resolveReference implements the "fast path, then catalog" rule shared by
// every absolute-offset reference form.
func (u *Unit) resolveReference(off Offset) (DIE, error) {
	if u.Contains(off) {
		return u.offsetToDIE(DIE{}, off)
	}
	if u.Catalog == nil {
		return DIE{}, &InvariantViolatedError{What: "reference outside unit with no catalog to resolve it"}
	}
	return u.Catalog.OffsetToDIE(off)
}

// ParentOffset returns d's parent offset, resolving it via a full tree
// walk from the unit root if it is not yet known. A diagnostic is emitted before the walk; the walk's side
// effect means a second call never re-emits it.
func (d DIE) ParentOffset() (Offset, error) {
	if d.Null() {
		return 0, &InvariantViolatedError{What: "parentOffset of null DIE"}
	}
	if d.raw.parent == 0 && !d.unit.IsRoot(d) {
		log.Debugf("no parent offset for die %s at %#x in unit %#x, walking tree from root", d.Tag(), d.Offset, d.unit.Offset)
		if err := d.unit.walkFromRoot(); err != nil {
			return 0, err
		}
		if d.raw.parent == 0 {
			return 0, &InvariantViolatedError{What: "parent walk failed to resolve a parent offset"}
		}
	}
	return d.raw.parent, nil
}

func (u *Unit) walkFromRoot() error {
	root, err := u.Root()
	if err != nil {
		return err
	}
	return walkSubtree(root)
}

func walkSubtree(d DIE) error {
	it := d.Children()
	for it.Next() {
		if err := walkSubtree(it.DIE()); err != nil {
			return err
		}
	}
	return it.Err()
}

// ContainsAddr is the three-valued result of DIE.ContainsAddress.
type ContainsAddr int

const (
	ContainsUnknown ContainsAddr = iota
	ContainsYes
	ContainsNo
)

func (c ContainsAddr) String() string {
	switch c {
	case ContainsYes:
		return "YES"
	case ContainsNo:
		return "NO"
	default:
		return "UNKNOWN"
	}
}

// ContainsAddress checks addr against low_pc and high_pc when both are
// present (high_pc as an address is an absolute
// bound, as a datum it is relative to low_pc); otherwise ranges, with
// low_pc as a base when present; otherwise UNKNOWN.
func (d DIE) ContainsAddress(addr uint64) (ContainsAddr, error) {
	if d.Null() {
		return ContainsUnknown, &InvariantViolatedError{What: "containsAddress of null DIE"}
	}
	low := d.Attribute(AttrLowpc, true)
	high := d.Attribute(AttrHighpc, true)
	if low.Valid() && high.Valid() {
		if low.Form() != FormAddr {
			return ContainsUnknown, &WrongFormError{Form: low.Form(), Wanted: "addr"}
		}
		start, err := low.Unsigned()
		if err != nil {
			return ContainsUnknown, err
		}
		var end uint64
		switch high.Form() {
		case FormAddr:
			end, err = high.Unsigned()
		case FormData1, FormData2, FormData4, FormData8, FormUdata:
			var rel uint64
			rel, err = high.Unsigned()
			end = start + rel
		default:
			return ContainsUnknown, &UnsupportedFormError{Form: high.Form()}
		}
		if err != nil {
			return ContainsUnknown, err
		}
		if start <= addr && addr < end {
			return ContainsYes, nil
		}
		return ContainsNo, nil
	}

	var base uint64
	if low.Valid() {
		if b, err := low.Unsigned(); err == nil {
			base = b
		}
	}
	ranges := d.Attribute(AttrRanges, true)
	if ranges.Valid() {
		rl, err := ranges.Ranges()
		if err != nil {
			return ContainsUnknown, err
		}
		for _, rg := range rl.Entries {
			if rg.Start+base <= addr && addr < rg.End+base {
				return ContainsYes, nil
			}
		}
		return ContainsNo, nil
	}
	return ContainsUnknown, nil
}

// FindEntryForAddr does a depth-first search for a descendant DIE tagged
// tag that contains addr: prune on NO, match on YES (unless told to skip
// the starting DIE), keep searching through UNKNOWN.
func (d DIE) FindEntryForAddr(addr uint64, tag Tag, skipStart bool) (DIE, error) {
	if d.Null() {
		return DIE{}, nil
	}
	c, err := d.ContainsAddress(addr)
	if err != nil {
		return DIE{}, err
	}
	switch c {
	case ContainsNo:
		return DIE{}, nil
	case ContainsYes:
		if !skipStart && d.Tag() == tag {
			return d, nil
		}
		fallthrough
	case ContainsUnknown:
		it := d.Children()
		for it.Next() {
			found, err := it.DIE().FindEntryForAddr(addr, tag, false)
			if err != nil {
				return DIE{}, err
			}
			if !found.Null() {
				return found, nil
			}
		}
		if err := it.Err(); err != nil {
			return DIE{}, err
		}
	}
	return DIE{}, nil
}

// TypeName synthesizes a human-readable type name for typ. A free function rather than a method because
// the receiver it would need is unused -- the algorithm only ever reads
// typ, grounded on original_source/dwarf_die.cc's DIE::typeName.
func TypeName(typ DIE) string {
	if typ.Null() {
		return "void"
	}
	if n := typ.Name(); n != "" {
		return n
	}
	base, _ := typ.Attribute(AttrType, false).Reference()
	switch typ.Tag() {
	case TagPointerType:
		return TypeName(base) + " *"
	case TagConstType:
		return TypeName(base) + " const"
	case TagVolatileType:
		return TypeName(base) + " volatile"
	case TagReferenceType:
		return TypeName(base) + "&"
	case TagSubroutineType:
		s := TypeName(base) + "("
		sep := ""
		it := typ.Children()
		for it.Next() {
			arg := it.DIE()
			if arg.Tag() != TagFormalParameter {
				continue
			}
			argType, _ := arg.Attribute(AttrType, false).Reference()
			s += sep + TypeName(argType)
			sep = ", "
		}
		return s + ")"
	default:
		return fmt.Sprintf("(unhandled tag %d)", uint32(typ.Tag()))
	}
}
