package dwarf

import "sync"

// Unit is the Compilation Unit capability the core consumes.
// An Info catalog builds one Unit per compile_unit/partial_unit/skeleton_unit
// header found in .debug_info and supplies it to the DIE decoder.
type Unit struct {
	Catalog *Info

	Offset Offset // byte offset of this unit's header within .debug_info
	End Offset // one past the last byte belonging to this unit
	RootOffset Offset // offset of the root DIE, immediately after the header

	Version int
	AddrSize int // 4 or 8
	OffsetSize int // 4 or 8 -- DWARF32 vs DWARF64 ("dwarfLen" in the original)
	AbbrevOff Offset

	abbrev *AbbrevTable

	// mu guards dieCache, rangeCache, and the nextSibling back-fill a
	// terminator performs in offsetToDIE. Base resolution (resolveBases)
	// and the parent back-fill in ChildIter.Next run without it, so a
	// unit is safe for use by one goroutine at a time only.
	mu sync.Mutex
	dieCache map[Offset]*rawDIE
	rangeCache map[Offset]*RangeList

	basesResolved bool
	strOffsBase Offset
	addrBase Offset
	rnglistsBase Offset
}

func newUnit(cat *Info, off, end, rootOff Offset, version, addrSize, offsetSize int, abbrevOff Offset) *Unit {
	return &Unit{
		Catalog: cat,
		Offset: off,
		End: end,
		RootOffset: rootOff,
		Version: version,
		AddrSize: addrSize,
		OffsetSize: offsetSize,
		AbbrevOff: abbrevOff,
		dieCache: make(map[Offset]*rawDIE),
		rangeCache: make(map[Offset]*RangeList),
	}
}

// abbreviations lazily parses this unit's abbreviation table out of the
// catalog's .debug_abbrev section the first time it is needed.
func (u *Unit) abbreviations() (*AbbrevTable, error) {
	if u.abbrev == nil {
		t, err := ParseAbbrevTable(u.Catalog.AbbrevSection, u.AbbrevOff)
		if err != nil {
			return nil, err
		}
		u.abbrev = t
	}
	return u.abbrev, nil
}

// Contains reports whether off falls within this unit's byte range in
// .debug_info.
func (u *Unit) Contains(off Offset) bool {
	return off >= u.Offset && off < u.End
}

// Root returns this unit's root DIE (always the compile_unit /
// partial_unit / skeleton_unit entry at RootOffset).
func (u *Unit) Root() (DIE, error) {
	return u.offsetToDIE(DIE{}, u.RootOffset)
}

// IsRoot reports whether die is this unit's root DIE.
func (u *Unit) IsRoot(d DIE) bool {
	return d.unit == u && d.Offset == u.RootOffset
}

// resolveBases reads DW_AT_str_offsets_base / DW_AT_addr_base /
// DW_AT_rnglists_base off the root DIE, once, lazily -- these only exist
// from DWARF v5 onward and bias the strx/addrx/rnglistx indirections.
func (u *Unit) resolveBases() error {
	if u.basesResolved {
		return nil
	}
	u.basesResolved = true
	root, err := u.Root()
	if err != nil {
		return err
	}
	if a := root.Attribute(AttrStrOffsetsBase, true); a.Valid() {
		if v, err := a.Unsigned(); err == nil {
			u.strOffsBase = Offset(v)
		}
	}
	if a := root.Attribute(AttrAddrBase, true); a.Valid() {
		if v, err := a.Unsigned(); err == nil {
			u.addrBase = Offset(v)
		}
	}
	if a := root.Attribute(AttrRnglistsBase, true); a.Valid() {
		if v, err := a.Unsigned(); err == nil {
			u.rnglistsBase = Offset(v)
		}
	}
	return nil
}
