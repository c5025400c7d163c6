package dwarf

import (
	"encoding/binary"
	"sort"

	lru "github.com/hashicorp/golang-lru"
)

// AltFile is the optional GNU DWZ "alternate" debug file that common DIEs
// and strings may have been deduplicated into.
type AltFile interface {
	// AltString returns the string at offset off in the alternate file's
	// .debug_str section.
	AltString(off Offset) (string, error)
	// AltDIE resolves an absolute .debug_info offset in the alternate
	// file to a DIE (DW_FORM_GNU_ref_alt).
	AltDIE(off Offset) (DIE, error)
}

// InfoCatalog is the info-section-scope resolver the core needs for
// cross-unit references. *Info implements it.
type InfoCatalog interface {
	OffsetToDIE(off Offset) (DIE, error)
}

// Info is the top-level catalog over a .debug_info section and its
// auxiliary sections: it owns every Unit, and is the entry point for
// cross-unit reference resolution. Constructing one from real ELF
// sections is the job of an external loader (pkg/sections in this
// repo's driver, or any other).
type Info struct {
	InfoSection []byte // .debug_info
	AbbrevSection []byte // .debug_abbrev
	StrSection []byte // .debug_str
	LineStrSection []byte // .debug_line_str
	StrOffsetsSection []byte // .debug_str_offsets
	AddrSection []byte // .debug_addr
	RangesSection []byte // .debug_ranges (pre-DWARFv5)
	RngListsSection []byte // .debug_rnglists (DWARFv5+)

	// Alt is the optional DWZ alternate file. nil means none configured;
	// GNU_ref_alt/GNU_strp_alt attributes then fail/return a sentinel.
	Alt AltFile

	units []*Unit

	// refCache memoizes the cross-unit lookup path: offset -> unit -> DIE.
	// It never substitutes for the mandatory per-unit Raw DIE cache on
	// Unit -- only the unit-search step is memoized here.
	refCache *lru.Cache
}

// NewInfo builds an empty catalog with no sections. Set its section
// fields, then call ParseUnits to populate it before use.
func NewInfo() *Info {
	c, _ := lru.New(512) // fixed size is always a valid argument; err is impossible here
	return &Info{refCache: c}
}

// SetRefCacheSize resizes the cross-unit reference cache (wired to
// pkg/config's cache-size knob).
func (info *Info) SetRefCacheSize(n int) {
	c, err := lru.New(n)
	if err == nil {
		info.refCache = c
	}
}

// Units returns every compile/partial/skeleton unit parsed so far, in
// file order.
func (info *Info) Units() []*Unit { return info.units }

// ParseUnits walks .debug_info from the start and decodes every unit
// header it finds, in file order. It must be called once, after the
// section fields are populated, before any DIE is resolved.
func ParseUnits(info *Info) (err error) {
	defer func() {
		if p := recover(); p != nil {
			if be, ok := p.(*BadEncodingError); ok {
				err = be
				return
			}
			panic(p)
		}
	}()

	data := info.InfoSection
	var off Offset
	for int(off) < len(data) {
		u, next := parseUnitHeader(info, data, off)
		info.units = append(info.units, u)
		off = next
	}
	sort.Slice(info.units, func(i, j int) bool { return info.units[i].Offset < info.units[j].Offset })
	return nil
}

// parseUnitHeader decodes one compilation-unit header (DWARFv5 section
// 7.5.1.1, page 199 and following -- and the pre-v5 shape it replaced)
// and returns the Unit plus the offset of the next unit header.
func parseUnitHeader(cat *Info, data []byte, off Offset) (*Unit, Offset) {
	start := off
	r := NewReader("info", data, off, binary.LittleEndian)

	initialLen := r.U32()
	offsetSize := 4
	var unitLength uint64
	if initialLen == 0xffffffff {
		unitLength = r.U64()
		offsetSize = 8
	} else {
		unitLength = uint64(initialLen)
	}
	end := r.Offset() + Offset(unitLength)

	version := int(r.U16())

	var addrSize int
	var abbrevOff Offset
	if version >= 5 {
		r.U8() // unit_type -- compile_unit/partial_unit/skeleton_unit/etc, not distinguished by the core
		addrSize = int(r.U8())
		abbrevOff = Offset(r.Uint(offsetSize))
	} else {
		abbrevOff = Offset(r.Uint(offsetSize))
		addrSize = int(r.U8())
	}

	u := newUnit(cat, start, end, r.Offset(), version, addrSize, offsetSize, abbrevOff)
	return u, end
}

// unitForOffset returns the unit whose [Offset, End) contains off, if
// any.
func (info *Info) unitForOffset(off Offset) *Unit {
	units := info.units
	i := sort.Search(len(units), func(i int) bool { return units[i].End > off })
	if i < len(units) && units[i].Contains(off) {
		return units[i]
	}
	return nil
}

// OffsetToDIE resolves an absolute .debug_info offset to a DIE, searching
// every unit. Callers that already know the owning unit should
// prefer Unit.offsetToDIE, which is cheaper and keeps cache updates local.
func (info *Info) OffsetToDIE(off Offset) (DIE, error) {
	if info.refCache != nil {
		if v, ok := info.refCache.Get(off); ok {
			return v.(DIE), nil
		}
	}
	u := info.unitForOffset(off)
	if u == nil {
		return DIE{}, &InvariantViolatedError{What: "offset does not belong to any known unit"}
	}
	d, err := u.offsetToDIE(DIE{}, off)
	if err != nil {
		return DIE{}, err
	}
	if info.refCache != nil {
		info.refCache.Add(off, d)
	}
	return d, nil
}
