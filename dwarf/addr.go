package dwarf

// resolveStrx resolves an index into .debug_str_offsets to an offset
// within .debug_str, biased by the unit's str_offsets_base. Grounded on the indexed-table idiom of
// godwarf/addr.go's DebugAddr.Get, generalized from addresses to string
// offsets since DWARF5 gives both tables the same "base + index*width"
// shape.
func (u *Unit) resolveStrx(index uint64) (Offset, error) {
	if err := u.resolveBases(); err != nil {
		return 0, err
	}
	return indexedLookup(u.Catalog.StrOffsetsSection, u.strOffsBase, index, u.OffsetSize, "str_offsets")
}

// resolveAddrx resolves an index into .debug_addr to a machine address,
// biased by the unit's addr_base.
func (u *Unit) resolveAddrx(index uint64) (uint64, error) {
	if err := u.resolveBases(); err != nil {
		return 0, err
	}
	off, err := indexedLookup(u.Catalog.AddrSection, u.addrBase, index, u.AddrSize, "addr")
	return uint64(off), err
}

// indexedLookup reads the width-byte entry at base + index*width out of
// section, the shape shared by .debug_str_offsets and .debug_addr once
// their respective per-unit base is known.
func indexedLookup(section []byte, base Offset, index uint64, width int, name string) (Offset, error) {
	pos := base + Offset(index*uint64(width))
	if int(pos)+width > len(section) {
		return 0, &BadEncodingError{Section: name, Offset: pos}
	}
	r := NewReader(name, section, pos, nil)
	return Offset(r.Uint(width)), nil
}
