package dwarf

// Block is a length-and-offset reference into a backing section. The bytes are never copied; Block is
// only valid for as long as the section it points into is valid.
type Block struct {
	Offset Offset
	Length uint64
}

// attrValue is the decoded payload of one attribute, before it is known
// which accessor the caller will use. The form is the sole discriminator
// -- num/sval/flag/block simply hold whichever shape the form produced,
// and coercions in die.go pick the right one by consulting the
// FormEntry, never a stored kind.
type attrValue struct {
	num uint64 // unsigned integer / address / section offset / reference
	sval int64 // signed integer (sdata, implicit_const)
	flag bool
	block Block
}

// decodeAttrValue dispatches on form, one case per form, grounded directly
// on original_source/dwarf_die.cc's
// DIE::Attribute::Value::Value constructor. It advances r except for
// FormImplicitConst, whose value lives in the abbreviation table, not the
// entry stream.
func decodeAttrValue(r *Reader, fe FormEntry, u *Unit) (attrValue, error) {
	var v attrValue

	switch fe.Form {
	case FormGNUStrpAlt:
		v.num = r.Uint(u.OffsetSize)

	case FormStrp, FormLineStrp:
		width := u.OffsetSize
		if fe.Form == FormStrp && u.Version <= 2 {
			width = 4
		}
		v.num = r.Uint(width)

	case FormGNURefAlt:
		v.num = r.Uint(u.OffsetSize)

	case FormAddr:
		v.num = r.Uint(u.AddrSize)

	case FormData1:
		v.num = r.Uint(1)

	case FormData2:
		v.num = r.Uint(2)

	case FormData4:
		v.num = r.Uint(4)

	case FormData8:
		v.num = r.Uint(8)

	case FormSdata:
		v.sval = r.Sleb128()

	case FormUdata:
		v.num = r.Uleb128()

	case FormStrx, FormLoclistx, FormRnglistx, FormAddrx, FormRefUdata:
		v.num = r.Uleb128()

	case FormStrx1, FormAddrx1, FormRef1:
		v.num = r.Uint(1)

	case FormStrx2, FormRef2:
		v.num = r.Uint(2)

	case FormAddrx3, FormStrx3:
		v.num = r.Uint(3)

	case FormStrx4, FormAddrx4, FormRef4:
		v.num = r.Uint(4)

	case FormRefAddr:
		v.num = r.Uint(u.OffsetSize)

	case FormRef8:
		v.num = r.Uint(8)

	case FormString:
		v.num = uint64(r.Offset())
		_ = r.String()

	case FormBlock1:
		v.block.Length = r.Uint(1)
		v.block.Offset = r.Offset()
		r.Skip(int(v.block.Length))

	case FormBlock2:
		v.block.Length = r.Uint(2)
		v.block.Offset = r.Offset()
		r.Skip(int(v.block.Length))

	case FormBlock4:
		v.block.Length = r.Uint(4)
		v.block.Offset = r.Offset()
		r.Skip(int(v.block.Length))

	case FormExprloc, FormBlock:
		v.block.Length = r.Uleb128()
		v.block.Offset = r.Offset()
		r.Skip(int(v.block.Length))

	case FormFlag:
		v.flag = r.U8() != 0

	case FormFlagPresent:
		v.flag = true

	case FormSecOffset:
		v.num = r.Uint(u.OffsetSize)

	case FormRefSig8:
		v.num = r.Uint(8)

	case FormImplicitConst:
		v.sval = fe.ImplicitConst

	default:
		return v, &UnsupportedFormError{Form: fe.Form}
	}

	return v, nil
}
