package dwarf

import "fmt"

// Tag identifies the kind of a Debugging Information Entry (DWARFv5
// section 2.2, page 12 and following).
type Tag uint32

// Attr identifies an attribute attached to a DIE (DWARFv5 section 2.3).
type Attr uint32

// Form identifies the on-wire encoding of an attribute's value (DWARFv5
// section 7.5.3, page 206 and following).
type Form uint32

// Tags observed in compiler output for the toolchains this core targets.
const (
	TagArrayType Tag = 0x01
	TagClassType Tag = 0x02
	TagEntryPoint Tag = 0x03
	TagEnumerationType Tag = 0x04
	TagFormalParameter Tag = 0x05
	TagImportedDeclaration Tag = 0x08
	TagLabel Tag = 0x0a
	TagLexDwarfBlock Tag = 0x0b
	TagMember Tag = 0x0d
	TagPointerType Tag = 0x0f
	TagReferenceType Tag = 0x10
	TagCompileUnit Tag = 0x11
	TagStringType Tag = 0x12
	TagStructType Tag = 0x13
	TagSubroutineType Tag = 0x15
	TagTypedef Tag = 0x16
	TagUnionType Tag = 0x17
	TagUnspecifiedParameters Tag = 0x18
	TagVariant Tag = 0x19
	TagCommonBlock Tag = 0x1a
	TagCommonInclusion Tag = 0x1b
	TagInheritance Tag = 0x1c
	TagInlinedSubroutine Tag = 0x1d
	TagModule Tag = 0x1e
	TagPtrToMemberType Tag = 0x1f
	TagSetType Tag = 0x20
	TagSubrangeType Tag = 0x21
	TagWithStmt Tag = 0x22
	TagAccessDeclaration Tag = 0x23
	TagBaseType Tag = 0x24
	TagCatchDwarfBlock Tag = 0x25
	TagConstType Tag = 0x26
	TagConstant Tag = 0x27
	TagEnumerator Tag = 0x28
	TagFileType Tag = 0x29
	TagFriend Tag = 0x2a
	TagNamelist Tag = 0x2b
	TagNamelistItem Tag = 0x2c
	TagPackedType Tag = 0x2d
	TagSubprogram Tag = 0x2e
	TagTemplateTypeParameter Tag = 0x2f
	TagTemplateValueParameter Tag = 0x30
	TagThrownType Tag = 0x31
	TagTryDwarfBlock Tag = 0x32
	TagVariantPart Tag = 0x33
	TagVariable Tag = 0x34
	TagVolatileType Tag = 0x35
	TagDwarfProcedure Tag = 0x36
	TagRestrictType Tag = 0x37
	TagInterfaceType Tag = 0x38
	TagNamespace Tag = 0x39
	TagImportedModule Tag = 0x3a
	TagUnspecifiedType Tag = 0x3b
	TagPartialUnit Tag = 0x3c
	TagImportedUnit Tag = 0x3d
	TagCondition Tag = 0x3f
	TagSharedType Tag = 0x40
	TagTypeUnit Tag = 0x41
	TagRvalueReferenceType Tag = 0x42
	TagTemplateAlias Tag = 0x43
	TagCoarrayType Tag = 0x44
	TagGenericSubrange Tag = 0x45
	TagDynamicType Tag = 0x46
	TagAtomicType Tag = 0x47
	TagCallSite Tag = 0x48
	TagCallSiteParameter Tag = 0x49
	TagSkeletonUnit Tag = 0x4a
	TagImmutableType Tag = 0x4b
)

var tagNames = map[Tag]string{
	TagArrayType: "array_type", TagClassType: "class_type", TagEntryPoint: "entry_point",
	TagEnumerationType: "enumeration_type", TagFormalParameter: "formal_parameter",
	TagImportedDeclaration: "imported_declaration", TagLabel: "label", TagLexDwarfBlock: "lexical_block",
	TagMember: "member", TagPointerType: "pointer_type", TagReferenceType: "reference_type",
	TagCompileUnit: "compile_unit", TagStringType: "string_type", TagStructType: "structure_type",
	TagSubroutineType: "subroutine_type", TagTypedef: "typedef", TagUnionType: "union_type",
	TagUnspecifiedParameters: "unspecified_parameters", TagVariant: "variant", TagCommonBlock: "common_block",
	TagCommonInclusion: "common_inclusion", TagInheritance: "inheritance", TagInlinedSubroutine: "inlined_subroutine",
	TagModule: "module", TagPtrToMemberType: "ptr_to_member_type", TagSetType: "set_type",
	TagSubrangeType: "subrange_type", TagWithStmt: "with_stmt", TagAccessDeclaration: "access_declaration",
	TagBaseType: "base_type", TagCatchDwarfBlock: "catch_block", TagConstType: "const_type",
	TagConstant: "constant", TagEnumerator: "enumerator", TagFileType: "file_type", TagFriend: "friend",
	TagNamelist: "namelist", TagNamelistItem: "namelist_item", TagPackedType: "packed_type",
	TagSubprogram: "subprogram", TagTemplateTypeParameter: "template_type_parameter",
	TagTemplateValueParameter: "template_value_parameter", TagThrownType: "thrown_type",
	TagTryDwarfBlock: "try_block", TagVariantPart: "variant_part", TagVariable: "variable",
	TagVolatileType: "volatile_type", TagDwarfProcedure: "dwarf_procedure", TagRestrictType: "restrict_type",
	TagInterfaceType: "interface_type", TagNamespace: "namespace", TagImportedModule: "imported_module",
	TagUnspecifiedType: "unspecified_type", TagPartialUnit: "partial_unit", TagImportedUnit: "imported_unit",
	TagCondition: "condition", TagSharedType: "shared_type", TagTypeUnit: "type_unit",
	TagRvalueReferenceType: "rvalue_reference_type", TagTemplateAlias: "template_alias",
	TagCoarrayType: "coarray_type", TagGenericSubrange: "generic_subrange", TagDynamicType: "dynamic_type",
	TagAtomicType: "atomic_type", TagCallSite: "call_site", TagCallSiteParameter: "call_site_parameter",
	TagSkeletonUnit: "skeleton_unit", TagImmutableType: "immutable_type",
}

func (t Tag) String() string {
	if s, ok := tagNames[t]; ok {
		return s
	}
	return fmt.Sprintf("Tag(%#x)", uint32(t))
}

// TagNames returns every known DW_TAG_* name, unordered. Exported so
// packages outside dwarf (dwarf/names' suggestion trie, dwarf/starquery's
// identifier resolution) can enumerate the vocabulary without duplicating
// tagNames.
func TagNames() []string {
	out := make([]string, 0, len(tagNames))
	for _, s := range tagNames {
		out = append(out, s)
	}
	return out
}

// Attributes observed in compiler output for the toolchains this core
// targets.
const (
	AttrSibling Attr = 0x01
	AttrLocation Attr = 0x02
	AttrName Attr = 0x03
	AttrOrdering Attr = 0x09
	AttrByteSize Attr = 0x0b
	AttrBitOffset Attr = 0x0c
	AttrBitSize Attr = 0x0d
	AttrStmtList Attr = 0x10
	AttrLowpc Attr = 0x11
	AttrHighpc Attr = 0x12
	AttrLanguage Attr = 0x13
	AttrDiscr Attr = 0x15
	AttrDiscrValue Attr = 0x16
	AttrVisibility Attr = 0x17
	AttrImport Attr = 0x18
	AttrStringLength Attr = 0x19
	AttrCommonRef Attr = 0x1a
	AttrCompDir Attr = 0x1b
	AttrConstValue Attr = 0x1c
	AttrContainingType Attr = 0x1d
	AttrDefaultValue Attr = 0x1e
	AttrInline Attr = 0x20
	AttrIsOptional Attr = 0x21
	AttrLowerBound Attr = 0x22
	AttrProducer Attr = 0x25
	AttrPrototyped Attr = 0x27
	AttrReturnAddr Attr = 0x2a
	AttrStartScope Attr = 0x2c
	AttrBitStride Attr = 0x2e
	AttrUpperBound Attr = 0x2f
	AttrAbstractOrigin Attr = 0x31
	AttrAccessibility Attr = 0x32
	AttrAddrClass Attr = 0x33
	AttrArtificial Attr = 0x34
	AttrBaseTypes Attr = 0x35
	AttrCalling Attr = 0x36
	AttrCount Attr = 0x37
	AttrDataMemberLoc Attr = 0x38
	AttrDeclColumn Attr = 0x39
	AttrDeclFile Attr = 0x3a
	AttrDeclLine Attr = 0x3b
	AttrDeclaration Attr = 0x3c
	AttrDiscrList Attr = 0x3d
	AttrEncoding Attr = 0x3e
	AttrExternal Attr = 0x3f
	AttrFrameBase Attr = 0x40
	AttrFriend Attr = 0x41
	AttrIdentifierCase Attr = 0x42
	AttrMacroInfo Attr = 0x43
	AttrNamelistItem Attr = 0x44
	AttrPriority Attr = 0x45
	AttrSegment Attr = 0x46
	AttrSpecification Attr = 0x47
	AttrStaticLink Attr = 0x48
	AttrType Attr = 0x49
	AttrUseLocation Attr = 0x4a
	AttrVarParam Attr = 0x4b
	AttrVirtuality Attr = 0x4c
	AttrVtableElemLoc Attr = 0x4d
	AttrAllocated Attr = 0x4e
	AttrAssociated Attr = 0x4f
	AttrDataLocation Attr = 0x50
	AttrByteStride Attr = 0x51
	AttrEntryPc Attr = 0x52
	AttrUseUTF8 Attr = 0x53
	AttrExtension Attr = 0x54
	AttrRanges Attr = 0x55
	AttrTrampoline Attr = 0x56
	AttrCallColumn Attr = 0x57
	AttrCallFile Attr = 0x58
	AttrCallLine Attr = 0x59
	AttrDescription Attr = 0x5a
	AttrLinkageName Attr = 0x6e
	AttrStrOffsetsBase Attr = 0x72
	AttrAddrBase Attr = 0x73
	AttrRnglistsBase Attr = 0x74
	AttrNoreturn Attr = 0x87
	AttrAlignment Attr = 0x88
	AttrExportSymbols Attr = 0x89
	AttrDeleted Attr = 0x8a
	AttrLoclistsBase Attr = 0x8c
)

var attrNames = map[Attr]string{
	AttrSibling: "sibling", AttrLocation: "location", AttrName: "name", AttrOrdering: "ordering",
	AttrByteSize: "byte_size", AttrBitOffset: "bit_offset", AttrBitSize: "bit_size", AttrStmtList: "stmt_list",
	AttrLowpc: "low_pc", AttrHighpc: "high_pc", AttrLanguage: "language", AttrDiscr: "discr",
	AttrDiscrValue: "discr_value", AttrVisibility: "visibility", AttrImport: "import",
	AttrStringLength: "string_length", AttrCommonRef: "common_reference", AttrCompDir: "comp_dir",
	AttrConstValue: "const_value", AttrContainingType: "containing_type", AttrDefaultValue: "default_value",
	AttrInline: "inline", AttrIsOptional: "is_optional", AttrLowerBound: "lower_bound",
	AttrProducer: "producer", AttrPrototyped: "prototyped", AttrReturnAddr: "return_addr",
	AttrStartScope: "start_scope", AttrBitStride: "bit_stride", AttrUpperBound: "upper_bound",
	AttrAbstractOrigin: "abstract_origin", AttrAccessibility: "accessibility", AttrAddrClass: "address_class",
	AttrArtificial: "artificial", AttrBaseTypes: "base_types", AttrCalling: "calling_convention",
	AttrCount: "count", AttrDataMemberLoc: "data_member_location", AttrDeclColumn: "decl_column",
	AttrDeclFile: "decl_file", AttrDeclLine: "decl_line", AttrDeclaration: "declaration",
	AttrDiscrList: "discr_list", AttrEncoding: "encoding", AttrExternal: "external",
	AttrFrameBase: "frame_base", AttrFriend: "friend", AttrIdentifierCase: "identifier_case",
	AttrMacroInfo: "macro_info", AttrNamelistItem: "namelist_item", AttrPriority: "priority",
	AttrSegment: "segment", AttrSpecification: "specification", AttrStaticLink: "static_link",
	AttrType: "type", AttrUseLocation: "use_location", AttrVarParam: "variable_parameter",
	AttrVirtuality: "virtuality", AttrVtableElemLoc: "vtable_elem_location", AttrAllocated: "allocated",
	AttrAssociated: "associated", AttrDataLocation: "data_location", AttrByteStride: "byte_stride",
	AttrEntryPc: "entry_pc", AttrUseUTF8: "use_UTF8", AttrExtension: "extension", AttrRanges: "ranges",
	AttrTrampoline: "trampoline", AttrCallColumn: "call_column", AttrCallFile: "call_file",
	AttrCallLine: "call_line", AttrDescription: "description", AttrLinkageName: "linkage_name",
	AttrStrOffsetsBase: "str_offsets_base", AttrAddrBase: "addr_base", AttrRnglistsBase: "rnglists_base",
	AttrNoreturn: "noreturn", AttrAlignment: "alignment", AttrExportSymbols: "export_symbols",
	AttrDeleted: "deleted", AttrLoclistsBase: "loclists_base",
}

func (a Attr) String() string {
	if s, ok := attrNames[a]; ok {
		return s
	}
	return fmt.Sprintf("Attr(%#x)", uint32(a))
}

// AttrNames returns every known DW_AT_* name, unordered. See TagNames.
func AttrNames() []string {
	out := make([]string, 0, len(attrNames))
	for _, s := range attrNames {
		out = append(out, s)
	}
	return out
}

// AttrByName is the inverse of Attr.String: it looks up a DW_AT_* name
// (without the "DW_AT_" prefix, e.g. "low_pc") and returns its Attr value.
func AttrByName(name string) (Attr, bool) {
	for a, s := range attrNames {
		if s == name {
			return a, true
		}
	}
	return 0, false
}

// TagByName is the inverse of Tag.String.
func TagByName(name string) (Tag, bool) {
	for t, s := range tagNames {
		if s == name {
			return t, true
		}
	}
	return 0, false
}

// Form codes. decodeAttrValue rejects indirect, ref_sup4, ref_sup8,
// strp_sup, data16 and addrx2 with UnsupportedFormError; it decodes the
// rest.
const (
	FormAddr Form = 0x01
	FormBlock2 Form = 0x03
	FormBlock4 Form = 0x04
	FormData2 Form = 0x05
	FormData4 Form = 0x06
	FormData8 Form = 0x07
	FormString Form = 0x08
	FormBlock Form = 0x09
	FormBlock1 Form = 0x0a
	FormData1 Form = 0x0b
	FormFlag Form = 0x0c
	FormSdata Form = 0x0d
	FormStrp Form = 0x0e
	FormUdata Form = 0x0f
	FormRefAddr Form = 0x10
	FormRef1 Form = 0x11
	FormRef2 Form = 0x12
	FormRef4 Form = 0x13
	FormRef8 Form = 0x14
	FormRefUdata Form = 0x15
	FormIndirect Form = 0x16
	FormSecOffset Form = 0x17
	FormExprloc Form = 0x18
	FormFlagPresent Form = 0x19
	FormStrx Form = 0x1a
	FormAddrx Form = 0x1b
	FormRefSup4 Form = 0x1c
	FormStrpSup Form = 0x1d
	FormData16 Form = 0x1e
	FormLineStrp Form = 0x1f
	FormRefSig8 Form = 0x20
	FormImplicitConst Form = 0x21
	FormLoclistx Form = 0x22
	FormRnglistx Form = 0x23
	FormRefSup8 Form = 0x24
	FormStrx1 Form = 0x25
	FormStrx2 Form = 0x26
	FormStrx3 Form = 0x27
	FormStrx4 Form = 0x28
	FormAddrx1 Form = 0x29
	FormAddrx2 Form = 0x2a
	FormAddrx3 Form = 0x2b
	FormAddrx4 Form = 0x2c

	// GNU extensions used by split-DWARF (DWZ) alternate debug files.
	FormGNUStrpAlt Form = 0x1f21
	FormGNURefAlt Form = 0x1f20
)

var formNames = map[Form]string{
	FormAddr: "addr", FormBlock2: "block2", FormBlock4: "block4", FormData2: "data2", FormData4: "data4",
	FormData8: "data8", FormString: "string", FormBlock: "block", FormBlock1: "block1", FormData1: "data1",
	FormFlag: "flag", FormSdata: "sdata", FormStrp: "strp", FormUdata: "udata", FormRefAddr: "ref_addr",
	FormRef1: "ref1", FormRef2: "ref2", FormRef4: "ref4", FormRef8: "ref8", FormRefUdata: "ref_udata",
	FormIndirect: "indirect", FormSecOffset: "sec_offset", FormExprloc: "exprloc",
	FormFlagPresent: "flag_present", FormStrx: "strx", FormAddrx: "addrx", FormRefSup4: "ref_sup4",
	FormStrpSup: "strp_sup", FormData16: "data16", FormLineStrp: "line_strp", FormRefSig8: "ref_sig8",
	FormImplicitConst: "implicit_const", FormLoclistx: "loclistx", FormRnglistx: "rnglistx",
	FormRefSup8: "ref_sup8", FormStrx1: "strx1", FormStrx2: "strx2", FormStrx3: "strx3", FormStrx4: "strx4",
	FormAddrx1: "addrx1", FormAddrx2: "addrx2", FormAddrx3: "addrx3", FormAddrx4: "addrx4",
	FormGNUStrpAlt: "GNU_strp_alt", FormGNURefAlt: "GNU_ref_alt",
}

func (f Form) String() string {
	if s, ok := formNames[f]; ok {
		return s
	}
	return fmt.Sprintf("Form(%#x)", uint32(f))
}

// Offset is a byte offset into one of the DWARF sections, section-relative
// rather than file-relative. Kept as a 64-bit quantity (unlike
// debug/dwarf.Offset) so DWARF64's 8-byte offsets never truncate.
type Offset uint64
