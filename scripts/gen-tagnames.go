// Command gen-tagnames regenerates the DW_TAG_*/DW_AT_* name tables that
// dwarf/const.go hand-maintains and dwarf/names seeds its suggestion trie
// from. It loads the dwarf package's type information, finds every
// exported Tag and Attr constant, and derives each one's DWARF name by
// un-camel-casing the identifier (AttrCallOrigin -> call_origin), or from
// a table of overrides where that rule gives the wrong name
// (TagLexDwarfBlock -> lexical_block) -- grounded on
// scripts/gen-starlark-bindings.go's use of go/packages + go/types to
// inspect a package's own declarations and emit Go source from them,
// here pointed at dwarf/const.go's constant block instead of
// service/rpc2's RPCServer methods.
package main

import (
	"bytes"
	"fmt"
	"go/constant"
	"go/format"
	"go/token"
	"go/types"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strings"
	"unicode"

	"golang.org/x/tools/go/packages"
)

const dwarfPkgPath = "github.com/jimmychang851129/pstack/dwarf"

// camelToSnake lowercases a Go identifier's word boundaries into
// underscores. It applies no exceptions of its own; names it would get
// wrong (e.g. TagLexDwarfBlock's DWARF name is lexical_block, not
// lex_dwarf_block) are listed in irregular, which dwarfName consults first.
func camelToSnake(in string) string {
	var out []rune
	for i, ch := range in {
		if unicode.IsUpper(ch) {
			if i != 0 {
				out = append(out, '_')
			}
			out = append(out, unicode.ToLower(ch))
			continue
		}
		out = append(out, ch)
	}
	return string(out)
}

// irregular maps constant names whose derived snake_case spelling
// diverges from the real DW_TAG_*/DW_AT_* name onto the name to use
// instead.
var irregular = map[string]string{
	"TagLexDwarfBlock":  "lexical_block",
	"TagCatchDwarfBlock": "catch_block",
	"TagTryDwarfBlock":   "try_block",
	"TagDwarfProcedure":  "dwarf_procedure",
	"TagStructType":      "structure_type",
	"AttrLowpc":          "low_pc",
	"AttrHighpc":         "high_pc",
	"AttrCommonRef":      "common_reference",
	"AttrAddrClass":      "address_class",
	"AttrCalling":        "calling_convention",
	"AttrDataMemberLoc":  "data_member_location",
	"AttrVarParam":       "variable_parameter",
	"AttrVtableElemLoc":  "vtable_elem_location",
	"AttrUseUTF8":        "use_UTF8",
}

type constEntry struct {
	name  string // Go identifier, e.g. TagCompileUnit
	value int64
}

func loadConsts(pkg *types.Package, prefix string) []constEntry {
	var out []constEntry
	scope := pkg.Scope()
	for _, name := range scope.Names() {
		obj := scope.Lookup(name)
		c, ok := obj.(*types.Const)
		if !ok || !strings.HasPrefix(name, prefix) {
			continue
		}
		v, ok := constant.Int64Val(c.Val())
		if !ok {
			continue
		}
		out = append(out, constEntry{name: name, value: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].value < out[j].value })
	return out
}

func dwarfName(constName, prefix string) string {
	if n, ok := irregular[constName]; ok {
		return n
	}
	return camelToSnake(strings.TrimPrefix(constName, prefix))
}

func genTable(entries []constEntry, prefix, goType, mapName, stringerRecv, namesFunc string) []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "var %s = map[%s]string{\n", mapName, goType)
	for _, e := range entries {
		fmt.Fprintf(&buf, "%s: %q,\n", e.name, dwarfName(e.name, prefix))
	}
	fmt.Fprintf(&buf, "}\n\n")

	fmt.Fprintf(&buf, "func (%s %s) String() string {\n", stringerRecv, goType)
	fmt.Fprintf(&buf, "if s, ok := %s[%s]; ok {\n", mapName, stringerRecv)
	fmt.Fprintf(&buf, "return s\n}\n")
	fmt.Fprintf(&buf, "return fmt.Sprintf(%q, uint32(%s))\n", goType+"(%#x)", stringerRecv)
	fmt.Fprintf(&buf, "}\n\n")

	fmt.Fprintf(&buf, "func %s() []string {\n", namesFunc)
	fmt.Fprintf(&buf, "out := make([]string, 0, len(%s))\n", mapName)
	fmt.Fprintf(&buf, "for _, s := range %s {\n", mapName)
	fmt.Fprintf(&buf, "out = append(out, s)\n}\n")
	fmt.Fprintf(&buf, "return out\n}\n\n")

	return buf.Bytes()
}

func usage() {
	fmt.Fprintf(os.Stderr, "gen-tagnames <destination file>\n\n")
	fmt.Fprintf(os.Stderr, "Regenerates the DW_TAG_*/DW_AT_* name tables from the Tag/Attr constants declared in dwarf/const.go.\n")
	os.Exit(1)
}

func main() {
	if len(os.Args) != 2 {
		usage()
	}
	path := os.Args[1]

	fset := &token.FileSet{}
	cfg := &packages.Config{
		Mode: packages.LoadSyntax,
		Fset: fset,
	}
	pkgs, err := packages.Load(cfg, dwarfPkgPath)
	if err != nil {
		log.Fatalf("could not load packages: %v", err)
	}

	var tagConsts, attrConsts []constEntry
	packages.Visit(pkgs, func(pkg *packages.Package) bool {
		if pkg.PkgPath == dwarfPkgPath {
			tagConsts = loadConsts(pkg.Types, "Tag")
			attrConsts = loadConsts(pkg.Types, "Attr")
		}
		return true
	}, nil)

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "// Code generated by scripts/gen-tagnames.go; DO NOT EDIT.\n\n")
	fmt.Fprintf(&buf, "package dwarf\n\n")
	fmt.Fprintf(&buf, "import \"fmt\"\n\n")
	buf.Write(genTable(tagConsts, "Tag", "Tag", "tagNames", "t", "TagNames"))
	buf.Write(genTable(attrConsts, "Attr", "Attr", "attrNames", "a", "AttrNames"))

	src, err := format.Source(buf.Bytes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s", buf.String())
		log.Fatal(err)
	}

	if path == "-" {
		os.Stdout.Write(src)
		return
	}
	if err := ioutil.WriteFile(path, src, 0664); err != nil {
		log.Fatalf("could not write %s: %v", path, err)
	}
}
