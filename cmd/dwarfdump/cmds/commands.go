// Package cmds builds the dwarfdump command tree: dump, query and ranges,
// each opening an ELF file's DWARF sections and walking the resulting DIE
// tree, in the same "cobra root command, one subcommand per operation"
// shape commands.go gives dlv.
package cmds

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/cosiner/argv"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/jimmychang851129/pstack/dwarf"
	"github.com/jimmychang851129/pstack/dwarf/names"
	"github.com/jimmychang851129/pstack/dwarf/starquery"
	"github.com/jimmychang851129/pstack/pkg/altfile"
	"github.com/jimmychang851129/pstack/pkg/config"
	"github.com/jimmychang851129/pstack/pkg/logflags"
	"github.com/jimmychang851129/pstack/pkg/sections"
)

var (
	log        bool
	logOutput  string
	altPath    string
	tagFilter  string
	showOffset bool
	batch      string

	conf *config.Config
)

const dwarfdumpLongDesc = `dwarfdump reads the DWARF debugging information embedded in an ELF
executable and renders it without attaching to or running the program.

Pass flags to select what to look at, for example:

  dwarfdump dump ./a.out --tag subprogram
  dwarfdump query ./a.out 'tag == "subprogram" and attr("external")'
`

// New returns the root dwarfdump command.
func New() *cobra.Command {
	var err error
	conf, err = config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
	}
	if conf.Verbose {
		dwarf.SetVerbose(true)
	}

	rootCommand := &cobra.Command{
		Use:   "dwarfdump",
		Short: "dwarfdump inspects the DWARF debugging information in an ELF binary.",
		Long:  dwarfdumpLongDesc,
	}
	rootCommand.PersistentFlags().BoolVarP(&log, "log", "", false, "Enable diagnostic logging.")
	rootCommand.PersistentFlags().StringVarP(&logOutput, "log-output", "", "", "Comma separated list of subsystems to log: dwarf, query, sections.")
	rootCommand.PersistentFlags().StringVarP(&altPath, "alt-file", "", conf.AltFilePath, "Path to a GNU DWZ alternate debug file.")

	dumpCommand := &cobra.Command{
		Use:   "dump <executable>",
		Short: "Print the DIE tree.",
		Args:  cobra.ExactArgs(1),
		RunE:  dumpCmd,
	}
	dumpCommand.Flags().StringVar(&tagFilter, "tag", "", "Only print DIEs with this tag (e.g. subprogram).")
	dumpCommand.Flags().BoolVar(&showOffset, "offsets", false, "Prefix each DIE with its .debug_info offset.")
	rootCommand.AddCommand(dumpCommand)

	queryCommand := &cobra.Command{
		Use:   "query <executable> <expr>...",
		Short: "Print the DIEs matching one or more Starlark predicates.",
		Long: `query filters the DIE tree by evaluating a Starlark boolean expression
against each DIE. The expression sees four bindings: tag, name, and the
attr(name) and has_attr(name) builtins, e.g.:

  dwarfdump query ./a.out 'tag == "subprogram" and attr("external")'

--batch accepts a single shell-quoted string carrying several predicates,
split the same way a shell would split an argument list.`,
		Args: cobra.MinimumNArgs(1),
		RunE: queryCmd,
	}
	queryCommand.Flags().StringVar(&batch, "batch", "", "Shell-quoted string of additional predicates to run in one pass.")
	rootCommand.AddCommand(queryCommand)

	rangesCommand := &cobra.Command{
		Use:   "ranges <executable>",
		Short: "Print every DIE's resolved address ranges.",
		Args:  cobra.ExactArgs(1),
		RunE:  rangesCmd,
	}
	rootCommand.AddCommand(rangesCommand)

	rootCommand.DisableAutoGenTag = true
	return rootCommand
}

// openCatalog mmaps path, wires it into a parsed dwarf.Info, and attaches
// the configured alternate file (if any). The caller must Close the
// returned closer once done to release both mmaps.
func openCatalog(path string) (*dwarf.Info, io.Closer, error) {
	if err := logflags.Setup(log, logOutput); err != nil {
		return nil, nil, err
	}

	sr, err := sections.Open(path)
	if err != nil {
		return nil, nil, err
	}

	info := dwarf.NewInfo()
	info.InfoSection = sr.Info
	info.AbbrevSection = sr.Abbrev
	info.StrSection = sr.Str
	info.LineStrSection = sr.LineStr
	info.StrOffsetsSection = sr.StrOffsets
	info.AddrSection = sr.Addr
	info.RangesSection = sr.Ranges
	info.RngListsSection = sr.RngLists
	if conf.RefCacheSize > 0 {
		info.SetRefCacheSize(conf.RefCacheSize)
	}

	closer := io.Closer(sr)
	if altPath != "" {
		alt, err := altfile.Open(altPath)
		if err != nil {
			sr.Close()
			return nil, nil, fmt.Errorf("opening alt file %s: %w", altPath, err)
		}
		info.Alt = alt
		closer = multiCloser{sr, alt}
	}

	if err := dwarf.ParseUnits(info); err != nil {
		closer.Close()
		return nil, nil, err
	}
	return info, closer, nil
}

type multiCloser []io.Closer

func (m multiCloser) Close() error {
	var first error
	for _, c := range m {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// colorWriter returns stdout wrapped for ANSI escapes when it is a real
// terminal, and the plain file otherwise -- dump/query colorize tag names
// only in the former case, the same "don't corrupt piped output"
// consideration pkg/terminal/out.go applies to paging.
func colorWriter() (w io.Writer, isColor bool) {
	if os.Getenv("TERM") == "dumb" {
		return os.Stdout, false
	}
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		return os.Stdout, false
	}
	return colorable.NewColorableStdout(), true
}

func colorize(isColor bool, code, s string) string {
	if !isColor {
		return s
	}
	return "\x1b[" + code + "m" + s + "\x1b[0m"
}

func dumpCmd(cmd *cobra.Command, args []string) error {
	info, closer, err := openCatalog(args[0])
	if err != nil {
		return err
	}
	defer closer.Close()

	var wantTag dwarf.Tag
	if tagFilter != "" {
		t, ok := dwarf.TagByName(tagFilter)
		if !ok {
			return unknownTagError(tagFilter)
		}
		wantTag = t
	}

	w, isColor := colorWriter()
	for _, u := range info.Units() {
		root, err := u.Root()
		if err != nil {
			return err
		}
		if err := dumpDIE(w, root, 0, wantTag, isColor); err != nil {
			return err
		}
	}
	return nil
}

func dumpDIE(w io.Writer, d dwarf.DIE, depth int, wantTag dwarf.Tag, isColor bool) error {
	if d.Null() {
		return nil
	}
	if wantTag == 0 || d.Tag() == wantTag {
		printDIE(w, d, depth, isColor)
	}
	it := d.Children()
	for it.Next() {
		if err := dumpDIE(w, it.DIE(), depth+1, wantTag, isColor); err != nil {
			return err
		}
	}
	return it.Err()
}

func printDIE(w io.Writer, d dwarf.DIE, depth int, isColor bool) {
	indent := strings.Repeat("  ", depth)
	prefix := ""
	if showOffset {
		prefix = fmt.Sprintf("<%#x> ", d.Offset)
	}
	fmt.Fprintf(w, "%s%s%s", indent, prefix, colorize(isColor, "36", d.Tag().String()))
	if name := d.Name(); name != "" {
		fmt.Fprintf(w, " %q", name)
	}
	fmt.Fprintln(w)
	for _, ap := range d.Attributes() {
		if ap.Name == dwarf.AttrName {
			continue
		}
		fmt.Fprintf(w, "%s  %s: %s\n", indent, colorize(isColor, "33", ap.Name.String()), formatAttr(ap.Attribute))
	}
}

// formatAttr renders an attribute's value through whichever coercion its
// form actually supports, the same try-in-order idiom
// starquery.attributeToStarlarkValue uses to pick a Starlark type.
func formatAttr(a dwarf.Attribute) string {
	if s, err := a.String(); err == nil {
		return s
	}
	if addr, err := a.Address(); err == nil {
		return fmt.Sprintf("%#x", addr)
	}
	if ref, err := a.Reference(); err == nil {
		return fmt.Sprintf("<%#x>", ref.Offset)
	}
	if u, err := a.Unsigned(); err == nil {
		return fmt.Sprintf("%d", u)
	}
	if i, err := a.Signed(); err == nil {
		return fmt.Sprintf("%d", i)
	}
	if f, err := a.Flag(); err == nil {
		return fmt.Sprintf("%v", f)
	}
	if rl, err := a.Ranges(); err == nil {
		return formatRangeList(rl)
	}
	return fmt.Sprintf("(form %s unsupported)", a.Form())
}

func formatRangeList(rl dwarf.RangeList) string {
	parts := make([]string, len(rl.Entries))
	for i, r := range rl.Entries {
		parts[i] = fmt.Sprintf("[%#x,%#x)", r.Start, r.End)
	}
	return strings.Join(parts, " ")
}

func unknownTagError(name string) error {
	suggestions := names.Tags().Suggest(name)
	if len(suggestions) == 0 {
		return fmt.Errorf("unknown tag %q", name)
	}
	return fmt.Errorf("unknown tag %q, did you mean one of: %s", name, strings.Join(suggestions, ", "))
}

func queryCmd(cmd *cobra.Command, args []string) error {
	info, closer, err := openCatalog(args[0])
	if err != nil {
		return err
	}
	defer closer.Close()

	exprs := args[1:]
	if batch != "" {
		split, err := argv.Argv(batch, nil, nil)
		if err != nil {
			return fmt.Errorf("parsing --batch: %w", err)
		}
		for _, group := range split {
			exprs = append(exprs, group...)
		}
	}

	predicates := make([]*starquery.Predicate, len(exprs))
	for i, expr := range exprs {
		p, err := starquery.Compile(expr)
		if err != nil {
			return annotateUnknownAttr(err)
		}
		predicates[i] = p
	}

	w, isColor := colorWriter()
	for _, u := range info.Units() {
		root, err := u.Root()
		if err != nil {
			return err
		}
		if err := queryDIE(w, root, predicates, isColor); err != nil {
			return err
		}
	}
	return nil
}

func queryDIE(w io.Writer, d dwarf.DIE, predicates []*starquery.Predicate, isColor bool) error {
	if d.Null() {
		return nil
	}
	matched := true
	for _, p := range predicates {
		ok, err := p.Match(d)
		if err != nil {
			return annotateUnknownAttr(err)
		}
		if !ok {
			matched = false
			break
		}
	}
	if matched {
		printDIE(w, d, 0, isColor)
	}
	it := d.Children()
	for it.Next() {
		if err := queryDIE(w, it.DIE(), predicates, isColor); err != nil {
			return err
		}
	}
	return it.Err()
}

func annotateUnknownAttr(err error) error {
	msg := err.Error()
	const prefix = "unknown attribute "
	idx := strings.Index(msg, prefix)
	if idx < 0 {
		return err
	}
	name := strings.Trim(msg[idx+len(prefix):], `"`)
	suggestions := names.Attrs().Suggest(name)
	if len(suggestions) == 0 {
		return err
	}
	return fmt.Errorf("%s (did you mean one of: %s)", err, strings.Join(suggestions, ", "))
}

func rangesCmd(cmd *cobra.Command, args []string) error {
	info, closer, err := openCatalog(args[0])
	if err != nil {
		return err
	}
	defer closer.Close()

	for _, u := range info.Units() {
		root, err := u.Root()
		if err != nil {
			return err
		}
		if err := rangesDIE(os.Stdout, root); err != nil {
			return err
		}
	}
	return nil
}

func rangesDIE(w io.Writer, d dwarf.DIE) error {
	if d.Null() {
		return nil
	}
	if rangesAttr := d.Attribute(dwarf.AttrRanges, true); rangesAttr.Valid() {
		rl, err := rangesAttr.Ranges()
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "<%#x> %s %s: %s\n", d.Offset, d.Tag(), d.Name(), formatRangeList(rl))
	} else if low := d.Attribute(dwarf.AttrLowpc, true); low.Valid() {
		lowpc, err := low.Address()
		if err != nil {
			return err
		}
		high := d.Attribute(dwarf.AttrHighpc, true)
		var highpc uint64
		if addr, err := high.Address(); err == nil {
			highpc = addr
		} else if off, err := high.Unsigned(); err == nil {
			highpc = lowpc + off
		}
		fmt.Fprintf(w, "<%#x> %s %s: %s\n", d.Offset, d.Tag(), d.Name(), formatRangeList(dwarf.RangeList{Entries: []dwarf.Range{{Start: lowpc, End: highpc}}}))
	}
	it := d.Children()
	for it.Next() {
		if err := rangesDIE(w, it.DIE()); err != nil {
			return err
		}
	}
	return it.Err()
}
