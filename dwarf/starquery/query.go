// Package starquery filters DIEs against a user-supplied Starlark boolean
// expression, the same "evaluate a script against live data" idea
// pkg/terminal/starbind applies to a running process's variables,
// generalized here to a single DIE's tag/name/attributes.
package starquery

import (
	"fmt"

	"go.starlark.net/resolve"
	"go.starlark.net/starlark"

	"github.com/jimmychang851129/pstack/dwarf"
	"github.com/jimmychang851129/pstack/pkg/logflags"
)

func init() {
	resolve.AllowFloat = true
	resolve.AllowSet = true
	resolve.AllowBitwise = true
}

// Predicate is a Starlark boolean expression, parse-checked once and
// evaluated independently against each DIE a caller offers it.
type Predicate struct {
	expr string
}

// Compile parse-checks expr against an empty DIE binding so a syntax error
// is reported immediately rather than on whichever DIE the caller happens
// to visit first.
func Compile(expr string) (*Predicate, error) {
	thread := &starlark.Thread{}
	if _, err := starlark.Eval(thread, "<query>", expr, predeclared(dwarf.DIE{})); err != nil {
		if _, ok := err.(*starlark.EvalError); !ok {
			return nil, err
		}
		// an EvalError at this stage means the syntax parsed but
		// evaluation against the null DIE failed (e.g. referencing an
		// attr() that doesn't exist on it) -- that's expected and not
		// a compile error.
	}
	return &Predicate{expr: expr}, nil
}

// Match evaluates the predicate against d, returning its truth value.
func (p *Predicate) Match(d dwarf.DIE) (bool, error) {
	thread := &starlark.Thread{}
	v, err := starlark.Eval(thread, "<query>", p.expr, predeclared(d))
	if err != nil {
		return false, err
	}
	if logflags.Query() {
		logflags.QueryLogger().Debugf("query %q against %s at %#x => %s", p.expr, d.Tag(), d.Offset, v)
	}
	return bool(v.Truth()), nil
}

// predeclared builds the name bindings a query expression sees: `tag` and
// `name` as plain strings, and `attr(name)` as a builtin resolving a
// DW_AT_* attribute by name to a Starlark value (or None if absent).
func predeclared(d dwarf.DIE) starlark.StringDict {
	return starlark.StringDict{
		"tag": starlark.String(d.Tag().String()),
		"name": starlark.String(d.Name()),
		"attr": starlark.NewBuiltin("attr", attrBuiltin(d)),
		"has_attr": starlark.NewBuiltin("has_attr", hasAttrBuiltin(d)),
	}
}

func attrBuiltin(d dwarf.DIE) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		name, err := attrNameArg(args)
		if err != nil {
			return nil, err
		}
		a := d.Attribute(name, false)
		if !a.Valid() {
			return starlark.None, nil
		}
		return attributeToStarlarkValue(a), nil
	}
}

func hasAttrBuiltin(d dwarf.DIE) func(*starlark.Thread, *starlark.Builtin, starlark.Tuple, []starlark.Tuple) (starlark.Value, error) {
	return func(_ *starlark.Thread, _ *starlark.Builtin, args starlark.Tuple, kwargs []starlark.Tuple) (starlark.Value, error) {
		name, err := attrNameArg(args)
		if err != nil {
			return nil, err
		}
		return starlark.Bool(d.Attribute(name, false).Valid()), nil
	}
}

func attrNameArg(args starlark.Tuple) (dwarf.Attr, error) {
	if len(args) != 1 {
		return 0, fmt.Errorf("attr takes exactly one argument")
	}
	s, ok := args[0].(starlark.String)
	if !ok {
		return 0, fmt.Errorf("attr's argument must be a string")
	}
	name, ok := dwarf.AttrByName(string(s))
	if !ok {
		return 0, fmt.Errorf("unknown attribute %q", string(s))
	}
	return name, nil
}

// attributeToStarlarkValue converts a resolved Attribute to the Starlark
// value closest to its natural Go coercion, trying string, then unsigned,
// then signed, then flag, then address -- mirroring starbind/conv.go's interfaceToStarlarkValue type
// switch, generalized from a fixed Go type to "whichever coercion this
// attribute's form actually supports".
func attributeToStarlarkValue(a dwarf.Attribute) starlark.Value {
	if s, err := a.String(); err == nil {
		return starlark.String(s)
	}
	if u, err := a.Unsigned(); err == nil {
		return starlark.MakeUint64(u)
	}
	if i, err := a.Signed(); err == nil {
		return starlark.MakeInt64(i)
	}
	if f, err := a.Flag(); err == nil {
		return starlark.Bool(f)
	}
	if addr, err := a.Address(); err == nil {
		return starlark.MakeUint64(addr)
	}
	return starlark.None
}
