// Package names offers "did you mean" suggestions over the DW_TAG_* and
// DW_AT_* vocabulary, for callers (dwarf/starquery, cmd/dwarfdump) that
// accept a tag or attribute name typed by a user and want a helpful error
// when it doesn't match anything.
package names

import (
	"github.com/derekparker/trie"

	"github.com/jimmychang851129/pstack/dwarf"
)

// Vocabulary is a fuzzy-searchable index over a fixed set of names, built
// once and reused across lookups -- the same role delve's REPL gives a
// trie of command names for tab completion, here repurposed for the DIE
// attribute/tag vocabulary.
type Vocabulary struct {
	t *trie.Trie
}

// Tags indexes every known DW_TAG_* name.
func Tags() *Vocabulary {
	return build(dwarf.TagNames())
}

// Attrs indexes every known DW_AT_* name.
func Attrs() *Vocabulary {
	return build(dwarf.AttrNames())
}

func build(words []string) *Vocabulary {
	t := trie.New()
	for _, w := range words {
		t.Add(w, nil)
	}
	return &Vocabulary{t: t}
}

// Known reports whether name is an exact match in the vocabulary.
func (v *Vocabulary) Known(name string) bool {
	_, ok := v.t.Find(name)
	return ok
}

// Suggest returns the known names that share name's prefix, falling back
// to a fuzzy (subsequence) search when no name starts with it -- the
// typical "did you mean" shape: a typo missing a letter in the middle
// still surfaces the intended word via FuzzySearch even though
// PrefixSearch finds nothing.
func (v *Vocabulary) Suggest(name string) []string {
	if prefixed := v.t.PrefixSearch(name); len(prefixed) > 0 {
		return prefixed
	}
	return v.t.FuzzySearch(name)
}
