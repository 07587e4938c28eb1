// Package cascade indexes class rules of all style-sheets and merges
// declarations for combinations of class names in cascade order.
package cascade

import (
	"cmp"
	"slices"
	"strings"

	"github.com/maruel/natural"
	"go.uber.org/zap"

	"stylec/css"
	"stylec/utils/debug"
)

// Entry is a declaration with its cascade position.
type Entry struct {
	Key         string // style table key of the rule: "a", "a.b" or "a::before"
	Declaration css.Declaration
	SourceIndex int
	RuleIndex   int
	Position    int // declaration position within the rule
}

func compareEntries(a, b Entry) int {
	return cmp.Or(
		cmp.Compare(a.SourceIndex, b.SourceIndex),
		cmp.Compare(a.RuleIndex, b.RuleIndex),
		cmp.Compare(a.Position, b.Position),
	)
}

type compound struct {
	classes []string
	key     string
}

// Index maps class names (and compound class sets) to their declarations.
// It is read only once built.
type Index struct {
	log       *zap.Logger
	entries   map[string][]Entry // table key -> entries in cascade order
	compounds []compound
	pseudo    []string
}

// NewIndex indexes class, compound and pseudo rules of the stylesheets. Nil
// stylesheets (sources which failed to parse) are skipped.
func NewIndex(log *zap.Logger, sheets []*css.Stylesheet) *Index {
	if log == nil {
		log = zap.NewNop()
	}
	ix := &Index{
		log:     log.Named("cascade"),
		entries: make(map[string][]Entry),
	}
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, rule := range sheet.RulesOfKind(css.RuleClass, css.RuleCompound, css.RulePseudo) {
			ix.add(rule)
		}
	}
	for key := range ix.entries {
		slices.SortStableFunc(ix.entries[key], compareEntries)
	}
	ix.log.Debug("Class index built", zap.Int("keys", len(ix.entries)), zap.Int("compound", len(ix.compounds)))
	return ix
}

func (ix *Index) add(rule css.Rule) {
	key := rule.Key()
	if _, seen := ix.entries[key]; !seen {
		switch rule.Kind {
		case css.RuleCompound:
			classes := slices.Clone(rule.Classes)
			slices.Sort(classes)
			ix.compounds = append(ix.compounds, compound{classes: slices.Compact(classes), key: key})
		case css.RulePseudo:
			ix.pseudo = append(ix.pseudo, key)
		}
	}
	for pos, d := range rule.Declarations {
		ix.entries[key] = append(ix.entries[key], Entry{
			Key:         key,
			Declaration: d,
			SourceIndex: rule.SourceIndex,
			RuleIndex:   rule.RuleIndex,
			Position:    pos,
		})
	}
}

// Has reports whether class has any declarations.
func (ix *Index) Has(class string) bool {
	_, ok := ix.entries[class]
	return ok
}

// Candidates returns every entry contributing to the combination of classes,
// in global cascade order and not folded. Compound rules contribute when all
// of their classes are requested.
func (ix *Index) Candidates(classes []string) []Entry {
	requested := make(map[string]bool, len(classes))
	var out []Entry
	for _, c := range classes {
		if c == "" || requested[c] {
			continue
		}
		requested[c] = true
		out = append(out, ix.entries[c]...)
	}
	for _, cmpd := range ix.compounds {
		if !slices.ContainsFunc(cmpd.classes, func(c string) bool { return !requested[c] }) {
			out = append(out, ix.entries[cmpd.key]...)
		}
	}
	slices.SortStableFunc(out, compareEntries)
	return out
}

// Lookup returns the folded declaration set for a combination of classes:
// last declaration of each property wins in cascade order, !important
// declarations win over normal ones. Result is ordered by cascade position of
// the winning declarations.
func (ix *Index) Lookup(classes []string) []Entry {
	return Fold(ix.Candidates(classes))
}

// Fold folds entries which are already in cascade order.
func Fold(entries []Entry) []Entry {
	winners := make(map[string]int, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		prop := e.Declaration.Property
		idx, ok := winners[prop]
		if !ok {
			winners[prop] = len(out)
			out = append(out, e)
			continue
		}
		if out[idx].Declaration.Important && !e.Declaration.Important {
			continue
		}
		out[idx] = e
	}
	slices.SortStableFunc(out, compareEntries)
	return out
}

// Rules returns folded declarations of a single style table key, which may be
// a class name, compound key "a.b" or pseudo key "a::before".
func (ix *Index) Rules(key string) []Entry {
	return Fold(ix.entries[key])
}

// Classes lists single class names in natural order.
func (ix *Index) Classes() []string {
	var out []string
	for key := range ix.entries {
		if !strings.ContainsAny(key, ".:") {
			out = append(out, key)
		}
	}
	return sortNatural(out)
}

// Selectors lists class and compound style table keys in natural order.
func (ix *Index) Selectors() []string {
	var out []string
	for key := range ix.entries {
		if !strings.Contains(key, ":") {
			out = append(out, key)
		}
	}
	return sortNatural(out)
}

// PseudoSelectors lists pseudo element and pseudo class keys in natural order.
func (ix *Index) PseudoSelectors() []string {
	return sortNatural(slices.Clone(ix.pseudo))
}

// Dump renders the index as a text tree for debugging.
func (ix *Index) Dump() string {
	tw := debug.NewTreeWriter()
	tw.Line(0, "ClassIndex: %d keys", len(ix.entries))
	for _, key := range append(ix.Selectors(), ix.PseudoSelectors()...) {
		tw.Line(1, "%s", key)
		for _, e := range ix.entries[key] {
			tw.Line(2, "[%d:%d:%d] %s", e.SourceIndex, e.RuleIndex, e.Position, e.Declaration)
		}
	}
	return tw.String()
}

func sortNatural(s []string) []string {
	slices.SortFunc(s, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return s
}
