package cascade

import (
	"strings"
	"testing"

	"go.uber.org/zap"

	"stylec/css"
)

func parseAll(t *testing.T, sources ...string) []*css.Stylesheet {
	t.Helper()
	p := css.NewParser(zap.NewNop())
	srcs := make([]css.Source, len(sources))
	for i, s := range sources {
		srcs[i] = css.Source{Name: "s.css", Data: []byte(s)}
	}
	sheets, err := p.ParseAll(srcs)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return sheets
}

func values(entries []Entry) map[string]string {
	out := make(map[string]string, len(entries))
	for _, e := range entries {
		out[e.Declaration.Property] = e.Declaration.Value.String()
	}
	return out
}

func TestLookup_CascadeOrderNotAttributeOrder(t *testing.T) {
	ix := NewIndex(zap.NewNop(), parseAll(t, `.b { color: blue } .a { color: red }`))

	// attribute order "b a" and "a b" must give the same result: .a is later in source
	for _, classes := range [][]string{{"a", "b"}, {"b", "a"}} {
		got := values(ix.Lookup(classes))
		if got["color"] != "red" {
			t.Errorf("%v: expected red, got %s", classes, got["color"])
		}
	}
}

func TestLookup_LaterSourceWins(t *testing.T) {
	ix := NewIndex(nil, parseAll(t,
		`.a { color: red; width: 10px }`,
		`.b { color: green } .a { width: 20px }`,
	))

	got := values(ix.Lookup([]string{"a", "b"}))
	if got["color"] != "green" || got["width"] != "20px" {
		t.Errorf("unexpected result %v", got)
	}
}

func TestLookup_SameRuleLaterDeclarationWins(t *testing.T) {
	ix := NewIndex(nil, parseAll(t, `.a { margin: 1px; margin: 2px }`))

	entries := ix.Lookup([]string{"a"})
	if len(entries) != 1 || entries[0].Declaration.Value.String() != "2px" {
		t.Errorf("unexpected entries %v", entries)
	}
}

func TestLookup_Important(t *testing.T) {
	ix := NewIndex(nil, parseAll(t, `.a { color: red !important } .b { color: blue }`))

	got := values(ix.Lookup([]string{"b", "a"}))
	if got["color"] != "red" {
		t.Errorf("important must win, got %s", got["color"])
	}
}

func TestLookup_Compound(t *testing.T) {
	ix := NewIndex(nil, parseAll(t, `.a.b { color: green } .a { color: red; width: 1px }`))

	if got := values(ix.Lookup([]string{"a"})); got["color"] != "red" {
		t.Errorf("compound must not apply to single class, got %v", got)
	}
	// .a is later than .a.b, order decides
	if got := values(ix.Lookup([]string{"b", "a"})); got["color"] != "red" || got["width"] != "1px" {
		t.Errorf("unexpected %v", got)
	}

	ix = NewIndex(nil, parseAll(t, `.a { color: red } .b.a { color: green }`))
	if got := values(ix.Lookup([]string{"a", "b", "c"})); got["color"] != "green" {
		t.Errorf("compound must apply when all classes present, got %v", got)
	}
}

func TestLookup_GroupedAndUnknown(t *testing.T) {
	ix := NewIndex(nil, parseAll(t, `.a, .b { height: 3px }`))

	if got := values(ix.Lookup([]string{"b", "missing", ""})); got["height"] != "3px" {
		t.Errorf("unexpected %v", got)
	}
	if got := ix.Lookup([]string{"missing"}); len(got) != 0 {
		t.Errorf("expected no entries, got %v", got)
	}
}

func TestIndex_Keys(t *testing.T) {
	ix := NewIndex(nil, parseAll(t,
		`.item10 { a: 1 } .item2 { a: 1 } .x.y { a: 1 } .x::before { a: 1 } :root { --v: 1 } .d .e { a: 1 }`))

	if got := strings.Join(ix.Classes(), ","); got != "item2,item10" {
		t.Errorf("unexpected classes %s", got)
	}
	if got := strings.Join(ix.Selectors(), ","); got != "item2,item10,x.y" {
		t.Errorf("unexpected selectors %s", got)
	}
	if got := strings.Join(ix.PseudoSelectors(), ","); got != "x::before" {
		t.Errorf("unexpected pseudo selectors %s", got)
	}
	if !ix.Has("item2") || ix.Has("d") {
		t.Error("unexpected Has result")
	}
	if dump := ix.Dump(); !strings.Contains(dump, "x.y") {
		t.Errorf("dump must list compound keys:\n%s", dump)
	}
}
