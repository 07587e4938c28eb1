package css_test

import (
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"stylec/css"
)

func parse(t *testing.T, input string, opts ...css.Option) *css.Stylesheet {
	t.Helper()
	p := css.NewParser(zap.NewNop(), opts...)
	sheet, err := p.Parse(0, "test.css", []byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return sheet
}

func TestParser_ClassSelector(t *testing.T) {
	sheet := parse(t, `.title { color: red; font-size: 14px }`)

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	rule := sheet.Rules[0]
	if rule.Kind != css.RuleClass {
		t.Errorf("expected class rule, got %s", rule.Kind)
	}
	if rule.Selector != ".title" || rule.Key() != "title" {
		t.Errorf("unexpected selector %q key %q", rule.Selector, rule.Key())
	}
	if len(rule.Declarations) != 2 {
		t.Fatalf("expected 2 declarations, got %d", len(rule.Declarations))
	}
	if d := rule.Declarations[1]; d.Property != "font-size" || d.Value.String() != "14px" {
		t.Errorf("unexpected declaration %s", d)
	}
}

func TestParser_GroupedSelectors(t *testing.T) {
	sheet := parse(t, `.a, .b { margin: 0 } .c { margin: 1px }`)

	if len(sheet.Rules) != 3 {
		t.Fatalf("expected 3 rules, got %d", len(sheet.Rules))
	}
	if sheet.Rules[0].RuleIndex != sheet.Rules[1].RuleIndex {
		t.Errorf("grouped selectors must share rule index: %d vs %d", sheet.Rules[0].RuleIndex, sheet.Rules[1].RuleIndex)
	}
	if sheet.Rules[2].RuleIndex <= sheet.Rules[1].RuleIndex {
		t.Errorf("rule index must grow in source order")
	}
	if got := sheet.Rules[1].Classes; len(got) != 1 || got[0] != "b" {
		t.Errorf("unexpected classes %v", got)
	}
}

func TestParser_SelectorKinds(t *testing.T) {
	tests := []struct {
		selector string
		kind     css.RuleKind
		key      string
	}{
		{".a", css.RuleClass, "a"},
		{".a.b", css.RuleCompound, "a.b"},
		{":root", css.RuleRoot, ":root"},
		{".a::before", css.RulePseudo, "a::before"},
		{".a:first-child", css.RulePseudo, "a:first-child"},
		{".a:hover", css.RuleOther, ".a:hover"},
		{".a .b", css.RuleOther, ".a .b"},
		{"div", css.RuleOther, "div"},
		{".a > .b", css.RuleOther, ".a > .b"},
	}
	for _, tt := range tests {
		t.Run(tt.selector, func(t *testing.T) {
			sheet := parse(t, tt.selector+` { color: red }`)
			if len(sheet.Rules) != 1 {
				t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
			}
			r := sheet.Rules[0]
			if r.Kind != tt.kind {
				t.Errorf("kind: expected %s, got %s", tt.kind, r.Kind)
			}
			if r.Key() != tt.key {
				t.Errorf("key: expected %q, got %q", tt.key, r.Key())
			}
			if tt.kind == css.RuleOther && len(sheet.Warnings) == 0 {
				t.Error("expected warning for unsupported selector")
			}
		})
	}
}

func TestParser_Important(t *testing.T) {
	sheet := parse(t, `.a { color: red !important; width: 10px!important; height: 5px }`)

	decls := sheet.Rules[0].Declarations
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decls))
	}
	for i, want := range []bool{true, true, false} {
		if decls[i].Important != want {
			t.Errorf("declaration %d: expected important=%v", i, want)
		}
	}
	if decls[0].Value.String() != "red" || decls[1].Value.String() != "10px" {
		t.Errorf("important marker must be stripped from value: %q, %q", decls[0].Value, decls[1].Value)
	}
}

func TestParser_CustomProperties(t *testing.T) {
	sheet := parse(t, `:root { --Main-Color: #fff; --gap: calc(var(--x) * 2) }`)

	root := sheet.RulesOfKind(css.RuleRoot)
	if len(root) != 1 {
		t.Fatalf("expected 1 root rule, got %d", len(root))
	}
	decls := root[0].Declarations
	if decls[0].Property != "--Main-Color" {
		t.Errorf("custom property name must keep case, got %q", decls[0].Property)
	}
	if decls[1].Value.String() != "calc(var(--x) * 2)" {
		t.Errorf("unexpected raw value %q", decls[1].Value.String())
	}
}

func TestParser_SemicolonInsideParens(t *testing.T) {
	sheet := parse(t, `.a { background-image: url("a;b.png"); content: "x;y" }`)

	decls := sheet.Rules[0].Declarations
	if len(decls) != 2 {
		t.Fatalf("expected 2 declarations, got %d: %v", len(decls), decls)
	}
}

func TestParser_Keyframes(t *testing.T) {
	sheet := parse(t, `
@keyframes fade {
  from { opacity: 0 }
  50%, 75% { opacity: 0.5 }
  to { opacity: 1 }
}`)

	if len(sheet.Keyframes) != 1 {
		t.Fatalf("expected 1 keyframes block, got %d", len(sheet.Keyframes))
	}
	kf := sheet.Keyframes[0]
	if kf.Name != "fade" {
		t.Errorf("unexpected name %q", kf.Name)
	}
	if len(kf.Stops) != 3 {
		t.Fatalf("expected 3 stops, got %d", len(kf.Stops))
	}
	if got := kf.Stops[1].Offsets; len(got) != 2 || got[0] != 50 || got[1] != 75 {
		t.Errorf("unexpected offsets %v", got)
	}
	if kf.Stops[2].Offsets[0] != 100 {
		t.Errorf("'to' must map to 100, got %v", kf.Stops[2].Offsets)
	}
}

func TestParser_MediaPassThrough(t *testing.T) {
	sheet := parse(t, `.a { color: red } @media (max-width: 600px) { .a { color: blue } }`)

	if len(sheet.Rules) != 1 {
		t.Errorf("media rules must not leak into top level, got %d rules", len(sheet.Rules))
	}
	if len(sheet.Media) != 1 {
		t.Fatalf("expected 1 media block, got %d", len(sheet.Media))
	}
	if sheet.Media[0].Query != "(max-width: 600px)" {
		t.Errorf("unexpected query %q", sheet.Media[0].Query)
	}
	if len(sheet.Media[0].Rules) != 1 || sheet.Media[0].Rules[0].Key() != "a" {
		t.Errorf("unexpected media rules %v", sheet.Media[0].Rules)
	}
}

func TestParser_SkippedAtRules(t *testing.T) {
	sheet := parse(t, `@charset "utf-8"; @import url("x.css"); .a { color: red }`)

	if len(sheet.Rules) != 1 {
		t.Errorf("expected 1 rule, got %d", len(sheet.Rules))
	}
}

func TestParser_Comments(t *testing.T) {
	sheet := parse(t, `/* header */ .a { /* inner */ color: /* v */ red; }`)

	if len(sheet.Rules) != 1 {
		t.Fatalf("expected 1 rule, got %d", len(sheet.Rules))
	}
	if got := sheet.Rules[0].Declarations[0].Value.String(); got != "red" {
		t.Errorf("expected 'red', got %q", got)
	}
}

func TestParser_Nesting(t *testing.T) {
	sheet := parse(t, `.card { color: red; &-title { font-size: 20px } &.active { color: blue } .icon { width: 4px } }`,
		css.WithNesting(true))

	keys := make([]string, 0, len(sheet.Rules))
	for _, r := range sheet.Rules {
		keys = append(keys, r.Selector)
	}
	want := []string{".card", ".card-title", ".card.active", ".card .icon"}
	if strings.Join(keys, "|") != strings.Join(want, "|") {
		t.Errorf("expected selectors %v, got %v", want, keys)
	}
	if sheet.Rules[1].Kind != css.RuleClass || sheet.Rules[2].Kind != css.RuleCompound {
		t.Errorf("unexpected kinds %s, %s", sheet.Rules[1].Kind, sheet.Rules[2].Kind)
	}
	if sheet.Rules[3].Kind != css.RuleOther {
		t.Errorf("descendant selector must not be indexed, got %s", sheet.Rules[3].Kind)
	}
}

func TestParser_NestingDisabled(t *testing.T) {
	p := css.NewParser(zap.NewNop())
	_, err := p.Parse(0, "nested.css", []byte(`.card { &-title { color: red } }`))

	var se *css.SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("expected SyntaxError, got %v", err)
	}
	if !strings.Contains(se.Message, "nesting") {
		t.Errorf("unexpected message %q", se.Message)
	}
}

func TestParser_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"unclosed brace", ".a { color: red;\n.b { color: blue }", 1},
		{"stray brace", ".a { color: red }\n}", 2},
		{"unbalanced paren", ".a {\n  width: calc(1px + 2px;\n}", 2},
		{"unterminated string", ".a { content: \"abc }", 1},
		{"missing brace", ".a { color: red }\n.b color: blue", 2},
	}
	p := css.NewParser(zap.NewNop())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sheet, err := p.Parse(3, "bad.css", []byte(tt.input))
			if err == nil {
				t.Fatalf("expected error, got sheet with %d rules", len(sheet.Rules))
			}
			var se *css.SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("expected SyntaxError, got %T", err)
			}
			if se.Source != "bad.css" {
				t.Errorf("unexpected source %q", se.Source)
			}
			if se.Line != tt.line {
				t.Errorf("expected line %d, got %d (%v)", tt.line, se.Line, se)
			}
			if d := se.Diagnostic(); d.Kind.String() != "SyntaxError" {
				t.Errorf("unexpected diagnostic kind %s", d.Kind)
			}
		})
	}
}

func TestParser_InvalidDeclarationRecovery(t *testing.T) {
	sheet := parse(t, `.a { color red; 12: x; width: 1px; height: }`)

	decls := sheet.Rules[0].Declarations
	if len(decls) != 1 || decls[0].Property != "width" {
		t.Errorf("expected only width to survive, got %v", decls)
	}
	if len(sheet.Warnings) < 3 {
		t.Errorf("expected warnings for invalid declarations, got %v", sheet.Warnings)
	}
}

func TestParseAll_IsolatesFailures(t *testing.T) {
	p := css.NewParser(zap.NewNop())
	sheets, err := p.ParseAll([]css.Source{
		{Name: "one.css", Data: []byte(`.a { color: red }`)},
		{Name: "two.css", Data: []byte(`.b { color: blue`)},
		{Name: "three.css", Data: []byte(`.c { color: green }`)},
	})

	if err == nil {
		t.Fatal("expected aggregated error")
	}
	if len(sheets) != 3 {
		t.Fatalf("expected result per source, got %d", len(sheets))
	}
	if sheets[1] != nil {
		t.Error("failed source must not contribute rules")
	}
	if sheets[0] == nil || sheets[2] == nil {
		t.Fatal("valid sources must be parsed")
	}
	if sheets[2].Index != 2 || sheets[2].Rules[0].SourceIndex != 2 {
		t.Errorf("source index must follow input order")
	}
}

func TestStylesheet_String(t *testing.T) {
	sheet := parse(t, `.a{color:red;margin:0 auto!important}`)

	want := ".a {\n  color: red;\n  margin: 0 auto !important;\n}\n"
	if got := sheet.String(); got != want {
		t.Errorf("expected:\n%s\ngot:\n%s", want, got)
	}
}

func TestParser_ParseDeclarations(t *testing.T) {
	p := css.NewParser(zap.NewNop())
	decls, err := p.ParseDeclarations("style", []byte(`height: 20px; background: url(a.png) no-repeat; color: red !important`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d", len(decls))
	}
	if !decls[2].Important || decls[2].Value.String() != "red" {
		t.Errorf("unexpected declaration %s", decls[2])
	}

	if _, err := p.ParseDeclarations("style", []byte(`width: calc(1px + 2px`)); err == nil {
		t.Error("expected error for unbalanced parenthesis")
	}
}

func TestParser_ParseDeclarationsRecovery(t *testing.T) {
	p := css.NewParser(zap.NewNop())
	decls, err := p.ParseDeclarations("style", []byte(`;; /* note */ Margin: 1px   2px; color red; --gap: 4px ; border: 1px solid var(--c, #fff);`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(decls) != 3 {
		t.Fatalf("expected 3 declarations, got %d: %v", len(decls), decls)
	}
	if decls[0].Property != "margin" || decls[0].Value.String() != "1px 2px" {
		t.Errorf("unexpected declaration %s", decls[0])
	}
	if decls[1].Property != "--gap" || decls[1].Value.String() != "4px" {
		t.Errorf("unexpected custom property %s", decls[1])
	}
	if decls[2].Property != "border" || decls[2].Value[0].Type != css.DimensionToken {
		t.Errorf("unexpected declaration %s", decls[2])
	}

	for _, src := range []string{`content: "abc`, `color: red }`, `width: 1px)`} {
		if _, err := p.ParseDeclarations("style", []byte(src)); err == nil {
			t.Errorf("expected error for %q", src)
		}
	}
}

func TestParseValue(t *testing.T) {
	toks, err := css.ParseValue("  1px solid #fff  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toks.String() != "1px solid #fff" {
		t.Errorf("unexpected tokens %q", toks.String())
	}
	if toks[0].Type != css.DimensionToken || toks[len(toks)-1].Type != css.HashToken {
		t.Errorf("unexpected token types %v / %v", toks[0].Type, toks[len(toks)-1].Type)
	}
}
