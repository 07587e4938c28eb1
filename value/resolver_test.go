package value

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"stylec/css"
)

func tokens(t *testing.T, text string) css.Tokens {
	t.Helper()
	toks, err := css.ParseValue(text)
	if err != nil {
		t.Fatalf("tokenize %q: %v", text, err)
	}
	return toks
}

func sheet(t *testing.T, text string) *css.Stylesheet {
	t.Helper()
	s, err := css.NewParser(zap.NewNop()).Parse(0, "vars.css", []byte(text))
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	return s
}

func TestResolve_Dimensions(t *testing.T) {
	tests := []struct {
		in   string
		kind Kind
		num  float64
		unit Unit
	}{
		{"10px", KindLength, 10, UnitPx},
		{"0.5px", KindLength, 0.5, UnitPx},
		{".5px", KindLength, 0.5, UnitPx},
		{"10PX", KindLength, 10, UnitPX},
		{"10Px", KindLength, 10, UnitPX},
		{"2rem", KindLength, 2, UnitRem},
		{"1.5em", KindLength, 1.5, UnitEm},
		{"10vh", KindLength, 10, UnitVh},
		{"50vw", KindLength, 50, UnitVw},
		{"3ch", KindLength, 3, UnitCh},
		{"50%", KindPercentage, 50, "%"},
		{"1.5", KindNumber, 1.5, UnitNone},
		{"-4px", KindLength, -4, UnitPx},
		{"90deg", KindLength, 90, UnitDeg},
		{"0.5turn", KindLength, 180, UnitDeg},
		{"100grad", KindLength, 90, UnitDeg},
		{"300ms", KindLength, 300, UnitMs},
		{"2s", KindLength, 2, UnitS},
		{"12pt", KindLength, 16, UnitPx},
		{"1in", KindLength, 96, UnitPx},
	}
	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, err := r.Resolve("width", tokens(t, tt.in))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if v.Kind != tt.kind || v.Unit != tt.unit {
				t.Fatalf("expected %s %q, got %s %q", tt.kind, tt.unit, v.Kind, v.Unit)
			}
			if FormatNumber(v.Num) != FormatNumber(tt.num) {
				t.Errorf("expected %v, got %v", tt.num, v.Num)
			}
		})
	}
}

func TestResolve_Colors(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"#fff", "#ffffff"},
		{"#FF0000", "#ff0000"},
		{"#0000ff80", "rgba(0, 0, 255, 0.502)"},
		{"#f008", "rgba(255, 0, 0, 0.5333)"},
		{"rgb(255, 0, 0)", "#ff0000"},
		{"rgba(0, 0, 0, 0.5)", "rgba(0, 0, 0, 0.5)"},
		{"rgb(0 128 0 / 50%)", "rgba(0, 128, 0, 0.5)"},
		{"rgb(100%, 0%, 0%)", "#ff0000"},
		{"hsl(120, 100%, 50%)", "#00ff00"},
		{"hsla(0deg, 100%, 50%, 0.25)", "rgba(255, 0, 0, 0.25)"},
		{"red", "#ff0000"},
		{"RebeccaPurple", "#663399"},
		{"transparent", "rgba(0, 0, 0, 0)"},
	}
	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, _ := r.Resolve("color", tokens(t, tt.in))
			if v.Kind != KindColor {
				t.Fatalf("expected color, got %s (%s)", v.Kind, v.Reason)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestResolve_Keywords(t *testing.T) {
	r := NewResolver(nil)

	v, _ := r.Resolve("color", tokens(t, "currentColor"))
	if !v.IsKeyword("currentcolor") {
		t.Errorf("currentColor must stay keyword, got %s", v.Kind)
	}
	v, _ = r.Resolve("font-family", tokens(t, "Red, sans-serif"))
	if v.Kind != KindList || v.Sep != SepComma || v.Args[0].Kind != KindKeyword {
		t.Errorf("font names must not become colors: %v", v)
	}
	v, _ = r.Resolve("display", tokens(t, "flex"))
	if !v.IsKeyword("flex") {
		t.Errorf("expected keyword, got %v", v)
	}
}

func TestResolve_Lists(t *testing.T) {
	r := NewResolver(nil)

	v, _ := r.Resolve("margin", tokens(t, "10px 0 auto 5%"))
	if v.Kind != KindList || v.Sep != SepSpace || len(v.Args) != 4 {
		t.Fatalf("expected 4 item space list, got %v", v)
	}
	if v.Args[1].Kind != KindNumber || !v.Args[2].IsKeyword("auto") {
		t.Errorf("unexpected items %v", v.Args)
	}

	v, _ = r.Resolve("box-shadow", tokens(t, "0 1px red, 2px 2px 4px rgba(0,0,0,.3)"))
	if v.Kind != KindList || v.Sep != SepComma || len(v.Args) != 2 {
		t.Fatalf("expected 2 comma groups, got %v", v)
	}
	if got := v.String(); got != "0 1px #ff0000, 2px 2px 4px rgba(0, 0, 0, 0.3)" {
		t.Errorf("unexpected text %q", got)
	}
}

func TestResolve_Functions(t *testing.T) {
	r := NewResolver(nil)

	v, _ := r.Resolve("transform", tokens(t, "translateX(10px) rotate(0.25turn) scale(1.5, 2)"))
	items := v.Items()
	if len(items) != 3 {
		t.Fatalf("expected 3 transform functions, got %v", v)
	}
	if !items[0].IsFunc("translateX") || items[0].Str != "translateX" {
		t.Errorf("expected canonical translateX, got %q", items[0].Str)
	}
	if items[1].Args[0].Num != 90 || items[1].Args[0].Unit != UnitDeg {
		t.Errorf("rotate angle must be normalized to deg, got %v", items[1].Args[0])
	}
	if len(items[2].Args) != 2 {
		t.Errorf("expected 2 scale args, got %v", items[2].Args)
	}

	v, _ = r.Resolve("background-image", tokens(t, `url("img/a.png")`))
	if !v.IsFunc("url") || v.Args[0].Str != "img/a.png" {
		t.Errorf("unexpected url value %v", v)
	}
	v, _ = r.Resolve("background-image", tokens(t, `url(img/b.png)`))
	if !v.IsFunc("url") || v.Args[0].Str != "img/b.png" {
		t.Errorf("unexpected unquoted url value %v", v)
	}

	v, _ = r.Resolve("background-image", tokens(t, "linear-gradient(to right, red 0%, #00f 100%)"))
	if !v.IsFunc("linear-gradient") || len(v.Args) != 3 {
		t.Fatalf("unexpected gradient %v", v)
	}
	if stop := v.Args[1]; stop.Kind != KindList || stop.Args[0].Kind != KindColor {
		t.Errorf("gradient stop must be [color, position], got %v", stop)
	}

	v, _ = r.Resolve("width", tokens(t, "env(safe-area-inset-bottom)"))
	if v.Kind != KindUnresolved || v.Str != "env(safe-area-inset-bottom)" {
		t.Errorf("unknown function must keep raw text, got %v", v)
	}
}

func TestResolve_Calc(t *testing.T) {
	tests := []struct {
		in   string
		want string
		kind Kind
	}{
		{"calc(10px + 5px)", "15px", KindLength},
		{"calc(1rem + 4px)", "20px", KindLength},
		{"calc(2 * (3px + 1px))", "8px", KindLength},
		{"calc(100% / 4)", "25%", KindPercentage},
		{"calc(10vh - 2vh)", "8vh", KindLength},
		{"calc(3 * 2)", "6", KindNumber},
		{"calc(10PX * 2)", "20PX", KindLength},
		{"calc(100% - 20px)", "calc(100% - 20px)", KindFunction},
		{"calc(50vw + 10px - 1rem)", "calc(-6px + 50vw)", KindFunction},
		{"calc(10px * 2px)", "calc(10px * 2px)", KindUnresolved},
		{"calc(1px / 0)", "calc(1px / 0)", KindUnresolved},
	}
	r := NewResolver(nil)
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			v, _ := r.Resolve("width", tokens(t, tt.in))
			if v.Kind != tt.kind {
				t.Fatalf("expected %s, got %s (%s)", tt.kind, v.Kind, v.Reason)
			}
			if got := v.String(); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestResolve_Variables(t *testing.T) {
	s := sheet(t, `
:root {
  --primary: #f00;
  --gap: 8px;
  --double: calc(var(--gap) * 2);
  --edge: var(--gap) var(--missing, 4px);
}`)
	vars := NewVarTable(zap.NewNop(), []*css.Stylesheet{s})
	r := NewResolver(vars)

	v, err := r.Resolve("color", tokens(t, "var(--primary)"))
	if err != nil || v.Kind != KindColor || v.Color != RGB(255, 0, 0) {
		t.Errorf("unexpected color %v, %v", v, err)
	}
	v, _ = r.Resolve("margin", tokens(t, "var(--double)"))
	if v.String() != "16px" {
		t.Errorf("expected 16px, got %v", v)
	}
	v, _ = r.Resolve("margin", tokens(t, "var(--edge) 0"))
	if v.String() != "8px 4px 0" {
		t.Errorf("expected token level substitution, got %q", v.String())
	}
	v, _ = r.Resolve("color", tokens(t, "var(--nope, var(--also-nope, blue))"))
	if v.String() != "#0000ff" {
		t.Errorf("expected nested fallback, got %v", v)
	}
	v, _ = r.Resolve("color", tokens(t, "var(--nope)"))
	if v.Kind != KindUnresolved || v.Reason == "" {
		t.Errorf("expected unresolved with reason, got %v", v)
	}
}

func TestVarTable_LaterWins(t *testing.T) {
	first := sheet(t, `:root { --c: red; --d: 1px !important }`)
	second := sheet(t, `:root { --c: blue; --d: 2px }`)
	vars := NewVarTable(nil, []*css.Stylesheet{first, nil, second})

	flat := vars.Flatten()
	if flat["--c"].Value != "blue" {
		t.Errorf("later declaration must win, got %v", flat["--c"])
	}
	if flat["--d"].Value != "1px" {
		t.Errorf("important declaration must win, got %v", flat["--d"])
	}
}

func TestVarTable_Cycle(t *testing.T) {
	s := sheet(t, `:root { --a: var(--b); --b: calc(var(--a) + 1px); --c: 3px }`)
	vars := NewVarTable(nil, []*css.Stylesheet{s})

	_, err := vars.Resolve("--a")
	var cycle *CyclicVariableError
	if !errors.As(err, &cycle) {
		t.Fatalf("expected CyclicVariableError, got %v", err)
	}
	if got := cycle.Error(); got != "cyclic variable reference: --a -> --b -> --a" {
		t.Errorf("unexpected cycle %q", got)
	}

	_, err = NewResolver(vars).Resolve("width", tokens(t, "var(--b)"))
	if !errors.As(err, &cycle) {
		t.Errorf("expected cycle through resolver, got %v", err)
	}

	flat := vars.Flatten()
	if !flat["--a"].Unresolved || !flat["--b"].Unresolved {
		t.Errorf("cyclic variables must flatten as unresolved: %v", flat)
	}
	if flat["--c"].Value != "3px" {
		t.Errorf("unrelated variable must resolve, got %v", flat["--c"])
	}
}

func TestVarTable_Names(t *testing.T) {
	s := sheet(t, `:root { --z10: 1; --z2: 1; --a: 1 }`)
	names := NewVarTable(nil, []*css.Stylesheet{s}).Names()
	want := []string{"--a", "--z2", "--z10"}
	for i := range want {
		if names[i] != want[i] {
			t.Fatalf("expected natural order %v, got %v", want, names)
		}
	}
}
