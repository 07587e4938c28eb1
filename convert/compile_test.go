package convert

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stylec/common"
	"stylec/css"
	"stylec/markup"
	"stylec/platform"
)

func sources(texts ...string) []css.Source {
	out := make([]css.Source, len(texts))
	for i, t := range texts {
		out[i] = css.Source{Name: "s" + string(rune('0'+i)) + ".css", Data: []byte(t)}
	}
	return out
}

func compileXML(t *testing.T, markupText string, opts Options, styles ...string) *Result {
	t.Helper()
	res, err := CompileSource(context.Background(), zaptest.NewLogger(t), markupText, common.MarkupFmtXml, sources(styles...), opts)
	require.NoError(t, err)
	return res
}

func rootNode(t *testing.T, res *Result) *markup.Node {
	t.Helper()
	require.NotNil(t, res.Markup)
	require.Len(t, res.Markup.Nodes, 1)
	return res.Markup.Nodes[0]
}

func styleText(t *testing.T, n *markup.Node) string {
	t.Helper()
	v, ok := n.Attr("style")
	require.True(t, ok, "element %s has no style", n.Tag)
	assert.True(t, v.Expr)
	return v.Text
}

func TestResolveStyles_CascadeAcrossSources(t *testing.T) {
	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t),
		sources(`.btn { color: red; width: 10px }`, `.btn { color: blue } .a.b { height: 2px }`), Options{})
	require.NoError(t, err)

	require.Contains(t, res.Styles, "btn")
	assert.Equal(t, "{ color: '#0000ff', width: scalePx2dp(10) }", platform.FormatJS(res.Styles["btn"]))
	assert.Contains(t, res.Styles, "a.b")
	assert.Nil(t, res.Markup)
	assert.Equal(t, common.PlatformReactNative, res.Platform)
	assert.NotEmpty(t, res.ID)
}

func TestResolveStyles_Harmony(t *testing.T) {
	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t),
		sources(`.btn { color: red; width: 10px }`), Options{Platform: common.PlatformHarmony})
	require.NoError(t, err)
	assert.Equal(t, "{ color: '#FF0000', width: 10 }", platform.FormatJS(res.Styles["btn"]))
}

func TestResolveStyles_Variables(t *testing.T) {
	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t),
		sources(`:root { --main: red }`, `.a { color: var(--main) } .b { color: var(--missing, blue) }`), Options{})
	require.NoError(t, err)

	assert.Equal(t, "red", res.CSSVariables["--main"].Value)
	assert.Equal(t, "#ff0000", res.Styles["a"]["color"])
	assert.Equal(t, "#0000ff", res.Styles["b"]["color"])
	assert.False(t, res.Diagnostics.HasErrors())
}

func TestResolveStyles_VariableCycle(t *testing.T) {
	src := sources(`:root { --a: var(--b); --b: var(--a); --c: 3px } .x { width: var(--c) } .y { width: var(--a) }`)

	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t), src, Options{})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Diagnostics.Of(common.KindCyclicVariable))
	assert.True(t, res.CSSVariables["--a"].Unresolved)
	assert.True(t, res.CSSVariables["--b"].Unresolved)
	assert.Equal(t, "3px", res.CSSVariables["--c"].Value)
	assert.Equal(t, "{ width: scalePx2dp(3) }", platform.FormatJS(res.Styles["x"]))
	assert.Error(t, res.Diagnostics.Err())

	_, err = ResolveStyles(context.Background(), zaptest.NewLogger(t), src, Options{FailOnCycle: true})
	assert.Error(t, err)
}

func TestResolveStyles_NoRules(t *testing.T) {
	_, err := ResolveStyles(context.Background(), zaptest.NewLogger(t), sources(`/* nothing */`, ``), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no style-sheet source produced any rule")
}

func TestResolveStyles_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := ResolveStyles(ctx, zaptest.NewLogger(t), sources(`.a { color: red }`), Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestResolveStyles_Media(t *testing.T) {
	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t),
		sources(`.a { width: 1px } @media (max-width: 600px) { .a { width: 2px } }`), Options{})
	require.NoError(t, err)

	require.Len(t, res.Media, 1)
	assert.Equal(t, "(max-width: 600px)", res.Media[0].Query)
	assert.Equal(t, "{ width: scalePx2dp(2) }", platform.FormatJS(res.Media[0].Styles["a"]))
	assert.Equal(t, "{ width: scalePx2dp(1) }", platform.FormatJS(res.Styles["a"]))
}

func TestResolveStyles_Animations(t *testing.T) {
	src := sources(`@keyframes fade { from { opacity: 0 } to { opacity: 1 } } .a { animation: fade 1s }`)

	res, err := ResolveStyles(context.Background(), zaptest.NewLogger(t), src, Options{Platform: common.PlatformHarmony})
	require.NoError(t, err)
	assert.Contains(t, res.Animations, "fade")

	res, err = ResolveStyles(context.Background(), zaptest.NewLogger(t), src, Options{})
	require.NoError(t, err)
	assert.Nil(t, res.Animations)
}

func TestCompile_InlineOverClass(t *testing.T) {
	res := compileXML(t, `<View className="b a" style="color: green"><Text>hi</Text></View>`, Options{},
		`.a { color: red; width: 10px } .b { color: blue }`)

	root := rootNode(t, res)
	assert.Equal(t, "{ color: '#008000', width: scalePx2dp(10) }", styleText(t, root))
	_, ok := root.Attr("className")
	assert.False(t, ok, "class attribute must be removed after inlining")
	assert.Equal(t, 1, res.Stats.Inlined)
	// Text element has neither class nor style
	assert.Equal(t, 1, res.Stats.Skipped)
	assert.Contains(t, res.MarkupText, "scalePx2dp(10)")
}

func TestCompile_ClassOrderIsCascadeOrder(t *testing.T) {
	const styles = `.a { color: red } .b { color: blue }`
	first := compileXML(t, `<View className="a b"/>`, Options{}, styles)
	second := compileXML(t, `<View className="b a"/>`, Options{}, styles)
	assert.Equal(t, styleText(t, rootNode(t, first)), styleText(t, rootNode(t, second)))
	assert.Equal(t, "{ color: '#0000ff' }", styleText(t, rootNode(t, first)))
}

func TestCompile_InputUntouched(t *testing.T) {
	doc, err := markup.Parse(strings.NewReader(`<View className="a"/>`), common.MarkupFmtXml)
	require.NoError(t, err)
	before := doc.String()

	res, err := Compile(context.Background(), zaptest.NewLogger(t), doc, sources(`.a { color: red }`), Options{})
	require.NoError(t, err)
	assert.Equal(t, before, doc.String())
	assert.NotEqual(t, before, res.MarkupText)
}

func TestCompile_Deferred(t *testing.T) {
	res := compileXML(t, `<View className="{cls}" style="{ {width: w} }"/>`, Options{}, `.a { color: red }`)

	root := rootNode(t, res)
	assert.Equal(t, "calcDynamicStyle(__styleSheet, cls, {width: w})", styleText(t, root))
	_, ok := root.Attr("className")
	assert.False(t, ok)
	assert.Equal(t, 1, res.Stats.Deferred)

	deferred := res.Diagnostics.Of(common.KindDeferredToRuntime)
	require.Len(t, deferred, 1)
	assert.Equal(t, common.SeverityInfo, deferred[0].Severity)
	assert.Equal(t, "View[1]", deferred[0].Element)
	// the style table is still emitted for runtime lookup
	assert.Contains(t, res.Styles, "a")
}

func TestCompile_DeferredClassOnly(t *testing.T) {
	res := compileXML(t, `<View className="{isOn ? 'a' : 'b'}"/>`, Options{}, `.a { color: red }`)
	assert.Equal(t, "calcDynamicStyle(__styleSheet, isOn ? 'a' : 'b', undefined)", styleText(t, rootNode(t, res)))
}

func TestCompile_HarmonySkipsUnmarked(t *testing.T) {
	res := compileXML(t, `<View className="a"><Text className="a" compileMode="true"/></View>`,
		Options{Platform: common.PlatformHarmony}, `.a { width: 4px }`)

	root := rootNode(t, res)
	v, ok := root.Attr("className")
	require.True(t, ok, "unmarked element must keep its class")
	assert.Equal(t, "a", v.Text)
	_, ok = root.Attr("style")
	assert.False(t, ok)

	child := root.Elements()[0]
	assert.Equal(t, "{ width: 4 }", styleText(t, child))
	assert.Equal(t, 1, res.Stats.Inlined)
	assert.Equal(t, 1, res.Stats.Skipped)
}

func TestCompile_InlineAllOverride(t *testing.T) {
	inlineAll := true
	res := compileXML(t, `<View className="a"/>`,
		Options{Platform: common.PlatformHarmony, Overrides: platform.Overrides{InlineAll: &inlineAll}}, `.a { width: 4px }`)
	assert.Equal(t, "{ width: 4 }", styleText(t, rootNode(t, res)))
}

func TestCompile_FlexCorrection(t *testing.T) {
	const doc = `<View className="col" compileMode="true"><Text>1</Text><Text>2</Text><Text>3</Text><Text>4</Text></View>`
	opts := Options{Platform: common.PlatformHarmony}
	res := compileXML(t, doc, opts, `.col { display: flex; flex-direction: column }`)

	cfg := platform.Lookup(common.PlatformHarmony)
	root := rootNode(t, res)
	assert.Equal(t, "{ display: 'flex', flexDirection: 'column' }", styleText(t, root))
	assert.Equal(t, 2, res.Stats.Wrappers)

	// [T1, W(T2, W(T3, T4))]
	kids := root.Elements()
	require.Len(t, kids, 2)
	assert.Equal(t, "Text", kids[0].Tag)
	w := kids[1]
	require.True(t, IsWrapper(cfg, w))
	assert.Equal(t, "View", w.Tag)
	assert.Equal(t, "{ display: 'flex', flexDirection: 'column' }", styleText(t, w))
	marker, ok := w.Attr("compileMode")
	require.True(t, ok)
	assert.Equal(t, "true", marker.Text)

	inner := w.Elements()
	require.Len(t, inner, 2)
	assert.Equal(t, "Text", inner[0].Tag)
	require.True(t, IsWrapper(cfg, inner[1]))
	last := inner[1].Elements()
	require.Len(t, last, 2)
	assert.False(t, IsWrapper(cfg, last[0]))
	assert.False(t, IsWrapper(cfg, last[1]))

	again, wrappers := correctFlex(cfg, root, platform.Style{"display": "flex", "flexDirection": "column"})
	assert.Same(t, root, again)
	assert.Zero(t, wrappers)

	// compiling emitted markup once more changes nothing
	second := compileXML(t, res.MarkupText, opts, `.col { display: flex; flex-direction: column }`)
	assert.Zero(t, second.Stats.Wrappers)
	assert.Equal(t, res.MarkupText, second.MarkupText)
}

func TestCompile_RecompileKeepsPlatformStyles(t *testing.T) {
	const (
		doc    = `<View className="col" compileMode="true"><Text className="c" compileMode="true">1</Text><Text>2</Text><Text>3</Text></View>`
		styles = `.col { display: flex; flex-direction: column; border: 1px solid red; min-width: 10px } .c { -webkit-line-clamp: 2 }`
	)
	opts := Options{Platform: common.PlatformHarmony}
	res := compileXML(t, doc, opts, styles)
	require.Equal(t, 1, res.Stats.Wrappers)
	assert.Empty(t, res.Diagnostics.Of(common.KindDeferredToRuntime))
	assert.Contains(t, res.MarkupText, "maxLines: 2")

	second := compileXML(t, res.MarkupText, opts, styles)
	assert.Equal(t, res.MarkupText, second.MarkupText)
	assert.Zero(t, second.Stats.Wrappers)
	assert.Zero(t, second.Stats.Deferred)
	assert.Empty(t, second.Diagnostics.Of(common.KindDeferredToRuntime))
	assert.Empty(t, second.Diagnostics.Of(common.KindUnsupportedProperty))

	root := rootNode(t, second)
	assert.NotContains(t, styleText(t, root), "calcDynamicStyle")
	assert.Equal(t, "{ maxLines: 2 }", styleText(t, root.Elements()[0]))
}

func TestCompile_ClasslessStyleObjectKept(t *testing.T) {
	const style = `{ borderWidth: { top: 1 }, transform: [{ rotate: '10deg' }], width: scalePx2dp(10) }`
	res := compileXML(t, `<View style="{`+style+`}"/>`, Options{})

	assert.Equal(t, style, styleText(t, rootNode(t, res)))
	assert.Equal(t, 1, res.Stats.Inlined)
	assert.Zero(t, res.Stats.Deferred)
}

func TestCompile_FlexWrapperAlignment(t *testing.T) {
	res := compileXML(t, `<View className="col" compileMode="true"><Text/><Text/><Text/></View>`,
		Options{Platform: common.PlatformHarmony},
		`.col { display: flex; flex-direction: column; align-items: center; justify-content: flex-end; padding: 2px }`)

	cfg := platform.Lookup(common.PlatformHarmony)
	kids := rootNode(t, res).Elements()
	require.Len(t, kids, 2)
	require.True(t, IsWrapper(cfg, kids[1]))
	assert.Equal(t, "{ alignItems: 'center', display: 'flex', flexDirection: 'column', justifyContent: 'flex-end' }", styleText(t, kids[1]))
}

func TestCompile_FlexCorrectionNotNeeded(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		opts   Options
	}{
		{"react-native", `<View className="col"><Text/><Text/><Text/></View>`, Options{}},
		{"two children", `<View className="col" compileMode="true"><Text/><Text/></View>`, Options{Platform: common.PlatformHarmony}},
		{"row", `<View className="row" compileMode="true"><Text/><Text/><Text/></View>`, Options{Platform: common.PlatformHarmony}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := compileXML(t, tt.markup, tt.opts,
				`.col { display: flex; flex-direction: column } .row { display: flex; flex-direction: row }`)
			assert.Zero(t, res.Stats.Wrappers)
		})
	}
}

func TestCompile_FlexDirectionConflict(t *testing.T) {
	res := compileXML(t, `<View className="col" style="flex-direction: row" compileMode="true"><Text/><Text/><Text/></View>`,
		Options{Platform: common.PlatformHarmony}, `.col { display: flex; flex-direction: column }`)

	conflicts := res.Diagnostics.Of(common.KindStructuralConflict)
	require.Len(t, conflicts, 1)
	assert.Equal(t, common.SeverityWarning, conflicts[0].Severity)
	assert.Equal(t, "flex-direction", conflicts[0].Property)
	// inline direction wins, no correction for a row
	assert.Zero(t, res.Stats.Wrappers)
	assert.Equal(t, "{ display: 'flex', flexDirection: 'row' }", styleText(t, rootNode(t, res)))
}

func TestCompileSource_EmptyMarkup(t *testing.T) {
	res := compileXML(t, "  \n", Options{}, `.a { color: red }`)
	assert.Nil(t, res.Markup)
	assert.Empty(t, res.MarkupText)
	assert.Contains(t, res.Styles, "a")
}

func TestCompileSource_BadMarkup(t *testing.T) {
	_, err := CompileSource(context.Background(), zaptest.NewLogger(t), `<View`, common.MarkupFmtXml,
		sources(`.a { color: red }`), Options{})
	assert.Error(t, err)
}

func TestCompileSource_HTML(t *testing.T) {
	res, err := CompileSource(context.Background(), zaptest.NewLogger(t), `<div class="a">x</div>`, common.MarkupFmtHtml,
		sources(`.a { color: red }`), Options{})
	require.NoError(t, err)
	assert.Contains(t, res.MarkupText, "#ff0000")
	assert.NotContains(t, res.MarkupText, `class="a"`)
}

func TestElementState_String(t *testing.T) {
	assert.Equal(t, "inlined", stateInlined.String())
	assert.Equal(t, "class-resolved", stateClassResolved.String())
	assert.Equal(t, "state(42)", elementState(42).String())
}
