package convert

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"stylec/common"
	"stylec/markup"
)

func TestInspect(t *testing.T) {
	doc, err := markup.Parse(strings.NewReader(sampleMarkup), common.MarkupFmtXml)
	require.NoError(t, err)

	buf := new(bytes.Buffer)
	err = Inspect(context.Background(), zaptest.NewLogger(t), buf, doc, sampleSources(), Options{Platform: common.PlatformHarmony})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "/* theme/base.css */")
	assert.Contains(t, out, "Variables: 1")
	assert.Contains(t, out, "--accent")
	assert.Contains(t, out, "Styles: harmony, 2 keys")
	assert.Contains(t, out, "Markup: inlined 2, deferred 0, skipped 2, wrappers 1")
	assert.Contains(t, out, "data-flex-wrapper")
}

func TestInspect_StylesOnly(t *testing.T) {
	buf := new(bytes.Buffer)
	err := Inspect(context.Background(), zaptest.NewLogger(t), buf, nil,
		sources(`:root { --a: var(--a) } .x { color: var(--a) }`), Options{})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "--a (unresolved)")
	assert.NotContains(t, out, "Markup:")
	assert.Contains(t, out, "CyclicVariableError")
}
