// Package convert is the compiler entry point: it runs style-sheet sources
// through parsing, variable resolution, class indexing and property mapping,
// integrates results into markup and encodes the style table.
package convert

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"stylec/common"
	"stylec/css"
	"stylec/markup"
	"stylec/platform"
	"stylec/value"
)

// Options of a single compile invocation. Zero value targets the permissive
// react-native platform.
type Options struct {
	Platform      common.Platform
	EnableNesting bool
	// FailOnCycle makes a variable cycle fatal for the whole invocation,
	// otherwise it is reported and affected values stay unresolved.
	FailOnCycle bool
	Overrides   platform.Overrides
}

// MediaStyles are class styles of a @media block, passed through with the
// query text.
type MediaStyles struct {
	Query  string                    `json:"query" yaml:"query"`
	Styles map[string]platform.Style `json:"styles" yaml:"styles"`
}

// Stats counts terminal states of visited elements.
type Stats struct {
	Inlined  int `json:"inlined" yaml:"inlined"`
	Deferred int `json:"deferred" yaml:"deferred"`
	Skipped  int `json:"skipped" yaml:"skipped"`
	Wrappers int `json:"wrappers" yaml:"wrappers"`
}

// Result of a compile invocation. Markup fields are empty for style only
// compilation.
type Result struct {
	ID           string
	Platform     common.Platform
	SheetIdent   string
	Markup       *markup.Document
	MarkupText   string
	Styles       map[string]platform.Style
	Animations   map[string]any
	Media        []MediaStyles
	CSSVariables map[string]value.VarEntry
	Diagnostics  common.Diagnostics
	Stats        Stats
}

// Compile resolves styles of sources and integrates them into a copy of doc,
// which is left untouched. When doc is nil only the style table is produced.
// Error is returned only when no source produced any rule, or for variable
// cycles when opts.FailOnCycle is set. Everything else is reported in
// Result.Diagnostics.
func Compile(ctx context.Context, log *zap.Logger, doc *markup.Document, sources []css.Source, opts Options) (*Result, error) {
	s, err := newSession(ctx, log, sources, opts)
	if err != nil {
		return nil, err
	}

	s.log.Debug("Compile starting", zap.Int("sources", len(sources)), zap.Bool("markup", doc != nil))
	defer func(start time.Time) {
		s.log.Debug("Compile completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	res := &Result{
		ID:         s.id.String(),
		Platform:   s.cfg.Platform,
		SheetIdent: s.cfg.SheetIdent,
	}
	if doc != nil {
		ig := newIntegrator(s)
		out, err := ig.run(ctx, doc)
		if err != nil {
			return nil, err
		}
		res.Markup = out
		res.MarkupText = out.String()
		res.Stats = ig.stats
	}

	res.Styles = s.styleTable()
	res.Media = s.mediaTable()
	res.Animations = s.animationTable()
	res.CSSVariables = s.vars.Flatten()
	res.Diagnostics = s.diagnostics()
	res.Diagnostics.Log(s.log)
	return res, nil
}

// ResolveStyles compiles style-sheet sources only.
func ResolveStyles(ctx context.Context, log *zap.Logger, sources []css.Source, opts Options) (*Result, error) {
	return Compile(ctx, log, nil, sources, opts)
}

// CompileSource parses markup text of the given format and compiles it.
// Empty markup text means style only compilation.
func CompileSource(ctx context.Context, log *zap.Logger, markupText string, format common.MarkupFmt, sources []css.Source, opts Options) (*Result, error) {
	if strings.TrimSpace(markupText) == "" {
		return ResolveStyles(ctx, log, sources, opts)
	}
	doc, err := markup.Parse(strings.NewReader(markupText), format)
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup: %w", err)
	}
	return Compile(ctx, log, doc, sources, opts)
}
