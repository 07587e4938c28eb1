package convert

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"stylec/cascade"
	"stylec/common"
	"stylec/css"
	"stylec/platform"
	"stylec/value"
)

// session holds everything of a single compile invocation. Memo tables live
// here and die with it.
type session struct {
	id       uuid.UUID
	log      *zap.Logger
	opts     Options
	cfg      *platform.Config
	parser   *css.Parser
	sheets   []*css.Stylesheet
	vars     *value.VarTable
	resolver *value.Resolver
	index    *cascade.Index
	mapper   *platform.Mapper

	diags  common.Diagnostics
	styles map[string]platform.Style // class combination -> mapped style
}

func newSession(ctx context.Context, log *zap.Logger, sources []css.Source, opts Options) (*session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &session{
		id:     uuid.New(),
		opts:   opts,
		cfg:    platform.Lookup(opts.Platform).Apply(opts.Overrides),
		styles: make(map[string]platform.Style),
	}
	s.log = log.Named("compile").With(zap.Stringer("id", s.id), zap.Stringer("platform", s.cfg.Platform))
	s.parser = css.NewParser(s.log, css.WithNesting(opts.EnableNesting))

	sheets, err := s.parser.ParseAll(sources)
	s.sheets = sheets
	for _, e := range multierr.Errors(err) {
		s.diags.Add(errorDiagnostic(e))
	}

	rules := 0
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		rules += len(sheet.Rules) + len(sheet.Keyframes) + len(sheet.Media)
		for _, w := range sheet.Warnings {
			s.diags.Add(common.Diagnostic{
				Kind:     common.KindSyntax,
				Severity: common.SeverityWarning,
				Source:   sheet.Name,
				Message:  w,
			})
		}
	}
	if len(sources) > 0 && rules == 0 {
		if err != nil {
			return nil, fmt.Errorf("no style-sheet source produced any rule: %w", err)
		}
		return nil, errors.New("no style-sheet source produced any rule")
	}

	s.vars = value.NewVarTable(s.log, sheets)
	for _, name := range s.vars.Names() {
		if _, err := s.vars.Resolve(name); err != nil {
			s.diags.Add(errorDiagnostic(err))
			if opts.FailOnCycle {
				return nil, fmt.Errorf("unable to resolve variable %s: %w", name, err)
			}
		}
	}
	s.resolver = value.NewResolver(s.vars, value.WithRootFontSize(s.cfg.RootFontSize))
	s.index = cascade.NewIndex(s.log, sheets)

	s.mapper = platform.NewMapper(s.cfg, s.log)
	for _, sheet := range sheets {
		if sheet == nil {
			continue
		}
		for _, kf := range sheet.Keyframes {
			a, err := platform.NewAnimation(kf, s.resolver)
			for _, e := range multierr.Errors(err) {
				d := errorDiagnostic(e)
				d.Source = sheet.Name
				s.diags.Add(d)
			}
			s.mapper.SetAnimations(a)
		}
	}

	s.log.Debug("Compile session ready",
		zap.Int("sources", len(sources)), zap.Int("rules", rules),
		zap.Int("variables", len(s.vars.Names())), zap.Int("classes", len(s.index.Classes())))
	return s, nil
}

// errorDiagnostic converts pipeline errors to diagnostics.
func errorDiagnostic(err error) common.Diagnostic {
	var (
		se *css.SyntaxError
		ce *value.CyclicVariableError
	)
	switch {
	case errors.As(err, &se):
		return se.Diagnostic()
	case errors.As(err, &ce):
		return common.Diagnostic{
			Kind:     common.KindCyclicVariable,
			Severity: common.SeverityError,
			Property: ce.Cycle[0],
			Message:  ce.Error(),
		}
	}
	if d, ok := common.AsDiagnostic(err); ok {
		return d
	}
	return common.Diagnostic{Kind: common.KindSyntax, Severity: common.SeverityError, Message: err.Error()}
}

// sourceName returns name of a stylesheet by its cascade index.
func (s *session) sourceName(index int) string {
	if index >= 0 && index < len(s.sheets) && s.sheets[index] != nil {
		return s.sheets[index].Name
	}
	return ""
}

// build resolves and maps entries which are already folded in cascade order.
// Diagnostics get location of the declaration they came from.
func (s *session) build(entries []cascade.Entry, element string) (platform.Style, common.Diagnostics) {
	var diags common.Diagnostics
	style := make(platform.Style, len(entries))
	for _, e := range entries {
		d := e.Declaration
		source := s.sourceName(e.SourceIndex)

		v, err := s.resolver.Resolve(d.Property, d.Value)
		if err != nil {
			diag := errorDiagnostic(err)
			diag.Source, diag.Offset, diag.Element = source, d.Offset, element
			diag.Property = d.Property
			diags.Add(diag)
		}
		pairs, ds := s.mapper.Map(d.Property, v)
		for _, diag := range ds {
			diag.Source, diag.Offset, diag.Element = source, d.Offset, element
			diags.Add(diag)
		}
		style.Set(pairs...)
	}
	return style, diags
}

// classStyle returns mapped style of a class combination. Results are
// memoized per session, the returned style must not be modified.
func (s *session) classStyle(classes []string) platform.Style {
	key := strings.Join(classes, " ")
	if st, ok := s.styles[key]; ok {
		return st
	}
	st, diags := s.build(s.index.Lookup(classes), "")
	s.diags = append(s.diags, diags...)
	s.styles[key] = st
	return st
}

// inlineStyle parses and maps declarations of a style attribute. Inline
// declarations are in their own cascade layer, only order within the
// attribute matters.
func (s *session) inlineStyle(text, element string) (platform.Style, common.Diagnostics, error) {
	decls, err := s.parser.ParseDeclarations(element, []byte(text))
	if err != nil {
		return nil, nil, err
	}
	entries := make([]cascade.Entry, len(decls))
	for i, d := range decls {
		entries[i] = cascade.Entry{Declaration: d, SourceIndex: -1, Position: i}
	}
	st, diags := s.build(cascade.Fold(entries), element)
	return st, diags, nil
}

// styleTable maps every indexed selector, pseudo selectors included.
func (s *session) styleTable() map[string]platform.Style {
	keys := append(s.index.Selectors(), s.index.PseudoSelectors()...)
	out := make(map[string]platform.Style, len(keys))
	for _, key := range keys {
		st, diags := s.build(s.index.Rules(key), "")
		s.diags = append(s.diags, diags...)
		out[key] = st
	}
	return out
}

// mediaTable maps class rules of media blocks. Queries are not evaluated.
func (s *session) mediaTable() []MediaStyles {
	var out []MediaStyles
	for _, sheet := range s.sheets {
		if sheet == nil {
			continue
		}
		for _, mb := range sheet.Media {
			byKey := make(map[string][]cascade.Entry)
			var order []string
			for _, rule := range mb.Rules {
				if rule.Kind != css.RuleClass && rule.Kind != css.RuleCompound {
					continue
				}
				key := rule.Key()
				if _, ok := byKey[key]; !ok {
					order = append(order, key)
				}
				for i, d := range rule.Declarations {
					byKey[key] = append(byKey[key], cascade.Entry{
						Key:         key,
						Declaration: d,
						SourceIndex: rule.SourceIndex,
						RuleIndex:   rule.RuleIndex,
						Position:    i,
					})
				}
			}
			ms := MediaStyles{Query: mb.Query, Styles: make(map[string]platform.Style, len(order))}
			for _, key := range order {
				st, diags := s.build(cascade.Fold(byKey[key]), "")
				s.diags = append(s.diags, diags...)
				ms.Styles[key] = st
			}
			out = append(out, ms)
		}
	}
	return out
}

// animationTable returns platform keyframes of every @keyframes block, nil
// when platform has no animation support.
func (s *session) animationTable() map[string]any {
	if !s.cfg.Animations {
		return nil
	}
	out := make(map[string]any)
	for _, name := range s.mapper.AnimationNames() {
		frames, diags, _ := s.mapper.Keyframes(name)
		s.diags = append(s.diags, diags...)
		out[name] = frames
	}
	return out
}

// diagnostics returns collected diagnostics with exact duplicates removed,
// the same declaration is mapped once per class combination using it.
func (s *session) diagnostics() common.Diagnostics {
	seen := make(map[common.Diagnostic]bool, len(s.diags))
	out := make(common.Diagnostics, 0, len(s.diags))
	for _, d := range s.diags {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}
