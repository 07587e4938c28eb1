package convert

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"stylec/css"
	"stylec/markup"
	"stylec/platform"
	"stylec/utils/debug"
)

// Inspect writes intermediate structures of a compile invocation to w:
// parsed style-sheets, class index, variables, mapped styles and, when doc
// is not nil, element tree before and after integration.
func Inspect(ctx context.Context, log *zap.Logger, w io.Writer, doc *markup.Document, sources []css.Source, opts Options) error {
	s, err := newSession(ctx, log, sources, opts)
	if err != nil {
		return err
	}

	for _, sheet := range s.sheets {
		if sheet == nil {
			continue
		}
		if _, err := fmt.Fprintf(w, "/* %s */\n", sheet.Name); err != nil {
			return err
		}
		if _, err := sheet.WriteTo(w); err != nil {
			return err
		}
	}
	if _, err := io.WriteString(w, s.index.Dump()); err != nil {
		return err
	}

	tw := debug.NewTreeWriter()
	vars := s.vars.Flatten()
	tw.Line(0, "Variables: %d", len(vars))
	for _, name := range s.vars.Names() {
		e := vars[name]
		if e.Unresolved {
			tw.TextBlock(1, name+" (unresolved)", e.Reason)
			continue
		}
		tw.TextBlock(1, name, e.Value)
	}

	styles := s.styleTable()
	mapped := make(map[string]string, len(styles))
	for k, st := range styles {
		mapped[k] = platform.FormatJS(st)
	}
	tw.Line(0, "Styles: %s, %d keys", s.cfg.Platform, len(mapped))
	tw.Entries(1, mapped)

	if doc != nil {
		ig := newIntegrator(s)
		out, err := ig.run(ctx, doc)
		if err != nil {
			return err
		}
		tw.Line(0, "Markup: inlined %d, deferred %d, skipped %d, wrappers %d",
			ig.stats.Inlined, ig.stats.Deferred, ig.stats.Skipped, ig.stats.Wrappers)
		if _, err := tw.WriteTo(w); err != nil {
			return err
		}
		if _, err := io.WriteString(w, doc.Dump()); err != nil {
			return err
		}
		if _, err := io.WriteString(w, out.Dump()); err != nil {
			return err
		}
	} else if _, err := tw.WriteTo(w); err != nil {
		return err
	}

	diags := s.diagnostics()
	for _, d := range diags {
		if _, err := fmt.Fprintln(w, d.String()); err != nil {
			return err
		}
	}
	return nil
}
