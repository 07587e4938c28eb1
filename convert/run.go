package convert

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"stylec/common"
	"stylec/config"
	"stylec/css"
	"stylec/markup"
	"stylec/state"
)

// Run is the action of compile command: it compiles style-sheet sources and
// optional markup, writing style table and rewritten markup to destination
// directory.
func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("compile")

	if cmd.Args().Len() == 0 {
		return errors.New("no style-sheet source has been specified")
	}

	dst := cmd.String("output")
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}

	markupPath := cmd.String("markup")
	if len(markupPath) > 0 {
		if markupPath, err = filepath.Abs(markupPath); err != nil {
			return err
		}
	}

	format := outputFormat(env, cmd, log)
	opts := compileOptions(env, cmd, log)
	env.Overwrite = cmd.Bool("overwrite")
	prepareEncodings(env, cmd, log)

	sources, err := loadSources(ctx, env, cmd.Args().Slice(), log)
	if err != nil {
		return err
	}

	log.Info("Processing starting", zap.Int("sources", len(sources)), zap.String("markup", markupPath),
		zap.String("destination", dst), zap.Stringer("platform", opts.Platform), zap.Stringer("format", format))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, sources, markupPath, dst, opts, format, log)
}

// RunStyles is the action of styles command: style table only, written to
// a file or STDOUT.
func RunStyles(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("styles")

	if cmd.Args().Len() == 0 {
		return errors.New("no style-sheet source has been specified")
	}
	format := outputFormat(env, cmd, log)
	opts := compileOptions(env, cmd, log)
	prepareEncodings(env, cmd, log)

	sources, err := loadSources(ctx, env, cmd.Args().Slice(), log)
	if err != nil {
		return err
	}
	res, err := ResolveStyles(ctx, log, sources, opts)
	if err != nil {
		return err
	}
	reportDiagnostics(res, log)

	fname := cmd.String("output")
	if len(fname) == 0 {
		return Encode(os.Stdout, res, format)
	}
	env.Overwrite = true
	return writeOutput(env, fname, log, func(w io.Writer) error { return Encode(w, res, format) })
}

// RunInspect is the action of inspect command: it dumps intermediate
// compiler structures to STDOUT.
func RunInspect(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("inspect")

	opts := compileOptions(env, cmd, log)
	prepareEncodings(env, cmd, log)

	sources, err := loadSources(ctx, env, cmd.Args().Slice(), log)
	if err != nil {
		return err
	}
	var doc *markup.Document
	if markupPath := cmd.String("markup"); len(markupPath) > 0 {
		if doc, err = readMarkup(env, markupPath, env.Cfg.Compile.MarkupFormat); err != nil {
			return err
		}
	}
	return Inspect(ctx, log, os.Stdout, doc, sources, opts)
}

func compileOptions(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) Options {
	cc := env.Cfg.Compile
	opts := Options{
		Platform:      cc.Platform,
		EnableNesting: cc.Nesting,
		FailOnCycle:   cc.FailOnCycle,
	}
	if cmd.IsSet("platform") {
		p, err := common.ParsePlatform(cmd.String("platform"))
		if err != nil {
			log.Warn("Unknown platform requested, using configured one", zap.Stringer("platform", opts.Platform), zap.Error(err))
		} else {
			opts.Platform = p
		}
	}
	if cmd.IsSet("nesting") {
		opts.EnableNesting = cmd.Bool("nesting")
	}
	if cmd.IsSet("fail-on-cycle") {
		opts.FailOnCycle = cmd.Bool("fail-on-cycle")
	}
	opts.Overrides = env.Cfg.Platforms.For(opts.Platform)
	return opts
}

func outputFormat(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) common.OutputFmt {
	if !cmd.IsSet("to") {
		return env.Cfg.Compile.OutputFormat
	}
	format, err := common.ParseOutputFmt(cmd.String("to"))
	if err != nil {
		log.Warn("Unknown output format requested, switching to configured one", zap.Stringer("format", env.Cfg.Compile.OutputFormat), zap.Error(err))
		return env.Cfg.Compile.OutputFormat
	}
	return format
}

func prepareEncodings(env *state.LocalEnv, cmd *cli.Command, log *zap.Logger) {
	// Since zip "standard" does not define file name encoding we may need to
	// force archaic code page for old archives
	env.CodePage = lookupEncoding(cmd.String("force-zip-cp"), "archive file names", log)

	charset := cmd.String("charset")
	if len(charset) == 0 {
		charset = env.Cfg.Compile.Charset
	}
	env.Charset = lookupEncoding(charset, "input sources", log)
}

func lookupEncoding(name, what string, log *zap.Logger) encoding.Encoding {
	if len(name) == 0 {
		return nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		log.Warn("Unknown character set name, ignoring", zap.String("charset", name), zap.Error(err))
		return nil
	}
	n, _ := ianaindex.IANA.Name(enc)
	log.Debug("Forcefully converting character set", zap.String("charset", n), zap.String("for", what))
	return enc
}

func loadSources(ctx context.Context, env *state.LocalEnv, args []string, log *zap.Logger) ([]css.Source, error) {
	l := &sourceLoader{log: log, codePage: env.CodePage, charset: env.Charset}
	for _, arg := range args {
		src, err := filepath.Abs(arg)
		if err != nil {
			return nil, err
		}
		if err := l.load(ctx, src); err != nil {
			return nil, err
		}
	}
	if len(l.sources) == 0 {
		return nil, errors.New("no style-sheet sources were found")
	}
	return l.sources, nil
}

func readMarkup(env *state.LocalEnv, path string, def common.MarkupFmt) (*markup.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("unable to open markup: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if env.Charset != nil {
		r = env.Charset.NewDecoder().Reader(f)
	} else {
		br := bufio.NewReader(f)
		head, _ := br.Peek(4)
		r = selectReader(br, detectUTF(head))
	}
	doc, err := markup.Parse(r, markupFormat(path, def))
	if err != nil {
		return nil, fmt.Errorf("unable to parse markup (%s): %w", path, err)
	}
	return doc, nil
}

// process handles the compilation independently of CLI framework.
func process(ctx context.Context, sources []css.Source, markupPath, dst string, opts Options, format common.OutputFmt, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var doc *markup.Document
	src := sources[0].Name
	if len(markupPath) > 0 {
		var err error
		if doc, err = readMarkup(env, markupPath, env.Cfg.Compile.MarkupFormat); err != nil {
			return err
		}
		src = markupPath
	}

	res, err := Compile(ctx, log, doc, sources, opts)
	if err != nil {
		return fmt.Errorf("unable to compile: %w", err)
	}
	reportDiagnostics(res, log)

	if env.Rpt != nil {
		var diags strings.Builder
		for _, d := range res.Diagnostics {
			diags.WriteString(d.String())
			diags.WriteByte('\n')
		}
		env.Rpt.StoreData(fmt.Sprintf("diagnostics-%s.txt", res.ID), []byte(diags.String()))
		if len(markupPath) > 0 {
			if err := env.Rpt.StoreCopy("source-"+filepath.Base(markupPath), markupPath); err != nil {
				log.Warn("Unable to store markup in report", zap.Error(err))
			}
		}
	}

	names := make([]string, len(sources))
	for i, s := range sources {
		names[i] = s.Name
	}
	values := buildValues(config.OutputNameTemplateFieldName, res, src, names, format)

	stylePath := buildOutputPath(dst, format.Ext(), values, env)
	if err := writeOutput(env, stylePath, log, func(w io.Writer) error { return Encode(w, res, format) }); err != nil {
		return err
	}
	env.Rpt.Store("result-"+filepath.Base(stylePath), stylePath)

	if res.Markup == nil {
		return nil
	}
	markupOut := buildOutputPath(dst, filepath.Ext(markupPath), values, env)
	if markupOut == stylePath {
		markupOut += ".markup"
	}
	if err := writeOutput(env, markupOut, log, func(w io.Writer) error { return markup.Write(w, res.Markup) }); err != nil {
		return err
	}
	env.Rpt.Store("result-"+filepath.Base(markupOut), markupOut)

	log.Info("Markup compiled", zap.String("to", markupOut),
		zap.Int("inlined", res.Stats.Inlined), zap.Int("deferred", res.Stats.Deferred),
		zap.Int("skipped", res.Stats.Skipped), zap.Int("wrappers", res.Stats.Wrappers))
	return nil
}

func reportDiagnostics(res *Result, log *zap.Logger) {
	var warnings, errs int
	for _, d := range res.Diagnostics {
		switch d.Severity {
		case common.SeverityWarning:
			warnings++
		case common.SeverityError:
			errs++
		}
	}
	if errs > 0 {
		log.Warn("Compile finished with errors, affected values are unresolved",
			zap.Int("errors", errs), zap.Int("warnings", warnings), zap.Error(res.Diagnostics.Err()))
		return
	}
	log.Debug("Compile diagnostics", zap.Int("total", len(res.Diagnostics)), zap.Int("warnings", warnings))
}

// writeOutput creates output file, refusing to overwrite existing one unless
// requested.
func writeOutput(env *state.LocalEnv, path string, log *zap.Logger, fn func(io.Writer) error) (err error) {
	if _, err := os.Stat(path); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", path)
		}
		log.Warn("Overwriting existing file", zap.String("file", path))
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		if e := f.Close(); e != nil && err == nil {
			err = e
		}
	}()
	if err := fn(f); err != nil {
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	log.Debug("Output written", zap.String("file", path))
	return nil
}
