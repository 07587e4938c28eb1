package convert

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"text/template"

	"github.com/amazon-ion/ion-go/ion"
	sprig "github.com/go-task/slim-sprig/v3"
	yaml "gopkg.in/yaml.v3"

	"stylec/common"
	"stylec/platform"
	"stylec/value"
)

// document is the serialized form of a compile result.
type document struct {
	ID           string                    `json:"id" yaml:"id"`
	Platform     common.Platform           `json:"platform" yaml:"platform"`
	Styles       map[string]any            `json:"styles" yaml:"styles"`
	Animations   map[string]any            `json:"animations,omitempty" yaml:"animations,omitempty"`
	Media        []mediaDocument           `json:"media,omitempty" yaml:"media,omitempty"`
	CSSVariables map[string]value.VarEntry `json:"cssVariables" yaml:"cssVariables"`
	Diagnostics  common.Diagnostics        `json:"diagnostics,omitempty" yaml:"diagnostics,omitempty"`
}

type mediaDocument struct {
	Query  string         `json:"query" yaml:"query"`
	Styles map[string]any `json:"styles" yaml:"styles"`
}

func plainTable(styles map[string]platform.Style) map[string]any {
	out := make(map[string]any, len(styles))
	for k, st := range styles {
		out[k] = st.Plain()
	}
	return out
}

func plainAnimations(anims map[string]any) map[string]any {
	if anims == nil {
		return nil
	}
	st := make(platform.Style, len(anims))
	for k, v := range anims {
		st[k] = v
	}
	return st.Plain()
}

func newDocument(res *Result) *document {
	doc := &document{
		ID:           res.ID,
		Platform:     res.Platform,
		Styles:       plainTable(res.Styles),
		Animations:   plainAnimations(res.Animations),
		CSSVariables: res.CSSVariables,
		Diagnostics:  res.Diagnostics,
	}
	for _, m := range res.Media {
		doc.Media = append(doc.Media, mediaDocument{Query: m.Query, Styles: plainTable(m.Styles)})
	}
	return doc
}

// generic turns document into maps and slices only, which is what Ion
// marshaller handles without struct tags.
func (d *document) generic() map[string]any {
	vars := make(map[string]any, len(d.CSSVariables))
	for k, v := range d.CSSVariables {
		entry := map[string]any{"value": v.Value}
		if v.Unresolved {
			entry = map[string]any{"unresolved": true, "reason": v.Reason}
		}
		vars[k] = entry
	}
	out := map[string]any{
		"id":           d.ID,
		"platform":     d.Platform.String(),
		"styles":       d.Styles,
		"cssVariables": vars,
	}
	if d.Animations != nil {
		out["animations"] = d.Animations
	}
	if len(d.Media) > 0 {
		media := make([]any, 0, len(d.Media))
		for _, m := range d.Media {
			media = append(media, map[string]any{"query": m.Query, "styles": m.Styles})
		}
		out["media"] = media
	}
	if len(d.Diagnostics) > 0 {
		diags := make([]any, 0, len(d.Diagnostics))
		for _, diag := range d.Diagnostics {
			diags = append(diags, diag.String())
		}
		out["diagnostics"] = diags
	}
	return out
}

// Encode writes style table, variables and diagnostics of the result in
// requested format.
func Encode(w io.Writer, res *Result, format common.OutputFmt) error {
	var (
		data []byte
		err  error
	)
	doc := newDocument(res)
	switch format {
	case common.OutputFmtJson:
		data, err = json.MarshalIndent(doc, "", "  ")
		data = append(data, '\n')
	case common.OutputFmtYaml:
		data, err = yaml.Marshal(doc)
	case common.OutputFmtIon:
		data, err = ion.MarshalText(doc.generic())
	case common.OutputFmtJs:
		data, err = encodeModule(res)
	default:
		err = fmt.Errorf("unsupported output format %s", format)
	}
	if err != nil {
		return fmt.Errorf("unable to encode %s output: %w", format, err)
	}
	_, err = w.Write(data)
	return err
}

//go:embed module.js.tmpl
var moduleTemplate string

var moduleTmpl = template.Must(template.New("module").Funcs(sprig.FuncMap()).Funcs(template.FuncMap{
	"literal": platform.FormatJS,
}).Parse(moduleTemplate))

type moduleEntry struct {
	Key   string
	Value any
}

// moduleValues are variables available to JS module template.
type moduleValues struct {
	ID         string
	Platform   string
	SheetIdent string
	Styles     []moduleEntry
	Animations []moduleEntry
	Media      []any
	Variables  map[string]any
	Warnings   []string
}

func sortedEntries[V any](m map[string]V) []moduleEntry {
	keys := make(platform.Style, len(m))
	for k, v := range m {
		keys[k] = v
	}
	out := make([]moduleEntry, 0, len(m))
	for _, k := range keys.Keys() {
		out = append(out, moduleEntry{Key: k, Value: keys[k]})
	}
	return out
}

func encodeModule(res *Result) ([]byte, error) {
	values := moduleValues{
		ID:         res.ID,
		Platform:   res.Platform.String(),
		SheetIdent: res.SheetIdent,
		Styles:     sortedEntries(res.Styles),
		Animations: sortedEntries(res.Animations),
		Variables:  make(map[string]any, len(res.CSSVariables)),
	}
	if values.SheetIdent == "" {
		values.SheetIdent = platform.Lookup(res.Platform).SheetIdent
	}
	for _, m := range res.Media {
		st := make(map[string]any, len(m.Styles))
		for k, v := range m.Styles {
			st[k] = v
		}
		values.Media = append(values.Media, map[string]any{"query": m.Query, "styles": st})
	}
	for k, v := range res.CSSVariables {
		if v.Unresolved {
			values.Variables[k] = nil
			continue
		}
		values.Variables[k] = v.Value
	}
	for _, d := range res.Diagnostics {
		if d.Severity > common.SeverityInfo {
			values.Warnings = append(values.Warnings, d.String())
		}
	}

	buf := new(bytes.Buffer)
	if err := moduleTmpl.Execute(buf, values); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
