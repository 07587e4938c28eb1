package convert

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	sprig "github.com/go-task/slim-sprig/v3"

	"stylec/common"
	"stylec/config"
)

// Values is a struct that holds variables we make available for output name
// template expansion.
type Values struct {
	Context  string
	Source   string // markup file name, or first style-sheet when there is no markup, without extension
	Sources  []string
	Platform string
	Format   string
	ID       string
	Date     string
}

func buildValues(name config.TemplateFieldName, res *Result, src string, sources []string, format common.OutputFmt) Values {
	return Values{
		Context:  string(name),
		Source:   strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)),
		Sources:  sources,
		Platform: res.Platform.String(),
		Format:   format.String(),
		ID:       res.ID,
		Date:     time.Now().Format("2006-01-02"),
	}
}

func expandTemplate(name config.TemplateFieldName, field string, values Values) (string, error) {
	funcMap := sprig.FuncMap()

	tmpl, err := template.New(string(name)).Funcs(funcMap).Parse(field)
	if err != nil {
		return "", fmt.Errorf("unable to parse template field %s: %w", name, err)
	}

	buf := new(bytes.Buffer)
	if err := tmpl.Execute(buf, values); err != nil {
		return "", err
	}
	return buf.String(), nil
}
