package api

import (
	"embed"
	"fmt"
	"html/template"
	"strings"

	"github.com/nitesh/newsfront/internal/view"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"count": view.FormatCount,
	"spectrumClass": func(key string) string {
		if view.SpectrumPosition(key) < 0 {
			return "spectrum-other"
		}
		return "spectrum-" + key
	},
	"join": strings.Join,
}

func parseTemplates() (*template.Template, error) {
	tmpl, err := template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return tmpl, nil
}
