package api

import (
	"embed"
	"html/template"
	"strings"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"roleLabel": func(name string) string { return strings.TrimPrefix(name, "ROLE_") },
	"hasID": func(ids []uint, id uint) bool {
		for _, v := range ids {
			if v == id {
				return true
			}
		}
		return false
	},
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}
