package server

import (
	"embed"
	"html/template"
	"strings"

	"github.com/cds-snc/notification-admin-sub002/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"normalise": models.NormaliseKey,
	"join":      strings.Join,
	"plus":      func(a, b int) int { return a + b },
	"lines":     func(s string) []string { return strings.Split(s, "\n") },
}

func loadTemplates() *template.Template {
	return template.Must(template.New("").Funcs(templateFuncs).ParseFS(templateFS, "templates/*.html"))
}
