package catalog

import (
	"bytes"
	"embed"
	"html/template"
	"net/http"
)

//go:embed templates/*
var templateFS embed.FS

var pageTemplate = template.Must(template.ParseFS(templateFS, "templates/index.gohtml"))

type indexPage struct {
	Products []*Product
}

// renderIndex executes into a buffer first so a template error never leaves a
// half-written page behind a 200.
func renderIndex(w http.ResponseWriter, products []*Product) {
	var buf bytes.Buffer
	if err := pageTemplate.ExecuteTemplate(&buf, "index.gohtml", indexPage{Products: products}); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
