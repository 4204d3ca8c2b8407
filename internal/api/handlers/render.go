package handlers

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strings"

	"go.uber.org/zap"
)

//go:embed web/templates/*.html web/static/*
var webFS embed.FS

// Page is the data every template receives.
type Page struct {
	Error    string
	Username string
	Email    string
	Token    string
}

// Renderer executes the embedded page templates inside the shared layout.
type Renderer struct {
	pages map[string]*template.Template
	log   *zap.Logger
}

func NewRenderer(log *zap.Logger) (*Renderer, error) {
	files, err := fs.Glob(webFS, "web/templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}

	pages := make(map[string]*template.Template, len(files))
	for _, f := range files {
		name := strings.TrimSuffix(path.Base(f), ".html")
		if name == "layout" {
			continue
		}
		t, err := template.ParseFS(webFS, "web/templates/layout.html", f)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return &Renderer{pages: pages, log: log}, nil
}

// HTML renders page with status.
func (v *Renderer) HTML(w http.ResponseWriter, status int, page string, data Page) {
	t, ok := v.pages[page]
	if !ok {
		v.log.Error("unknown template", zap.String("page", page))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", data); err != nil {
		v.log.Error("render failed", zap.String("page", page), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// ServerError renders the generic error page.
func (v *Renderer) ServerError(w http.ResponseWriter) {
	v.HTML(w, http.StatusInternalServerError, "error", Page{})
}

// StaticHandler serves the embedded stylesheet and script.
func StaticHandler() http.Handler {
	sub, err := fs.Sub(webFS, "web/static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
