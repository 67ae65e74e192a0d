package handlers

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"log"
	"net/http"
	"path"
	"time"
)

//go:embed templates
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"media": func(key string) string { return "/media/" + key },
	"date":  func(t time.Time) string { return t.Format("2 January 2006") },
}

// Renderer executes the page templates. Each page is parsed together with
// the shared layout and executed through its "base" template.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	names, err := fs.Glob(templateFS, "templates/pages/*.html")
	if err != nil {
		return nil, err
	}
	rd := &Renderer{pages: make(map[string]*template.Template, len(names))}
	for _, name := range names {
		t, err := template.New(path.Base(name)).Funcs(templateFuncs).
			ParseFS(templateFS, "templates/layout/*.html", name)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		rd.pages[path.Base(name)] = t
	}
	return rd, nil
}

func (rd *Renderer) execute(name string, data any) ([]byte, error) {
	t, ok := rd.pages[name]
	if !ok {
		return nil, fmt.Errorf("template %s not found", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Render writes the named page with status. The page is rendered fully
// before anything is written so a template error still yields a clean 500.
func (rd *Renderer) Render(w http.ResponseWriter, status int, name string, data any) {
	body, err := rd.execute(name, data)
	if err != nil {
		log.Printf("Render %s error: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(body)
}
