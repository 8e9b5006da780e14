package handlers

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"sync"
	"time"

	"kulhadcafe.in/site/internal/format"
	"kulhadcafe.in/site/internal/nav"
)

// Renderer executes the page templates. In dev mode templates are reparsed
// on each render so edits show up without a restart.
type Renderer struct {
	fsys fs.FS
	dev  bool

	mu    sync.Mutex
	cache *template.Template
}

// NewRenderer parses every .tmpl file in fsys.
func NewRenderer(fsys fs.FS, dev bool) (*Renderer, error) {
	r := &Renderer{fsys: fsys, dev: dev}
	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.cache = t
	return r, nil
}

func (r *Renderer) parse() (*template.Template, error) {
	funcMap := template.FuncMap{
		"now":    time.Now,
		"inr":    format.INR,
		"lakh":   format.Lakh,
		"anchor": nav.Anchor,
		"add":    func(a, b int) int { return a + b },
	}
	var files []string
	if err := fs.WalkDir(r.fsys, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found")
	}
	return template.New("_root").Funcs(funcMap).ParseFS(r.fsys, files...)
}

func (r *Renderer) templates() (*template.Template, error) {
	if !r.dev {
		return r.cache, nil
	}
	t, err := r.parse()
	if err != nil {
		return nil, err
	}
	r.mu.Lock()
	r.cache = t
	r.mu.Unlock()
	return t, nil
}

// Render executes the named template into a buffer and writes it with status.
// Nothing is written to w when execution fails.
func (r *Renderer) Render(w http.ResponseWriter, status int, name string, data any) error {
	t, err := r.templates()
	if err != nil {
		return fmt.Errorf("template parse: %w", err)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("template exec %s: %w", name, err)
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}
