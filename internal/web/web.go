// Package web renders the site's HTML pages from the embedded templates and
// serves its static assets.
package web

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/content"
	"github.com/0x0BSoD/greenwood/internal/model"
)

const DefaultSiteName = "Greenwood City"

// PageMaintenance is a standalone page that does not need the theme.
const PageMaintenance = "maintenance"

//go:embed templates
var templatesFS embed.FS

//go:embed static
var staticFS embed.FS

func Templates() fs.FS {
	sub, err := fs.Sub(templatesFS, "templates")
	if err != nil {
		panic(err)
	}
	return sub
}

func Static() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return sub
}

type Crumb struct {
	Label string
	Href  string
}

// Page is the model every page template receives.
type Page struct {
	Theme       model.Theme
	Title       string
	Description string
	Path        string
	Breadcrumbs []Crumb
	AnalyticsID string
	Year        int
	Data        any
}

type sectionHeader struct {
	Title string
	Href  string
}

var funcs = template.FuncMap{
	"siteName": func(t model.Theme) string {
		if t.SiteName != "" {
			return t.SiteName
		}
		return DefaultSiteName
	},
	"formatDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("2 Jan 2006")
	},
	"isoDate": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format(time.RFC3339)
	},
	"markdown": content.RenderMarkdown,
	"excerpt":  content.Excerpt,
	"hasPrefix": func(p, prefix string) bool {
		return p == prefix || strings.HasPrefix(p, prefix+"/")
	},
	"section": func(title, href string) sectionHeader {
		return sectionHeader{Title: title, Href: href}
	},
}

type Renderer struct {
	mu    sync.RWMutex
	pages map[string]*template.Template
	log   *zap.Logger
}

func NewRenderer(fsys fs.FS, log *zap.Logger) (*Renderer, error) {
	pages, err := parse(fsys)
	if err != nil {
		return nil, err
	}
	return &Renderer{pages: pages, log: log.Named("web")}, nil
}

func parse(fsys fs.FS) (map[string]*template.Template, error) {
	files, err := fs.Glob(fsys, "*.tmpl")
	if err != nil {
		return nil, err
	}

	pages := make(map[string]*template.Template, len(files))
	for _, file := range files {
		if file == "layout.tmpl" {
			continue
		}
		name := strings.TrimSuffix(path.Base(file), ".tmpl")
		t, err := template.New(name).Funcs(funcs).ParseFS(fsys, "layout.tmpl", "partials/*.tmpl", file)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", file, err)
		}
		pages[name] = t
	}

	return pages, nil
}

func (r *Renderer) Has(page string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.pages[page]
	return ok
}

// Render executes page into w. Output is buffered so a template error never
// leaves a half-written response.
func (r *Renderer) Render(w io.Writer, page string, data any) error {
	r.mu.RLock()
	t, ok := r.pages[page]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("unknown page %q", page)
	}

	entry := "layout"
	if page == PageMaintenance {
		entry = PageMaintenance
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, entry, data); err != nil {
		return fmt.Errorf("render %s: %w", page, err)
	}

	_, err := buf.WriteTo(w)
	return err
}

// Watch reparses the templates in dir whenever a file under it changes.
// A parse error keeps the previous templates in place.
func (r *Renderer) Watch(ctx context.Context, dir string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	for _, d := range []string{dir, filepath.Join(dir, "partials")} {
		if err := w.Add(d); err != nil {
			return fmt.Errorf("watch %s: %w", d, err)
		}
	}

	r.log.Info("watching templates", zap.String("dir", dir))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			pages, err := parse(os.DirFS(dir))
			if err != nil {
				r.log.Error("template reload failed", zap.String("file", ev.Name), zap.Error(err))
				continue
			}
			r.mu.Lock()
			r.pages = pages
			r.mu.Unlock()
			r.log.Info("templates reloaded", zap.String("file", ev.Name))
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			r.log.Warn("template watcher error", zap.Error(err))
		}
	}
}
