package web

import (
	"bytes"
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/model"
)

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := NewRenderer(Templates(), zap.NewNop())
	require.NoError(t, err)
	return r
}

func TestRenderer_AllPagesParse(t *testing.T) {
	r := newRenderer(t)
	for _, page := range []string{"home", "news", "news_detail", "events", "gallery", "notifications", "policies", "policy_detail", "rwa", "not_found", PageMaintenance} {
		assert.True(t, r.Has(page), page)
	}
	assert.False(t, r.Has("layout"))
}

func TestRenderer_EmptyStates(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, "news", Page{Title: "News", Path: "/news", Year: 2026, Data: []model.News(nil)}))

	html := buf.String()
	assert.Contains(t, html, "No news articles found.")
	assert.Contains(t, html, "<title>News | Greenwood City</title>")
	assert.Contains(t, html, `href="/news" aria-current="page"`)
}

func TestRenderer_NotificationsAndMarkdown(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Render(&buf, "notifications", Page{
		Theme: model.Theme{SiteName: "Greenwood"},
		Path:  "/notifications",
		Breadcrumbs: []Crumb{
			{Label: "Notifications"},
		},
		Data: []model.Notification{
			{Title: "Power cut", Priority: "urgent", Message: "Block **C**", CreatedAt: time.Date(2026, 5, 2, 0, 0, 0, 0, time.UTC)},
		},
	})
	require.NoError(t, err)

	html := buf.String()
	assert.Contains(t, html, "notification-urgent")
	assert.Contains(t, html, "<strong>C</strong>")
	assert.Contains(t, html, "2 May 2026")
	assert.Contains(t, html, `aria-label="Breadcrumb"`)
}

func TestRenderer_Maintenance(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf, PageMaintenance, nil))
	assert.Contains(t, buf.String(), "right back")
}

func TestRenderer_UnknownPage(t *testing.T) {
	r := newRenderer(t)
	assert.Error(t, r.Render(&bytes.Buffer{}, "missing", nil))
}

func TestRenderer_TemplateErrorWritesNothing(t *testing.T) {
	r := newRenderer(t)

	var buf bytes.Buffer
	err := r.Render(&buf, "home", Page{Data: "not a struct"})
	assert.Error(t, err)
	assert.Zero(t, buf.Len())
}

func TestStatic(t *testing.T) {
	for _, name := range []string{"app.js", "sw.js", "site.css"} {
		_, err := fs.Stat(Static(), name)
		assert.NoError(t, err, name)
	}
}

func copyTemplates(t *testing.T, dst string) {
	t.Helper()
	require.NoError(t, fs.WalkDir(Templates(), ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := filepath.Join(dst, p)
		if d.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		b, err := fs.ReadFile(Templates(), p)
		if err != nil {
			return err
		}
		return os.WriteFile(target, b, 0o644)
	}))
}

func TestRenderer_WatchReloads(t *testing.T) {
	dir := t.TempDir()
	copyTemplates(t, dir)

	r, err := NewRenderer(os.DirFS(dir), zap.NewNop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Watch(ctx, dir) }()
	defer func() {
		cancel()
		<-done
	}()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	updated := `{{define "content"}}<h1>Reloaded not found</h1>{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "not_found.tmpl"), []byte(updated), 0o644))

	assert.Eventually(t, func() bool {
		var buf bytes.Buffer
		if err := r.Render(&buf, "not_found", Page{}); err != nil {
			return false
		}
		return strings.Contains(buf.String(), "Reloaded not found")
	}, 3*time.Second, 50*time.Millisecond)
}
