package server

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/content"
	"github.com/0x0BSoD/greenwood/internal/model"
	"github.com/0x0BSoD/greenwood/internal/web"
)

const (
	htmlContentType = "text/html; charset=utf-8"
	pageKeyPrefix   = "page:"

	homeNewsLimit   = 3
	homeEventsLimit = 3

	maintenanceRetryAfter    = "300"
	maintenanceAlertInterval = 10 * time.Minute
)

var homeCrumb = web.Crumb{Label: "Home", Href: "/"}

// pageQueryParams lists the query parameters that change a page's output.
// All other parameters are left out of the cache key.
var pageQueryParams = map[string][]string{
	"gallery": {"category"},
}

func pageKey(u *url.URL, params []string) string {
	key := pageKeyPrefix + u.Path
	if len(params) == 0 {
		return key
	}

	q := u.Query()
	kept := url.Values{}
	for _, p := range params {
		if v := q.Get(p); v != "" {
			kept.Set(p, v)
		}
	}
	if len(kept) == 0 {
		return key
	}
	return key + "?" + kept.Encode()
}

// pageLoader fills p.Data. complete is false when some list degraded to
// empty after a CMS failure; such pages are served but not cached.
type pageLoader func(ctx context.Context, p *web.Page) (complete bool, err error)

type homeData struct {
	News   []model.News
	Events []model.Event
	Urgent []model.Notification
}

type eventsData struct {
	Upcoming []model.Event
	Past     []model.Event
}

type galleryData struct {
	Items      []model.GalleryItem
	Categories []string
	Category   string
}

// servePage renders name through the page cache. Pages are stored under
// page:{path} (plus any parameters in pageQueryParams) with the path tag, the theme tag and the page's own CMS tags.
func (s *Server) servePage(c *gin.Context, name string, tags []string, load pageLoader) {
	log := s.log.Named("pages")
	ctx := c.Request.Context()
	key := pageKey(c.Request.URL, pageQueryParams[name])

	body, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		log.Warn("page cache read", zap.String("key", key), zap.Error(err))
	}
	if ok {
		c.Data(http.StatusOK, htmlContentType, body)
		return
	}

	theme, ok := s.theme(c)
	if !ok {
		return
	}

	p := s.newPage(theme, c.Request.URL.Path)
	complete, err := load(ctx, &p)
	switch {
	case errors.Is(err, cms.ErrNotFound):
		s.renderNotFound(c, theme)
		return
	case err != nil:
		log.Error("load page", zap.String("page", name), zap.Error(err))
		s.renderMaintenance(c)
		return
	}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, name, p); err != nil {
		log.Error("render page", zap.String("page", name), zap.Error(err))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	if complete {
		tags = append(tags, cms.TagTheme, cache.PathTag(c.Request.URL.Path))
		if err := s.cache.Set(ctx, key, buf.Bytes(), tags, s.opts.PageTTL); err != nil {
			log.Warn("page cache write", zap.String("key", key), zap.Error(err))
		}
	}

	c.Data(http.StatusOK, htmlContentType, buf.Bytes())
}

// theme fetches the theme the layout needs. When it is unavailable, or the
// site is switched to maintenance, the maintenance page is written and ok is false.
func (s *Server) theme(c *gin.Context) (model.Theme, bool) {
	theme, err := s.content.Theme(c.Request.Context())
	if err != nil {
		s.log.Named("pages").Error("fetch theme", zap.Error(err))
		s.alertMaintenance("theme unavailable: " + err.Error())
		s.renderMaintenance(c)
		return model.Theme{}, false
	}
	if theme.Maintenance {
		s.renderMaintenance(c)
		return model.Theme{}, false
	}
	return theme, true
}

func (s *Server) newPage(theme model.Theme, path string) web.Page {
	analyticsID := theme.AnalyticsID
	if analyticsID == "" {
		analyticsID = s.opts.AnalyticsID
	}
	return web.Page{
		Theme:       theme,
		Description: theme.Description,
		Path:        path,
		AnalyticsID: analyticsID,
		Year:        s.opts.Now().Year(),
	}
}

func (s *Server) renderMaintenance(c *gin.Context) {
	var buf bytes.Buffer
	err := s.renderer.Render(&buf, web.PageMaintenance, web.Page{
		Title: "Maintenance",
		Year:  s.opts.Now().Year(),
	})
	if err != nil {
		s.log.Named("pages").Error("render maintenance", zap.Error(err))
		c.String(http.StatusServiceUnavailable, http.StatusText(http.StatusServiceUnavailable))
		return
	}

	c.Header("Retry-After", maintenanceRetryAfter)
	c.Data(http.StatusServiceUnavailable, htmlContentType, buf.Bytes())
}

func (s *Server) alertMaintenance(msg string) {
	if s.alerter == nil {
		return
	}
	now := s.opts.Now().UnixNano()
	last := s.lastMaintenanceAlert.Load()
	if last != 0 && time.Duration(now-last) < maintenanceAlertInterval {
		return
	}
	if s.lastMaintenanceAlert.CompareAndSwap(last, now) {
		s.alerter.Notify("greenwood is serving the maintenance page: " + msg)
	}
}

func (s *Server) renderNotFound(c *gin.Context, theme model.Theme) {
	p := s.newPage(theme, c.Request.URL.Path)
	p.Title = "Page not found"
	p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Not found"}}

	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, "not_found", p); err != nil {
		s.log.Named("pages").Error("render not found", zap.Error(err))
		c.String(http.StatusNotFound, http.StatusText(http.StatusNotFound))
		return
	}
	c.Data(http.StatusNotFound, htmlContentType, buf.Bytes())
}

func (s *Server) notFound(c *gin.Context) {
	theme, ok := s.theme(c)
	if !ok {
		return
	}
	s.renderNotFound(c, theme)
}

func (s *Server) serviceWorker(c *gin.Context) {
	body, err := fs.ReadFile(web.Static(), "sw.js")
	if err != nil {
		s.log.Named("pages").Error("read service worker", zap.Error(err))
		c.Status(http.StatusNotFound)
		return
	}
	c.Header("Service-Worker-Allowed", "/")
	c.Header("Cache-Control", "no-cache")
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", body)
}

func (s *Server) home(c *gin.Context) {
	tags := []string{cms.TagHomepage, cms.TagNews, cms.TagEvents, cms.TagNotifications}

	s.servePage(c, "home", tags, func(ctx context.Context, p *web.Page) (bool, error) {
		log := s.log.Named("pages")
		now := s.opts.Now()

		var data homeData
		newsOK, eventsOK, urgentOK := true, true, true

		var g errgroup.Group

		g.Go(func() error {
			news, err := s.content.News(ctx)
			if err != nil {
				log.Error("home: fetch news", zap.Error(err))
				newsOK = false
				return nil
			}
			data.News = news[:min(len(news), homeNewsLimit)]
			return nil
		})
		g.Go(func() error {
			events, err := s.content.UpcomingEvents(ctx, now)
			if err != nil {
				log.Error("home: fetch events", zap.Error(err))
				eventsOK = false
				return nil
			}
			data.Events = events[:min(len(events), homeEventsLimit)]
			return nil
		})
		g.Go(func() error {
			items, err := s.content.Notifications(ctx)
			if err != nil {
				log.Error("home: fetch notifications", zap.Error(err))
				urgentOK = false
				return nil
			}
			data.Urgent = content.UrgentNotifications(content.SortNotifications(items))
			return nil
		})
		_ = g.Wait()

		p.Data = data
		return newsOK && eventsOK && urgentOK, nil
	})
}

func (s *Server) newsList(c *gin.Context) {
	s.servePage(c, "news", []string{cms.TagNews}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "News"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "News"}}

		news, err := s.content.News(ctx)
		if err != nil {
			s.log.Named("pages").Error("fetch news", zap.Error(err))
			p.Data = []model.News{}
			return false, nil
		}
		p.Data = news
		return true, nil
	})
}

func (s *Server) newsDetail(c *gin.Context) {
	slug := c.Param("slug")

	s.servePage(c, "news_detail", []string{cms.TagNews}, func(ctx context.Context, p *web.Page) (bool, error) {
		n, err := s.content.NewsBySlug(ctx, slug)
		if err != nil {
			return false, err
		}

		p.Title = n.Title
		if n.Excerpt != "" {
			p.Description = n.Excerpt
		} else if d := content.Excerpt(n.Content, 160); d != "" {
			p.Description = d
		}
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "News", Href: "/news"}, {Label: n.Title}}
		p.Data = n
		return true, nil
	})
}

func (s *Server) events(c *gin.Context) {
	s.servePage(c, "events", []string{cms.TagEvents}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "Events"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Events"}}

		now := s.opts.Now()
		g, gctx := errgroup.WithContext(ctx)
		var data eventsData
		g.Go(func() error {
			var err error
			data.Upcoming, err = s.content.UpcomingEvents(gctx, now)
			return err
		})
		g.Go(func() error {
			var err error
			data.Past, err = s.content.PastEvents(gctx, now)
			return err
		})
		if err := g.Wait(); err != nil {
			s.log.Named("pages").Error("fetch events", zap.Error(err))
			p.Data = eventsData{}
			return false, nil
		}

		p.Data = data
		return true, nil
	})
}

func (s *Server) gallery(c *gin.Context) {
	category := c.Query("category")

	s.servePage(c, "gallery", []string{cms.TagGallery}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "Gallery"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Gallery"}}

		items, err := s.content.Gallery(ctx)
		if err != nil {
			s.log.Named("pages").Error("fetch gallery", zap.Error(err))
			p.Data = galleryData{Category: category}
			return false, nil
		}

		p.Data = galleryData{
			Items:      content.FilterGallery(items, category),
			Categories: content.GalleryCategories(items),
			Category:   category,
		}
		return true, nil
	})
}

func (s *Server) notifications(c *gin.Context) {
	s.servePage(c, "notifications", []string{cms.TagNotifications}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "Notifications"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Notifications"}}

		items, err := s.content.Notifications(ctx)
		if err != nil {
			s.log.Named("pages").Error("fetch notifications", zap.Error(err))
			p.Data = []model.Notification{}
			return false, nil
		}
		p.Data = content.SortNotifications(items)
		return true, nil
	})
}

func (s *Server) policies(c *gin.Context) {
	s.servePage(c, "policies", []string{cms.TagPolicies}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "Policies"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Policies"}}

		items, err := s.content.Policies(ctx)
		if err != nil {
			s.log.Named("pages").Error("fetch policies", zap.Error(err))
			p.Data = []model.Policy{}
			return false, nil
		}
		p.Data = items
		return true, nil
	})
}

func (s *Server) policyDetail(c *gin.Context) {
	slug := c.Param("slug")

	s.servePage(c, "policy_detail", []string{cms.TagPolicies}, func(ctx context.Context, p *web.Page) (bool, error) {
		policy, err := s.content.PolicyBySlug(ctx, slug)
		if err != nil {
			return false, err
		}

		p.Title = policy.Title
		if policy.Summary != "" {
			p.Description = policy.Summary
		}
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "Policies", Href: "/policies"}, {Label: policy.Title}}
		p.Data = policy
		return true, nil
	})
}

func (s *Server) rwa(c *gin.Context) {
	s.servePage(c, "rwa", []string{cms.TagRWAs}, func(ctx context.Context, p *web.Page) (bool, error) {
		p.Title = "Resident Welfare Association"
		p.Breadcrumbs = []web.Crumb{homeCrumb, {Label: "RWA"}}

		members, err := s.content.RWAMembers(ctx)
		if err != nil {
			s.log.Named("pages").Error("fetch rwa members", zap.Error(err))
			p.Data = []model.RWAMember{}
			return false, nil
		}
		p.Data = members
		return true, nil
	})
}
