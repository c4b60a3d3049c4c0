package server

import (
	"bytes"
	"encoding/xml"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/content"
	"github.com/0x0BSoD/greenwood/internal/model"
	"github.com/0x0BSoD/greenwood/internal/web"
)

const (
	feedContentType = "application/rss+xml; charset=utf-8"
	feedItemLimit   = 20
	feedExcerptLen  = 280
)

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title         string    `xml:"title"`
	Link          string    `xml:"link"`
	Description   string    `xml:"description"`
	LastBuildDate string    `xml:"lastBuildDate,omitempty"`
	Items         []rssItem `xml:"item"`
}

type rssItem struct {
	Title       string  `xml:"title"`
	Link        string  `xml:"link"`
	GUID        rssGUID `xml:"guid"`
	Description string  `xml:"description,omitempty"`
	Category    string  `xml:"category,omitempty"`
	PubDate     string  `xml:"pubDate,omitempty"`
}

type rssGUID struct {
	Value       string `xml:",chardata"`
	IsPermaLink bool   `xml:"isPermaLink,attr"`
}

// newsFeed serves the latest news as RSS 2.0, cached like a page.
func (s *Server) newsFeed(c *gin.Context) {
	log := s.log.Named("feed")
	ctx := c.Request.Context()
	key := pageKeyPrefix + c.Request.URL.Path

	if body, ok, err := s.cache.Get(ctx, key); err == nil && ok {
		c.Data(http.StatusOK, feedContentType, body)
		return
	}

	complete := true
	theme, err := s.content.Theme(ctx)
	if err != nil {
		log.Warn("fetch theme", zap.Error(err))
		complete = false
	}
	news, err := s.content.News(ctx)
	if err != nil {
		log.Error("fetch news", zap.Error(err))
		news = nil
		complete = false
	}

	doc := buildFeed(s.siteURL(c), theme, news)

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := xml.NewEncoder(&buf).Encode(doc); err != nil {
		log.Error("encode feed", zap.Error(err))
		c.String(http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError))
		return
	}

	if complete {
		tags := []string{cms.TagNews, cms.TagTheme, cache.PathTag(c.Request.URL.Path)}
		if err := s.cache.Set(ctx, key, buf.Bytes(), tags, s.opts.PageTTL); err != nil {
			log.Warn("feed cache write", zap.Error(err))
		}
	}

	c.Data(http.StatusOK, feedContentType, buf.Bytes())
}

func buildFeed(base string, theme model.Theme, news []model.News) rssDocument {
	name := theme.SiteName
	if name == "" {
		name = web.DefaultSiteName
	}
	desc := theme.Description
	if desc == "" {
		desc = "Latest news from " + name
	}

	ch := rssChannel{
		Title:       name + " News",
		Link:        base + "/news",
		Description: desc,
	}

	for i, n := range news {
		if i == feedItemLimit {
			break
		}
		link := base + "/news/" + n.Slug
		summary := n.Excerpt
		if summary == "" {
			summary = content.Excerpt(n.Content, feedExcerptLen)
		}

		item := rssItem{
			Title:       n.Title,
			Link:        link,
			GUID:        rssGUID{Value: link, IsPermaLink: true},
			Description: summary,
			Category:    n.Category,
		}
		if d := n.DisplayDate(); !d.IsZero() {
			item.PubDate = d.Format(time.RFC1123Z)
			if ch.LastBuildDate == "" {
				ch.LastBuildDate = item.PubDate
			}
		}
		ch.Items = append(ch.Items, item)
	}

	return rssDocument{Version: "2.0", Channel: ch}
}

// siteURL is the configured public origin, or the request's own origin.
func (s *Server) siteURL(c *gin.Context) string {
	if s.opts.SiteURL != "" {
		return strings.TrimRight(s.opts.SiteURL, "/")
	}
	scheme := "http"
	if c.Request.TLS != nil {
		scheme = "https"
	}
	if proto := c.GetHeader("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	return scheme + "://" + c.Request.Host
}
