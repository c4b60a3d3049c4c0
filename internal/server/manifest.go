package server

import (
	"mime"
	"net/http"
	"net/url"
	"path"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/model"
	"github.com/0x0BSoD/greenwood/internal/web"
)

const manifestContentType = "application/manifest+json"

var manifestIconSizes = []string{"192x192", "512x512"}

type webManifest struct {
	Name            string         `json:"name"`
	ShortName       string         `json:"short_name"`
	Description     string         `json:"description,omitempty"`
	StartURL        string         `json:"start_url"`
	Display         string         `json:"display"`
	ThemeColor      string         `json:"theme_color,omitempty"`
	BackgroundColor string         `json:"background_color,omitempty"`
	Icons           []manifestIcon `json:"icons"`
}

type manifestIcon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

func (s *Server) manifest(c *gin.Context) {
	theme, err := s.content.Theme(c.Request.Context())
	if err != nil {
		s.log.Named("manifest").Error("fetch theme", zap.Error(err))
		theme = model.Theme{}
	}

	c.Header("Content-Type", manifestContentType)
	c.JSON(http.StatusOK, buildManifest(theme))
}

func buildManifest(theme model.Theme) webManifest {
	name := theme.SiteName
	if name == "" {
		name = web.DefaultSiteName
	}
	shortName := theme.ShortName
	if shortName == "" {
		shortName = name
	}

	m := webManifest{
		Name:            name,
		ShortName:       shortName,
		Description:     theme.Description,
		StartURL:        "/",
		Display:         "standalone",
		ThemeColor:      theme.PrimaryColor,
		BackgroundColor: theme.BackgroundColor,
		Icons:           []manifestIcon{},
	}

	src := theme.FaviconURL
	if src == "" {
		src = theme.LogoURL
	}
	if src == "" {
		return m
	}

	for _, size := range manifestIconSizes {
		m.Icons = append(m.Icons, manifestIcon{Src: src, Sizes: size, Type: iconType(src)})
	}
	return m
}

func iconType(src string) string {
	p := src
	if u, err := url.Parse(src); err == nil {
		p = u.Path
	}
	if t := mime.TypeByExtension(path.Ext(p)); t != "" {
		return t
	}
	return "image/png"
}
