// Package server wires the HTTP surface of the site: server-rendered pages,
// the JSON API routes, the web app manifest and the operational endpoints.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync/atomic"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/mailer"
	"github.com/0x0BSoD/greenwood/internal/model"
	"github.com/0x0BSoD/greenwood/internal/web"
)

type ContentSource interface {
	News(ctx context.Context) ([]model.News, error)
	NewsBySlug(ctx context.Context, slug string) (model.News, error)
	UpcomingEvents(ctx context.Context, now time.Time) ([]model.Event, error)
	PastEvents(ctx context.Context, now time.Time) ([]model.Event, error)
	Gallery(ctx context.Context) ([]model.GalleryItem, error)
	Notifications(ctx context.Context) ([]model.Notification, error)
	NotificationsCreatedSince(ctx context.Context, since time.Time) ([]model.Notification, error)
	Policies(ctx context.Context) ([]model.Policy, error)
	PolicyBySlug(ctx context.Context, slug string) (model.Policy, error)
	RWAMembers(ctx context.Context) ([]model.RWAMember, error)
	Theme(ctx context.Context) (model.Theme, error)
}

type EmailSender interface {
	Send(ctx context.Context, msg mailer.Message) error
}

type Alerter interface {
	Notify(msg string)
}

type Options struct {
	AnalyticsID string
	// SiteURL is the public origin used in feed links. Empty means derive it from the request.
	SiteURL string
	PageTTL time.Duration
	Now     func() time.Time
}

type Server struct {
	router   *gin.Engine
	content  ContentSource
	cache    cache.Store
	mailer   EmailSender
	renderer *web.Renderer
	alerter  Alerter
	log      *zap.Logger
	opts     Options

	lastMaintenanceAlert atomic.Int64
}

// New builds the gin engine and registers every route. alerter may be nil.
func New(
	content ContentSource,
	store cache.Store,
	sender EmailSender,
	renderer *web.Renderer,
	alerter Alerter,
	log *zap.Logger,
	opts Options,
) *Server {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	s := &Server{
		content:  content,
		cache:    store,
		mailer:   sender,
		renderer: renderer,
		alerter:  alerter,
		log:      log,
		opts:     opts,
	}

	router := gin.New()
	router.Use(ginzap.Ginzap(log.Named("http"), time.RFC3339, true))
	router.Use(ginzap.RecoveryWithZap(log.Named("http"), true))
	router.Use(requestID())
	router.Use(metricsMiddleware())
	router.Use(apiCORS())

	s.router = router
	s.registerRoutes()

	return s
}

func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) registerRoutes() {
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/api")
	{
		api.POST("/emails/send", s.sendEmail)
		api.GET("/events/upcoming", s.upcomingEvents)
		api.GET("/notifications/count", s.notificationsCount)
		api.POST("/revalidate", s.revalidate)
	}

	s.router.GET("/manifest.webmanifest", s.manifest)
	s.router.GET("/sw.js", s.serviceWorker)
	s.router.StaticFS("/static", http.FS(web.Static()))

	s.router.GET("/", s.home)
	s.router.GET("/news", s.newsList)
	s.router.GET("/news/rss.xml", s.newsFeed)
	s.router.GET("/news/:slug", s.newsDetail)
	s.router.GET("/events", s.events)
	s.router.GET("/gallery", s.gallery)
	s.router.GET("/notifications", s.notifications)
	s.router.GET("/policies", s.policies)
	s.router.GET("/policies/:slug", s.policyDetail)
	s.router.GET("/rwa", s.rwa)
	s.router.GET("/maintenance", func(c *gin.Context) {
		s.renderMaintenance(c)
	})
	s.router.NoRoute(s.notFound)
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return ctx.Err()
}
