package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x0BSoD/greenwood/internal/cache"
	"github.com/0x0BSoD/greenwood/internal/cms"
	"github.com/0x0BSoD/greenwood/internal/mailer"
	"github.com/0x0BSoD/greenwood/internal/reporter"
	"github.com/0x0BSoD/greenwood/internal/server"
	"github.com/0x0BSoD/greenwood/internal/storage"
	"github.com/0x0BSoD/greenwood/internal/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the website and its API",
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := cache.New(ctx, cache.Options{
		Backend:       cfg.CacheBackend,
		RedisAddr:     cfg.RedisAddr,
		RedisPassword: cfg.RedisPassword,
		RedisDB:       cfg.RedisDB,
	})
	if err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	defer store.Close()

	cmsClient, err := cms.New(cms.Options{
		BaseURL:  cfg.CMSURL,
		MediaURL: cfg.MediaBaseURL(),
		Token:    cfg.CMSToken,
		Timeout:  cfg.CMSTimeout,
		Insecure: cfg.CMSInsecure,
		CacheTTL: cfg.CacheTTL,
	}, store, log)
	if err != nil {
		return err
	}

	alerter := newReporter()

	var emailLog mailer.EmailLog
	if cfg.DatabaseDSN != "" {
		db, err := sqlx.Connect("postgres", cfg.DatabaseDSN)
		if err != nil {
			return fmt.Errorf("connect to db: %w", err)
		}
		defer db.Close()

		s := storage.NewEmailLogStorage(db)
		if err := s.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate email log: %w", err)
		}
		emailLog = s
	}

	smtp := mailer.Config{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		User: cfg.SMTPUser,
		Pass: cfg.SMTPPass,
		To:   cfg.EmailTo,
	}
	if missing := smtp.Missing(); len(missing) > 0 {
		log.Warn("smtp is not configured, /api/emails/send will fail", zap.String("missing", strings.Join(missing, ", ")))
	}

	renderer, err := newRenderer(ctx)
	if err != nil {
		return err
	}

	srv := server.New(
		cmsClient,
		store,
		mailer.New(smtp, emailLog, alerter, log),
		renderer,
		alerter,
		log,
		server.Options{
			AnalyticsID: cfg.AnalyticsID,
			SiteURL:     cfg.SiteURL,
			PageTTL:     cfg.CacheTTL,
		},
	)

	if err := srv.Run(ctx, cfg.ListenAddr); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("run http server: %w", err)
	}

	log.Info("http server stopped")
	return nil
}

// newReporter returns nil when Telegram alerts are not configured.
func newReporter() *reporter.Reporter {
	if cfg.TelegramBotToken == "" || cfg.TelegramAdminChatID == 0 {
		return nil
	}

	botAPI, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		log.Warn("telegram alerts disabled", zap.Error(err))
		return nil
	}

	return reporter.New(botAPI, cfg.TelegramAdminChatID, log)
}

// newRenderer uses the embedded templates unless a template dir is configured.
// With dev reload on, that dir is watched until ctx is done.
func newRenderer(ctx context.Context) (*web.Renderer, error) {
	var fsys fs.FS = web.Templates()
	if cfg.TemplateDir != "" {
		fsys = os.DirFS(cfg.TemplateDir)
	}

	renderer, err := web.NewRenderer(fsys, log)
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	if cfg.DevReload && cfg.TemplateDir != "" {
		go func() {
			if err := renderer.Watch(ctx, cfg.TemplateDir); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("template watcher stopped", zap.Error(err))
			}
		}()
	}

	return renderer, nil
}
