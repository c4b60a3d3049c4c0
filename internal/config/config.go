package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfighcl"
	"github.com/joho/godotenv"
)

type Config struct {
	ListenAddr  string `hcl:"listen_addr" env:"LISTEN_ADDR" default:"127.0.0.1:3000"`
	Environment string `hcl:"environment" env:"APP_ENV" default:"development"`
	LogLevel    string `hcl:"log_level" env:"LOG_LEVEL" default:"info"`

	CMSURL       string        `hcl:"cms_url" env:"STRAPI_URL" default:"http://localhost:1337"`
	CMSPublicURL string        `hcl:"cms_public_url" env:"STRAPI_PUBLIC_URL"`
	CMSToken     string        `hcl:"cms_token" env:"STRAPI_API_TOKEN"`
	CMSTimeout   time.Duration `hcl:"cms_timeout" env:"STRAPI_TIMEOUT" default:"10s"`
	CMSInsecure  bool          `hcl:"cms_insecure" env:"STRAPI_INSECURE"`

	CacheBackend  string        `hcl:"cache_backend" env:"CACHE_BACKEND" default:"memory"`
	CacheTTL      time.Duration `hcl:"cache_ttl" env:"CACHE_TTL" default:"1h"`
	RedisAddr     string        `hcl:"redis_addr" env:"REDIS_ADDR" default:"localhost:6379"`
	RedisPassword string        `hcl:"redis_password" env:"REDIS_PASSWORD"`
	RedisDB       int           `hcl:"redis_db" env:"REDIS_DB"`

	// DatabaseDSN enables the email log. Leave empty to disable it.
	DatabaseDSN string `hcl:"database_dsn" env:"DATABASE_DSN"`

	SMTPHost string `hcl:"smtp_host" env:"SMTP_HOST"`
	SMTPPort string `hcl:"smtp_port" env:"SMTP_PORT"`
	SMTPUser string `hcl:"smtp_user" env:"SMTP_USER"`
	SMTPPass string `hcl:"smtp_pass" env:"SMTP_PASS"`
	EmailTo  string `hcl:"email_to" env:"EMAIL_TO"`

	TelegramBotToken    string `hcl:"telegram_bot_token" env:"TELEGRAM_BOT_TOKEN"`
	TelegramAdminChatID int64  `hcl:"telegram_admin_chat_id" env:"TELEGRAM_ADMIN_CHAT_ID"`

	AnalyticsID string `hcl:"analytics_id" env:"ANALYTICS_ID"`
	// SiteURL is the public origin used for absolute links in the news feed.
	SiteURL string `hcl:"site_url" env:"SITE_URL"`

	TemplateDir string `hcl:"template_dir" env:"TEMPLATE_DIR"`
	DevReload   bool   `hcl:"dev_reload" env:"DEV_RELOAD"`

	CleanPaths []string `hcl:"clean_paths" env:"CLEAN_PATHS" default:"bin,.cache"`
}

func (c Config) IsProduction() bool {
	return c.Environment == "production"
}

// MediaBaseURL is the origin media URLs are resolved against.
func (c Config) MediaBaseURL() string {
	if c.CMSPublicURL != "" {
		return c.CMSPublicURL
	}
	return c.CMSURL
}

var (
	cfg  Config
	once sync.Once
)

func Get() Config {
	once.Do(func() {
		var err error
		cfg, err = Load()
		if err != nil {
			slog.Error("failed to load config", "err", err)
		}
	})

	return cfg
}

// Load reads .env, the HCL files and the environment into a fresh Config.
func Load(files ...string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("failed to read .env", "err", err)
	}

	if len(files) == 0 {
		files = []string{"./config.hcl", "./config.local.hcl", "$HOME/.config/greenwood/config.hcl"}
	}

	var c Config
	loader := aconfig.LoaderFor(&c, aconfig.Config{
		SkipFlags:        true,
		AllowUnknownEnvs: true,
		Files:            files,
		FileDecoders: map[string]aconfig.FileDecoder{
			".hcl": aconfighcl.New(),
		},
	})

	if err := loader.Load(); err != nil {
		return c, err
	}

	return c, nil
}
