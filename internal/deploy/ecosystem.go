// Package deploy turns the process-manager description in deploy/ecosystem.yaml
// into a systemd unit.
package deploy

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"text/template"

	"github.com/spf13/viper"
)

const (
	RestartAlways    = "always"
	RestartOnFailure = "on-failure"
	RestartNever     = "no"
)

var (
	nameRe   = regexp.MustCompile(`^[A-Za-z0-9_.@-]+$`)
	memoryRe = regexp.MustCompile(`^[0-9]+[KMGT]?$`)
	envKeyRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
)

type App struct {
	Name        string
	Description string
	Exec        string
	Args        []string
	Cwd         string
	User        string
	// Env entries are KEY=VALUE.
	Env         []string
	Restart     string
	MaxRestarts int
	// MaxMemory is a systemd size such as 512M or 1G. Empty means no cap.
	MaxMemory string
	OutLog    string
	ErrorLog  string
}

// Load reads the app description from path. Any key can be overridden with a
// GREENWOOD_DEPLOY_ environment variable, e.g. GREENWOOD_DEPLOY_APP_EXEC.
func Load(path string) (App, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("GREENWOOD_DEPLOY")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("app.name", "greenwood")
	v.SetDefault("app.description", "Greenwood City website")
	v.SetDefault("app.args", []string{"serve"})
	v.SetDefault("app.restart", RestartAlways)
	v.SetDefault("app.max_restarts", 10)

	if err := v.ReadInConfig(); err != nil {
		return App{}, fmt.Errorf("read %s: %w", path, err)
	}

	app := App{
		Name:        strings.TrimSpace(v.GetString("app.name")),
		Description: strings.TrimSpace(v.GetString("app.description")),
		Exec:        strings.TrimSpace(v.GetString("app.exec")),
		Args:        v.GetStringSlice("app.args"),
		Cwd:         strings.TrimSpace(v.GetString("app.cwd")),
		User:        strings.TrimSpace(v.GetString("app.user")),
		Env:         v.GetStringSlice("app.env"),
		Restart:     strings.TrimSpace(v.GetString("app.restart")),
		MaxRestarts: v.GetInt("app.max_restarts"),
		MaxMemory:   strings.ToUpper(strings.TrimSpace(v.GetString("app.max_memory"))),
		OutLog:      strings.TrimSpace(v.GetString("app.out_log")),
		ErrorLog:    strings.TrimSpace(v.GetString("app.error_log")),
	}

	if err := app.Validate(); err != nil {
		return App{}, err
	}
	return app, nil
}

// Validate reports every problem with the description at once.
func (a App) Validate() error {
	var errs []error

	if !nameRe.MatchString(a.Name) {
		errs = append(errs, fmt.Errorf("app.name %q must be a valid unit name", a.Name))
	}
	if a.Exec == "" {
		errs = append(errs, errors.New("app.exec must not be empty"))
	} else if !filepath.IsAbs(a.Exec) {
		errs = append(errs, fmt.Errorf("app.exec %q must be an absolute path", a.Exec))
	}
	if a.Cwd != "" && !filepath.IsAbs(a.Cwd) {
		errs = append(errs, fmt.Errorf("app.cwd %q must be an absolute path", a.Cwd))
	}
	switch a.Restart {
	case RestartAlways, RestartOnFailure, RestartNever:
	default:
		errs = append(errs, fmt.Errorf("app.restart %q must be one of always, on-failure, no", a.Restart))
	}
	if a.MaxRestarts < 0 {
		errs = append(errs, fmt.Errorf("app.max_restarts %d must not be negative", a.MaxRestarts))
	}
	if a.MaxMemory != "" && !memoryRe.MatchString(a.MaxMemory) {
		errs = append(errs, fmt.Errorf("app.max_memory %q must look like 512M or 1G", a.MaxMemory))
	}
	for _, kv := range a.Env {
		key, _, ok := strings.Cut(kv, "=")
		if !ok || !envKeyRe.MatchString(key) {
			errs = append(errs, fmt.Errorf("app.env entry %q must be KEY=VALUE", kv))
		}
	}
	for field, p := range map[string]string{"app.out_log": a.OutLog, "app.error_log": a.ErrorLog} {
		if p != "" && !filepath.IsAbs(p) {
			errs = append(errs, fmt.Errorf("%s %q must be an absolute path", field, p))
		}
	}

	return errors.Join(errs...)
}

var unitTmpl = template.Must(template.New("unit").Funcs(template.FuncMap{
	"quote": quoteArg,
}).Parse(`[Unit]
Description={{.Description}}
After=network-online.target
Wants=network-online.target
{{- if gt .MaxRestarts 0}}
StartLimitIntervalSec=300
StartLimitBurst={{.MaxRestarts}}
{{- end}}

[Service]
Type=simple
{{- with .User}}
User={{.}}
{{- end}}
{{- with .Cwd}}
WorkingDirectory={{.}}
{{- end}}
ExecStart={{.Exec}}{{range .Args}} {{quote .}}{{end}}
{{- range .Env}}
Environment={{quote .}}
{{- end}}
Restart={{.Restart}}
RestartSec=2
{{- with .MaxMemory}}
MemoryMax={{.}}
{{- end}}
{{- with .OutLog}}
StandardOutput=append:{{.}}
{{- end}}
{{- with .ErrorLog}}
StandardError=append:{{.}}
{{- end}}

[Install]
WantedBy=multi-user.target
`))

// RenderSystemd writes the unit file for a.
func RenderSystemd(w io.Writer, a App) error {
	if err := a.Validate(); err != nil {
		return err
	}
	return unitTmpl.Execute(w, a)
}

func quoteArg(s string) string {
	if s != "" && !strings.ContainsAny(s, " \t\"'\\$%") {
		return s
	}
	return strconv.Quote(s)
}
