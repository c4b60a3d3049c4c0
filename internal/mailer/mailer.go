// Package mailer relays messages submitted through the site to the RWA inbox over SMTP.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"github.com/0x0BSoD/greenwood/internal/metrics"
	"github.com/0x0BSoD/greenwood/internal/model"
)

var ErrMissingConfig = errors.New("missing required SMTP environment variables")

// Config mirrors the five SMTP environment variables. All are required.
type Config struct {
	Host string
	Port string
	User string
	Pass string
	To   string
}

// Missing lists the environment variables that are not set.
func (c Config) Missing() []string {
	var missing []string
	for _, v := range []struct{ name, value string }{
		{"SMTP_HOST", c.Host},
		{"SMTP_PORT", c.Port},
		{"SMTP_USER", c.User},
		{"SMTP_PASS", c.Pass},
		{"EMAIL_TO", c.To},
	} {
		if strings.TrimSpace(v.value) == "" {
			missing = append(missing, v.name)
		}
	}
	return missing
}

type Message struct {
	Subject string
	Text    string
	HTML    string
}

type Dialer interface {
	DialAndSend(m ...*gomail.Message) error
}

type EmailLog interface {
	Record(ctx context.Context, entry model.EmailLogEntry) error
}

type Alerter interface {
	Notify(msg string)
}

type Mailer struct {
	cfg       Config
	newDialer func(host string, port int, user, pass string) Dialer
	emailLog  EmailLog
	alerter   Alerter
	log       *zap.Logger
}

// New builds a Mailer. emailLog and alerter may be nil.
func New(cfg Config, emailLog EmailLog, alerter Alerter, log *zap.Logger) *Mailer {
	return &Mailer{
		cfg: cfg,
		newDialer: func(host string, port int, user, pass string) Dialer {
			return gomail.NewDialer(host, port, user, pass)
		},
		emailLog: emailLog,
		alerter:  alerter,
		log:      log.Named("email"),
	}
}

func (m *Mailer) Send(ctx context.Context, msg Message) error {
	err := m.send(ctx, msg)

	entry := model.EmailLogEntry{
		Subject:   msg.Subject,
		Recipient: m.cfg.To,
		Status:    model.EmailStatusSent,
	}
	if err != nil {
		entry.Status = model.EmailStatusFailed
		entry.Error = err.Error()
		metrics.EmailsTotal.WithLabelValues(model.EmailStatusFailed).Inc()
		m.log.Error("failed to send email", zap.String("subject", msg.Subject), zap.Error(err))
		if m.alerter != nil {
			m.alerter.Notify(fmt.Sprintf("Email relay failed (%q): %v", msg.Subject, err))
		}
	} else {
		metrics.EmailsTotal.WithLabelValues(model.EmailStatusSent).Inc()
		m.log.Info("email sent", zap.String("subject", msg.Subject))
	}

	if m.emailLog != nil {
		if logErr := m.emailLog.Record(ctx, entry); logErr != nil {
			m.log.Warn("failed to record email attempt", zap.Error(logErr))
		}
	}

	return err
}

func (m *Mailer) send(ctx context.Context, msg Message) error {
	if missing := m.cfg.Missing(); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingConfig, strings.Join(missing, ", "))
	}

	port, err := strconv.Atoi(strings.TrimSpace(m.cfg.Port))
	if err != nil || port <= 0 || port > 65535 {
		return fmt.Errorf("invalid SMTP_PORT %q", m.cfg.Port)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := m.newDialer(m.cfg.Host, port, m.cfg.User, m.cfg.Pass).DialAndSend(buildMessage(m.cfg, msg)); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}

	return nil
}

func buildMessage(cfg Config, msg Message) *gomail.Message {
	gm := gomail.NewMessage()
	gm.SetHeader("From", cfg.User)
	gm.SetHeader("To", cfg.To)
	gm.SetHeader("Subject", msg.Subject)

	switch {
	case msg.Text != "" && msg.HTML != "":
		gm.SetBody("text/plain", msg.Text)
		gm.AddAlternative("text/html", msg.HTML)
	case msg.HTML != "":
		gm.SetBody("text/html", msg.HTML)
	default:
		gm.SetBody("text/plain", msg.Text)
	}

	return gm
}
