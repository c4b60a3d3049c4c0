package reporter

import (
	"go.uber.org/zap"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Sender is the part of *tgbotapi.BotAPI the reporter uses.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Reporter sends short operational alerts (failed email relays, CMS outages)
// to a Telegram admin chat. It is nil-safe: if adminID is 0 or the receiver is
// nil, Notify is a no-op.
type Reporter struct {
	bot     Sender
	adminID int64
	log     *zap.Logger
}

func New(bot Sender, adminID int64, log *zap.Logger) *Reporter {
	return &Reporter{bot: bot, adminID: adminID, log: log.Named("reporter")}
}

func (r *Reporter) Notify(msg string) {
	if r == nil || r.adminID == 0 || r.bot == nil {
		return
	}
	if _, err := r.bot.Send(tgbotapi.NewMessage(r.adminID, msg)); err != nil {
		r.log.Error("failed to send alert", zap.Error(err))
	}
}
