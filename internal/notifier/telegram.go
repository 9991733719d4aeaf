package notifier

import (
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/amishk599/jobharvest/internal/model"
)

// Ensure TelegramNotifier implements model.Notifier.
var _ model.Notifier = (*TelegramNotifier)(nil)

// TelegramNotifier sends posting alerts to one Telegram chat.
type TelegramNotifier struct {
	bot    *tgbotapi.BotAPI
	chatID int64
	logger *slog.Logger
}

// NewTelegramNotifier authenticates the bot against the public API.
func NewTelegramNotifier(token string, chatID int64, logger *slog.Logger) (*TelegramNotifier, error) {
	return NewTelegramNotifierWithEndpoint(token, chatID, tgbotapi.APIEndpoint, http.DefaultClient, logger)
}

// NewTelegramNotifierWithEndpoint is NewTelegramNotifier against a custom
// endpoint of the form "https://host/bot%s/%s".
func NewTelegramNotifierWithEndpoint(token string, chatID int64, endpoint string, client *http.Client, logger *slog.Logger) (*TelegramNotifier, error) {
	bot, err := tgbotapi.NewBotAPIWithClient(token, endpoint, client)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	return &TelegramNotifier{bot: bot, chatID: chatID, logger: logger}, nil
}

// Notify sends one HTML message per record. Returns an error only if ALL
// messages fail.
func (t *TelegramNotifier) Notify(site string, records []model.Record) error {
	if len(records) == 0 {
		return nil
	}

	failures := 0
	for _, r := range records {
		msg := tgbotapi.NewMessage(t.chatID, formatMessage(site, r))
		msg.ParseMode = tgbotapi.ModeHTML
		msg.DisableWebPagePreview = true
		if _, err := t.bot.Send(msg); err != nil {
			t.logger.Error("telegram notification failed", "site", site, "title", r.Get(model.FieldTitle), "error", err)
			failures++
		}
	}

	if failures == len(records) {
		return fmt.Errorf("all %d telegram notifications failed", failures)
	}
	t.logger.Info("telegram notifications complete", "site", site, "sent", len(records)-failures, "failed", failures)
	return nil
}

func formatMessage(site string, r model.Record) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🔥 <b>%s</b>\n", html.EscapeString(r.Get(model.FieldTitle)))
	line := func(icon, field string) {
		if v := r.Get(field); v != "" {
			fmt.Fprintf(&b, "%s %s\n", icon, html.EscapeString(v))
		}
	}
	line("🏢", model.FieldCompany)
	line("💰", model.FieldSalary)
	line("📍", model.FieldLocation)
	line("📅", model.FieldPostingDate)
	fmt.Fprintf(&b, "🌐 %s", html.EscapeString(site))
	if link := applyLink(r); link != "" {
		fmt.Fprintf(&b, "\n🔗 <a href=\"%s\">Aplicar</a>", html.EscapeString(link))
	}
	return b.String()
}
