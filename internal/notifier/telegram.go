package notifier

import (
	"context"
	"log"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	tgmodels "github.com/go-telegram/bot/models"

	"github.com/good-yellow-bee/firewatch/internal/models"
	"github.com/good-yellow-bee/firewatch/internal/settings"
)

// sendTimeout bounds the outbound Telegram call.
const sendTimeout = 30 * time.Second

// TelegramNotifier posts alert messages to a Telegram chat. The bot client
// is built lazily and cached until the token changes.
type TelegramNotifier struct {
	mu          sync.Mutex
	client      *tgbot.Bot
	cachedToken string
}

// NewTelegramNotifier creates an uninitialized notifier; the client is
// constructed on first send.
func NewTelegramNotifier() *TelegramNotifier {
	return &TelegramNotifier{}
}

// Notify renders and sends one alert message. Returns true only when the
// Telegram API accepted the message.
func (t *TelegramNotifier) Notify(ctx context.Context, cfg settings.Settings, incident *models.Incident) bool {
	if cfg.TelegramBotToken == "" || cfg.TelegramChatID == "" {
		log.Printf("notifier: telegram not configured, skipping alert for %s", incident.ResourceKey)
		return false
	}

	client, err := t.bot(cfg.TelegramBotToken)
	if err != nil {
		log.Printf("notifier: init telegram client: %v", err)
		return false
	}

	sendCtx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	msg, err := client.SendMessage(sendCtx, &tgbot.SendMessageParams{
		ChatID:    cfg.TelegramChatID,
		Text:      BuildMessage(incident),
		ParseMode: tgmodels.ParseModeHTML,
	})
	if err != nil {
		log.Printf("notifier: telegram send failed for %s: %v", incident.ResourceKey, err)
		return false
	}
	if msg == nil || msg.ID == 0 {
		log.Printf("notifier: telegram did not acknowledge alert for %s", incident.ResourceKey)
		return false
	}
	return true
}

// bot returns the cached client, rebuilding it when the token changed.
func (t *TelegramNotifier) bot(token string) (*tgbot.Bot, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.client != nil && t.cachedToken == token {
		return t.client, nil
	}

	client, err := tgbot.New(token, tgbot.WithSkipGetMe())
	if err != nil {
		return nil, err
	}
	t.client = client
	t.cachedToken = token
	return client, nil
}
