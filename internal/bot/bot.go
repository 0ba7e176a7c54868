package bot

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/jmoiron/sqlx"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/internal/logger"
	"github.com/example/studybuddy/pkg/models"
)

// sender is the part of tgbotapi.BotAPI the bot talks through
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type updateSource interface {
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Bot delivers review reminders over Telegram and answers a few commands
type Bot struct {
	api     sender
	updates updateSource
	users   *database.UserRepository
	reviews *database.ReviewRepository
	now     func() time.Time
	log     *logger.Logger
}

// New authorizes against the Telegram API with token
func New(token string, db sqlx.ExtContext, log *logger.Logger) (*Bot, error) {
	if token == "" {
		return nil, fmt.Errorf("telegram bot token is not set")
	}
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("unable to create bot: %w", err)
	}
	log.Info("telegram bot authorized", "account", api.Self.UserName)
	b := NewWithAPI(api, db, log)
	b.updates = api
	return b, nil
}

// NewWithAPI builds a bot around an already configured client
func NewWithAPI(api sender, db sqlx.ExtContext, log *logger.Logger) *Bot {
	return &Bot{
		api:     api,
		users:   database.NewUserRepository(db),
		reviews: database.NewReviewRepository(db),
		now:     time.Now,
		log:     log,
	}
}

// SendReminder implements scheduler.Notifier
func (b *Bot) SendReminder(ctx context.Context, target models.ReminderTarget, due []models.DueReview) error {
	if target.TelegramChatID == nil {
		return fmt.Errorf("user %d has no linked chat", target.UserID)
	}
	msg := tgbotapi.NewMessage(*target.TelegramChatID, FormatReminder(target.Username, due))
	if len(due) > 0 {
		msg.ReplyMarkup = doneKeyboard(due)
	}
	if _, err := b.api.Send(msg); err != nil {
		return fmt.Errorf("failed to send reminder to user %d: %w", target.UserID, err)
	}
	b.log.Info("reminder sent", "user_id", target.UserID, "due", len(due))
	return nil
}

// Listen handles incoming updates until ctx is cancelled
func (b *Bot) Listen(ctx context.Context) error {
	if b.updates == nil {
		return fmt.Errorf("bot has no update source")
	}
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := b.updates.GetUpdatesChan(updateConfig)
	defer b.updates.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.HandleUpdate(ctx, update)
		}
	}
}

func (b *Bot) reply(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.log.Warn("failed to send message", "chat_id", chatID, "error", err)
	}
}
