package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/example/studybuddy/internal/database"
	"github.com/example/studybuddy/pkg/models"
)

const donePrefix = "done:"

const welcomeText = `Welcome to StudyBuddy!

Link this chat to your account to get daily review reminders:
/link <username> <password>

Other commands:
/due - reviews due today
/done <review id> - mark a review as done
/stats - your review progress`

// HandleUpdate dispatches a single Telegram update
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	switch {
	case update.Message != nil && update.Message.IsCommand():
		b.handleCommand(ctx, update.Message)
	case update.Message != nil:
		b.reply(update.Message.Chat.ID, "I don't understand. Use /start to see the commands.")
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	}
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID
	switch message.Command() {
	case "start", "help":
		b.reply(chatID, welcomeText)
	case "link":
		b.handleLink(ctx, chatID, message.CommandArguments())
	case "due":
		b.handleDue(ctx, chatID)
	case "done":
		b.handleDone(ctx, chatID, message.CommandArguments())
	case "stats":
		b.handleStats(ctx, chatID)
	default:
		b.reply(chatID, "Unknown command. Use /start to see the commands.")
	}
}

func (b *Bot) handleLink(ctx context.Context, chatID int64, args string) {
	fields := strings.Fields(args)
	if len(fields) != 2 {
		b.reply(chatID, "Usage: /link <username> <password>")
		return
	}
	user, err := b.users.Authenticate(ctx, fields[0], fields[1])
	if errors.Is(err, database.ErrInvalidCredentials) {
		b.reply(chatID, "Wrong username or password.")
		return
	}
	if err == nil {
		err = b.users.SetTelegramChatID(ctx, user.ID, chatID)
	}
	if err != nil {
		b.log.Error("failed to link chat", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}
	b.log.Info("telegram chat linked", "user_id", user.ID, "chat_id", chatID)
	b.reply(chatID, fmt.Sprintf("Linked to %s. You will get a reminder when reviews are due.", user.Username))
}

// linkedUser resolves the account for a chat and tells the chat when there is none
func (b *Bot) linkedUser(ctx context.Context, chatID int64) (*models.User, bool) {
	user, err := b.users.GetByTelegramChatID(ctx, chatID)
	if errors.Is(err, database.ErrNotFound) {
		b.reply(chatID, "This chat is not linked yet. Use /link <username> <password>.")
		return nil, false
	}
	if err != nil {
		b.log.Error("failed to resolve chat", "chat_id", chatID, "error", err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return nil, false
	}
	return user, true
}

func (b *Bot) handleDue(ctx context.Context, chatID int64) {
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	due, err := b.reviews.DueForUser(ctx, user.ID, models.FormatDate(b.now()))
	if err != nil {
		b.log.Error("failed to load due reviews", "user_id", user.ID, "error", err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}
	if len(due) == 0 {
		b.reply(chatID, "Nothing to review today.")
		return
	}
	msg := tgbotapi.NewMessage(chatID, FormatReminder(user.Username, due))
	msg.ReplyMarkup = doneKeyboard(due)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Warn("failed to send due list", "chat_id", chatID, "error", err)
	}
}

func (b *Bot) handleDone(ctx context.Context, chatID int64, args string) {
	reviewID, err := strconv.ParseInt(strings.TrimSpace(args), 10, 64)
	if err != nil {
		b.reply(chatID, "Usage: /done <review id>")
		return
	}
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	b.reply(chatID, b.markDone(ctx, user.ID, reviewID))
}

func (b *Bot) handleStats(ctx context.Context, chatID int64) {
	user, ok := b.linkedUser(ctx, chatID)
	if !ok {
		return
	}
	stats, err := b.reviews.Stats(ctx, user.ID)
	if err != nil {
		b.log.Error("failed to load stats", "user_id", user.ID, "error", err)
		b.reply(chatID, "Something went wrong, please try again later.")
		return
	}
	b.reply(chatID, fmt.Sprintf("Reviews done: %d of %d", stats.Done, stats.Total))
}

func (b *Bot) handleCallbackQuery(ctx context.Context, callback *tgbotapi.CallbackQuery) {
	if callback.Message == nil || !strings.HasPrefix(callback.Data, donePrefix) {
		return
	}
	answer := "Unknown action"
	if reviewID, err := strconv.ParseInt(strings.TrimPrefix(callback.Data, donePrefix), 10, 64); err == nil {
		if user, ok := b.linkedUser(ctx, callback.Message.Chat.ID); ok {
			answer = b.markDone(ctx, user.ID, reviewID)
		}
	}
	if _, err := b.api.Request(tgbotapi.NewCallback(callback.ID, answer)); err != nil {
		b.log.Warn("failed to answer callback", "error", err)
	}
}

func (b *Bot) markDone(ctx context.Context, userID, reviewID int64) string {
	err := b.reviews.MarkDone(ctx, userID, reviewID)
	switch {
	case errors.Is(err, database.ErrNotFound):
		return fmt.Sprintf("Review #%d not found.", reviewID)
	case err != nil:
		b.log.Error("failed to mark review done", "user_id", userID, "review_id", reviewID, "error", err)
		return "Something went wrong, please try again later."
	}
	return fmt.Sprintf("Review #%d marked as done.", reviewID)
}

// FormatReminder renders the list of reviews due today
func FormatReminder(username string, due []models.DueReview) string {
	var sb strings.Builder
	noun := "reviews"
	if len(due) == 1 {
		noun = "review"
	}
	if username != "" {
		fmt.Fprintf(&sb, "Hi %s! ", username)
	}
	fmt.Fprintf(&sb, "You have %d %s due today:\n", len(due), noun)
	for _, d := range due {
		fmt.Fprintf(&sb, "\n#%d %s", d.ReviewID, d.Title)
		if notes := strings.TrimSpace(d.Notes); notes != "" {
			fmt.Fprintf(&sb, " (%s)", notes)
		}
	}
	return sb.String()
}

func doneKeyboard(due []models.DueReview) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for _, d := range due {
		label := fmt.Sprintf("Done: %s", d.Title)
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, donePrefix+strconv.FormatInt(d.ReviewID, 10)),
		))
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
