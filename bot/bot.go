// Package bot is the Telegram front-end: a long-polling loop that feeds
// inbound messages through the dialog handler one at a time.
package bot

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/pkg/errors"

	"github.com/smuassist/learnmate/auth"
	"github.com/smuassist/learnmate/bot/metrics"
	"github.com/smuassist/learnmate/dialog"
)

const pollTimeoutSeconds = 60

// Config wires the bot's collaborators.
type Config struct {
	Token   string
	Handler *dialog.Handler
	Auth    *auth.Client // optional; enables /login
	Metrics *metrics.Collector
}

// Bot runs the Telegram polling loop and command handlers.
type Bot struct {
	api     *tgbotapi.BotAPI
	handler *dialog.Handler
	auth    *auth.Client
	metrics *metrics.Collector
}

// New connects to the Telegram Bot API.
func New(cfg Config) (*Bot, error) {
	if cfg.Token == "" {
		return nil, errors.New("telegram bot token required")
	}
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, errors.Wrap(err, "create telegram bot")
	}
	slog.Info("bot: authorized", "username", api.Self.UserName)

	return &Bot{
		api:     api,
		handler: cfg.Handler,
		auth:    cfg.Auth,
		metrics: cfg.Metrics,
	}, nil
}

// Run polls for updates until the context is canceled. Messages are processed
// sequentially; there is no internal scheduler.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeoutSeconds
	updates := b.api.GetUpdatesChan(u)

	slog.Info("bot: polling for updates")
	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			slog.Info("bot: polling stopped")
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(ctx, update)
		}
	}
}

func (b *Bot) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" {
		return
	}

	userID := strconv.FormatInt(msg.From.ID, 10)
	b.metrics.RecordUserActivity(userID)
	b.metrics.RecordMessage("user")

	start := time.Now()
	var reply string
	var handlerName string

	if msg.IsCommand() {
		handlerName = "command_" + msg.Command()
		reply = b.handleCommand(ctx, msg, userID)
	} else {
		handlerName = "message"
		reply = b.handler.ProcessMessage(ctx, userID, msg.Text)
	}
	b.metrics.ObserveResponseTime(handlerName, time.Since(start))

	if reply == "" {
		return
	}
	b.send(msg.Chat.ID, reply)
}

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message, userID string) string {
	switch msg.Command() {
	case "start":
		return fmt.Sprintf(
			"Hi %s! I am the SMU Master's Program AI Learning Assistant. "+
				"I can help you with course information, assignments, and learning materials. "+
				"Type /help to see what I can do.", msg.From.FirstName)

	case "help":
		return "I can help you with your SMU Master's Program courses. Here's what you can ask me:\n\n" +
			"- Course information (e.g., 'Tell me about IS621')\n" +
			"- Assignments and deadlines (e.g., 'What are the assignments for IS621?')\n" +
			"- Learning materials (e.g., 'Show me learning materials for IS621')\n" +
			"- Course schedule (e.g., 'When is the next IS621 class?')\n\n" +
			"Type your question and I'll do my best to help!"

	case "login":
		return b.loginReply(ctx, userID)

	case "stats":
		s := b.metrics.Snapshot()
		return fmt.Sprintf(
			"Bot Statistics:\n\n"+
				"Usage:\n"+
				"- Total Messages: %d\n"+
				"- Total Users: %d\n\n"+
				"Performance:\n"+
				"- Average Response Time: %.2f ms\n"+
				"- Error Rate: %.2f%%\n",
			s.MessageCount, s.UserCount, s.AvgResponseMs, s.ErrorRate*100)

	default:
		return "I don't recognize that command. Type /help to see what I can do."
	}
}

// loginReply short-circuits when the user is already verified, otherwise
// hands out the login link. An unreachable auth service still yields the
// link: logging in can never be blocked by an outage.
func (b *Bot) loginReply(ctx context.Context, userID string) string {
	if b.auth == nil {
		return "Authentication is not configured on this instance."
	}

	authenticated, err := b.auth.Verify(ctx, userID)
	if err != nil {
		slog.Warn("bot: auth verify failed during /login", "error", err)
		b.metrics.RecordError("auth_verify")
	}
	if authenticated {
		return "You are already authenticated. You can continue using the bot."
	}

	return fmt.Sprintf(
		"Please authenticate using your SMU email address by clicking the link below:\n\n%s\n\n"+
			"You need to authenticate to use the full features of this bot.",
		b.auth.LoginURL(userID))
}

func (b *Bot) send(chatID int64, text string) {
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		slog.Error("bot: failed to send reply", "chat_id", chatID, "error", err)
		b.metrics.RecordError("send")
		return
	}
	b.metrics.RecordMessage("bot")
}
