package middleware

import (
	"context"
	"log/slog"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/BatmanBruc/sub-pay-bot/internal/contextkeys"
	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/messages"
	"github.com/BatmanBruc/sub-pay-bot/internal/utils"
	"github.com/BatmanBruc/sub-pay-bot/types"
)

type SubscriptionChecker interface {
	Active(ctx context.Context, telegramID int64) (*types.Subscription, bool, error)
}

// LockedReply renders the answer for a user without access.
type LockedReply func(ctx context.Context, user *types.User) (string, *models.InlineKeyboardMarkup)

type Middlewares struct {
	users  types.UserStore
	subs   SubscriptionChecker
	locked LockedReply
	log    *slog.Logger
	out    utils.Sender
}

func NewMiddlewares(users types.UserStore, subs SubscriptionChecker, logger *slog.Logger) *Middlewares {
	if logger == nil {
		logger = slog.Default()
	}
	return &Middlewares{
		users: users,
		subs:  subs,
		log:   logger.With("component", "bot"),
	}
}

// OnLocked sets the reply used by RequireSubscription. Without it a plain
// locked notice is sent.
func (m *Middlewares) OnLocked(fn LockedReply) {
	m.locked = fn
}

func (m *Middlewares) sender(b *bot.Bot) utils.Sender {
	if m.out != nil {
		return m.out
	}
	return b
}

// EnsureUser creates the user on first contact and keeps the stored handle
// fresh. Updates without a sender are dropped.
func (m *Middlewares) EnsureUser(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil || update.Message.From == nil {
			return
		}
		from := update.Message.From
		chatID := update.Message.Chat.ID
		if from.ID == 0 || chatID == 0 {
			return
		}
		lang := i18n.FromLanguageCode(from.LanguageCode)

		user, err := m.users.UpsertUser(ctx, from.ID, strings.TrimSpace(from.Username))
		if err != nil {
			m.log.Error("upsert user failed", "telegram_id", from.ID, "error", err)
			_, _ = m.sender(b).SendMessage(ctx, &bot.SendMessageParams{
				ChatID:    chatID,
				Text:      messages.ErrorDefault(lang),
				ParseMode: messages.ParseModeHTML,
			})
			return
		}

		ctx = contextkeys.WithLang(ctx, lang)
		ctx = contextkeys.WithUser(ctx, user)
		next(ctx, b, update)
	}
}

func (m *Middlewares) AnalyzeMessageMiddleware(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			next(ctx, b, update)
			return
		}
		if cmd, _, ok := utils.ParseCommand(update.Message.Text); ok {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeCommand)
			ctx = contextkeys.WithCommand(ctx, cmd)
		} else if strings.TrimSpace(update.Message.Text) != "" {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeText)
		} else {
			ctx = contextkeys.WithMessageType(ctx, contextkeys.MessageTypeUnknown)
		}
		next(ctx, b, update)
	}
}

// RequireSubscription lets the update through only for users with an active
// subscription and puts that subscription into the context.
func (m *Middlewares) RequireSubscription(next bot.HandlerFunc) bot.HandlerFunc {
	return func(ctx context.Context, b *bot.Bot, update *models.Update) {
		if update.Message == nil {
			return
		}
		chatID := update.Message.Chat.ID
		lang := contextkeys.Lang(ctx)
		user, ok := contextkeys.GetUser(ctx)
		if !ok {
			m.log.Error("user missing in context", "chat_id", chatID)
			m.reply(ctx, b, chatID, messages.ErrorDefault(lang), nil)
			return
		}

		sub, active, err := m.subs.Active(ctx, user.TelegramID)
		if err != nil {
			m.log.Error("subscription lookup failed", "telegram_id", user.TelegramID, "error", err)
			m.reply(ctx, b, chatID, messages.ErrorDefault(lang), nil)
			return
		}
		if !active {
			text, kb := messages.ContentLocked(lang), (*models.InlineKeyboardMarkup)(nil)
			if m.locked != nil {
				text, kb = m.locked(ctx, user)
			}
			m.reply(ctx, b, chatID, text, kb)
			return
		}

		next(contextkeys.WithSubscription(ctx, sub), b, update)
	}
}

func (m *Middlewares) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := m.sender(b).SendMessage(ctx, params); err != nil {
		m.log.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}
