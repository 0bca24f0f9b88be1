package handlers

import (
	"context"
	"log/slog"

	"github.com/BatmanBruc/sub-pay-bot/internal/billing"
	"github.com/BatmanBruc/sub-pay-bot/internal/contextkeys"
	"github.com/BatmanBruc/sub-pay-bot/internal/messages"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/internal/utils"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type PaymentLinks interface {
	CreatePaymentLink(ctx context.Context, req billing.Request) (*billing.Link, error)
}

type SubscriptionChecker interface {
	Active(ctx context.Context, telegramID int64) (*types.Subscription, bool, error)
}

type Handlers struct {
	payments PaymentLinks
	subs     SubscriptionChecker
	plans    *plans.Catalog
	content  bot.HandlerFunc
	log      *slog.Logger
	out      utils.Sender
}

// NewHandlers builds the command handlers. gate wraps /content; a nil gate
// leaves it open.
func NewHandlers(payments PaymentLinks, subs SubscriptionChecker, catalog *plans.Catalog, gate bot.Middleware, logger *slog.Logger) *Handlers {
	if catalog == nil {
		catalog = plans.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	bh := &Handlers{
		payments: payments,
		subs:     subs,
		plans:    catalog,
		log:      logger.With("component", "bot"),
	}
	bh.content = bh.HandleContent
	if gate != nil {
		bh.content = gate(bh.HandleContent)
	}
	return bh
}

func (bh *Handlers) sender(b *bot.Bot) utils.Sender {
	if bh.out != nil {
		return bh.out
	}
	return b
}

func (bh *Handlers) MainHandler(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	chatID := update.Message.Chat.ID
	lang := contextkeys.Lang(ctx)

	user, ok := contextkeys.GetUser(ctx)
	if !ok {
		bh.log.Error("user missing in context", "chat_id", chatID)
		bh.reply(ctx, b, chatID, messages.ErrorDefault(lang), nil)
		return
	}

	messageType, _ := contextkeys.GetMessageType(ctx)
	switch messageType {
	case contextkeys.MessageTypeCommand:
		bh.HandleCommand(ctx, b, update, user)
	case contextkeys.MessageTypeText:
		bh.reply(ctx, b, chatID, messages.Help(lang), nil)
	default:
		bh.reply(ctx, b, chatID, messages.ErrorUnsupportedMessage(lang), nil)
	}
}

func (bh *Handlers) reply(ctx context.Context, b *bot.Bot, chatID int64, text string, kb *models.InlineKeyboardMarkup) {
	params := &bot.SendMessageParams{
		ChatID:    chatID,
		Text:      text,
		ParseMode: messages.ParseModeHTML,
	}
	if kb != nil {
		params.ReplyMarkup = kb
	}
	if _, err := bh.sender(b).SendMessage(ctx, params); err != nil {
		bh.log.Warn("send message failed", "chat_id", chatID, "error", err)
	}
}
