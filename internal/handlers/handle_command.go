package handlers

import (
	"context"

	"github.com/BatmanBruc/sub-pay-bot/internal/contextkeys"
	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/messages"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

func (bh *Handlers) HandleCommand(ctx context.Context, b *bot.Bot, update *models.Update, user *types.User) {
	chatID := update.Message.Chat.ID
	lang := contextkeys.Lang(ctx)
	cmd, _ := contextkeys.GetCommand(ctx)

	switch cmd {
	case "/start":
		bh.handleStart(ctx, b, chatID, user, lang)
	case "/pay":
		bh.handlePay(ctx, b, chatID, user, lang)
	case "/status":
		bh.handleStatus(ctx, b, chatID, user, lang)
	case "/content":
		bh.content(ctx, b, update)
	case "/help":
		bh.reply(ctx, b, chatID, messages.Help(lang), nil)
	default:
		bh.reply(ctx, b, chatID, messages.ErrorUnknownCommand(lang), nil)
	}
}

func (bh *Handlers) handleStart(ctx context.Context, b *bot.Bot, chatID int64, user *types.User, lang i18n.Lang) {
	sub, active, err := bh.subs.Active(ctx, user.TelegramID)
	if err != nil {
		bh.log.Error("subscription lookup failed", "telegram_id", user.TelegramID, "error", err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault(lang), nil)
		return
	}
	if active {
		bh.reply(ctx, b, chatID, messages.WelcomeActive(lang, user.Username, sub.ExpiresAt), nil)
		return
	}

	kb := bh.payKeyboard(ctx, user, lang)
	if kb == nil {
		bh.reply(ctx, b, chatID, messages.Welcome(lang, user.Username)+"\n\n"+messages.PayHint(lang), nil)
		return
	}
	bh.reply(ctx, b, chatID, messages.Welcome(lang, user.Username), kb)
}

func (bh *Handlers) handlePay(ctx context.Context, b *bot.Bot, chatID int64, user *types.User, lang i18n.Lang) {
	kb, err := bh.plansKeyboard(ctx, user, lang)
	if err != nil {
		bh.log.Error("prepare payment links failed", "telegram_id", user.TelegramID, "error", err)
		bh.reply(ctx, b, chatID, messages.ErrorPaymentLink(lang), nil)
		return
	}
	bh.reply(ctx, b, chatID, messages.ChoosePlan(lang), kb)
}

func (bh *Handlers) handleStatus(ctx context.Context, b *bot.Bot, chatID int64, user *types.User, lang i18n.Lang) {
	sub, active, err := bh.subs.Active(ctx, user.TelegramID)
	if err != nil {
		bh.log.Error("subscription lookup failed", "telegram_id", user.TelegramID, "error", err)
		bh.reply(ctx, b, chatID, messages.ErrorDefault(lang), nil)
		return
	}
	if active {
		bh.reply(ctx, b, chatID, messages.StatusActive(lang, sub), nil)
		return
	}
	kb := bh.payKeyboard(ctx, user, lang)
	if kb == nil {
		bh.reply(ctx, b, chatID, messages.StatusInactive(lang)+"\n\n"+messages.PayHint(lang), nil)
		return
	}
	bh.reply(ctx, b, chatID, messages.StatusInactive(lang), kb)
}

func (bh *Handlers) HandleContent(ctx context.Context, b *bot.Bot, update *models.Update) {
	if update.Message == nil {
		return
	}
	bh.reply(ctx, b, update.Message.Chat.ID, messages.Content(contextkeys.Lang(ctx)), nil)
}
