package handlers

import (
	"context"
	"errors"
	"fmt"

	"github.com/BatmanBruc/sub-pay-bot/internal/billing"
	"github.com/BatmanBruc/sub-pay-bot/internal/contextkeys"
	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/messages"
	"github.com/BatmanBruc/sub-pay-bot/internal/utils"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot/models"
)

func (bh *Handlers) link(ctx context.Context, user *types.User, planID types.PlanID) (*billing.Link, error) {
	return bh.payments.CreatePaymentLink(ctx, billing.Request{
		TelegramID: user.TelegramID,
		Username:   user.Username,
		PlanID:     planID,
	})
}

// payKeyboard returns a single "Pay" button for the basic plan, or nil when
// the link cannot be issued.
func (bh *Handlers) payKeyboard(ctx context.Context, user *types.User, lang i18n.Lang) *models.InlineKeyboardMarkup {
	l, err := bh.link(ctx, user, types.PlanBasic)
	if err != nil {
		bh.log.Warn("basic payment link failed", "telegram_id", user.TelegramID, "error", err)
		return nil
	}
	return utils.BuildLinkKeyboard([]utils.LinkButton{{Text: messages.PayButton(lang), URL: l.PaymentURL}})
}

func (bh *Handlers) plansKeyboard(ctx context.Context, user *types.User, lang i18n.Lang) (*models.InlineKeyboardMarkup, error) {
	all := bh.plans.All()
	buttons := make([]utils.LinkButton, 0, len(all))
	for _, p := range all {
		l, err := bh.link(ctx, user, p.ID)
		if err != nil {
			return nil, fmt.Errorf("plan %s: %w", p.ID, err)
		}
		buttons = append(buttons, utils.LinkButton{Text: messages.PlanButton(lang, p), URL: l.PaymentURL})
	}
	kb := utils.BuildLinkKeyboard(buttons)
	if kb == nil {
		return nil, errors.New("no payment links issued")
	}
	return kb, nil
}

// LockedReply is the answer to a non-subscriber asking for gated content.
func (bh *Handlers) LockedReply(ctx context.Context, user *types.User) (string, *models.InlineKeyboardMarkup) {
	lang := contextkeys.Lang(ctx)
	return messages.ContentLocked(lang), bh.payKeyboard(ctx, user, lang)
}
