package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/messages"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

var ErrDelivery = errors.New("notify: delivery failed")

// MessageSender is the part of *bot.Bot used to deliver notices.
type MessageSender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type TelegramNotifier struct {
	sender  MessageSender
	timeout time.Duration
	lang    i18n.Lang
}

func NewTelegramNotifier(sender MessageSender, timeout time.Duration, lang i18n.Lang) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &TelegramNotifier{sender: sender, timeout: timeout, lang: lang}
}

func (n *TelegramNotifier) Send(ctx context.Context, notice types.SuccessNotice) error {
	ctx, cancel := context.WithTimeout(ctx, n.timeout)
	defer cancel()

	_, err := n.sender.SendMessage(ctx, &bot.SendMessageParams{
		ChatID:    notice.TelegramID,
		Text:      messages.PaymentSucceeded(n.lang, notice),
		ParseMode: messages.ParseModeHTML,
	})
	if err != nil {
		return fmt.Errorf("%w: chat %d: %v", ErrDelivery, notice.TelegramID, err)
	}
	return nil
}
