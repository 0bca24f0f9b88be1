package utils

import (
	"context"
	"strings"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Sender is the part of *bot.Bot that handlers reply through.
type Sender interface {
	SendMessage(ctx context.Context, params *bot.SendMessageParams) (*models.Message, error)
}

type LinkButton struct {
	Text string
	URL  string
}

// BuildLinkKeyboard lays out one URL button per row. Buttons without a URL
// are skipped.
func BuildLinkKeyboard(buttons []LinkButton) *models.InlineKeyboardMarkup {
	rows := make([][]models.InlineKeyboardButton, 0, len(buttons))
	for _, button := range buttons {
		url := strings.TrimSpace(button.URL)
		if url == "" {
			continue
		}
		rows = append(rows, []models.InlineKeyboardButton{{
			Text: button.Text,
			URL:  url,
		}})
	}
	if len(rows) == 0 {
		return nil
	}
	return &models.InlineKeyboardMarkup{InlineKeyboard: rows}
}

// ParseCommand returns the command token of a message text without any
// "@botname" suffix. ok is false for non-command texts.
func ParseCommand(text string) (cmd string, args []string, ok bool) {
	fields := strings.Fields(strings.TrimSpace(text))
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil, false
	}
	cmd = fields[0]
	if i := strings.Index(cmd, "@"); i >= 0 {
		cmd = cmd[:i]
	}
	return strings.ToLower(cmd), fields[1:], true
}
