package middleware

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/contextkeys"
	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/types"
	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

type mockSender struct {
	sent []*bot.SendMessageParams
}

func (m *mockSender) SendMessage(_ context.Context, params *bot.SendMessageParams) (*models.Message, error) {
	m.sent = append(m.sent, params)
	return &models.Message{}, nil
}

type mockUsers struct {
	UpsertUserFunc func(ctx context.Context, telegramID int64, username string) (*types.User, error)
}

func (m *mockUsers) UpsertUser(ctx context.Context, telegramID int64, username string) (*types.User, error) {
	return m.UpsertUserFunc(ctx, telegramID, username)
}

func (m *mockUsers) GetUserByTelegramID(context.Context, int64) (*types.User, error) {
	return nil, types.ErrNotFound
}

type mockSubs struct {
	ActiveFunc func(ctx context.Context, telegramID int64) (*types.Subscription, bool, error)
}

func (m *mockSubs) Active(ctx context.Context, telegramID int64) (*types.Subscription, bool, error) {
	return m.ActiveFunc(ctx, telegramID)
}

func newTestMiddlewares(users types.UserStore, subs SubscriptionChecker) (*Middlewares, *mockSender) {
	out := &mockSender{}
	m := NewMiddlewares(users, subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	m.out = out
	return m, out
}

func update(text string) *models.Update {
	return &models.Update{Message: &models.Message{
		Text: text,
		Chat: models.Chat{ID: 99},
		From: &models.User{ID: 99, Username: " bob ", LanguageCode: "ru"},
	}}
}

func TestEnsureUser(t *testing.T) {
	var gotID int64
	var gotName string
	users := &mockUsers{UpsertUserFunc: func(_ context.Context, id int64, name string) (*types.User, error) {
		gotID, gotName = id, name
		return &types.User{ID: 1, TelegramID: id, Username: name}, nil
	}}
	m, _ := newTestMiddlewares(users, nil)

	var seen *types.User
	var lang i18n.Lang
	m.EnsureUser(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
		seen, _ = contextkeys.GetUser(ctx)
		lang = contextkeys.Lang(ctx)
	})(context.Background(), nil, update("/start"))

	if gotID != 99 || gotName != "bob" {
		t.Fatalf("unexpected upsert: %d %q", gotID, gotName)
	}
	if seen == nil || seen.ID != 1 {
		t.Fatalf("user not in context: %+v", seen)
	}
	if lang != i18n.RU {
		t.Fatalf("lang = %s, want ru", lang)
	}
}

func TestEnsureUserFailure(t *testing.T) {
	users := &mockUsers{UpsertUserFunc: func(context.Context, int64, string) (*types.User, error) {
		return nil, errors.New("db down")
	}}
	m, out := newTestMiddlewares(users, nil)
	called := false
	m.EnsureUser(func(context.Context, *bot.Bot, *models.Update) { called = true })(context.Background(), nil, update("/start"))

	if called {
		t.Fatalf("next must not run")
	}
	if len(out.sent) != 1 || strings.Contains(out.sent[0].Text, "db down") {
		t.Fatalf("unexpected replies: %+v", out.sent)
	}
}

func TestEnsureUserSkipsAnonymous(t *testing.T) {
	m, _ := newTestMiddlewares(&mockUsers{}, nil)
	called := false
	next := func(context.Context, *bot.Bot, *models.Update) { called = true }
	m.EnsureUser(next)(context.Background(), nil, &models.Update{})
	m.EnsureUser(next)(context.Background(), nil, &models.Update{Message: &models.Message{Chat: models.Chat{ID: 1}}})
	if called {
		t.Fatalf("updates without sender must be dropped")
	}
}

func TestAnalyzeMessage(t *testing.T) {
	m, _ := newTestMiddlewares(nil, nil)
	tests := []struct {
		text    string
		msgType contextkeys.MessageType
		cmd     string
	}{
		{"/Pay@sub_bot", contextkeys.MessageTypeCommand, "/pay"},
		{"hello", contextkeys.MessageTypeText, ""},
		{"", contextkeys.MessageTypeUnknown, ""},
	}
	for _, tt := range tests {
		var gotType contextkeys.MessageType
		var gotCmd string
		m.AnalyzeMessageMiddleware(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
			gotType, _ = contextkeys.GetMessageType(ctx)
			gotCmd, _ = contextkeys.GetCommand(ctx)
		})(context.Background(), nil, update(tt.text))
		if gotType != tt.msgType || gotCmd != tt.cmd {
			t.Fatalf("%q: got %s %q", tt.text, gotType, gotCmd)
		}
	}
}

func TestRequireSubscription(t *testing.T) {
	exp := time.Now().Add(time.Hour)
	tests := []struct {
		name       string
		active     bool
		err        error
		wantNext   bool
		wantLocked bool
	}{
		{"active", true, nil, true, false},
		{"inactive", false, nil, false, true},
		{"lookup error", false, errors.New("db down"), false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			subs := &mockSubs{ActiveFunc: func(context.Context, int64) (*types.Subscription, bool, error) {
				if tt.err != nil {
					return nil, false, tt.err
				}
				return &types.Subscription{ExpiresAt: exp}, tt.active, nil
			}}
			m, out := newTestMiddlewares(nil, subs)
			lockedCalls := 0
			m.OnLocked(func(context.Context, *types.User) (string, *models.InlineKeyboardMarkup) {
				lockedCalls++
				return "locked", nil
			})

			var sub *types.Subscription
			called := false
			ctx := contextkeys.WithUser(context.Background(), &types.User{TelegramID: 99})
			m.RequireSubscription(func(ctx context.Context, _ *bot.Bot, _ *models.Update) {
				called = true
				sub, _ = contextkeys.GetSubscription(ctx)
			})(ctx, nil, update("/content"))

			if called != tt.wantNext {
				t.Fatalf("next called = %v", called)
			}
			if tt.wantNext && sub == nil {
				t.Fatalf("subscription not in context")
			}
			if (lockedCalls == 1) != tt.wantLocked {
				t.Fatalf("locked calls = %d", lockedCalls)
			}
			if !tt.wantNext && len(out.sent) != 1 {
				t.Fatalf("expected one reply, got %d", len(out.sent))
			}
		})
	}
}
