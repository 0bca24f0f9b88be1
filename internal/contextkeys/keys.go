package contextkeys

import (
	"context"

	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/types"
)

type userKey struct{}
type messageTypeKey struct{}
type commandKey struct{}
type subscriptionKey struct{}
type langKey struct{}

type MessageType string

const (
	MessageTypeText    MessageType = "text"
	MessageTypeCommand MessageType = "command"
	MessageTypeUnknown MessageType = "unknown"
)

func WithUser(ctx context.Context, user *types.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

func GetUser(ctx context.Context) (*types.User, bool) {
	v, ok := ctx.Value(userKey{}).(*types.User)
	return v, ok && v != nil
}

func WithMessageType(ctx context.Context, msgType MessageType) context.Context {
	return context.WithValue(ctx, messageTypeKey{}, msgType)
}

func GetMessageType(ctx context.Context) (MessageType, bool) {
	v, ok := ctx.Value(messageTypeKey{}).(MessageType)
	if !ok {
		return MessageTypeUnknown, false
	}
	return v, true
}

// WithCommand stores the normalized command, e.g. "/start" for
// "/Start@my_bot ref".
func WithCommand(ctx context.Context, command string) context.Context {
	return context.WithValue(ctx, commandKey{}, command)
}

func GetCommand(ctx context.Context) (string, bool) {
	v, ok := ctx.Value(commandKey{}).(string)
	return v, ok
}

func IsCommand(ctx context.Context) bool {
	msgType, ok := GetMessageType(ctx)
	return ok && msgType == MessageTypeCommand
}

func WithSubscription(ctx context.Context, sub *types.Subscription) context.Context {
	return context.WithValue(ctx, subscriptionKey{}, sub)
}

func GetSubscription(ctx context.Context) (*types.Subscription, bool) {
	v, ok := ctx.Value(subscriptionKey{}).(*types.Subscription)
	return v, ok && v != nil
}

func WithLang(ctx context.Context, lang i18n.Lang) context.Context {
	return context.WithValue(ctx, langKey{}, lang)
}

// Lang returns the language stored in ctx, EN when none is set.
func Lang(ctx context.Context) i18n.Lang {
	if v, ok := ctx.Value(langKey{}).(i18n.Lang); ok {
		return v
	}
	return i18n.EN
}
