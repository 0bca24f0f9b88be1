package messages

import (
	"fmt"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/types"
)

const ParseModeHTML = "HTML"

const expiryLayout = "02.01.2006 15:04 UTC"

func Escape(s string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(strings.TrimSpace(s))
}

func Title(text string) string {
	return fmt.Sprintf("✨ <b>%s</b>", Escape(text))
}

func FormatExpiry(t time.Time) string {
	return t.UTC().Format(expiryLayout)
}

func displayName(lang i18n.Lang, username string) string {
	name := strings.TrimSpace(username)
	if name == "" {
		return i18n.Pick(lang, "друг", "there")
	}
	return Escape(name)
}

func Welcome(lang i18n.Lang, username string) string {
	return fmt.Sprintf(i18n.Pick(lang,
		"👋 <b>Привет, %s!</b>\nОформите подписку, чтобы открыть доступ.",
		"👋 <b>Hi, %s!</b>\nSubscribe to unlock the content.",
	), displayName(lang, username))
}

func WelcomeActive(lang i18n.Lang, username string, expiresAt time.Time) string {
	return fmt.Sprintf(i18n.Pick(lang,
		"👋 <b>Привет, %s!</b>\nПодписка активна. Доступ открыт до <b>%s</b>.",
		"👋 <b>Hi, %s!</b>\nYour subscription is active until <b>%s</b>.",
	), displayName(lang, username), FormatExpiry(expiresAt))
}

func PayHint(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"💳 Выберите тариф командой /pay.",
		"💳 Use /pay to choose a plan.",
	)
}

func ChoosePlan(lang i18n.Lang) string {
	return Title(i18n.Pick(lang, "Выберите тариф", "Choose a plan"))
}

// PlanButton renders e.g. "Basic: 30 days - 299 RUB". Whole prices drop
// the fractional part.
func PlanButton(lang i18n.Lang, p plans.Plan) string {
	price := p.Price.StringFixed(2)
	if p.Price.Equal(p.Price.Truncate(0)) {
		price = p.Price.StringFixed(0)
	}
	return fmt.Sprintf(i18n.Pick(lang, "%s: %d дн. - %s %s", "%s: %d days - %s %s"), p.Title, p.Days(), price, p.Currency)
}

func PayButton(lang i18n.Lang) string {
	return i18n.Pick(lang, "Оплатить", "Pay")
}

func StatusActive(lang i18n.Lang, sub *types.Subscription) string {
	return fmt.Sprintf(i18n.Pick(lang,
		"✅ <b>Подписка активна</b>\nТариф: %s\nДействует до: <b>%s</b>",
		"✅ <b>Subscription active</b>\nPlan: %s\nValid until: <b>%s</b>",
	), Escape(string(sub.PlanID)), FormatExpiry(sub.ExpiresAt))
}

func StatusInactive(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"⛔ <b>Нет активной подписки</b>\nОплатите, чтобы получить доступ.",
		"⛔ <b>No active subscription</b>\nPay to get access.",
	)
}

func Content(lang i18n.Lang) string {
	return Title(i18n.Pick(lang, "Закрытый раздел", "Members area")) + "\n" +
		i18n.Pick(lang, "Спасибо за подписку. Ваш контент здесь.", "Thanks for subscribing. Here is your content.")
}

func ContentLocked(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"🔒 <b>Раздел только для подписчиков</b>\nОплатите, чтобы получить доступ.",
		"🔒 <b>This content is for subscribers</b>\nPay to get access.",
	)
}

func PaymentSucceeded(lang i18n.Lang, n types.SuccessNotice) string {
	return fmt.Sprintf(i18n.Pick(lang,
		"🎉 <b>Оплата получена</b>\nТариф: %s\nДоступ до: <b>%s</b>",
		"🎉 <b>Payment received</b>\nPlan: %s\nAccess until: <b>%s</b>",
	), Escape(string(n.PlanID)), FormatExpiry(n.ExpiresAt))
}

func Help(lang i18n.Lang) string {
	if lang == i18n.RU {
		return strings.Join([]string{
			Title("Команды"),
			"/start - начало",
			"/pay - купить или продлить подписку",
			"/status - статус подписки",
			"/content - только для подписчиков",
			"/help - это сообщение",
		}, "\n")
	}
	return strings.Join([]string{
		Title("Commands"),
		"/start - start",
		"/pay - buy or extend a subscription",
		"/status - subscription status",
		"/content - subscribers only",
		"/help - this message",
	}, "\n")
}

func ErrorDefault(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"🚫 <b>Ошибка</b>\nПопробуйте ещё раз позже.",
		"🚫 <b>Error</b>\nPlease try again later.",
	)
}

func ErrorUnknownCommand(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"❓ <b>Команда не найдена</b>\nСм. /help.",
		"❓ <b>Unknown command</b>\nSee /help.",
	)
}

func ErrorUnsupportedMessage(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"🤖 <b>Я так не умею</b>\nОтправьте команду, см. /help.",
		"🤖 <b>Send a command</b>\nSee /help.",
	)
}

func ErrorPaymentLink(lang i18n.Lang) string {
	return i18n.Pick(lang,
		"🚫 <b>Не удалось подготовить ссылки на оплату</b>\nПопробуйте позже.",
		"🚫 <b>Could not create a payment link</b>\nPlease try again later.",
	)
}
