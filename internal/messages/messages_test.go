package messages

import (
	"strings"
	"testing"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/i18n"
	"github.com/BatmanBruc/sub-pay-bot/internal/plans"
	"github.com/BatmanBruc/sub-pay-bot/types"
)

func TestEscape(t *testing.T) {
	if got := Escape(` <b>"Tom" & 'Jerry'</b> `); got != "&lt;b&gt;&quot;Tom&quot; &amp; &#39;Jerry&#39;&lt;/b&gt;" {
		t.Fatalf("unexpected escape: %s", got)
	}
}

func TestWelcomeEscapesUsername(t *testing.T) {
	got := Welcome(i18n.EN, "<script>")
	if strings.Contains(got, "<script>") {
		t.Fatalf("username not escaped: %s", got)
	}
	if !strings.Contains(Welcome(i18n.EN, ""), "there") {
		t.Fatalf("expected fallback name")
	}
	if !strings.Contains(Welcome(i18n.RU, ""), "Привет") {
		t.Fatalf("expected russian greeting")
	}
}

func TestFormatExpiry(t *testing.T) {
	msk := time.FixedZone("MSK", 3*3600)
	got := FormatExpiry(time.Date(2025, 6, 1, 3, 4, 0, 0, msk))
	if got != "01.06.2025 00:04 UTC" {
		t.Fatalf("unexpected expiry format: %s", got)
	}
}

func TestPlanButton(t *testing.T) {
	basic, _ := plans.Default().Lookup(types.PlanBasic)
	if got := PlanButton(i18n.EN, basic); got != "Basic: 30 days - 299 RUB" {
		t.Fatalf("unexpected button: %s", got)
	}
	if got := PlanButton(i18n.RU, basic); got != "Basic: 30 дн. - 299 RUB" {
		t.Fatalf("unexpected button: %s", got)
	}
}

func TestPaymentSucceeded(t *testing.T) {
	n := types.SuccessNotice{PlanID: types.PlanPro, ExpiresAt: time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)}
	got := PaymentSucceeded(i18n.EN, n)
	if !strings.Contains(got, "pro") || !strings.Contains(got, "02.01.2026 03:04 UTC") {
		t.Fatalf("unexpected notice: %s", got)
	}
}
