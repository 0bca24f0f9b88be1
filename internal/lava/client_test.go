package lava

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/signature"
	"github.com/shopspring/decimal"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := NewClient(Config{
		BaseURL:   srv.URL + "/",
		ShopID:    "shop-1",
		SecretKey: "secret",
		HostURL:   "https://example.com/",
		Timeout:   2 * time.Second,
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	c.now = func() time.Time { return time.Unix(1700000000, 0) }
	return c
}

func TestCreatePaymentSignsExactBody(t *testing.T) {
	var gotBody []byte
	var gotHeader http.Header
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotHeader = r.Header.Clone()
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"data":{"url":"https://pay.lava.ru/i/1","invoiceId":"inv-1"}}`))
	})

	link, err := c.CreatePayment(context.Background(), decimal.RequireFromString("299.00"), 42, "Basic subscription")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if gotPath != "/business/invoice/create" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	want := `{"shopId":"shop-1","sum":299,"orderId":"user-42-1700000000","hookUrl":"https://example.com/api/webhook/lava","successUrl":"https://example.com/pay/success","failUrl":"https://example.com/pay/fail","customFields":{"user_id":"42","description":"Basic subscription"}}`
	if string(gotBody) != want {
		t.Fatalf("unexpected body:\n got %s\nwant %s", gotBody, want)
	}
	if gotHeader.Get("Signature") != signature.Sign(gotBody, "secret") {
		t.Fatalf("signature does not match body")
	}
	if gotHeader.Get("Accept") != "application/json" || gotHeader.Get("Content-Type") != "application/json" {
		t.Fatalf("unexpected content headers: %v", gotHeader)
	}
	if gotHeader.Get("X-Request-Id") == "" {
		t.Fatalf("expected request id header")
	}
	if link.PaymentURL != "https://pay.lava.ru/i/1" || link.TransactionID != "inv-1" || link.OrderID != "user-42-1700000000" {
		t.Fatalf("unexpected link: %+v", link)
	}
}

func TestCreatePaymentDoesNotEscapeHTML(t *testing.T) {
	var gotBody []byte
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		_, _ = w.Write([]byte(`{"url":"https://pay/x"}`))
	})
	if _, err := c.CreatePayment(context.Background(), decimal.RequireFromString("1"), 1, "Pro & <more>"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(string(gotBody), `"description":"Pro & <more>"`) {
		t.Fatalf("description was escaped: %s", gotBody)
	}
}

func TestCreatePaymentResponseShapes(t *testing.T) {
	cases := []struct {
		name    string
		body    string
		wantURL string
		wantTx  string
	}{
		{"nested url and invoiceId", `{"data":{"url":"u1","invoiceId":"a"}}`, "u1", "a"},
		{"nested payUrl", `{"data":{"payUrl":"u2","id":"b"}}`, "u2", "b"},
		{"top level", `{"url":"u3","invoiceId":"c"}`, "u3", "c"},
		{"nested url wins", `{"data":{"url":"u4","payUrl":"x"},"url":"y","id":"d"}`, "u4", "d"},
		{"data.invoiceId wins over top level", `{"data":{"url":"u5","invoiceId":"e1"},"invoiceId":"e2"}`, "u5", "e1"},
		{"top invoiceId wins over data.id", `{"data":{"url":"u6","id":"f2"},"invoiceId":"f1"}`, "u6", "f1"},
		{"numeric id", `{"data":{"url":"u7","id":123456}}`, "u7", "123456"},
		{"fallback to order id", `{"url":"u8"}`, "u8", "user-7-1700000000"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			})
			link, err := c.CreatePayment(context.Background(), decimal.RequireFromString("10"), 7, "d")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if link.PaymentURL != tc.wantURL || link.TransactionID != tc.wantTx {
				t.Fatalf("got %+v", link)
			}
		})
	}
}

func TestCreatePaymentHTTPError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"error":"bad shop"}`))
	})
	_, err := c.CreatePayment(context.Background(), decimal.RequireFromString("10"), 1, "d")
	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if httpErr.StatusCode != http.StatusUnprocessableEntity || httpErr.Body != `{"error":"bad shop"}` {
		t.Fatalf("unexpected error contents: %+v", httpErr)
	}
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("HTTPError should match ErrGateway")
	}
}

func TestCreatePaymentMissingURL(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{"invoiceId":"a"}}`))
	})
	_, err := c.CreatePayment(context.Background(), decimal.RequireFromString("10"), 1, "d")
	var respErr *ResponseError
	if !errors.As(err, &respErr) {
		t.Fatalf("expected ResponseError, got %v", err)
	}
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("ResponseError should match ErrGateway")
	}
}

func TestCreatePaymentInvalidJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	})
	_, err := c.CreatePayment(context.Background(), decimal.RequireFromString("10"), 1, "d")
	if !errors.Is(err, ErrGateway) {
		t.Fatalf("expected gateway error, got %v", err)
	}
}

func TestCreatePaymentRejectsNonPositiveAmount(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	for _, amount := range []string{"0", "-1", "0.004"} {
		if _, err := c.CreatePayment(context.Background(), decimal.RequireFromString(amount), 1, "d"); err == nil {
			t.Fatalf("expected error for amount %s", amount)
		}
	}
	if called {
		t.Fatalf("gateway must not be called for invalid amounts")
	}
}

func TestCreatePaymentTimeout(t *testing.T) {
	release := make(chan struct{})
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.ReadAll(r.Body)
		select {
		case <-r.Context().Done():
		case <-release:
		}
	})
	defer close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := c.CreatePayment(ctx, decimal.RequireFromString("10"), 1, "d"); !errors.Is(err, ErrGateway) {
		t.Fatalf("expected gateway error on timeout, got %v", err)
	}
}

func TestSum(t *testing.T) {
	cases := map[string]float64{
		"299":     299,
		"299.00":  299,
		"10.005":  10.01,
		"10.004":  10,
		"0.125":   0.13,
		"1234.5":  1234.5,
		"99.9949": 99.99,
	}
	for in, want := range cases {
		if got := Sum(decimal.RequireFromString(in)); got != want {
			t.Fatalf("Sum(%s) = %v, want %v", in, got, want)
		}
	}
}
