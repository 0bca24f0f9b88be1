// Package lava is a client for the Lava business invoice API.
package lava

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BatmanBruc/sub-pay-bot/internal/payload"
	"github.com/BatmanBruc/sub-pay-bot/internal/signature"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	DefaultBaseURL = "https://api.lava.ru"
	createPath     = "/business/invoice/create"
	maxBodyLog     = 64 << 10
)

type Config struct {
	BaseURL   string
	ShopID    string
	SecretKey string
	HostURL   string
	Timeout   time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	shopID     string
	secretKey  string
	hostURL    string
	log        *slog.Logger
	now        func() time.Time
}

func NewClient(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		shopID:     cfg.ShopID,
		secretKey:  cfg.SecretKey,
		hostURL:    strings.TrimRight(cfg.HostURL, "/"),
		log:        logger.With("component", "lava"),
		now:        time.Now,
	}
}

var (
	paymentURLLookups = []payload.Lookup{
		payload.Field("data", "url"),
		payload.Field("data", "payUrl"),
		payload.Field("url"),
	}
	transactionIDLookups = []payload.Lookup{
		payload.Field("data", "invoiceId"),
		payload.Field("invoiceId"),
		payload.Field("data", "id"),
		payload.Field("id"),
	}
)

// Sum converts an amount to the provider's wire value: rounded half-up to two
// decimals, then to float64. The float step is lossy for amounts with more
// significant digits than float64 keeps.
func Sum(amount decimal.Decimal) float64 {
	return amount.Round(2).InexactFloat64()
}

// CreatePayment creates an invoice for userID and returns the checkout URL and
// the provider transaction id. The order id is used as the transaction id only
// when the response carries none.
func (c *Client) CreatePayment(ctx context.Context, amount decimal.Decimal, userID int64, description string) (*PaymentLink, error) {
	if !amount.Round(2).IsPositive() {
		return nil, fmt.Errorf("lava: amount must be positive, got %s", amount.String())
	}

	orderID := fmt.Sprintf("user-%d-%d", userID, c.now().Unix())
	reqData := invoiceRequest{
		ShopID:     c.shopID,
		Sum:        Sum(amount),
		OrderID:    orderID,
		HookURL:    c.hostURL + "/api/webhook/lava",
		SuccessURL: c.hostURL + "/pay/success",
		FailURL:    c.hostURL + "/pay/fail",
		CustomFields: customFields{
			UserID:      strconv.FormatInt(userID, 10),
			Description: description,
		},
	}

	body, err := marshalCompact(reqData)
	if err != nil {
		return nil, fmt.Errorf("lava: failed to marshal request body: %w", err)
	}

	url := c.baseURL + createPath
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("lava: failed to create request: %w", err)
	}
	requestID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(signature.Header, signature.Sign(body, c.secretKey))
	req.Header.Set("X-Request-Id", requestID)

	c.log.Info("lava request", "url", url, "request_id", requestID, "order_id", orderID, "body", string(body))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("lava request failed", "request_id", requestID, "error", err)
		return nil, fmt.Errorf("%w: failed to perform request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyLog))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrGateway, err)
	}
	c.log.Info("lava response", "request_id", requestID, "status", resp.StatusCode, "body", string(respBody))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	data, err := payload.Decode(respBody)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to decode response: %v", ErrGateway, err)
	}

	paymentURL := payload.First(data, paymentURLLookups...)
	if paymentURL == "" {
		return nil, &ResponseError{Body: data}
	}
	transactionID := payload.First(data, transactionIDLookups...)
	if transactionID == "" {
		transactionID = orderID
	}

	return &PaymentLink{
		PaymentURL:    paymentURL,
		TransactionID: transactionID,
		OrderID:       orderID,
	}, nil
}

// marshalCompact encodes v without HTML escaping so the signed bytes match
// what the provider sees.
func marshalCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
