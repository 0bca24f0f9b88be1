package lava

type invoiceRequest struct {
	ShopID       string       `json:"shopId"`
	Sum          float64      `json:"sum"`
	OrderID      string       `json:"orderId"`
	HookURL      string       `json:"hookUrl"`
	SuccessURL   string       `json:"successUrl"`
	FailURL      string       `json:"failUrl"`
	CustomFields customFields `json:"customFields"`
}

type customFields struct {
	UserID      string `json:"user_id"`
	Description string `json:"description"`
}

// PaymentLink is what the gateway hands back for a created invoice.
type PaymentLink struct {
	PaymentURL    string
	TransactionID string
	OrderID       string
}
