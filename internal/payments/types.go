package payments

import "encoding/json"

type TransactionRequest struct {
	OrderID       string
	GrossAmount   int64
	CustomerName  string
	CustomerEmail string
}

// Checkout is what the gateway hands back for a new transaction.
type Checkout struct {
	RedirectURL string `json:"redirect_url"`
	Token       string `json:"token"`
}

// StatusResult is the decoded body of the status endpoint.
type StatusResult struct {
	OrderID           string          `json:"order_id"`
	TransactionID     string          `json:"transaction_id"`
	TransactionStatus NativeStatus    `json:"-"`
	FraudStatus       string          `json:"fraud_status"`
	StatusCode        string          `json:"status_code"`
	StatusMessage     string          `json:"status_message"`
	GrossAmount       string          `json:"gross_amount"`
	PaymentType       string          `json:"payment_type"`
	Raw               json.RawMessage `json:"-"`
}

// Notification is the webhook body the gateway POSTs on every status change.
type Notification struct {
	OrderID           string `json:"order_id"`
	StatusCode        string `json:"status_code"`
	GrossAmount       string `json:"gross_amount"`
	SignatureKey      string `json:"signature_key"`
	TransactionStatus string `json:"transaction_status"`
	FraudStatus       string `json:"fraud_status"`
	TransactionID     string `json:"transaction_id"`
	PaymentType       string `json:"payment_type"`
	TransactionTime   string `json:"transaction_time,omitempty"`

	// Raw is the verbatim request body, kept for the audit log.
	Raw json.RawMessage `json:"-"`
}

// Native parses the notification's transaction_status.
func (n Notification) Native() NativeStatus {
	return ParseNativeStatus(n.TransactionStatus)
}
