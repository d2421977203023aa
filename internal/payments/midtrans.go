package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	snapSandboxURL    = "https://app.sandbox.midtrans.com/snap/v1/transactions"
	snapProductionURL = "https://app.midtrans.com/snap/v1/transactions"
	apiSandboxURL     = "https://api.sandbox.midtrans.com/v2"
	apiProductionURL  = "https://api.midtrans.com/v2"

	DefaultTimeout = 10 * time.Second
)

type MidtransAdapter struct {
	ServerKey    string
	IsProduction bool

	// SnapURL and APIURL override the environment defaults when set.
	SnapURL string
	APIURL  string

	httpClient *http.Client
}

func NewMidtransAdapter(serverKey string, isProd bool) *MidtransAdapter {
	return &MidtransAdapter{
		ServerKey:    serverKey,
		IsProduction: isProd,
		httpClient:   &http.Client{Timeout: DefaultTimeout},
	}
}

// WithHTTPClient swaps the underlying client; the caller owns its timeout.
func (m *MidtransAdapter) WithHTTPClient(c *http.Client) *MidtransAdapter {
	m.httpClient = c
	return m
}

func (m *MidtransAdapter) snapURL() string {
	if m.SnapURL != "" {
		return m.SnapURL
	}
	if m.IsProduction {
		return snapProductionURL
	}
	return snapSandboxURL
}

func (m *MidtransAdapter) apiURL() string {
	if m.APIURL != "" {
		return strings.TrimRight(m.APIURL, "/")
	}
	if m.IsProduction {
		return apiProductionURL
	}
	return apiSandboxURL
}

func (m *MidtransAdapter) authorize(req *http.Request) {
	req.SetBasicAuth(m.ServerKey, "")
	req.Header.Set("Accept", "application/json")
}

func (m *MidtransAdapter) CreateTransaction(ctx context.Context, req TransactionRequest) (Checkout, error) {
	payload := map[string]any{
		"transaction_details": map[string]any{
			"order_id":     req.OrderID,
			"gross_amount": req.GrossAmount,
		},
		"customer_details": map[string]string{
			"first_name": req.CustomerName,
			"email":      req.CustomerEmail,
		},
	}

	body, _ := json.Marshal(payload)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.snapURL(), bytes.NewBuffer(body))
	if err != nil {
		return Checkout{}, fmt.Errorf("%w: build snap request: %v", ErrGateway, err)
	}
	m.authorize(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return Checkout{}, fmt.Errorf("%w: snap request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		// return raw error for logging/support
		return Checkout{}, fmt.Errorf("%w: snap create failed: http=%d body=%s", ErrGateway, resp.StatusCode, string(raw))
	}

	var res Checkout
	if err := json.Unmarshal(raw, &res); err != nil {
		return Checkout{}, fmt.Errorf("%w: snap create decode: %v body=%s", ErrGateway, err, string(raw))
	}
	if res.Token == "" || res.RedirectURL == "" {
		return Checkout{}, fmt.Errorf("%w: snap create returned no token: body=%s", ErrGateway, string(raw))
	}

	return res, nil
}

func (m *MidtransAdapter) GetStatus(ctx context.Context, orderID string) (StatusResult, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return StatusResult{}, fmt.Errorf("%w: status check requires order id", ErrGateway)
	}

	endpoint := fmt.Sprintf("%s/%s/status", m.apiURL(), url.PathEscape(orderID))
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: build status request: %v", ErrGateway, err)
	}
	m.authorize(httpReq)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return StatusResult{}, fmt.Errorf("%w: status request: %v", ErrGateway, err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(resp.Body)
	if len(bytes.TrimSpace(raw)) == 0 {
		return StatusResult{}, fmt.Errorf("%w: empty status response: http=%d", ErrGateway, resp.StatusCode)
	}

	// The status endpoint reports unknown orders in the body with HTTP 200,
	// so decode first and judge by status_code.
	var res struct {
		StatusResult
		TransactionStatus string `json:"transaction_status"`
	}
	if err := json.Unmarshal(raw, &res); err != nil {
		return StatusResult{}, fmt.Errorf("%w: status decode: http=%d err=%v body=%s", ErrGateway, resp.StatusCode, err, string(raw))
	}

	if res.StatusCode == "404" || (resp.StatusCode == http.StatusNotFound && res.StatusCode == "") {
		return StatusResult{}, fmt.Errorf("%w: %s", ErrOrderNotFound, orderID)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return StatusResult{}, fmt.Errorf("%w: status check failed: http=%d body=%s", ErrGateway, resp.StatusCode, string(raw))
	}
	if res.TransactionStatus == "" {
		return StatusResult{}, fmt.Errorf("%w: status response has no transaction_status: status_code=%s message=%s", ErrGateway, res.StatusCode, res.StatusMessage)
	}

	out := res.StatusResult
	out.TransactionStatus = ParseNativeStatus(res.TransactionStatus)
	out.Raw = json.RawMessage(raw)
	if out.OrderID == "" {
		out.OrderID = orderID
	}
	return out, nil
}
