package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"ittr/internal/auth"
	"ittr/internal/billing"
	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"
	"ittr/internal/ratelimiter"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testServerKey = "SB-Mid-server-test"
	testSecret    = "test-secret"
	testAudience  = "ittr"
)

type mockBilling struct {
	GenerateFunc         func(ctx context.Context, in billing.GenerateInput) (*billing.GenerateResult, error)
	WebhookFunc          func(ctx context.Context, n payments.Notification) (paymentsrepo.Status, error)
	RefreshByOrderFunc   func(ctx context.Context, orderID string) (*billing.RefreshResult, error)
	RefreshByStudentFunc func(ctx context.Context, studentID string) (*billing.BatchResult, error)
	ReconcileStaleFunc   func(ctx context.Context, olderThan time.Duration, limit int) (*billing.BatchResult, error)
	HistoryFunc          func(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error)
	HistoryAllFunc       func(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error)
	DetailFunc           func(ctx context.Context, orderID string) (*billing.Detail, error)
}

func (m *mockBilling) Generate(ctx context.Context, in billing.GenerateInput) (*billing.GenerateResult, error) {
	return m.GenerateFunc(ctx, in)
}

func (m *mockBilling) Webhook(ctx context.Context, n payments.Notification) (paymentsrepo.Status, error) {
	return m.WebhookFunc(ctx, n)
}

func (m *mockBilling) RefreshByOrder(ctx context.Context, orderID string) (*billing.RefreshResult, error) {
	return m.RefreshByOrderFunc(ctx, orderID)
}

func (m *mockBilling) RefreshByStudent(ctx context.Context, studentID string) (*billing.BatchResult, error) {
	return m.RefreshByStudentFunc(ctx, studentID)
}

func (m *mockBilling) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*billing.BatchResult, error) {
	return m.ReconcileStaleFunc(ctx, olderThan, limit)
}

func (m *mockBilling) History(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	return m.HistoryFunc(ctx, studentID)
}

func (m *mockBilling) HistoryAll(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	return m.HistoryAllFunc(ctx, status, limit, offset)
}

func (m *mockBilling) Detail(ctx context.Context, orderID string) (*billing.Detail, error) {
	return m.DetailFunc(ctx, orderID)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestApplication(t *testing.T, svc paymentService) *application {
	t.Helper()

	return &application{
		config: config{
			env:      "test",
			midtrans: midtransConfig{serverKey: testServerKey},
			rateLimiter: ratelimiter.Config{
				RequestsPerTimeFrame: 100,
				TimeFrame:            time.Minute,
				Enabled:              true,
			},
		},
		db:            fakePinger{},
		billing:       svc,
		logger:        zap.NewNop().Sugar(),
		authenticator: auth.NewJWTAuthenticator(testSecret, testAudience, testAudience),
		rateLimiter:   ratelimiter.NewFixedWindowLimiter(100, time.Minute),
	}
}

func bearer(t *testing.T, app *application, subject, role string) string {
	t.Helper()

	token, err := app.authenticator.GenerateToken(subject, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func executeRequest(req *http.Request, mux http.Handler) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func newJSONRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var out map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}
