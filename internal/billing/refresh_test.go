package billing

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatewayStatus(native payments.NativeStatus) func(context.Context, string) (payments.StatusResult, error) {
	return func(_ context.Context, orderID string) (payments.StatusResult, error) {
		return payments.StatusResult{
			OrderID:           orderID,
			TransactionID:     "tx-" + orderID,
			TransactionStatus: native,
			StatusCode:        "200",
			Raw:               []byte(fmt.Sprintf(`{"order_id":%q,"transaction_status":%q}`, orderID, native)),
		}, nil
	}
}

func TestRefreshByOrderReconciles(t *testing.T) {
	h := newHarness(t)
	p := h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1000"})
	h.gateway.StatusFunc = gatewayStatus(payments.NativeSettlement)

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1000")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUpdated, res.Outcome)
	assert.Equal(t, paymentsrepo.StatusPending, res.PreviousStatus)
	assert.Equal(t, paymentsrepo.StatusSuccess, res.Status)

	assert.Equal(t, paymentsrepo.StatusSuccess, h.store.get("ITTR-1000").Status)
	logs := h.store.logsFor(p.ID)
	require.Len(t, logs, 1)
	assert.Equal(t, paymentsrepo.StatusPending, logs[0].OldStatus)
	assert.Equal(t, paymentsrepo.StatusSuccess, logs[0].NewStatus)
	assert.Equal(t, 1, h.notifier.count())
	assert.Equal(t, "refresh", h.notifier.changes[0].Source)
}

func TestRefreshByOrderNoChange(t *testing.T) {
	h := newHarness(t)
	p := h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1"})
	h.gateway.StatusFunc = gatewayStatus(payments.NativePending)

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
	assert.Equal(t, paymentsrepo.StatusPending, res.Status)
	assert.Empty(t, h.store.logsFor(p.ID))
}

func TestRefreshByOrderUnknownNativeStaysPending(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1"})
	h.gateway.StatusFunc = gatewayStatus(payments.NativeOther)

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeUnchanged, res.Outcome)
}

func TestRefreshByOrderGatewayNotFoundSurfaces(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1"})
	h.gateway.StatusFunc = func(context.Context, string) (payments.StatusResult, error) {
		return payments.StatusResult{}, fmt.Errorf("%w: ITTR-1", payments.ErrOrderNotFound)
	}

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1")
	require.Error(t, err)
	assert.ErrorIs(t, err, payments.ErrOrderNotFound)
	assert.NotErrorIs(t, err, ErrNoPending)
	require.NotNil(t, res)
	assert.Equal(t, OutcomeFailed, res.Outcome)
	assert.NotEmpty(t, res.Error)
	assert.Equal(t, paymentsrepo.StatusPending, h.store.get("ITTR-1").Status)
}

func TestRefreshByOrderSettledRowSkipsGateway(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1", Status: paymentsrepo.StatusSuccess})

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotPending, res.Outcome)
	assert.Equal(t, paymentsrepo.StatusSuccess, res.Status)
	assert.Equal(t, 0, h.gateway.statusCalls)
}

func TestRefreshByOrderMissingRow(t *testing.T) {
	h := newHarness(t)

	_, err := h.svc.RefreshByOrder(context.Background(), "ITTR-9")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestRefreshByStudentContinuesPastFailures(t *testing.T) {
	h := newHarness(t)
	// the store allows several pending rows here; production data may predate the index
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1"})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-2"})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-3"})

	h.gateway.StatusFunc = func(ctx context.Context, orderID string) (payments.StatusResult, error) {
		if orderID == "ITTR-2" {
			return payments.StatusResult{}, fmt.Errorf("%w: timeout", payments.ErrGateway)
		}
		return gatewayStatus(payments.NativeSettlement)(ctx, orderID)
	}

	batch, err := h.svc.RefreshByStudent(context.Background(), "stu-1")
	require.NoError(t, err)
	require.Len(t, batch.Results, 3)

	// newest first
	assert.Equal(t, "ITTR-3", batch.Results[0].OrderID)
	assert.Equal(t, "ITTR-2", batch.Results[1].OrderID)
	assert.Equal(t, "ITTR-1", batch.Results[2].OrderID)

	assert.Equal(t, OutcomeFailed, batch.Results[1].Outcome)
	assert.Equal(t, 2, batch.Updated)
	assert.Equal(t, 1, batch.Failed)
	assert.ErrorIs(t, batch.Err(), payments.ErrGateway)

	assert.Equal(t, paymentsrepo.StatusSuccess, h.store.get("ITTR-1").Status)
	assert.Equal(t, paymentsrepo.StatusPending, h.store.get("ITTR-2").Status)
	assert.Equal(t, paymentsrepo.StatusSuccess, h.store.get("ITTR-3").Status)
}

func TestRefreshByStudentNothingPending(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1", Status: paymentsrepo.StatusFailed})

	_, err := h.svc.RefreshByStudent(context.Background(), "stu-1")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestRefreshStoreFailureReported(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-1"})
	h.gateway.StatusFunc = gatewayStatus(payments.NativeExpire)
	h.store.failApply = errors.New("deadlock detected")

	res, err := h.svc.RefreshByOrder(context.Background(), "ITTR-1")
	assert.ErrorContains(t, err, "deadlock detected")
	assert.Equal(t, OutcomeFailed, res.Outcome)
}

func TestReconcileStale(t *testing.T) {
	h := newHarness(t)
	old := fixedNow.Add(-2 * time.Hour)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-old", CreatedAt: old})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-2", OrderID: "ITTR-fresh", CreatedAt: fixedNow.Add(-time.Minute)})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-3", OrderID: "ITTR-done", CreatedAt: old, Status: paymentsrepo.StatusSuccess})
	h.gateway.StatusFunc = gatewayStatus(payments.NativeExpire)

	batch, err := h.svc.ReconcileStale(context.Background(), 30*time.Minute, 10)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "ITTR-old", batch.Results[0].OrderID)
	assert.Equal(t, OutcomeUpdated, batch.Results[0].Outcome)

	assert.Equal(t, paymentsrepo.StatusFailed, h.store.get("ITTR-old").Status)
	assert.Equal(t, paymentsrepo.StatusPending, h.store.get("ITTR-fresh").Status)
	assert.Equal(t, "reconcile", h.notifier.changes[0].Source)
}

func TestReconcileStaleRotatesUnknownOrders(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-ghost", CreatedAt: fixedNow.Add(-3 * time.Hour)})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-2", OrderID: "ITTR-paid", CreatedAt: fixedNow.Add(-2 * time.Hour)})

	settled := gatewayStatus(payments.NativeSettlement)
	h.gateway.StatusFunc = func(ctx context.Context, orderID string) (payments.StatusResult, error) {
		if orderID == "ITTR-ghost" {
			return payments.StatusResult{}, payments.ErrOrderNotFound
		}
		return settled(ctx, orderID)
	}
	ctx := context.Background()

	batch, err := h.svc.ReconcileStale(ctx, 30*time.Minute, 1)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "ITTR-ghost", batch.Results[0].OrderID)
	assert.Equal(t, OutcomeFailed, batch.Results[0].Outcome)

	ghost := h.store.get("ITTR-ghost")
	require.NotNil(t, ghost.LastCheckedAt)
	assert.True(t, fixedNow.Equal(*ghost.LastCheckedAt))

	// the unknown order stays pending but no longer blocks the next batch
	batch, err = h.svc.ReconcileStale(ctx, 30*time.Minute, 1)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "ITTR-paid", batch.Results[0].OrderID)
	assert.Equal(t, OutcomeUpdated, batch.Results[0].Outcome)
	assert.Equal(t, paymentsrepo.StatusPending, h.store.get("ITTR-ghost").Status)

	// both were checked within the window
	batch, err = h.svc.ReconcileStale(ctx, 30*time.Minute, 10)
	require.NoError(t, err)
	assert.Empty(t, batch.Results)
}

func TestReconcileStaleOldestFirst(t *testing.T) {
	h := newHarness(t)
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-1", OrderID: "ITTR-newer", CreatedAt: fixedNow.Add(-time.Hour)})
	h.store.seed(paymentsrepo.Payment{StudentID: "stu-2", OrderID: "ITTR-older", CreatedAt: fixedNow.Add(-5 * time.Hour)})
	h.gateway.StatusFunc = gatewayStatus(payments.NativePending)

	batch, err := h.svc.ReconcileStale(context.Background(), 30*time.Minute, 1)
	require.NoError(t, err)
	require.Len(t, batch.Results, 1)
	assert.Equal(t, "ITTR-older", batch.Results[0].OrderID)
	assert.Equal(t, OutcomeUnchanged, batch.Results[0].Outcome)
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		native payments.NativeStatus
		fraud  string
		want   paymentsrepo.Status
	}{
		{payments.NativeCapture, "accept", paymentsrepo.StatusSuccess},
		{payments.NativeCapture, "challenge", paymentsrepo.StatusPending},
		{payments.NativeCapture, "", paymentsrepo.StatusPending},
		{payments.NativeSettlement, "", paymentsrepo.StatusSuccess},
		{payments.NativeSettlement, "deny", paymentsrepo.StatusSuccess},
		{payments.NativeCancel, "", paymentsrepo.StatusFailed},
		{payments.NativeDeny, "", paymentsrepo.StatusFailed},
		{payments.NativeExpire, "", paymentsrepo.StatusFailed},
		{payments.NativePending, "", paymentsrepo.StatusPending},
		{payments.NativeOther, "accept", paymentsrepo.StatusPending},
		{payments.ParseNativeStatus("refund"), "", paymentsrepo.StatusPending},
	}

	for _, tt := range tests {
		t.Run(string(tt.native)+"/"+tt.fraud, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.native, tt.fraud))
		})
	}
}
