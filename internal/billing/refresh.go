package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"
)

type Outcome string

const (
	OutcomeUpdated   Outcome = "updated"
	OutcomeUnchanged Outcome = "unchanged"
	OutcomeFailed    Outcome = "failed"
	// OutcomeNotPending is reported for an order that was already settled
	// before the refresh started; the gateway is not asked.
	OutcomeNotPending Outcome = "not_pending"
)

// RefreshResult is the outcome for one order.
type RefreshResult struct {
	OrderID        string              `json:"order_id"`
	Outcome        Outcome             `json:"outcome"`
	PreviousStatus paymentsrepo.Status `json:"previous_status"`
	Status         paymentsrepo.Status `json:"status"`
	Error          string              `json:"error,omitempty"`

	err error
}

func (r RefreshResult) Err() error { return r.err }

type BatchResult struct {
	Results   []RefreshResult `json:"results"`
	Updated   int             `json:"updated"`
	Unchanged int             `json:"unchanged"`
	Failed    int             `json:"failed"`
}

func (b *BatchResult) add(r RefreshResult) {
	b.Results = append(b.Results, r)
	switch r.Outcome {
	case OutcomeUpdated:
		b.Updated++
	case OutcomeFailed:
		b.Failed++
	default:
		b.Unchanged++
	}
}

// Err joins every per-order failure, nil when all succeeded.
func (b *BatchResult) Err() error {
	var errs []error
	for _, r := range b.Results {
		if r.err != nil {
			errs = append(errs, r.err)
		}
	}
	return errors.Join(errs...)
}

func (s *Service) refreshOne(ctx context.Context, p *paymentsrepo.Payment, source string) RefreshResult {
	out := RefreshResult{OrderID: p.OrderID, PreviousStatus: p.Status, Status: p.Status}

	fail := func(err error) RefreshResult {
		metrics.Add(metricRefreshFailures, 1)
		out.Outcome = OutcomeFailed
		out.err = err
		out.Error = err.Error()
		return out
	}

	st, err := s.gateway.GetStatus(ctx, p.OrderID)
	if err != nil {
		return fail(fmt.Errorf("status %s: %w", p.OrderID, err))
	}

	status := Normalize(st.TransactionStatus, st.FraudStatus)
	if status == p.Status {
		out.Outcome = OutcomeUnchanged
		return out
	}

	res, err := s.store.ApplyTransition(ctx, paymentsrepo.Transition{
		OrderID:       p.OrderID,
		Status:        status,
		TransactionID: st.TransactionID,
		Raw:           st.Raw,
	})
	if err != nil {
		return fail(fmt.Errorf("apply refresh for %s: %w", p.OrderID, err))
	}

	out.Status = res.Payment.Status
	if !res.Changed {
		out.Outcome = OutcomeUnchanged
		return out
	}

	out.PreviousStatus = res.Previous
	out.Outcome = OutcomeUpdated
	s.changed(ctx, res, source)
	return out
}

// RefreshByOrder reconciles one order. A failed reconciliation is returned
// both in the result and as the error.
func (s *Service) RefreshByOrder(ctx context.Context, orderID string) (*RefreshResult, error) {
	p, err := s.store.FindByOrderID(ctx, orderID)
	if errors.Is(err, paymentsrepo.ErrNotFound) {
		return nil, ErrNoPending
	}
	if err != nil {
		return nil, err
	}

	if p.Status != paymentsrepo.StatusPending {
		return &RefreshResult{
			OrderID:        p.OrderID,
			Outcome:        OutcomeNotPending,
			PreviousStatus: p.Status,
			Status:         p.Status,
		}, nil
	}

	r := s.refreshOne(ctx, p, "refresh")
	return &r, r.err
}

// RefreshByStudent reconciles every pending payment of the student, newest
// first. One failing order does not stop the others.
func (s *Service) RefreshByStudent(ctx context.Context, studentID string) (*BatchResult, error) {
	pending, err := s.store.FindPendingByStudent(ctx, studentID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return nil, ErrNoPending
	}

	batch := &BatchResult{}
	for _, p := range pending {
		batch.add(s.refreshOne(ctx, p, "refresh"))
	}
	return batch, nil
}

// ReconcileStale refreshes up to limit payments that have been pending for
// longer than olderThan. It backs up webhooks the gateway never delivered.
// Each attempt is stamped on the row, so a payment is asked about at most
// once per olderThan and one the gateway does not know cannot starve the rest.
func (s *Service) ReconcileStale(ctx context.Context, olderThan time.Duration, limit int) (*BatchResult, error) {
	stale, err := s.store.FindStalePending(ctx, s.now().Add(-olderThan), limit)
	if err != nil {
		return nil, err
	}

	batch := &BatchResult{}
	for _, p := range stale {
		if ctx.Err() != nil {
			break
		}
		r := s.refreshOne(ctx, p, "reconcile")
		if r.err != nil && errors.Is(r.err, payments.ErrOrderNotFound) {
			s.logger.Warnw("stale payment unknown to gateway", "order_id", p.OrderID, "student_id", p.StudentID)
		}
		if err := s.store.MarkChecked(ctx, p.OrderID, s.now()); err != nil {
			s.logger.Warnw("stale payment check not recorded", "order_id", p.OrderID, "error", err.Error())
		}
		batch.add(r)
	}
	return batch, nil
}
