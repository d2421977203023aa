package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ittr/internal/domain/paymentsrepo"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Container struct {
	pool     *pgxpool.Pool // IMPORTANT: set the pool so WithPaymentTx works
	Payments paymentsrepo.Store
	PayLogs  paymentsrepo.LogsStore
}

func NewContainer(db *pgxpool.Pool) *Container {
	return &Container{
		pool:     db,
		Payments: paymentsrepo.NewRepository(db),
		PayLogs:  paymentsrepo.NewLogsRepository(db),
	}
}

// PaymentTx is a temporary, tx-scoped set of repos for atomic units of work.
type PaymentTx struct {
	Payments paymentsrepo.Store
	PayLogs  paymentsrepo.LogsStore
}

// WithPaymentTx runs a payment unit-of-work atomically.
func (c *Container) WithPaymentTx(ctx context.Context, fn func(s *PaymentTx) error) error {
	if c.pool == nil {
		return fmt.Errorf("storage container pool is nil (did you forget to set pool in NewContainer?)")
	}

	tx, err := c.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}

	defer func() {
		_ = tx.Rollback(ctx) // safe even if already committed
	}()

	s := &PaymentTx{
		Payments: paymentsrepo.NewRepository(tx),
		PayLogs:  paymentsrepo.NewLogsRepository(tx),
	}

	if err := fn(s); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ApplyTransition locks the order row, resolves the next status and writes
// the status update together with its audit log. Terminal rows and replays
// leave the row untouched; a new gateway transaction id is still recorded on
// a row that is not yet terminal.
func (c *Container) ApplyTransition(ctx context.Context, t paymentsrepo.Transition) (*paymentsrepo.TransitionResult, error) {
	var res *paymentsrepo.TransitionResult

	err := c.WithPaymentTx(ctx, func(s *PaymentTx) error {
		cur, err := s.Payments.FindByOrderIDForUpdate(ctx, t.OrderID)
		if err != nil {
			return err
		}

		res = &paymentsrepo.TransitionResult{Payment: cur, Previous: cur.Status}

		next, changed := paymentsrepo.ResolveTransition(cur.Status, t.Status)
		if !changed {
			if t.TransactionID != "" && !cur.Status.Terminal() && !sameTransaction(cur.TransactionID, t.TransactionID) {
				if err := s.Payments.SetTransactionID(ctx, t.OrderID, t.TransactionID); err != nil {
					return err
				}
				txID := t.TransactionID
				cur.TransactionID = &txID
			}
			return nil
		}

		var txID *string
		if t.TransactionID != "" {
			txID = &t.TransactionID
		}
		if err := s.Payments.UpdateStatus(ctx, t.OrderID, next, txID); err != nil {
			return err
		}

		if err := s.PayLogs.AppendLog(ctx, &paymentsrepo.PaymentLog{
			PaymentID: cur.ID,
			OldStatus: cur.Status,
			NewStatus: next,
			Raw:       t.Raw,
		}); err != nil {
			return err
		}

		cur.Status = next
		if txID != nil {
			cur.TransactionID = txID
		}
		cur.UpdatedAt = time.Now()
		res.Changed = true
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func sameTransaction(stored *string, incoming string) bool {
	return stored != nil && *stored == incoming
}

func (c *Container) FindPendingByStudent(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	return c.Payments.FindPendingByStudent(ctx, studentID)
}

func (c *Container) FindByOrderID(ctx context.Context, orderID string) (*paymentsrepo.Payment, error) {
	return c.Payments.FindByOrderID(ctx, orderID)
}

func (c *Container) InsertPending(ctx context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error) {
	p.Status = paymentsrepo.StatusPending
	return c.Payments.Insert(ctx, p)
}

func (c *Container) ListByStudent(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	return c.Payments.ListByStudent(ctx, studentID)
}

func (c *Container) List(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	return c.Payments.List(ctx, status, limit, offset)
}

func (c *Container) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*paymentsrepo.Payment, error) {
	return c.Payments.FindStalePending(ctx, createdBefore, limit)
}

func (c *Container) MarkChecked(ctx context.Context, orderID string, at time.Time) error {
	return c.Payments.MarkChecked(ctx, orderID, at)
}

func (c *Container) ListLogs(ctx context.Context, paymentID string) ([]*paymentsrepo.PaymentLog, error) {
	return c.PayLogs.ListByPayment(ctx, paymentID)
}

// Ping reports whether the pool can reach the database.
func (c *Container) Ping(ctx context.Context) error {
	if c.pool == nil {
		return errors.New("storage container pool is nil")
	}
	return c.pool.Ping(ctx)
}
