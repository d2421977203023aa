package paymentsrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ittr/internal/infra/dbx"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pendingPerStudentIndex = "payments_one_pending_per_student"
	uniqueViolation        = "23505"
)

const paymentColumns = `
	payment_id, student_id, gateway_order_id, gateway_transaction_id, amount,
	payment_type, status, checkout_link, checkout_token, customer_name,
	customer_email, created_at, updated_at, last_checked_at`

type Repository struct{ q dbx.Querier }

func NewRepository(q dbx.Querier) *Repository { return &Repository{q: q} }

func scanPayment(row pgx.Row, p *Payment) error {
	return row.Scan(
		&p.ID,
		&p.StudentID,
		&p.OrderID,
		&p.TransactionID,
		&p.Amount,
		&p.PaymentType,
		&p.Status,
		&p.CheckoutLink,
		&p.CheckoutToken,
		&p.CustomerName,
		&p.CustomerEmail,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.LastCheckedAt,
	)
}

func collectPayments(rows pgx.Rows) ([]*Payment, error) {
	defer rows.Close()

	var out []*Payment
	for rows.Next() {
		var p Payment
		if err := scanPayment(rows, &p); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}

// Insert stores a new payment. The id is minted here; status defaults to pending.
func (r *Repository) Insert(ctx context.Context, p *Payment) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = StatusPending
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO payments (
			payment_id, student_id, gateway_order_id, amount, payment_type, status,
			checkout_link, checkout_token, customer_name, customer_email
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`, p.ID, p.StudentID, p.OrderID, p.Amount, p.PaymentType, p.Status,
		p.CheckoutLink, p.CheckoutToken, p.CustomerName, p.CustomerEmail).
		Scan(&p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if pgErr.ConstraintName == pendingPerStudentIndex {
				return nil, ErrPendingExists
			}
			return nil, ErrDuplicateOrder
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}
	return p, nil
}

func (r *Repository) UpdateStatus(ctx context.Context, orderID string, status Status, transactionID *string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET status = $2,
		       gateway_transaction_id = COALESCE($3, gateway_transaction_id),
		       updated_at = now()
		 WHERE gateway_order_id = $1
	`, orderID, status, transactionID)
	if err != nil {
		return fmt.Errorf("update payment status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *Repository) SetTransactionID(ctx context.Context, orderID, transactionID string) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET gateway_transaction_id = $2, updated_at = now()
		 WHERE gateway_order_id = $1
	`, orderID, transactionID)
	if err != nil {
		return fmt.Errorf("set gateway transaction id: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// MarkChecked records a reconciler attempt on the order.
func (r *Repository) MarkChecked(ctx context.Context, orderID string, at time.Time) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	tag, err := r.q.Exec(ctx, `
		UPDATE payments
		   SET last_checked_at = $2
		 WHERE gateway_order_id = $1
	`, orderID, at)
	if err != nil {
		return fmt.Errorf("mark payment checked: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// FindPendingByStudent returns the student's pending payments, newest first.
func (r *Repository) FindPendingByStudent(ctx context.Context, studentID string) ([]*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE student_id = $1 AND status = 'pending'
		ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("find pending payments: %w", err)
	}
	return collectPayments(rows)
}

func (r *Repository) FindByOrderID(ctx context.Context, orderID string) (*Payment, error) {
	return r.findByOrderID(ctx, orderID, "")
}

// FindByOrderIDForUpdate locks the row; only meaningful inside a transaction.
func (r *Repository) FindByOrderIDForUpdate(ctx context.Context, orderID string) (*Payment, error) {
	return r.findByOrderID(ctx, orderID, " FOR UPDATE")
}

func (r *Repository) findByOrderID(ctx context.Context, orderID, lock string) (*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	var p Payment
	err := scanPayment(r.q.QueryRow(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE gateway_order_id = $1`+lock, orderID), &p)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get payment by order id: %w", err)
	}
	return &p, nil
}

// FindStalePending returns pending payments created before the cut-off that
// were not checked since then. Never-checked rows come first, then the
// least recently checked, so orders the gateway keeps rejecting rotate to
// the back instead of filling every batch.
func (r *Repository) FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	rows, err := r.q.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE status = 'pending'
		  AND created_at < $1
		  AND (last_checked_at IS NULL OR last_checked_at < $1)
		ORDER BY last_checked_at ASC NULLS FIRST, created_at ASC
		LIMIT $2
	`, createdBefore, limit)
	if err != nil {
		return nil, fmt.Errorf("find stale pending payments: %w", err)
	}
	return collectPayments(rows)
}

func (r *Repository) ListByStudent(ctx context.Context, studentID string) ([]*Payment, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT`+paymentColumns+`
		FROM payments
		WHERE student_id = $1
		ORDER BY created_at DESC
	`, studentID)
	if err != nil {
		return nil, fmt.Errorf("list student payments: %w", err)
	}
	return collectPayments(rows)
}

// List returns payments newest first with an optional status filter
// ("" means all) and the total count for pagination.
func (r *Repository) List(ctx context.Context, status Status, limit, offset int) ([]*Payment, int, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.q.Query(ctx, `
		SELECT`+paymentColumns+`,
		       COUNT(*) OVER() AS total_count
		FROM payments
		WHERE ($1 = '' OR status = $1)
		ORDER BY created_at DESC, payment_id DESC
		LIMIT $2 OFFSET $3
	`, string(status), limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	var (
		out   []*Payment
		total int
	)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(
			&p.ID, &p.StudentID, &p.OrderID, &p.TransactionID, &p.Amount,
			&p.PaymentType, &p.Status, &p.CheckoutLink, &p.CheckoutToken,
			&p.CustomerName, &p.CustomerEmail, &p.CreatedAt, &p.UpdatedAt,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan payment: %w", err)
		}
		out = append(out, &p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("rows error: %w", err)
	}
	return out, total, nil
}
