package paymentsrepo

import (
	"context"
	"fmt"

	"ittr/internal/infra/dbx"
)

type LogsRepository struct{ q dbx.Querier }

func NewLogsRepository(q dbx.Querier) *LogsRepository {
	return &LogsRepository{q: q}
}

func (r *LogsRepository) AppendLog(ctx context.Context, entry *PaymentLog) error {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	// raw is stored verbatim; an empty payload becomes NULL.
	var raw []byte
	if len(entry.Raw) > 0 {
		raw = entry.Raw
	}

	err := r.q.QueryRow(ctx, `
		INSERT INTO payment_logs (payment_id, old_status, new_status, raw)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`, entry.PaymentID, entry.OldStatus, entry.NewStatus, raw).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert payment_log: %w", err)
	}
	return nil
}

func (r *LogsRepository) ListByPayment(ctx context.Context, paymentID string) ([]*PaymentLog, error) {
	ctx, cancel := context.WithTimeout(ctx, QueryTimeoutDuration)
	defer cancel()

	rows, err := r.q.Query(ctx, `
		SELECT id, payment_id, old_status, new_status, raw, created_at
		FROM payment_logs
		WHERE payment_id = $1
		ORDER BY id ASC
	`, paymentID)
	if err != nil {
		return nil, fmt.Errorf("list payment_logs: %w", err)
	}
	defer rows.Close()

	var out []*PaymentLog
	for rows.Next() {
		var l PaymentLog
		if err := rows.Scan(&l.ID, &l.PaymentID, &l.OldStatus, &l.NewStatus, &l.Raw, &l.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan payment_log: %w", err)
		}
		out = append(out, &l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return out, nil
}
