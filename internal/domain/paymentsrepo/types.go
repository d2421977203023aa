package paymentsrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("payment not found")
	// ErrPendingExists is returned by Insert when the student already has an
	// open pending payment (partial unique index payments_one_pending_per_student).
	ErrPendingExists = errors.New("student already has a pending payment")
	// ErrDuplicateOrder is returned by Insert when gateway_order_id collides.
	ErrDuplicateOrder = errors.New("gateway order id already exists")

	QueryTimeoutDuration = time.Second * 5
)

// Status is the normalized payment status stored in payments.status.
type Status string

const (
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusFailed
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusSuccess, StatusFailed:
		return true
	}
	return false
}

// ResolveTransition decides what stored status follows current when incoming
// is observed. Terminal statuses are absorbing and an equal status is a no-op.
func ResolveTransition(current, incoming Status) (next Status, changed bool) {
	if current.Terminal() {
		return current, false
	}
	if !incoming.Valid() || incoming == current {
		return current, false
	}
	return incoming, true
}

type Payment struct {
	ID            string    `json:"payment_id"`
	StudentID     string    `json:"student_id"`
	OrderID       string    `json:"gateway_order_id"`
	TransactionID *string   `json:"gateway_transaction_id"`
	Amount        int64     `json:"amount"`
	PaymentType   string    `json:"payment_type"`
	Status        Status    `json:"status"`
	CheckoutLink  string    `json:"checkout_link"`
	CheckoutToken string    `json:"checkout_token"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	// LastCheckedAt is the last time the reconciler asked the gateway.
	LastCheckedAt *time.Time `json:"last_checked_at,omitempty"`
}

// PaymentLog is one append-only audit row per observed status change.
type PaymentLog struct {
	ID        int64           `json:"id"`
	PaymentID string          `json:"payment_id"`
	OldStatus Status          `json:"old_status"`
	NewStatus Status          `json:"new_status"`
	Raw       json.RawMessage `json:"raw,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type Store interface {
	Insert(ctx context.Context, p *Payment) (*Payment, error)
	UpdateStatus(ctx context.Context, orderID string, status Status, transactionID *string) error
	SetTransactionID(ctx context.Context, orderID, transactionID string) error

	FindPendingByStudent(ctx context.Context, studentID string) ([]*Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*Payment, error)
	FindByOrderIDForUpdate(ctx context.Context, orderID string) (*Payment, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*Payment, error)
	MarkChecked(ctx context.Context, orderID string, at time.Time) error
	ListByStudent(ctx context.Context, studentID string) ([]*Payment, error)
	List(ctx context.Context, status Status, limit, offset int) ([]*Payment, int, error)
}

type LogsStore interface {
	AppendLog(ctx context.Context, entry *PaymentLog) error
	ListByPayment(ctx context.Context, paymentID string) ([]*PaymentLog, error)
}

// Transition is an observed gateway status for one order, already normalized.
type Transition struct {
	OrderID       string
	Status        Status
	TransactionID string
	Raw           json.RawMessage
}

// TransitionResult reports what ApplyTransition did to the stored row.
type TransitionResult struct {
	Payment  *Payment
	Previous Status
	Changed  bool
}
