// Package billing generates course payments and reconciles them with the
// payment gateway.
package billing

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/lock"
	"ittr/internal/payments"

	"go.uber.org/zap"
)

const (
	DefaultOrderPrefix = "ITTR"
	DefaultPaymentType = "monthly"
)

// Store is the persistence the service needs. ApplyTransition must decide,
// update and log in one transaction.
type Store interface {
	FindPendingByStudent(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error)
	FindByOrderID(ctx context.Context, orderID string) (*paymentsrepo.Payment, error)
	InsertPending(ctx context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error)
	ApplyTransition(ctx context.Context, t paymentsrepo.Transition) (*paymentsrepo.TransitionResult, error)
	ListByStudent(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error)
	List(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error)
	FindStalePending(ctx context.Context, createdBefore time.Time, limit int) ([]*paymentsrepo.Payment, error)
	MarkChecked(ctx context.Context, orderID string, at time.Time) error
	ListLogs(ctx context.Context, paymentID string) ([]*paymentsrepo.PaymentLog, error)
}

type Config struct {
	OrderPrefix string
	// LockWait bounds how long generate waits for a concurrent call for the
	// same student.
	LockWait time.Duration
}

type Service struct {
	store    Store
	gateway  payments.Gateway
	locker   lock.Locker
	notifier Notifier
	logger   *zap.SugaredLogger

	prefix   string
	lockWait time.Duration
	now      func() time.Time
	lastMint atomic.Int64
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.notifier = n
		}
	}
}

func NewService(store Store, gateway payments.Gateway, locker lock.Locker, logger *zap.SugaredLogger, cfg Config, opts ...Option) *Service {
	if locker == nil {
		locker = lock.NewLocalLocker()
	}
	if cfg.OrderPrefix == "" {
		cfg.OrderPrefix = DefaultOrderPrefix
	}
	if cfg.LockWait <= 0 {
		cfg.LockWait = 15 * time.Second
	}

	s := &Service{
		store:    store,
		gateway:  gateway,
		locker:   locker,
		notifier: nopNotifier{},
		logger:   logger,
		prefix:   cfg.OrderPrefix,
		lockWait: cfg.LockWait,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// mintOrderID returns PREFIX-unixmillis, bumping the millis when two calls in
// this process land on the same value.
func (s *Service) mintOrderID() string {
	ms := s.now().UnixMilli()
	for {
		last := s.lastMint.Load()
		if ms <= last {
			ms = last + 1
		}
		if s.lastMint.CompareAndSwap(last, ms) {
			break
		}
	}
	return s.prefix + "-" + strconv.FormatInt(ms, 10)
}

type GenerateInput struct {
	StudentID   string `json:"studentid" validate:"required,max=64"`
	Name        string `json:"name" validate:"required,max=100"`
	Email       string `json:"email" validate:"required,email,max=255"`
	Amount      int64  `json:"amount" validate:"gt=0"`
	PaymentType string `json:"payment_type" validate:"max=50"`
}

type GenerateResult struct {
	OrderID     string
	RedirectURL string
	Token       string
	Reused      bool
	Payment     *paymentsrepo.Payment
}

func reuse(p *paymentsrepo.Payment) *GenerateResult {
	return &GenerateResult{
		OrderID:     p.OrderID,
		RedirectURL: p.CheckoutLink,
		Token:       p.CheckoutToken,
		Reused:      true,
		Payment:     p,
	}
}

// Generate returns the student's open checkout if there is one, otherwise
// creates a gateway transaction and records it as pending. Nothing is written
// when the gateway call fails.
func (s *Service) Generate(ctx context.Context, in GenerateInput) (*GenerateResult, error) {
	in.StudentID = strings.TrimSpace(in.StudentID)
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.PaymentType = strings.TrimSpace(in.PaymentType)
	if err := validate.Struct(in); err != nil {
		return nil, newValidationError(err)
	}
	if in.PaymentType == "" {
		in.PaymentType = DefaultPaymentType
	}

	lockCtx, cancel := context.WithTimeout(ctx, s.lockWait)
	defer cancel()
	unlock, err := s.locker.Lock(lockCtx, "student:"+in.StudentID)
	if err != nil {
		if errors.Is(err, lock.ErrNotAcquired) {
			return nil, ErrBusy
		}
		return nil, err
	}
	defer unlock()

	pending, err := s.store.FindPendingByStudent(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}
	if len(pending) > 0 {
		metrics.Add(metricReused, 1)
		return reuse(pending[0]), nil
	}

	orderID := s.mintOrderID()
	checkout, err := s.gateway.CreateTransaction(ctx, payments.TransactionRequest{
		OrderID:       orderID,
		GrossAmount:   in.Amount,
		CustomerName:  in.Name,
		CustomerEmail: in.Email,
	})
	if err != nil {
		return nil, fmt.Errorf("create transaction %s: %w", orderID, err)
	}

	p, err := s.store.InsertPending(ctx, &paymentsrepo.Payment{
		StudentID:     in.StudentID,
		OrderID:       orderID,
		Amount:        in.Amount,
		PaymentType:   in.PaymentType,
		CheckoutLink:  checkout.RedirectURL,
		CheckoutToken: checkout.Token,
		CustomerName:  in.Name,
		CustomerEmail: in.Email,
	})
	if errors.Is(err, paymentsrepo.ErrPendingExists) {
		// Another replica won the race; its row is the one the student should pay.
		s.logger.Warnw("gateway transaction orphaned by concurrent generate",
			"order_id", orderID, "student_id", in.StudentID)
		pending, ferr := s.store.FindPendingByStudent(ctx, in.StudentID)
		if ferr != nil {
			return nil, ferr
		}
		if len(pending) == 0 {
			return nil, err
		}
		metrics.Add(metricReused, 1)
		return reuse(pending[0]), nil
	}
	if err != nil {
		s.logger.Errorw("gateway transaction created but not recorded",
			"order_id", orderID, "student_id", in.StudentID, "error", err.Error())
		return nil, err
	}

	metrics.Add(metricGenerated, 1)
	s.logger.Infow("payment generated", "order_id", orderID, "student_id", in.StudentID, "amount", in.Amount)

	return &GenerateResult{
		OrderID:     p.OrderID,
		RedirectURL: p.CheckoutLink,
		Token:       p.CheckoutToken,
		Payment:     p,
	}, nil
}

// Webhook applies a verified notification. Unknown orders are ignored so the
// gateway stops redelivering; the normalized status is returned either way.
func (s *Service) Webhook(ctx context.Context, n payments.Notification) (paymentsrepo.Status, error) {
	metrics.Add(metricWebhooks, 1)
	status := Normalize(n.Native(), n.FraudStatus)

	res, err := s.store.ApplyTransition(ctx, paymentsrepo.Transition{
		OrderID:       n.OrderID,
		Status:        status,
		TransactionID: n.TransactionID,
		Raw:           n.Raw,
	})
	if errors.Is(err, paymentsrepo.ErrNotFound) {
		s.logger.Infow("webhook for unknown order ignored", "order_id", n.OrderID, "transaction_status", n.TransactionStatus)
		return status, nil
	}
	if err != nil {
		return status, fmt.Errorf("apply webhook for %s: %w", n.OrderID, err)
	}

	if res.Changed {
		s.changed(ctx, res, "webhook")
	}
	return status, nil
}

func (s *Service) changed(ctx context.Context, res *paymentsrepo.TransitionResult, source string) {
	metrics.Add(metricTransitions, 1)
	s.logger.Infow("payment status changed",
		"order_id", res.Payment.OrderID,
		"from", res.Previous,
		"to", res.Payment.Status,
		"source", source,
	)
	s.notifier.PaymentChanged(ctx, Change{Payment: *res.Payment, Previous: res.Previous, Source: source})
}

func (s *Service) History(ctx context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	return s.store.ListByStudent(ctx, studentID)
}

// HistoryAll lists every payment, optionally filtered by status, newest first.
func (s *Service) HistoryAll(ctx context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	if status != "" && !status.Valid() {
		return nil, 0, &ValidationError{Field: "status", Message: "must be one of pending, success, failed"}
	}
	return s.store.List(ctx, status, limit, offset)
}

type Detail struct {
	Payment *paymentsrepo.Payment      `json:"payment"`
	Logs    []*paymentsrepo.PaymentLog `json:"logs"`
}

// Detail returns one payment with its audit trail, oldest entry first.
func (s *Service) Detail(ctx context.Context, orderID string) (*Detail, error) {
	p, err := s.store.FindByOrderID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	logs, err := s.store.ListLogs(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Payment: p, Logs: logs}, nil
}
