package billing

import (
	"context"
	"strconv"
	"sync"
	"time"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/events"
	"ittr/internal/mailer"

	"go.uber.org/zap"
)

// Change is a committed status transition.
type Change struct {
	Payment  paymentsrepo.Payment
	Previous paymentsrepo.Status
	Source   string // "webhook", "refresh" or "reconcile"
}

// Notifier is told about every committed transition. It must not block the
// caller for long and its failures never undo the transition.
type Notifier interface {
	PaymentChanged(ctx context.Context, c Change)
}

type nopNotifier struct{}

func (nopNotifier) PaymentChanged(context.Context, Change) {}

type receipt struct {
	Name          string
	OrderID       string
	TransactionID string
	Amount        string
	PaymentType   string
}

// FanoutNotifier publishes a Kafka event for every change and mails a
// receipt on success, both off the request goroutine.
type FanoutNotifier struct {
	publisher events.Publisher
	mailer    mailer.Client
	logger    *zap.SugaredLogger
	timeout   time.Duration
	wg        sync.WaitGroup
}

func NewFanoutNotifier(publisher events.Publisher, m mailer.Client, logger *zap.SugaredLogger) *FanoutNotifier {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &FanoutNotifier{
		publisher: publisher,
		mailer:    m,
		logger:    logger,
		timeout:   30 * time.Second,
	}
}

func (n *FanoutNotifier) PaymentChanged(ctx context.Context, c Change) {
	ctx = context.WithoutCancel(ctx)

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()

		ctx, cancel := context.WithTimeout(ctx, n.timeout)
		defer cancel()

		p := c.Payment
		var txID string
		if p.TransactionID != nil {
			txID = *p.TransactionID
		}

		err := n.publisher.PublishStatusChanged(ctx, events.PaymentStatusChanged{
			PaymentID:     p.ID,
			StudentID:     p.StudentID,
			OrderID:       p.OrderID,
			TransactionID: txID,
			Amount:        p.Amount,
			PaymentType:   p.PaymentType,
			OldStatus:     string(c.Previous),
			NewStatus:     string(p.Status),
			Source:        c.Source,
		})
		if err != nil {
			n.logger.Warnw("payment event not published", "order_id", p.OrderID, "error", err.Error())
		}

		if p.Status != paymentsrepo.StatusSuccess || n.mailer == nil || p.CustomerEmail == "" {
			return
		}

		_, err = n.mailer.Send(mailer.PaymentReceiptTemplate, p.CustomerName, p.CustomerEmail, receipt{
			Name:          p.CustomerName,
			OrderID:       p.OrderID,
			TransactionID: txID,
			Amount:        strconv.FormatInt(p.Amount, 10),
			PaymentType:   p.PaymentType,
		})
		if err != nil {
			n.logger.Warnw("payment receipt not sent", "order_id", p.OrderID, "error", err.Error())
			return
		}
		n.logger.Infow("payment receipt sent", "order_id", p.OrderID)
	}()
}

// Wait blocks until in-flight notifications finish.
func (n *FanoutNotifier) Wait() { n.wg.Wait() }
