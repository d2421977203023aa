package billing

import (
	"context"
	"sort"
	"sync"
	"time"

	"ittr/internal/domain/paymentsrepo"
	"ittr/internal/payments"

	"github.com/google/uuid"
)

// memStore mirrors the postgres container closely enough for the service:
// one pending row per student and transitions resolved under one mutex.
type memStore struct {
	mu    sync.Mutex
	rows  map[string]*paymentsrepo.Payment
	logs  []*paymentsrepo.PaymentLog
	clock time.Time

	failApply  error
	beforeSave func(p *paymentsrepo.Payment)
}

func newMemStore() *memStore {
	return &memStore{
		rows:  make(map[string]*paymentsrepo.Payment),
		clock: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func clone(p *paymentsrepo.Payment) *paymentsrepo.Payment {
	c := *p
	return &c
}

func (m *memStore) seed(p paymentsrepo.Payment) *paymentsrepo.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if p.Status == "" {
		p.Status = paymentsrepo.StatusPending
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = m.tick()
	}
	m.rows[p.OrderID] = &p
	return clone(&p)
}

func (m *memStore) get(orderID string) *paymentsrepo.Payment {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.rows[orderID]; ok {
		return clone(p)
	}
	return nil
}

func (m *memStore) logsFor(paymentID string) []*paymentsrepo.PaymentLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*paymentsrepo.PaymentLog
	for _, l := range m.logs {
		if l.PaymentID == paymentID {
			out = append(out, l)
		}
	}
	return out
}

func (m *memStore) sorted(keep func(p *paymentsrepo.Payment) bool) []*paymentsrepo.Payment {
	var out []*paymentsrepo.Payment
	for _, p := range m.rows {
		if keep(p) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) FindPendingByStudent(_ context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(p *paymentsrepo.Payment) bool {
		return p.StudentID == studentID && p.Status == paymentsrepo.StatusPending
	}), nil
}

func (m *memStore) FindByOrderID(_ context.Context, orderID string) (*paymentsrepo.Payment, error) {
	if p := m.get(orderID); p != nil {
		return p, nil
	}
	return nil, paymentsrepo.ErrNotFound
}

func (m *memStore) InsertPending(_ context.Context, p *paymentsrepo.Payment) (*paymentsrepo.Payment, error) {
	if m.beforeSave != nil {
		m.beforeSave(p)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[p.OrderID]; ok {
		return nil, paymentsrepo.ErrDuplicateOrder
	}
	for _, r := range m.rows {
		if r.StudentID == p.StudentID && r.Status == paymentsrepo.StatusPending {
			return nil, paymentsrepo.ErrPendingExists
		}
	}

	c := clone(p)
	c.ID = uuid.NewString()
	c.Status = paymentsrepo.StatusPending
	c.CreatedAt = m.tick()
	c.UpdatedAt = c.CreatedAt
	m.rows[c.OrderID] = c
	return clone(c), nil
}

func (m *memStore) ApplyTransition(_ context.Context, t paymentsrepo.Transition) (*paymentsrepo.TransitionResult, error) {
	if m.failApply != nil {
		return nil, m.failApply
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	cur, ok := m.rows[t.OrderID]
	if !ok {
		return nil, paymentsrepo.ErrNotFound
	}

	res := &paymentsrepo.TransitionResult{Previous: cur.Status}
	next, changed := paymentsrepo.ResolveTransition(cur.Status, t.Status)
	if !changed && t.TransactionID != "" && !cur.Status.Terminal() &&
		(cur.TransactionID == nil || *cur.TransactionID != t.TransactionID) {
		tx := t.TransactionID
		cur.TransactionID = &tx
		cur.UpdatedAt = m.tick()
	}
	if changed {
		m.logs = append(m.logs, &paymentsrepo.PaymentLog{
			ID:        int64(len(m.logs) + 1),
			PaymentID: cur.ID,
			OldStatus: cur.Status,
			NewStatus: next,
			Raw:       t.Raw,
		})
		cur.Status = next
		if t.TransactionID != "" {
			tx := t.TransactionID
			cur.TransactionID = &tx
		}
	}
	res.Changed = changed
	res.Payment = clone(cur)
	return res, nil
}

func (m *memStore) ListByStudent(_ context.Context, studentID string) ([]*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sorted(func(p *paymentsrepo.Payment) bool { return p.StudentID == studentID }), nil
}

func (m *memStore) List(_ context.Context, status paymentsrepo.Status, limit, offset int) ([]*paymentsrepo.Payment, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.sorted(func(p *paymentsrepo.Payment) bool { return status == "" || p.Status == status })
	total := len(all)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}
	return all[offset:end], total, nil
}

func (m *memStore) FindStalePending(_ context.Context, createdBefore time.Time, limit int) ([]*paymentsrepo.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.sorted(func(p *paymentsrepo.Payment) bool {
		return p.Status == paymentsrepo.StatusPending && p.CreatedAt.Before(createdBefore) &&
			(p.LastCheckedAt == nil || p.LastCheckedAt.Before(createdBefore))
	})
	// never checked first, then least recently checked, then oldest
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].LastCheckedAt, out[j].LastCheckedAt
		switch {
		case a == nil && b != nil:
			return true
		case a != nil && b == nil:
			return false
		case a != nil && b != nil && !a.Equal(*b):
			return a.Before(*b)
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) MarkChecked(_ context.Context, orderID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.rows[orderID]
	if !ok {
		return paymentsrepo.ErrNotFound
	}
	p.LastCheckedAt = &at
	return nil
}

func (m *memStore) ListLogs(_ context.Context, paymentID string) ([]*paymentsrepo.PaymentLog, error) {
	return m.logsFor(paymentID), nil
}

// mockGateway follows the func-field mock style.
type mockGateway struct {
	mu          sync.Mutex
	createCalls int
	statusCalls int

	CreateFunc func(ctx context.Context, req payments.TransactionRequest) (payments.Checkout, error)
	StatusFunc func(ctx context.Context, orderID string) (payments.StatusResult, error)
}

func (g *mockGateway) CreateTransaction(ctx context.Context, req payments.TransactionRequest) (payments.Checkout, error) {
	g.mu.Lock()
	g.createCalls++
	g.mu.Unlock()
	if g.CreateFunc != nil {
		return g.CreateFunc(ctx, req)
	}
	return payments.Checkout{
		RedirectURL: "https://pay.example/" + req.OrderID,
		Token:       "tok-" + req.OrderID,
	}, nil
}

func (g *mockGateway) GetStatus(ctx context.Context, orderID string) (payments.StatusResult, error) {
	g.mu.Lock()
	g.statusCalls++
	g.mu.Unlock()
	if g.StatusFunc != nil {
		return g.StatusFunc(ctx, orderID)
	}
	return payments.StatusResult{OrderID: orderID, TransactionStatus: payments.NativePending}, nil
}

func (g *mockGateway) creates() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.createCalls
}

type recordingNotifier struct {
	mu      sync.Mutex
	changes []Change
}

func (r *recordingNotifier) PaymentChanged(_ context.Context, c Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.changes)
}
