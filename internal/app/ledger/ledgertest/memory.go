// Package ledgertest provides an in-memory ledger with the same conditional
// update semantics as the Postgres one, for service and handler tests.
package ledgertest

import (
	"context"
	"sort"
	"sync"
	"time"

	"marketplace/internal/app/ledger"
	"marketplace/internal/domain"
	"marketplace/internal/domain/event"
)

type Memory struct {
	mu       sync.Mutex
	payments map[string]*domain.Payment
	names    map[string]string
	users    map[string]string
	events   []event.PaymentEvent

	// Err, when set, is returned by every call.
	Err error
}

func NewMemory() *Memory {
	return &Memory{
		payments: make(map[string]*domain.Payment),
		names:    make(map[string]string),
		users:    make(map[string]string),
	}
}

// Seed stores p as is, bypassing creation rules.
func (m *Memory) Seed(p domain.Payment) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := p
	m.payments[p.ID] = &cp
}

func (m *Memory) SetResourceName(resourceID, name string) {
	m.mu.Lock()
	m.names[resourceID] = name
	m.mu.Unlock()
}

func (m *Memory) SetUsername(userID, username string) {
	m.mu.Lock()
	m.users[userID] = username
	m.mu.Unlock()
}

func (m *Memory) Events() []event.PaymentEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]event.PaymentEvent(nil), m.events...)
}

func (m *Memory) Snapshot(id string) (domain.Payment, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.payments[id]
	if !ok {
		return domain.Payment{}, false
	}
	return clone(p), true
}

func (m *Memory) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.payments)
}

func clone(p *domain.Payment) domain.Payment {
	cp := *p
	if p.ConfirmedAt != nil {
		t := *p.ConfirmedAt
		cp.ConfirmedAt = &t
	}
	return cp
}

func (m *Memory) Create(ctx context.Context, p *domain.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	cp := clone(p)
	m.payments[p.ID] = &cp
	return nil
}

func (m *Memory) find(match func(*domain.Payment) bool) (*domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	for _, p := range m.payments {
		if match(p) {
			cp := clone(p)
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *Memory) Get(ctx context.Context, id string) (*domain.Payment, error) {
	return m.find(func(p *domain.Payment) bool { return p.ID == id })
}

func (m *Memory) FindBySessionRef(ctx context.Context, ref string) (*domain.Payment, error) {
	return m.find(func(p *domain.Payment) bool { return ref != "" && p.ExternalSession == ref })
}

func (m *Memory) FindByPaymentIntent(ctx context.Context, intentID string) (*domain.Payment, error) {
	return m.find(func(p *domain.Payment) bool { return intentID != "" && p.PaymentIntent == intentID })
}

func (m *Memory) HasConfirmed(ctx context.Context, buyerID, resourceID string) (bool, error) {
	_, err := m.find(func(p *domain.Payment) bool {
		return p.BuyerID == buyerID && p.ResourceID == resourceID && p.Status == domain.PaymentStatusConfirmed
	})
	if err == domain.ErrNotFound {
		return false, nil
	}
	return err == nil, err
}

func (m *Memory) AttachSession(ctx context.Context, paymentID, ref string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	p, ok := m.payments[paymentID]
	if !ok || (p.ExternalSession != "" && p.ExternalSession != ref) {
		return domain.ErrInvalidTransition
	}
	p.ExternalSession = ref
	return nil
}

func (m *Memory) Apply(ctx context.Context, payment *domain.Payment, tr domain.Transition) (bool, error) {
	if !domain.CanTransition(tr.From, tr.To) {
		return false, domain.ErrInvalidTransition
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return false, m.Err
	}
	p, ok := m.payments[tr.PaymentID]
	if !ok || p.Status != tr.From {
		return false, nil
	}
	p.Status = tr.To
	p.UpdatedAt = tr.At
	if tr.To == domain.PaymentStatusConfirmed && p.ConfirmedAt == nil {
		at := tr.At
		p.ConfirmedAt = &at
	}
	if tr.PaymentIntent != "" {
		p.PaymentIntent = tr.PaymentIntent
	}
	if p.ExternalSession == "" {
		p.ExternalSession = tr.SessionRef
	}
	m.events = append(m.events, event.PaymentEvent{
		PaymentID:  p.ID,
		BuyerID:    p.BuyerID,
		ResourceID: p.ResourceID,
		Amount:     p.Amount,
		Status:     string(tr.To),
		OccurredAt: tr.At,
	})
	return true, nil
}

func (m *Memory) summaries(match func(*domain.Payment) bool, less func(a, b *domain.Payment) bool) []domain.PaymentSummary {
	var matched []*domain.Payment
	for _, p := range m.payments {
		if match(p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return less(matched[i], matched[j]) })
	out := make([]domain.PaymentSummary, 0, len(matched))
	for _, p := range matched {
		out = append(out, domain.PaymentSummary{
			Payment:      clone(p),
			ResourceName: m.names[p.ResourceID],
			Buyer:        domain.BuyerIdentity{ID: p.BuyerID, Username: m.users[p.BuyerID]},
		})
	}
	return out
}

func page(list []domain.PaymentSummary, pageNum, size int) []domain.PaymentSummary {
	start := (pageNum - 1) * size
	if pageNum < 1 || start >= len(list) {
		return []domain.PaymentSummary{}
	}
	end := start + size
	if end > len(list) {
		end = len(list)
	}
	return list[start:end]
}

func confirmedDesc(a, b *domain.Payment) bool {
	return a.ConfirmedAt != nil && b.ConfirmedAt != nil && a.ConfirmedAt.After(*b.ConfirmedAt)
}

func (m *Memory) ListConfirmedByRecipient(ctx context.Context, recipientID string, pageNum int) ([]domain.PaymentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if pageNum < 1 {
		return nil, domain.ErrInvalidInput
	}
	list := m.summaries(func(p *domain.Payment) bool {
		return p.RecipientID == recipientID && p.Status == domain.PaymentStatusConfirmed
	}, confirmedDesc)
	return page(list, pageNum, ledger.PageSize), nil
}

func (m *Memory) Report(ctx context.Context, f domain.PaymentReportFilter) ([]domain.PaymentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	return m.summaries(func(p *domain.Payment) bool {
		if p.RecipientID != f.RecipientID || p.Status != domain.PaymentStatusConfirmed || p.ConfirmedAt == nil {
			return false
		}
		if p.ConfirmedAt.Before(f.Start) || p.ConfirmedAt.After(f.End) {
			return false
		}
		return f.ResourceID == "" || p.ResourceID == f.ResourceID
	}, confirmedDesc), nil
}

func (m *Memory) ListByBuyer(ctx context.Context, buyerID string, pageNum int) ([]domain.PaymentSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	if pageNum < 1 {
		return nil, domain.ErrInvalidInput
	}
	list := m.summaries(func(p *domain.Payment) bool { return p.BuyerID == buyerID },
		func(a, b *domain.Payment) bool { return a.CreatedAt.After(b.CreatedAt) })
	return page(list, pageNum, ledger.PageSize), nil
}

func (m *Memory) ListStalePending(ctx context.Context, olderThan time.Time, limit int) ([]domain.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Payment
	for _, p := range m.payments {
		if p.Status == domain.PaymentStatusPending && p.CreatedAt.Before(olderThan) {
			out = append(out, clone(p))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
