package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/payment"
)

var paymentOrdering = map[string]comparator[payment.Payment]{
	"payment_date": func(a, b payment.Payment) int { return cmpTime(a.PaymentDate, b.PaymentDate) },
	"amount":       func(a, b payment.Payment) int { return cmpDecimal(a.Amount, b.Amount) },
	"created_at":   func(a, b payment.Payment) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func paymentFallback(a, b payment.Payment) int {
	if c := cmpTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

type paymentRepository struct {
	db *DB
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *DB) payment.Repository {
	return &paymentRepository{db: db}
}

func (repo *paymentRepository) store(p payment.Payment) payment.Payment {
	p.Student = nil
	repo.db.payments[p.ID] = p
	return p
}

func (repo *paymentRepository) match(p payment.Payment, filter *payment.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.IDs != nil && !inIDs(p.ID, filter.IDs) {
		return false
	}
	if filter.StudentID != "" && p.StudentID != filter.StudentID {
		return false
	}
	if filter.DateFrom != nil && p.PaymentDate.Before(*filter.DateFrom) {
		return false
	}
	if filter.DateTo != nil && p.PaymentDate.After(*filter.DateTo) {
		return false
	}
	return true
}

func (repo *paymentRepository) CreatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	p.ID = uuid.New().String()
	return repo.store(p), nil
}

func (repo *paymentRepository) GetPaymentByID(_ context.Context, id string, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if p, ok := repo.db.payments[id]; ok {
		return p, nil
	}
	return payment.Payment{}, payment.ErrNotFound
}

func (repo *paymentRepository) QueryPayments(_ context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]payment.Payment, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	payments := make([]payment.Payment, 0, len(repo.db.payments))
	for _, p := range repo.db.payments {
		if repo.match(p, filter) {
			payments = append(payments, p)
		}
	}
	orderBy(payments, ordering, paymentOrdering, paymentFallback)
	return payments, nil
}

func (repo *paymentRepository) SumPayments(_ context.Context, filter *payment.QueryFilter, _ ...core.DBExecutor) (decimal.Decimal, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	total := decimal.Zero
	for _, p := range repo.db.payments {
		if repo.match(p, filter) {
			total = total.Add(p.Amount)
		}
	}
	return total, nil
}

func (repo *paymentRepository) UpdatePayment(_ context.Context, p payment.Payment, _ ...core.DBExecutor) (payment.Payment, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.payments[p.ID]
	if !ok {
		return payment.Payment{}, payment.ErrNotFound
	}
	p.StudentID = orig.StudentID
	p.CreatedAt = orig.CreatedAt
	return repo.store(p), nil
}

func (repo *paymentRepository) DeletePayment(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.payments[id]; !ok {
		return payment.ErrNotFound
	}
	delete(repo.db.payments, id)
	return nil
}
