package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/student"
)

var studentOrdering = map[string]comparator[student.Student]{
	"full_name":         func(a, b student.Student) int { return cmpString(a.FullName, b.FullName) },
	"status":            func(a, b student.Student) int { return strings.Compare(a.Status, b.Status) },
	"joined_date":       func(a, b student.Student) int { return cmpTime(a.JoinedDate, b.JoinedDate) },
	"next_payment_date": func(a, b student.Student) int { return cmpTimePtr(a.NextPaymentDate, b.NextPaymentDate) },
	"created_at":        func(a, b student.Student) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func studentFallback(a, b student.Student) int {
	if c := cmpTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

type studentRepository struct {
	db *DB
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *DB) student.Repository {
	return &studentRepository{db: db}
}

func (repo *studentRepository) store(s student.Student) student.Student {
	s.Group = nil
	repo.db.students[s.ID] = s
	return s
}

// checkUnique mirrors the (group_id, phone) unique index of the SQL schema.
func (repo *studentRepository) checkUnique(s student.Student) error {
	for _, other := range repo.db.students {
		if other.ID != s.ID && other.GroupID == s.GroupID && other.Phone == s.Phone {
			return core.NewConflictError("a student with phone %s already exists in this group", s.Phone)
		}
	}
	return nil
}

func (repo *studentRepository) match(s student.Student, filter *student.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.IDs != nil && !inIDs(s.ID, filter.IDs) {
		return false
	}
	if filter.GroupID != "" && s.GroupID != filter.GroupID {
		return false
	}
	if filter.Status != "" && s.Status != filter.Status {
		return false
	}
	if filter.Phone != "" && s.Phone != filter.Phone {
		return false
	}
	if filter.Search != "" {
		search := strings.ToLower(filter.Search)
		if !(strings.Contains(strings.ToLower(s.FullName), search) || strings.Contains(s.Phone, search)) {
			return false
		}
	}
	if filter.NextPaymentFrom != nil && (s.NextPaymentDate == nil || s.NextPaymentDate.Before(*filter.NextPaymentFrom)) {
		return false
	}
	if filter.NextPaymentTo != nil && (s.NextPaymentDate == nil || !s.NextPaymentDate.Before(*filter.NextPaymentTo)) {
		return false
	}
	for _, status := range filter.ExcludeStatuses {
		if s.Status == status {
			return false
		}
	}
	return true
}

func (repo *studentRepository) CreateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s.ID = uuid.New().String()
	if err := repo.checkUnique(s); err != nil {
		return student.Student{}, err
	}
	return repo.store(s), nil
}

func (repo *studentRepository) GetStudentByID(_ context.Context, id string, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if s, ok := repo.db.students[id]; ok {
		return s, nil
	}
	return student.Student{}, student.ErrNotFound
}

func (repo *studentRepository) QueryStudents(_ context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]student.Student, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	students := make([]student.Student, 0, len(repo.db.students))
	for _, s := range repo.db.students {
		if repo.match(s, filter) {
			students = append(students, s)
		}
	}
	orderBy(students, ordering, studentOrdering, studentFallback)
	return students, nil
}

func (repo *studentRepository) CountStudents(_ context.Context, filter *student.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, s := range repo.db.students {
		if repo.match(s, filter) {
			n++
		}
	}
	return n, nil
}

// UpdateStudent keeps the stored payment dates; only UpdatePaymentDates writes them.
func (repo *studentRepository) UpdateStudent(_ context.Context, s student.Student, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.students[s.ID]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	if err := repo.checkUnique(s); err != nil {
		return student.Student{}, err
	}
	s.CreatedAt = orig.CreatedAt
	s.LastPaymentDate = orig.LastPaymentDate
	s.NextPaymentDate = orig.NextPaymentDate
	return repo.store(s), nil
}

func (repo *studentRepository) UpdatePaymentDates(_ context.Context, id string, dates student.PaymentDates, _ ...core.DBExecutor) (student.Student, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	s, ok := repo.db.students[id]
	if !ok {
		return student.Student{}, student.ErrNotFound
	}
	s.LastPaymentDate = dates.Last
	s.NextPaymentDate = dates.Next
	if dates.Status != "" {
		s.Status = dates.Status
	}
	s.UpdatedAt = dates.UpdatedAt
	return repo.store(s), nil
}

func (repo *studentRepository) MarkDebtors(_ context.Context, horizon, updatedAt time.Time, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	var n int
	for id, s := range repo.db.students {
		if s.Status == student.StatusStopped || s.Status == student.StatusDebtor {
			continue
		}
		if s.NextPaymentDate == nil || !s.NextPaymentDate.Before(horizon) {
			continue
		}
		s.Status = student.StatusDebtor
		s.UpdatedAt = updatedAt
		repo.db.students[id] = s
		n++
	}
	return n, nil
}

func (repo *studentRepository) DeleteStudent(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.students[id]; !ok {
		return student.ErrNotFound
	}
	delete(repo.db.students, id)
	return nil
}
