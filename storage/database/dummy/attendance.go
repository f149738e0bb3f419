package dummydb

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
)

var attendanceOrdering = map[string]comparator[attendance.Attendance]{
	"date":       func(a, b attendance.Attendance) int { return cmpTime(a.Date, b.Date) },
	"status":     func(a, b attendance.Attendance) int { return strings.Compare(a.Status, b.Status) },
	"created_at": func(a, b attendance.Attendance) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func attendanceFallback(a, b attendance.Attendance) int {
	if c := cmpTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

type attendanceRepository struct {
	db *DB
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *DB) attendance.Repository {
	return &attendanceRepository{db: db}
}

func (repo *attendanceRepository) store(a attendance.Attendance) attendance.Attendance {
	a.Student = nil
	a.Group = nil
	repo.db.attendance[a.ID] = a
	return a
}

// UpsertAttendance looks the (student, group, date) key up and writes under the same lock.
func (repo *attendanceRepository) UpsertAttendance(_ context.Context, a attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	for _, existing := range repo.db.attendance {
		if existing.StudentID == a.StudentID && existing.GroupID == a.GroupID && existing.Date.Equal(a.Date) {
			existing.Status = a.Status
			existing.Note = a.Note
			existing.UpdatedAt = a.UpdatedAt
			return repo.store(existing), nil
		}
	}
	a.ID = uuid.New().String()
	return repo.store(a), nil
}

func (repo *attendanceRepository) GetAttendanceByID(_ context.Context, id string, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if a, ok := repo.db.attendance[id]; ok {
		return a, nil
	}
	return attendance.Attendance{}, attendance.ErrNotFound
}

func (repo *attendanceRepository) QueryAttendance(_ context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]attendance.Attendance, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	records := make([]attendance.Attendance, 0, len(repo.db.attendance))
	for _, a := range repo.db.attendance {
		if filter != nil {
			if filter.IDs != nil && !inIDs(a.ID, filter.IDs) {
				continue
			}
			if filter.GroupID != "" && a.GroupID != filter.GroupID {
				continue
			}
			if filter.StudentID != "" && a.StudentID != filter.StudentID {
				continue
			}
			if filter.Date != nil && !a.Date.Equal(*filter.Date) {
				continue
			}
		}
		records = append(records, a)
	}
	orderBy(records, ordering, attendanceOrdering, attendanceFallback)
	return records, nil
}

func (repo *attendanceRepository) UpdateAttendance(_ context.Context, a attendance.Attendance, _ ...core.DBExecutor) (attendance.Attendance, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.attendance[a.ID]
	if !ok {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	orig.Status = a.Status
	orig.Note = a.Note
	orig.UpdatedAt = a.UpdatedAt
	return repo.store(orig), nil
}

func (repo *attendanceRepository) DeleteAttendance(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.attendance[id]; !ok {
		return attendance.ErrNotFound
	}
	delete(repo.db.attendance, id)
	return nil
}
