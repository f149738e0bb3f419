package dummydb

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
)

var now = time.Date(2024, time.March, 1, 9, 0, 0, 0, time.UTC)

func openDB(t *testing.T) *DB {
	db, err := Open()
	if err != nil {
		t.Fatalf("openDB() failed: %v", err)
	}
	return db
}

func TestDB_RunInTx(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := NewCourseRepository(db)

	_, err := repo.CreateCourse(ctx, course.Course{Name: "Kept", CreatedAt: now})
	require.NoError(t, err)

	errBoom := errors.New("boom")
	err = db.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := repo.CreateCourse(ctx, course.Course{Name: "Rolled back", CreatedAt: now}, exec); err != nil {
			return err
		}
		return errBoom
	})
	assert.Equal(t, errBoom, err)

	courses, err := repo.QueryCourses(ctx, nil, nil)
	require.NoError(t, err)
	require.Len(t, courses, 1)
	assert.Equal(t, "Kept", courses[0].Name)

	err = db.RunInTx(ctx, func(exec core.DBExecutor) error {
		_, err := repo.CreateCourse(ctx, course.Course{Name: "Committed", CreatedAt: now.Add(time.Minute)}, exec)
		return err
	})
	require.NoError(t, err)
	courses, err = repo.QueryCourses(ctx, nil, nil)
	require.NoError(t, err)
	assert.Len(t, courses, 2)
}

func TestDB_RunInTx_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := openDB(t).RunInTx(ctx, func(core.DBExecutor) error {
		called = true
		return nil
	})
	assert.Error(t, err)
	assert.False(t, called)
}

func TestOrderBy(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	repo := NewStudentRepository(db)

	d := func(day int) *time.Time {
		t := core.NewDate(2024, time.March, day)
		return &t
	}
	for i, s := range []student.Student{
		{FullName: "bobur", Phone: "1", NextPaymentDate: d(5), Status: student.StatusActive},
		{FullName: "Aziz", Phone: "2", Status: student.StatusActive},
		{FullName: "Dilnoza", Phone: "3", NextPaymentDate: d(2), Status: student.StatusDebtor},
		{FullName: "Aziz", Phone: "4", NextPaymentDate: d(9), Status: student.StatusLead},
	} {
		s.CreatedAt = now.Add(time.Duration(i) * time.Minute)
		_, err := repo.CreateStudent(ctx, s)
		require.NoError(t, err)
	}

	tests := []struct {
		name      string
		ordering  []core.DBOrdering
		wantPhone []string
	}{
		{name: "fallback is creation order", wantPhone: []string{"1", "2", "3", "4"}},
		{name: "name is case insensitive, ties by creation", ordering: []core.DBOrdering{{Field: "full_name", Ascending: true}}, wantPhone: []string{"2", "4", "1", "3"}},
		{name: "name desc then next payment", ordering: []core.DBOrdering{{Field: "full_name"}, {Field: "next_payment_date", Ascending: true}}, wantPhone: []string{"3", "1", "4", "2"}},
		{name: "nil dates last", ordering: []core.DBOrdering{{Field: "next_payment_date", Ascending: true}}, wantPhone: []string{"3", "1", "4", "2"}},
		{name: "unknown field ignored", ordering: []core.DBOrdering{{Field: "password"}}, wantPhone: []string{"1", "2", "3", "4"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			students, err := repo.QueryStudents(ctx, nil, tt.ordering)
			require.NoError(t, err)
			phones := make([]string, 0, len(students))
			for _, s := range students {
				phones = append(phones, s.Phone)
			}
			assert.Equal(t, tt.wantPhone, phones)
		})
	}
}

func TestGroupRepository_ActivateGroup(t *testing.T) {
	ctx := context.Background()
	repo := NewGroupRepository(openDB(t))
	g, err := repo.CreateGroup(ctx, group.Group{Name: "G", Status: group.StatusRecruiting, CreatedAt: now})
	require.NoError(t, err)

	start := core.NewDate(2024, time.March, 4)
	activated, err := repo.ActivateGroup(ctx, g.ID, start, now)
	require.NoError(t, err)
	assert.Equal(t, group.StatusActive, activated.Status)
	assert.True(t, activated.StartDate.Equal(start))

	_, err = repo.ActivateGroup(ctx, g.ID, start, now)
	var stateErr *core.StateError
	assert.True(t, errors.As(err, &stateErr), "got %v", err)

	_, err = repo.ActivateGroup(ctx, "missing", start, now)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestStudentRepository_Unique(t *testing.T) {
	ctx := context.Background()
	repo := NewStudentRepository(openDB(t))

	_, err := repo.CreateStudent(ctx, student.Student{GroupID: "g1", Phone: "+998901234567"})
	require.NoError(t, err)
	_, err = repo.CreateStudent(ctx, student.Student{GroupID: "g2", Phone: "+998901234567"})
	assert.NoError(t, err, "same phone in another group is fine")
	_, err = repo.CreateStudent(ctx, student.Student{GroupID: "g1", Phone: "+998901234567"})
	assert.True(t, core.IsConflict(err), "got %v", err)
}

func TestPaymentRepository_SumPayments(t *testing.T) {
	ctx := context.Background()
	repo := NewPaymentRepository(openDB(t))
	total, err := repo.SumPayments(ctx, nil)
	require.NoError(t, err)
	assert.True(t, total.IsZero())
}

func TestCmpDecimal(t *testing.T) {
	assert.Equal(t, -1, cmpDecimal(decimal.NewFromInt(1), decimal.NewFromFloat(1.5)))
	assert.Equal(t, 0, cmpDecimal(decimal.RequireFromString("2.50"), decimal.NewFromFloat(2.5)))
}
