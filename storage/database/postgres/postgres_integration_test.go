//go:build integration

package pgrepos_test

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
	"github.com/infast/crm/storage/database"
	pgrepos "github.com/infast/crm/storage/database/postgres"
	testutil "github.com/infast/crm/tests"
)

// Run with: CRM_TEST_DATABASE_URL=postgres://... go test -tags integration ./storage/database/postgres/
const dsnEnv = "CRM_TEST_DATABASE_URL"

var now = time.Date(2024, time.April, 8, 9, 0, 0, 0, time.UTC)

func setup(t *testing.T) *testutil.Env {
	t.Helper()

	dsn := os.Getenv(dsnEnv)
	if dsn == "" {
		t.Skipf("%s not set", dsnEnv)
	}
	db, err := sqlx.Connect("pgx", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, database.Migrate(db, "up"))
	_, err = db.Exec(`TRUNCATE attendance, payment, student, lead, "group", course`)
	require.NoError(t, err)

	return testutil.NewEnvOn(now, testutil.Store{
		Tx:         database.NewTransactor(db),
		Courses:    pgrepos.NewCourseRepository(db),
		Groups:     pgrepos.NewGroupRepository(db),
		Leads:      pgrepos.NewLeadRepository(db),
		Students:   pgrepos.NewStudentRepository(db),
		Payments:   pgrepos.NewPaymentRepository(db),
		Attendance: pgrepos.NewAttendanceRepository(db),
	})
}

func TestGroupActivation(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusRecruiting, 2, "Mon", "Wed")
	env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusLead, nil)
	env.CreateStudent(t, grp.ID, "Vali", testutil.Phone(2), student.StatusLead, nil)
	env.CreateLead(t, grp.ID, "Lola", testutil.Phone(3), time.Hour)
	dup := env.CreateLead(t, grp.ID, "Ali again", testutil.Phone(1), 2*time.Hour)

	start := core.NewDate(2024, time.April, 15)
	res, err := env.GroupSvc.Activate(ctx, grp.ID, start)
	require.NoError(t, err)
	assert.Equal(t, group.StatusActive, res.Group.Status)
	assert.Equal(t, "2024-04-15", res.Group.StartDate.Format(core.DateLayout))
	assert.Len(t, res.Converted, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, dup.ID, res.Skipped[0].LeadID)

	count, err := env.StudentSvc.CountGroupStudents(ctx, grp.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	_, err = env.GroupSvc.Activate(ctx, grp.ID, start)
	var stateErr *core.StateError
	assert.True(t, errors.As(err, &stateErr), "second activation: got %v", err)

	_, err = env.GroupSvc.Activate(ctx, "not-a-uuid", start)
	assert.Equal(t, group.ErrNotFound, errors.Cause(err))
}

func TestMarkAttendance_upsert(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)

	day := core.Date{Time: core.NewDate(2024, time.April, 8)}
	for _, status := range []string{attendance.StatusPresent, attendance.StatusLate} {
		_, err := env.AttendanceSvc.Mark(ctx, attendance.MarkAttendance{StudentID: std.ID, GroupID: grp.ID, Date: day, Status: status})
		require.NoError(t, err)
	}

	records, err := env.AttendanceSvc.Query(ctx, &attendance.QueryFilter{GroupID: grp.ID}, nil)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, attendance.StatusLate, records[0].Status)
}

func TestRunSweep(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	today := core.Today(env.Clock)

	tests := []struct {
		name       string
		status     string
		next       *time.Time
		wantStatus string
	}{
		{name: "due today", status: student.StatusActive, next: testutil.DatePtr(today), wantStatus: student.StatusDebtor},
		{name: "inside horizon", status: student.StatusActive, next: testutil.DatePtr(today.AddDate(0, 0, 2)), wantStatus: student.StatusDebtor},
		{name: "outside horizon", status: student.StatusActive, next: testutil.DatePtr(today.AddDate(0, 0, 10)), wantStatus: student.StatusActive},
		{name: "stopped untouched", status: student.StatusStopped, next: testutil.DatePtr(today), wantStatus: student.StatusStopped},
		{name: "no payment date", status: student.StatusLead, wantStatus: student.StatusLead},
	}
	ids := make([]string, len(tests))
	for i, tt := range tests {
		ids[i] = env.CreateStudent(t, grp.ID, tt.name, testutil.Phone(i+1), tt.status, tt.next).ID
	}

	first, err := env.StudentSvc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Transitioned)
	assert.Len(t, first.DueToday, 1)

	second, err := env.StudentSvc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 0, second.Transitioned)

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.StudentSvc.GetByID(ctx, ids[i])
			require.NoError(t, err)
			if got.Status != tt.wantStatus {
				t.Errorf("status = %s, want %s", got.Status, tt.wantStatus)
			}
		})
	}
}

func TestRecordPayment_amountKeptExact(t *testing.T) {
	ctx := context.Background()
	env := setup(t)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusLead, nil)

	amount := decimal.RequireFromString("450000.55")
	p, err := env.PaymentSvc.Record(ctx, payment.NewPayment{StudentID: std.ID, Amount: &amount})
	require.NoError(t, err)

	got, err := env.PaymentSvc.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, amount.Equal(got.Amount), "amount = %s, want %s", got.Amount, amount)
}
