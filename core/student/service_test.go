package student_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
	testutil "github.com/infast/crm/tests"
)

var now = time.Date(2024, time.May, 10, 9, 0, 0, 0, time.UTC)

func TestService_RunSweep(t *testing.T) {
	ctx := context.Background()
	today := core.DateOf(now)
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Fri")

	tests := []struct {
		name       string
		status     string
		next       *time.Time
		wantStatus string
	}{
		{name: "overdue active", status: student.StatusActive, next: testutil.DatePtr(today.AddDate(0, 0, -5)), wantStatus: student.StatusDebtor},
		{name: "due today", status: student.StatusActive, next: testutil.DatePtr(today), wantStatus: student.StatusDebtor},
		{name: "due within horizon", status: student.StatusActive, next: testutil.DatePtr(today.AddDate(0, 0, 2)), wantStatus: student.StatusDebtor},
		{name: "due on horizon", status: student.StatusActive, next: testutil.DatePtr(today.AddDate(0, 0, 3)), wantStatus: student.StatusActive},
		{name: "overdue lead", status: student.StatusLead, next: testutil.DatePtr(today.AddDate(0, 0, -1)), wantStatus: student.StatusDebtor},
		{name: "stopped is never touched", status: student.StatusStopped, next: testutil.DatePtr(today.AddDate(0, 0, -30)), wantStatus: student.StatusStopped},
		{name: "never paid", status: student.StatusActive, wantStatus: student.StatusActive},
	}

	ids := make(map[string]string, len(tests))
	for i, tt := range tests {
		s := env.CreateStudent(t, grp.ID, tt.name, testutil.Phone(i), tt.status, tt.next)
		ids[tt.name] = s.ID
	}

	res, err := env.StudentSvc.RunSweep(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, 4, res.Transitioned)
	assert.True(t, res.Date.Equal(today))
	assert.True(t, res.Horizon.Equal(today.AddDate(0, 0, 3)))
	require.Len(t, res.DueToday, 1)
	assert.Equal(t, "due today", res.DueToday[0].FullName)
	assert.NotNil(t, res.DueToday[0].Group)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := env.Students.GetStudentByID(ctx, ids[tt.name])
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, s.Status)
		})
	}

	t.Run("idempotent", func(t *testing.T) {
		res, err := env.StudentSvc.RunSweep(ctx, now.Add(3*time.Hour))
		require.NoError(t, err)
		assert.Equal(t, 0, res.Transitioned)
	})
}

func TestService_RunSweep_Empty(t *testing.T) {
	env := testutil.NewEnv(t, now)
	res, err := env.StudentSvc.RunSweep(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Transitioned)
	assert.Empty(t, res.DueToday)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1)
	env.CreateStudent(t, grp.ID, "Taken", testutil.Phone(1), student.StatusActive, nil)

	t.Run("defaults", func(t *testing.T) {
		s, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "  Ali  ", Phone: testutil.Phone(2), GroupID: grp.ID})
		require.NoError(t, err)
		assert.Equal(t, "Ali", s.FullName)
		assert.Equal(t, student.StatusLead, s.Status)
		assert.True(t, s.JoinedDate.Equal(core.DateOf(now)))
		assert.Nil(t, s.NextPaymentDate)
		require.NotNil(t, s.Group)
		assert.Equal(t, grp.ID, s.Group.ID)
	})

	t.Run("duplicate phone in group", func(t *testing.T) {
		_, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Other", Phone: testutil.Phone(1), GroupID: grp.ID})
		assert.True(t, core.IsConflict(err), "got %v", err)
	})

	t.Run("unknown group", func(t *testing.T) {
		_, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Other", Phone: testutil.Phone(3), GroupID: "nope"})
		var valErr *core.ValidationError
		require.True(t, errors.As(err, &valErr), "got %v", err)
		assert.Equal(t, "group_id", valErr.Fields[0].Field)
	})

	t.Run("invalid phone and status", func(t *testing.T) {
		_, err := env.StudentSvc.Create(ctx, student.NewStudent{FullName: "Other", Phone: "abc", GroupID: grp.ID, Status: "GONE"})
		var valErr *core.ValidationError
		require.True(t, errors.As(err, &valErr), "got %v", err)
		assert.Len(t, valErr.Fields, 2)
	})
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1)
	next := testutil.DatePtr(core.DateOf(now).AddDate(0, 0, 20))
	s := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, next)

	name, parent, empty := "Ali Valiyev", testutil.Phone(9), ""
	got, err := env.StudentSvc.Update(ctx, s.ID, student.UpdateStudent{FullName: &name, ParentPhone: &parent})
	require.NoError(t, err)
	assert.Equal(t, name, got.FullName)
	assert.Equal(t, parent, got.ParentPhone)
	require.NotNil(t, got.NextPaymentDate, "payment dates survive edits")
	assert.True(t, got.NextPaymentDate.Equal(*next))

	got, err = env.StudentSvc.Update(ctx, s.ID, student.UpdateStudent{ParentPhone: &empty})
	require.NoError(t, err)
	assert.Equal(t, "", got.ParentPhone)

	_, err = env.StudentSvc.Update(ctx, "missing", student.UpdateStudent{FullName: &name})
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestNewSweepDigest(t *testing.T) {
	res := student.SweepResult{
		Date:         core.NewDate(2024, time.May, 10),
		Horizon:      core.NewDate(2024, time.May, 13),
		Transitioned: 2,
		DueToday: []student.Student{
			{FullName: "Ali Valiyev", Phone: testutil.Phone(1), Group: &group.Group{Name: "EN-1"}},
			{FullName: "Orphan", Phone: testutil.Phone(2)},
		},
	}

	msg := student.NewSweepDigest(res, []string{"office@example.com"})
	require.True(t, msg.HasRecipients())
	require.NoError(t, msg.Render("Infast"))
	assert.True(t, msg.HasContent())
	assert.True(t, strings.Contains(msg.TextContent, "Ali Valiyev"), msg.TextContent)
	assert.True(t, strings.Contains(msg.HTMLContent, "EN-1"), msg.HTMLContent)
}
