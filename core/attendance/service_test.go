package attendance_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
	testutil "github.com/infast/crm/tests"
)

var now = time.Date(2024, time.April, 8, 18, 0, 0, 0, time.UTC)

func TestService_Mark(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	active := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, active.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)
	lessonDay := core.Date{Time: core.NewDate(2024, time.April, 8)}

	tests := []struct {
		name    string
		groupID func() string
		ma      attendance.MarkAttendance
		wantErr func(t *testing.T, err error)
	}{
		{
			name: "recruiting group",
			groupID: func() string {
				return env.CreateGroup(t, crs.ID, "EN-2", group.StatusRecruiting, 3).ID
			},
			ma: attendance.MarkAttendance{StudentID: std.ID, Date: lessonDay},
			wantErr: func(t *testing.T, err error) {
				var stateErr *core.StateError
				assert.True(t, errors.As(err, &stateErr), "got %v", err)
			},
		},
		{
			name: "closed group",
			groupID: func() string {
				return env.CreateGroup(t, crs.ID, "EN-3", group.StatusClosed, 3).ID
			},
			ma: attendance.MarkAttendance{StudentID: std.ID, Date: lessonDay},
			wantErr: func(t *testing.T, err error) {
				var stateErr *core.StateError
				assert.True(t, errors.As(err, &stateErr), "got %v", err)
			},
		},
		{
			name:    "unknown group",
			groupID: func() string { return "missing" },
			ma:      attendance.MarkAttendance{StudentID: std.ID, Date: lessonDay},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, core.IsNotFound(err), "got %v", err)
			},
		},
		{
			name:    "unknown student",
			groupID: func() string { return active.ID },
			ma:      attendance.MarkAttendance{StudentID: "missing", Date: lessonDay},
			wantErr: func(t *testing.T, err error) {
				assert.True(t, core.IsNotFound(err), "got %v", err)
			},
		},
		{
			name:    "missing date",
			groupID: func() string { return active.ID },
			ma:      attendance.MarkAttendance{StudentID: std.ID},
			wantErr: func(t *testing.T, err error) {
				var valErr *core.ValidationError
				require.True(t, errors.As(err, &valErr), "got %v", err)
				assert.Equal(t, "date", valErr.Fields[0].Field)
			},
		},
		{
			name:    "defaults to absent",
			groupID: func() string { return active.ID },
			ma:      attendance.MarkAttendance{StudentID: std.ID, Date: lessonDay},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ma := tt.ma
			ma.GroupID = tt.groupID()
			a, err := env.AttendanceSvc.Mark(ctx, ma)
			if tt.wantErr != nil {
				tt.wantErr(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, attendance.StatusAbsent, a.Status)
			assert.True(t, a.Date.Equal(lessonDay.Time))
			assert.NotNil(t, a.Student)
			assert.NotNil(t, a.Group)
		})
	}
}

func TestService_Mark_Upsert(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)
	day := core.Date{Time: core.NewDate(2024, time.April, 8)}

	first, err := env.AttendanceSvc.Mark(ctx, attendance.MarkAttendance{StudentID: std.ID, GroupID: grp.ID, Date: day, Status: attendance.StatusAbsent})
	require.NoError(t, err)

	env.Clock.Set(now.Add(time.Hour))
	second, err := env.AttendanceSvc.Mark(ctx, attendance.MarkAttendance{StudentID: std.ID, GroupID: grp.ID, Date: day, Status: attendance.StatusLate, Note: "traffic"})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, attendance.StatusLate, second.Status)
	assert.Equal(t, "traffic", second.Note)
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))

	records, err := env.AttendanceSvc.Query(ctx, &attendance.QueryFilter{StudentID: std.ID, Date: &day.Time}, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_Mark_Concurrent(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)
	day := core.Date{Time: core.NewDate(2024, time.April, 8)}

	var wg sync.WaitGroup
	for _, status := range []string{attendance.StatusPresent, attendance.StatusLate, attendance.StatusAbsent, attendance.StatusPresent} {
		wg.Add(1)
		go func(status string) {
			defer wg.Done()
			_, err := env.AttendanceSvc.Mark(ctx, attendance.MarkAttendance{StudentID: std.ID, GroupID: grp.ID, Date: day, Status: status})
			assert.NoError(t, err)
		}(status)
	}
	wg.Wait()

	records, err := env.Attendance.QueryAttendance(ctx, &attendance.QueryFilter{GroupID: grp.ID}, nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestService_Update(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	grp := env.CreateGroup(t, crs.ID, "EN-1", group.StatusActive, 1, "Mon")
	std := env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)
	a, err := env.AttendanceSvc.Mark(ctx, attendance.MarkAttendance{StudentID: std.ID, GroupID: grp.ID, Date: core.Date{Time: now}})
	require.NoError(t, err)

	present, bad := attendance.StatusPresent, "MAYBE"
	got, err := env.AttendanceSvc.Update(ctx, a.ID, attendance.UpdateAttendance{Status: &present})
	require.NoError(t, err)
	assert.Equal(t, attendance.StatusPresent, got.Status)

	_, err = env.AttendanceSvc.Update(ctx, a.ID, attendance.UpdateAttendance{Status: &bad})
	var valErr *core.ValidationError
	assert.True(t, errors.As(err, &valErr), "got %v", err)

	require.NoError(t, env.AttendanceSvc.Delete(ctx, a.ID))
	_, err = env.AttendanceSvc.GetByID(ctx, a.ID)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}
