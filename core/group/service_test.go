package group_test

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/student"
	testutil "github.com/infast/crm/tests"
)

var now = time.Date(2024, time.March, 4, 10, 30, 0, 0, time.UTC)

func TestService_Activate(t *testing.T) {
	ctx := context.Background()
	startDate := core.NewDate(2024, time.March, 11)

	tests := []struct {
		name       string
		status     string
		students   int
		leads      int
		noStart    bool
		wantErr    func(t *testing.T, err error)
		wantLeads  int
		wantStdnts int
	}{
		{
			name:     "below minimum",
			status:   group.StatusRecruiting,
			students: 2,
			leads:    1,
			wantErr: func(t *testing.T, err error) {
				var enrollErr *core.EnrollmentError
				require.True(t, errors.As(err, &enrollErr), "got %v", err)
				assert.Equal(t, 3, enrollErr.Required)
				assert.Equal(t, 2, enrollErr.Current)
			},
			wantLeads:  1,
			wantStdnts: 2,
		},
		{
			name:       "exactly minimum, no leads",
			status:     group.StatusRecruiting,
			students:   3,
			wantStdnts: 3,
		},
		{
			name:       "converts every lead",
			status:     group.StatusRecruiting,
			students:   3,
			leads:      4,
			wantStdnts: 7,
		},
		{
			name:     "already active",
			status:   group.StatusActive,
			students: 5,
			wantErr: func(t *testing.T, err error) {
				var stateErr *core.StateError
				assert.True(t, errors.As(err, &stateErr), "got %v", err)
			},
			wantStdnts: 5,
		},
		{
			name:     "closed",
			status:   group.StatusClosed,
			students: 5,
			leads:    1,
			wantErr: func(t *testing.T, err error) {
				var stateErr *core.StateError
				assert.True(t, errors.As(err, &stateErr), "got %v", err)
			},
			wantLeads:  1,
			wantStdnts: 5,
		},
		{
			name:     "missing start date",
			status:   group.StatusRecruiting,
			students: 3,
			noStart:  true,
			wantErr: func(t *testing.T, err error) {
				var missing *core.MissingInputError
				require.True(t, errors.As(err, &missing), "got %v", err)
				assert.Equal(t, "start_date", missing.Field)
			},
			wantStdnts: 3,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := testutil.NewEnv(t, now)
			crs := env.CreateCourse(t, "English")
			grp := env.CreateGroup(t, crs.ID, "EN-1", tt.status, 3, "Mon", "Wed")
			for i := 0; i < tt.students; i++ {
				env.CreateStudent(t, grp.ID, "Student", testutil.Phone(i), student.StatusLead, nil)
			}
			for i := 0; i < tt.leads; i++ {
				env.CreateLead(t, grp.ID, "Lead", testutil.Phone(100+i), time.Duration(i)*time.Hour)
			}

			sd := startDate
			if tt.noStart {
				sd = time.Time{}
			}
			res, err := env.GroupSvc.Activate(ctx, grp.ID, sd)

			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				got, err := env.Groups.GetGroupByID(ctx, grp.ID)
				require.NoError(t, err)
				assert.Equal(t, tt.status, got.Status, "status must not change on failure")
			} else {
				require.NoError(t, err)
				assert.Equal(t, group.StatusActive, res.Group.Status)
				require.NotNil(t, res.Group.StartDate)
				assert.True(t, res.Group.StartDate.Equal(startDate))
				assert.NotNil(t, res.Group.Course)
				assert.Len(t, res.Converted, tt.leads)
				assert.Empty(t, res.Skipped)
			}

			leads, err := env.Leads.QueryLeads(ctx, &lead.QueryFilter{GroupID: grp.ID}, nil)
			require.NoError(t, err)
			assert.Len(t, leads, tt.wantLeads)

			n, err := env.Students.CountStudents(ctx, &student.QueryFilter{GroupID: grp.ID})
			require.NoError(t, err)
			assert.Equal(t, tt.wantStdnts, n)
		})
	}
}

func TestService_Activate_NotFound(t *testing.T) {
	env := testutil.NewEnv(t, now)
	_, err := env.GroupSvc.Activate(context.Background(), "missing", now)
	assert.True(t, core.IsNotFound(err), "got %v", err)
}

func TestService_Activate_ConvertedStudents(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "Math")
	grp := env.CreateGroup(t, crs.ID, "M-1", group.StatusRecruiting, 1)
	env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusLead, nil)
	older := env.CreateLead(t, grp.ID, "Older", testutil.Phone(2), 2*time.Hour)
	newer := env.CreateLead(t, grp.ID, "Newer", testutil.Phone(3), time.Hour)

	res, err := env.GroupSvc.Activate(ctx, grp.ID, now)
	require.NoError(t, err)
	require.Len(t, res.Converted, 2)

	first, err := env.Students.GetStudentByID(ctx, res.Converted[0])
	require.NoError(t, err)
	assert.Equal(t, older.Name, first.FullName, "oldest lead converts first")
	assert.Equal(t, student.StatusActive, first.Status)
	assert.Equal(t, grp.ID, first.GroupID)
	assert.True(t, first.JoinedDate.Equal(core.DateOf(now)))

	second, err := env.Students.GetStudentByID(ctx, res.Converted[1])
	require.NoError(t, err)
	assert.Equal(t, newer.Phone, second.Phone)
}

func TestService_Activate_SkipsDuplicatePhone(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "Math")
	grp := env.CreateGroup(t, crs.ID, "M-1", group.StatusRecruiting, 1)
	env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusActive, nil)
	dup := env.CreateLead(t, grp.ID, "Ali again", testutil.Phone(1), 2*time.Hour)
	env.CreateLead(t, grp.ID, "Vali", testutil.Phone(2), time.Hour)

	res, err := env.GroupSvc.Activate(ctx, grp.ID, now)
	require.NoError(t, err)
	assert.Len(t, res.Converted, 1)
	require.Len(t, res.Skipped, 1)
	assert.Equal(t, dup.ID, res.Skipped[0].LeadID)

	// the skipped lead stays for manual follow-up
	_, err = env.Leads.GetLeadByID(ctx, dup.ID)
	assert.NoError(t, err)
}

func TestService_Activate_OneWay(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "Math")
	grp := env.CreateGroup(t, crs.ID, "M-1", group.StatusRecruiting, 1)
	env.CreateStudent(t, grp.ID, "Ali", testutil.Phone(1), student.StatusLead, nil)

	_, err := env.GroupSvc.Activate(ctx, grp.ID, now)
	require.NoError(t, err)
	_, err = env.GroupSvc.Activate(ctx, grp.ID, now)
	var stateErr *core.StateError
	assert.True(t, errors.As(err, &stateErr), "got %v", err)

	recruiting := group.StatusRecruiting
	_, err = env.GroupSvc.Update(ctx, grp.ID, group.UpdateGroup{Status: &recruiting})
	assert.True(t, errors.As(err, &stateErr), "got %v", err)

	closed := group.StatusClosed
	g, err := env.GroupSvc.Update(ctx, grp.ID, group.UpdateGroup{Status: &closed})
	require.NoError(t, err)
	assert.Equal(t, group.StatusClosed, g.Status)
}

func TestService_Create(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	five, two := 5, 2

	tests := []struct {
		name      string
		ng        group.NewGroup
		wantField string
	}{
		{name: "valid", ng: group.NewGroup{CourseID: crs.ID, Name: " EN-2 ", DaysOfWeek: []string{"Tue", "Thu"}, Time: "14:00-16:00"}},
		{name: "unknown course", ng: group.NewGroup{CourseID: "nope", Name: "EN-3"}, wantField: "course_id"},
		{name: "missing name", ng: group.NewGroup{CourseID: crs.ID}, wantField: "name"},
		{name: "bad weekday", ng: group.NewGroup{CourseID: crs.ID, Name: "X", DaysOfWeek: []string{"Monday"}}, wantField: "days_of_week[0]"},
		{name: "bad time", ng: group.NewGroup{CourseID: crs.ID, Name: "X", Time: "10-12"}, wantField: "time"},
		{name: "max below min", ng: group.NewGroup{CourseID: crs.ID, Name: "X", MinStudents: &five, MaxStudents: &two}, wantField: "max_students"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := env.GroupSvc.Create(ctx, tt.ng)
			if tt.wantField != "" {
				var valErr *core.ValidationError
				require.True(t, errors.As(err, &valErr), "got %v", err)
				fields := make([]string, 0, len(valErr.Fields))
				for _, f := range valErr.Fields {
					fields = append(fields, f.Field)
				}
				assert.Contains(t, fields, tt.wantField)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "EN-2", g.Name)
			assert.Equal(t, group.StatusRecruiting, g.Status)
			assert.Nil(t, g.StartDate)
			assert.Equal(t, group.DefaultMinStudents, g.MinStudents)
			assert.Equal(t, group.DefaultMaxStudents, g.MaxStudents)
			require.NotNil(t, g.Course)
			assert.Equal(t, crs.ID, g.Course.ID)
		})
	}
}

func TestService_Update_StartDate(t *testing.T) {
	ctx := context.Background()
	env := testutil.NewEnv(t, now)
	crs := env.CreateCourse(t, "English")
	recruiting := env.CreateGroup(t, crs.ID, "R", group.StatusRecruiting, 3)
	active := env.CreateGroup(t, crs.ID, "A", group.StatusActive, 3)

	newStart := core.Date{Time: core.NewDate(2024, time.April, 1)}
	_, err := env.GroupSvc.Update(ctx, recruiting.ID, group.UpdateGroup{StartDate: &newStart})
	var stateErr *core.StateError
	assert.True(t, errors.As(err, &stateErr), "got %v", err)

	g, err := env.GroupSvc.Update(ctx, active.ID, group.UpdateGroup{StartDate: &newStart})
	require.NoError(t, err)
	require.NotNil(t, g.StartDate)
	assert.True(t, g.StartDate.Equal(newStart.Time))
}
