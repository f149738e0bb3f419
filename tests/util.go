// Package testutil wires the services on the in-memory store with a fixed clock
// and provides factories that write fixtures straight to the repositories.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
	"github.com/infast/crm/core/course"
	"github.com/infast/crm/core/dashboard"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/lead"
	"github.com/infast/crm/core/payment"
	"github.com/infast/crm/core/student"
	"github.com/infast/crm/storage/database/dummy"
)

type Env struct {
	Clock *core.FixedClock
	Tx    core.Transactor

	Courses    course.Repository
	Groups     group.Repository
	Leads      lead.Repository
	Students   student.Repository
	Payments   payment.Repository
	Attendance attendance.Repository

	CourseSvc     *course.Service
	GroupSvc      *group.Service
	LeadSvc       *lead.Service
	StudentSvc    *student.Service
	PaymentSvc    *payment.Service
	AttendanceSvc *attendance.Service
	DashboardSvc  *dashboard.Service
}

// Store is the set of repositories an Env runs on.
type Store struct {
	Tx         core.Transactor
	Courses    course.Repository
	Groups     group.Repository
	Leads      lead.Repository
	Students   student.Repository
	Payments   payment.Repository
	Attendance attendance.Repository
}

// NewEnv builds every service on a fresh in-memory store with the clock pinned at now.
func NewEnv(t *testing.T, now time.Time, payConf ...core.PaymentsConfig) *Env {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("NewEnv() failed: %v", err)
	}
	return NewEnvOn(now, Store{
		Tx:         db,
		Courses:    dummydb.NewCourseRepository(db),
		Groups:     dummydb.NewGroupRepository(db),
		Leads:      dummydb.NewLeadRepository(db),
		Students:   dummydb.NewStudentRepository(db),
		Payments:   dummydb.NewPaymentRepository(db),
		Attendance: dummydb.NewAttendanceRepository(db),
	}, payConf...)
}

// NewEnvOn builds every service on store with the clock pinned at now.
func NewEnvOn(now time.Time, store Store, payConf ...core.PaymentsConfig) *Env {
	var pc core.PaymentsConfig
	if len(payConf) > 0 {
		pc = payConf[0]
	}

	env := &Env{
		Clock:      &core.FixedClock{T: now},
		Tx:         store.Tx,
		Courses:    store.Courses,
		Groups:     store.Groups,
		Leads:      store.Leads,
		Students:   store.Students,
		Payments:   store.Payments,
		Attendance: store.Attendance,
	}
	env.CourseSvc = course.NewService(env.Courses, env.Clock)
	env.StudentSvc = student.NewService(env.Students, env.Groups, env.Clock)
	env.LeadSvc = lead.NewService(env.Leads, env.Groups, env.Students, env.Tx, env.Clock)
	env.GroupSvc = group.NewService(env.Groups, env.Courses, env.StudentSvc, env.LeadSvc, env.Tx, env.Clock)
	env.PaymentSvc = payment.NewService(env.Payments, env.Students, env.Groups, env.Tx, env.Clock, pc)
	env.AttendanceSvc = attendance.NewService(env.Attendance, env.Students, env.Groups, env.Clock)
	env.DashboardSvc = dashboard.NewService(env.Groups, env.Courses, env.Students, env.PaymentSvc)
	return env
}

func (env *Env) CreateCourse(t *testing.T, name string) course.Course {
	t.Helper()

	now := env.Clock.Now().UTC()
	c, err := env.Courses.CreateCourse(context.Background(), course.Course{
		Name:            name,
		MonthlyPrice:    decimal.NewFromInt(500000),
		LessonsPerMonth: 12,
		IsActive:        true,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return c
}

// CreateGroup stores a group of the course meeting on days. ACTIVE groups get today as start date.
func (env *Env) CreateGroup(t *testing.T, courseID, name, status string, minStudents int, days ...string) group.Group {
	t.Helper()

	now := env.Clock.Now().UTC()
	g := group.Group{
		CourseID:    courseID,
		Name:        name,
		Status:      status,
		DaysOfWeek:  append([]string{}, days...),
		Time:        "10:00-12:00",
		MinStudents: minStudents,
		MaxStudents: group.DefaultMaxStudents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if status != group.StatusRecruiting {
		start := core.Today(env.Clock)
		g.StartDate = &start
	}
	g, err := env.Groups.CreateGroup(context.Background(), g)
	if err != nil {
		t.Fatalf("CreateGroup() failed: %v", err)
	}
	return g
}

func (env *Env) CreateStudent(t *testing.T, groupID, name, phone, status string, next *time.Time) student.Student {
	t.Helper()

	now := env.Clock.Now().UTC()
	s, err := env.Students.CreateStudent(context.Background(), student.Student{
		FullName:        name,
		Phone:           phone,
		GroupID:         groupID,
		Status:          status,
		JoinedDate:      core.Today(env.Clock),
		NextPaymentDate: next,
		CreatedAt:       now,
		UpdatedAt:       now,
	})
	if err != nil {
		t.Fatalf("CreateStudent() failed: %v", err)
	}
	return s
}

// CreateLead stores a lead created at the given offset from the clock, so callers control the conversion order.
func (env *Env) CreateLead(t *testing.T, groupID, name, phone string, age time.Duration) lead.Lead {
	t.Helper()

	createdAt := env.Clock.Now().UTC().Add(-age)
	l, err := env.Leads.CreateLead(context.Background(), lead.Lead{
		Name:       name,
		Phone:      phone,
		GroupID:    groupID,
		LeadStatus: lead.StatusInterested,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	})
	if err != nil {
		t.Fatalf("CreateLead() failed: %v", err)
	}
	return l
}

// Phone returns a distinct valid phone number for index i.
func Phone(i int) string {
	return fmt.Sprintf("+99890%07d", i)
}

func DatePtr(t time.Time) *time.Time {
	d := core.DateOf(t)
	return &d
}

// Logger records every message; it satisfies core.Logger.
type Logger struct {
	mu       sync.Mutex
	Messages []string
}

var _ core.Logger = (*Logger)(nil)

func (l *Logger) record(level, msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.Messages = append(l.Messages, level+": "+msg)
}

func (l *Logger) Debug(msg string, _ ...interface{}) { l.record("DEBUG", msg) }
func (l *Logger) Info(msg string, _ ...interface{})  { l.record("INFO", msg) }
func (l *Logger) Warn(msg string, _ ...interface{})  { l.record("WARN", msg) }
func (l *Logger) Error(msg string, _ ...interface{}) { l.record("ERROR", msg) }
func (l *Logger) Fatal(msg string, _ ...interface{}) { l.record("FATAL", msg) }

// Lines returns a copy of the recorded messages.
func (l *Logger) Lines() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string{}, l.Messages...)
}
