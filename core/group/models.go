package group

import (
	"time"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
)

// Statuses
const (
	StatusRecruiting = "RECRUITING"
	StatusActive     = "ACTIVE"
	StatusClosed     = "CLOSED"
)

const (
	DefaultMinStudents = 3
	DefaultMaxStudents = 15
)

var (
	Statuses = []string{StatusRecruiting, StatusActive, StatusClosed}
	Weekdays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}
)

// WeekdayOf returns the short weekday name groups use in DaysOfWeek.
func WeekdayOf(t time.Time) string {
	return t.Weekday().String()[:3]
}

type Group struct {
	ID          string         `json:"id"`
	CourseID    string         `json:"course_id"`
	Course      *course.Course `json:"course,omitempty"`
	Name        string         `json:"name"`
	Status      string         `json:"status"`
	StartDate   *time.Time     `json:"start_date"`
	DaysOfWeek  []string       `json:"days_of_week"`
	Time        string         `json:"time"`
	MinStudents int            `json:"min_students"`
	MaxStudents int            `json:"max_students"`
	CreatedAt   time.Time      `json:"created_at"` // UTC
	UpdatedAt   time.Time      `json:"updated_at"` // UTC
}

func (g Group) MeetsOn(weekday string) bool {
	for _, d := range g.DaysOfWeek {
		if d == weekday {
			return true
		}
	}
	return false
}

// NewGroup contains information needed to create a new Group.
// Groups always start RECRUITING; the start date is set by activation.
type NewGroup struct {
	CourseID    string   `json:"course_id" validate:"required"`
	Name        string   `json:"name" validate:"required,max=255"`
	DaysOfWeek  []string `json:"days_of_week" validate:"omitempty,unique,dive,weekday"`
	Time        string   `json:"time" validate:"omitempty,timerange"`
	MinStudents *int     `json:"min_students" validate:"omitempty,min=1"`
	MaxStudents *int     `json:"max_students" validate:"omitempty,min=1"`
}

func (ng *NewGroup) Validate() error {
	ng.Name = core.CleanString(ng.Name)
	ng.CourseID = core.CleanString(ng.CourseID)
	ng.Time = core.CleanString(ng.Time)
	return core.ValidateStruct(ng)
}

// UpdateGroup defines what information may be provided to modify an existing Group.
// nil fields are left untouched.
type UpdateGroup struct {
	CourseID    *string    `json:"course_id" validate:"omitempty,min=1"`
	Name        *string    `json:"name" validate:"omitempty,min=1,max=255"`
	Status      *string    `json:"status" validate:"omitempty,groupstatus"`
	StartDate   *core.Date `json:"start_date"`
	DaysOfWeek  []string   `json:"days_of_week" validate:"omitempty,unique,dive,weekday"`
	Time        *string    `json:"time" validate:"omitempty,timerange"`
	MinStudents *int       `json:"min_students" validate:"omitempty,min=1"`
	MaxStudents *int       `json:"max_students" validate:"omitempty,min=1"`
}

func (ug *UpdateGroup) Validate() error {
	if ug.Name != nil {
		name := core.CleanString(*ug.Name)
		ug.Name = &name
	}
	return core.ValidateStruct(ug)
}

type QueryFilter struct {
	IDs      []string
	CourseID string
	Status   string
	Weekday  string // groups meeting on this day
}

// SkippedLead is a lead left unconverted during activation.
type SkippedLead struct {
	LeadID string `json:"lead_id"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Reason string `json:"reason"`
}

type ActivationResult struct {
	Group     Group         `json:"group"`
	Converted []string      `json:"converted"` // IDs of the students created from leads
	Skipped   []SkippedLead `json:"skipped"`
}

// OrderingFields are the fields groups can be ordered by.
var OrderingFields = []string{"name", "status", "start_date", "created_at"}
