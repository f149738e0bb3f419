package attendance

import (
	"time"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
)

// Statuses
const (
	StatusPresent = "PRESENT"
	StatusAbsent  = "ABSENT"
	StatusLate    = "LATE"
)

var Statuses = []string{StatusPresent, StatusAbsent, StatusLate}

// Attendance is unique per (StudentID, GroupID, Date).
type Attendance struct {
	ID        string           `json:"id"`
	StudentID string           `json:"student_id"`
	Student   *student.Student `json:"student,omitempty"`
	GroupID   string           `json:"group_id"`
	Group     *group.Group     `json:"group,omitempty"`
	Date      time.Time        `json:"date"`
	Status    string           `json:"status"`
	Note      string           `json:"note"`
	CreatedAt time.Time        `json:"created_at"` // UTC
	UpdatedAt time.Time        `json:"updated_at"` // UTC
}

// MarkAttendance records the attendance of a student for one lesson day. Status defaults to ABSENT.
type MarkAttendance struct {
	StudentID string    `json:"student_id" validate:"required"`
	GroupID   string    `json:"group_id" validate:"required"`
	Date      core.Date `json:"date" validate:"required"`
	Status    string    `json:"status" validate:"omitempty,attendancestatus"`
	Note      string    `json:"note"`
}

func (ma *MarkAttendance) Validate() error {
	ma.StudentID = core.CleanString(ma.StudentID)
	ma.GroupID = core.CleanString(ma.GroupID)
	ma.Note = core.CleanString(ma.Note)
	return core.ValidateStruct(ma)
}

// UpdateAttendance edits an existing record; the (student, group, date) key cannot change.
type UpdateAttendance struct {
	Status *string `json:"status" validate:"omitempty,attendancestatus"`
	Note   *string `json:"note"`
}

func (ua *UpdateAttendance) Validate() error {
	if ua.Note != nil {
		*ua.Note = core.CleanString(*ua.Note)
	}
	return core.ValidateStruct(ua)
}

type QueryFilter struct {
	IDs       []string
	GroupID   string
	StudentID string
	Date      *time.Time
}

// OrderingFields are the fields attendance records can be ordered by.
var OrderingFields = []string{"date", "status", "created_at"}
