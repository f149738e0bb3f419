package attendance

import (
	"context"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
)

// ErrNotFound is returned when an attendance record does not exist.
var ErrNotFound = core.NewNotFoundError("attendance")

type (
	Repository interface {
		// UpsertAttendance creates the record or, if one exists for the same (student, group, date),
		// updates its status and note in place.
		UpsertAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		GetAttendanceByID(ctx context.Context, id string, exec ...core.DBExecutor) (Attendance, error)
		// QueryAttendance applies AND operation on available QueryFilter fields.
		QueryAttendance(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Attendance, error)
		UpdateAttendance(ctx context.Context, a Attendance, exec ...core.DBExecutor) (Attendance, error)
		DeleteAttendance(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		students student.Repository
		groups   group.Repository
		clock    core.Clock
	}
)

func NewService(repo Repository, students student.Repository, groups group.Repository, clock core.Clock) *Service {
	return &Service{repo: repo, students: students, groups: groups, clock: clock}
}

// Mark records attendance for an ACTIVE group. Marking the same student, group and day again
// overwrites the previous status and note.
func (svc *Service) Mark(ctx context.Context, ma MarkAttendance) (Attendance, error) {
	if err := ma.Validate(); err != nil {
		return Attendance{}, err
	}

	grp, err := svc.groups.GetGroupByID(ctx, ma.GroupID)
	if err != nil {
		return Attendance{}, err
	}
	if grp.Status != group.StatusActive {
		return Attendance{}, core.NewStateError("attendance can only be marked for %s groups, group is %s", group.StatusActive, grp.Status)
	}
	if _, err = svc.students.GetStudentByID(ctx, ma.StudentID); err != nil {
		return Attendance{}, err
	}

	now := svc.clock.Now().UTC()
	a := Attendance{
		StudentID: ma.StudentID,
		GroupID:   ma.GroupID,
		Date:      core.DateOf(ma.Date.Time),
		Status:    StatusAbsent,
		Note:      ma.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if ma.Status != "" {
		a.Status = ma.Status
	}

	a, err = svc.repo.UpsertAttendance(ctx, a)
	if err != nil {
		return Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return svc.GetByID(ctx, a.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Attendance, error) {
	a, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	records := []Attendance{a}
	if err = svc.populate(ctx, records); err != nil {
		return Attendance{}, err
	}
	return records[0], nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Attendance, error) {
	if filter != nil && filter.Date != nil {
		d := core.DateOf(*filter.Date)
		filter.Date = &d
	}
	records, err := svc.repo.QueryAttendance(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	if err = svc.populate(ctx, records); err != nil {
		return nil, err
	}
	return records, nil
}

func (svc *Service) Update(ctx context.Context, id string, ua UpdateAttendance) (Attendance, error) {
	if err := ua.Validate(); err != nil {
		return Attendance{}, err
	}
	a, err := svc.repo.GetAttendanceByID(ctx, id)
	if err != nil {
		return Attendance{}, err
	}
	if ua.Status != nil {
		a.Status = *ua.Status
	}
	if ua.Note != nil {
		a.Note = *ua.Note
	}
	a.UpdatedAt = svc.clock.Now().UTC()

	if _, err = svc.repo.UpdateAttendance(ctx, a); err != nil {
		return Attendance{}, err
	}
	return svc.GetByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteAttendance(ctx, id)
}

// populate sets Attendance.Student and Attendance.Group in place; dangling references are left nil.
func (svc *Service) populate(ctx context.Context, records []Attendance) error {
	if len(records) == 0 {
		return nil
	}
	studentIDs := make([]string, 0, len(records))
	groupIDs := make([]string, 0, len(records))
	for _, a := range records {
		studentIDs = append(studentIDs, a.StudentID)
		groupIDs = append(groupIDs, a.GroupID)
	}

	students, err := svc.students.QueryStudents(ctx, &student.QueryFilter{IDs: studentIDs}, nil)
	if err != nil {
		return errors.Wrap(err, "populating students")
	}
	studentsByID := make(map[string]student.Student, len(students))
	for _, s := range students {
		studentsByID[s.ID] = s
	}
	groupsByID, err := group.LoadMap(ctx, svc.groups, groupIDs)
	if err != nil {
		return err
	}

	for i := range records {
		if s, ok := studentsByID[records[i].StudentID]; ok {
			s := s
			records[i].Student = &s
		}
		if g, ok := groupsByID[records[i].GroupID]; ok {
			g := g
			records[i].Group = &g
		}
	}
	return nil
}
