package student

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
)

// ErrNotFound is returned when a student does not exist.
var ErrNotFound = core.NewNotFoundError("student")

type (
	Repository interface {
		// CreateStudent returns a *core.ConflictError if a student with the same phone exists in the group.
		CreateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Student, error)
		// QueryStudents applies AND operation on available QueryFilter fields.
		QueryStudents(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Student, error)
		CountStudents(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateStudent(ctx context.Context, s Student, exec ...core.DBExecutor) (Student, error)
		// UpdatePaymentDates writes the payment dates (and status, if set) of one student in a single statement.
		UpdatePaymentDates(ctx context.Context, id string, dates PaymentDates, exec ...core.DBExecutor) (Student, error)
		// MarkDebtors moves every student not STOPPED nor DEBTOR whose next payment is before horizon
		// to DEBTOR in a single statement and returns how many were moved.
		MarkDebtors(ctx context.Context, horizon, updatedAt time.Time, exec ...core.DBExecutor) (int, error)
		DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo   Repository
		groups group.Repository
		clock  core.Clock
	}
)

var _ group.StudentCounter = (*Service)(nil) // interface compliance check

func NewService(repo Repository, groups group.Repository, clock core.Clock) *Service {
	return &Service{repo: repo, groups: groups, clock: clock}
}

// RunSweep reclassifies overdue students as DEBTOR for the calendar day of now.
// Running it again on the same day changes nothing.
func (svc *Service) RunSweep(ctx context.Context, now time.Time) (SweepResult, error) {
	today := core.DateOf(now)
	tomorrow := today.AddDate(0, 0, 1)
	horizon := today.AddDate(0, 0, DebtorHorizonDays)

	dueToday, err := svc.repo.QueryStudents(ctx, &QueryFilter{
		NextPaymentFrom: &today,
		NextPaymentTo:   &tomorrow,
		ExcludeStatuses: []string{StatusStopped},
	}, []core.DBOrdering{{Field: "full_name", Ascending: true}})
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "querying students due today")
	}

	n, err := svc.repo.MarkDebtors(ctx, horizon, now.UTC())
	if err != nil {
		return SweepResult{}, errors.Wrap(err, "marking debtors")
	}

	if err = svc.populate(ctx, dueToday); err != nil {
		return SweepResult{}, err
	}
	return SweepResult{Date: today, Horizon: horizon, Transitioned: n, DueToday: dueToday}, nil
}

// CountGroupStudents counts every student linked to the group, whatever their status.
func (svc *Service) CountGroupStudents(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error) {
	return svc.repo.CountStudents(ctx, &QueryFilter{GroupID: groupID}, exec...)
}

func (svc *Service) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := ns.Validate(); err != nil {
		return Student{}, err
	}
	if _, err := svc.groups.GetGroupByID(ctx, ns.GroupID); err != nil {
		return Student{}, groupFieldError(err)
	}
	if err := CheckPhone(ctx, svc.repo, ns.GroupID, ns.Phone, ""); err != nil {
		return Student{}, err
	}

	now := svc.clock.Now()
	s := Student{
		FullName:    ns.FullName,
		Phone:       ns.Phone,
		ParentPhone: ns.ParentPhone,
		GroupID:     ns.GroupID,
		Status:      StatusLead,
		JoinedDate:  core.DateOf(now),
		CreatedAt:   now.UTC(),
		UpdatedAt:   now.UTC(),
	}
	if ns.Status != "" {
		s.Status = ns.Status
	}
	if ns.JoinedDate != nil && !ns.JoinedDate.IsZero() {
		s.JoinedDate = core.DateOf(ns.JoinedDate.Time)
	}

	s, err := svc.repo.CreateStudent(ctx, s)
	if err != nil {
		return Student{}, errors.Wrap(err, "creating student")
	}
	return svc.GetByID(ctx, s.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Student, error) {
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	students := []Student{s}
	if err = svc.populate(ctx, students); err != nil {
		return Student{}, err
	}
	return students[0], nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Student, error) {
	if filter != nil {
		filter.Clean()
	}
	students, err := svc.repo.QueryStudents(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	if err = svc.populate(ctx, students); err != nil {
		return nil, err
	}
	return students, nil
}

func (svc *Service) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	if err := us.Validate(); err != nil {
		return Student{}, err
	}
	s, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}

	if us.GroupID != nil && *us.GroupID != s.GroupID {
		if _, err := svc.groups.GetGroupByID(ctx, *us.GroupID); err != nil {
			return Student{}, groupFieldError(err)
		}
		s.GroupID = *us.GroupID
	}
	if us.Phone != nil {
		s.Phone = *us.Phone
	}
	if (us.GroupID != nil) || (us.Phone != nil) {
		if err := CheckPhone(ctx, svc.repo, s.GroupID, s.Phone, s.ID); err != nil {
			return Student{}, err
		}
	}
	if us.FullName != nil {
		s.FullName = *us.FullName
	}
	if us.ParentPhone != nil {
		s.ParentPhone = *us.ParentPhone
	}
	if us.Status != nil {
		s.Status = *us.Status
	}
	if us.JoinedDate != nil && !us.JoinedDate.IsZero() {
		s.JoinedDate = core.DateOf(us.JoinedDate.Time)
	}
	s.UpdatedAt = svc.clock.Now().UTC()

	if _, err = svc.repo.UpdateStudent(ctx, s); err != nil {
		return Student{}, err
	}
	return svc.GetByID(ctx, id)
}

// Delete removes the student. Their payments and attendance are kept.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

// populate sets Student.Group in place; dangling group references are left nil.
func (svc *Service) populate(ctx context.Context, students []Student) error {
	return Populate(ctx, svc.groups, students)
}

// Populate loads the group of each student with a single query.
func Populate(ctx context.Context, groups group.Repository, students []Student, exec ...core.DBExecutor) error {
	if len(students) == 0 {
		return nil
	}
	ids := make([]string, 0, len(students))
	for _, s := range students {
		ids = append(ids, s.GroupID)
	}
	byID, err := group.LoadMap(ctx, groups, ids, exec...)
	if err != nil {
		return err
	}
	for i := range students {
		if g, ok := byID[students[i].GroupID]; ok {
			g := g
			students[i].Group = &g
		}
	}
	return nil
}

// CheckPhone returns a *core.ConflictError if another student of the group already uses phone.
func CheckPhone(ctx context.Context, repo Repository, groupID, phone, excludeID string, exec ...core.DBExecutor) error {
	found, err := repo.QueryStudents(ctx, &QueryFilter{GroupID: groupID, Phone: phone}, nil, exec...)
	if err != nil {
		return errors.Wrap(err, "checking student phone")
	}
	for _, s := range found {
		if s.ID != excludeID {
			return core.NewConflictError("a student with phone %s already exists in this group", phone)
		}
	}
	return nil
}

func groupFieldError(err error) error {
	if errors.Cause(err) == group.ErrNotFound {
		return core.NewValidationError(err, core.FieldError{Field: "group_id", Error: err.Error()})
	}
	return errors.Wrap(err, "getting group")
}
