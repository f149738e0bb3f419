package group

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
)

// ErrNotFound is returned when a group does not exist.
var ErrNotFound = core.NewNotFoundError("group")

type (
	Repository interface {
		CreateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		GetGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (Group, error)
		// QueryGroups applies AND operation on available QueryFilter fields.
		QueryGroups(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Group, error)
		CountGroups(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (int, error)
		UpdateGroup(ctx context.Context, g Group, exec ...core.DBExecutor) (Group, error)
		// ActivateGroup atomically moves a RECRUITING group to ACTIVE with the given start date.
		// It returns a *core.StateError if the group is no longer RECRUITING.
		ActivateGroup(ctx context.Context, id string, startDate, updatedAt time.Time, exec ...core.DBExecutor) (Group, error)
		DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	// StudentCounter counts the students enrolled in a group.
	StudentCounter interface {
		CountGroupStudents(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error)
	}

	// LeadConverter converts every outstanding lead of a group within the caller's transaction.
	// Leads that would duplicate an enrolled student are skipped, not failed.
	LeadConverter interface {
		ConvertGroupLeads(ctx context.Context, groupID string, exec core.DBExecutor) ([]string, []SkippedLead, error)
	}

	Service struct {
		repo     Repository
		courses  course.Repository
		students StudentCounter
		leads    LeadConverter
		tx       core.Transactor
		clock    core.Clock
	}
)

func NewService(
	repo Repository,
	courses course.Repository,
	students StudentCounter,
	leads LeadConverter,
	tx core.Transactor,
	clock core.Clock,
) *Service {
	return &Service{
		repo:     repo,
		courses:  courses,
		students: students,
		leads:    leads,
		tx:       tx,
		clock:    clock,
	}
}

// Activate moves a RECRUITING group to ACTIVE starting on startDate and converts its leads into students.
// The status change and the conversions are committed together.
func (svc *Service) Activate(ctx context.Context, id string, startDate time.Time) (ActivationResult, error) {
	var res ActivationResult
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		grp, err := svc.repo.GetGroupByID(ctx, id, exec)
		if err != nil {
			return err
		}
		if grp.Status != StatusRecruiting {
			return core.NewStateError("group is %s, only %s groups can be activated", grp.Status, StatusRecruiting)
		}
		if startDate.IsZero() {
			return core.NewMissingInputError("start_date")
		}

		count, err := svc.students.CountGroupStudents(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "counting group students")
		}
		if count < grp.MinStudents {
			return core.NewEnrollmentError(grp.MinStudents, count)
		}

		grp, err = svc.repo.ActivateGroup(ctx, id, core.DateOf(startDate), svc.clock.Now().UTC(), exec)
		if err != nil {
			return err
		}
		converted, skipped, err := svc.leads.ConvertGroupLeads(ctx, id, exec)
		if err != nil {
			return errors.Wrap(err, "converting group leads")
		}
		res = ActivationResult{Group: grp, Converted: converted, Skipped: skipped}
		return nil
	})
	if err != nil {
		return ActivationResult{}, err
	}
	if res.Converted == nil {
		res.Converted = []string{}
	}
	if res.Skipped == nil {
		res.Skipped = []SkippedLead{}
	}

	if err := svc.populate(ctx, &res.Group); err != nil {
		return ActivationResult{}, err
	}
	return res, nil
}

func (svc *Service) Create(ctx context.Context, ng NewGroup) (Group, error) {
	if err := ng.Validate(); err != nil {
		return Group{}, err
	}
	if _, err := svc.courses.GetCourseByID(ctx, ng.CourseID); err != nil {
		return Group{}, courseFieldError(err)
	}

	now := svc.clock.Now().UTC()
	g := Group{
		CourseID:    ng.CourseID,
		Name:        ng.Name,
		Status:      StatusRecruiting,
		DaysOfWeek:  ng.DaysOfWeek,
		Time:        ng.Time,
		MinStudents: DefaultMinStudents,
		MaxStudents: DefaultMaxStudents,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if g.DaysOfWeek == nil {
		g.DaysOfWeek = []string{}
	}
	if ng.MinStudents != nil {
		g.MinStudents = *ng.MinStudents
	}
	if ng.MaxStudents != nil {
		g.MaxStudents = *ng.MaxStudents
	}
	if err := checkCapacity(g); err != nil {
		return Group{}, err
	}

	g, err := svc.repo.CreateGroup(ctx, g)
	if err != nil {
		return Group{}, errors.Wrap(err, "creating group")
	}
	if err = svc.populate(ctx, &g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (Group, error) {
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}
	if err = svc.populate(ctx, &g); err != nil {
		return Group{}, err
	}
	return g, nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Group, error) {
	groups, err := svc.repo.QueryGroups(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	ptrs := make([]*Group, 0, len(groups))
	for i := range groups {
		ptrs = append(ptrs, &groups[i])
	}
	if err = svc.populate(ctx, ptrs...); err != nil {
		return nil, err
	}
	return groups, nil
}

// Update edits a group. The only status change allowed here is ACTIVE -> CLOSED;
// RECRUITING -> ACTIVE goes through Activate.
func (svc *Service) Update(ctx context.Context, id string, ug UpdateGroup) (Group, error) {
	if err := ug.Validate(); err != nil {
		return Group{}, err
	}
	g, err := svc.repo.GetGroupByID(ctx, id)
	if err != nil {
		return Group{}, err
	}

	if ug.Status != nil && *ug.Status != g.Status {
		if !(g.Status == StatusActive && *ug.Status == StatusClosed) {
			return Group{}, core.NewStateError("group status cannot change from %s to %s", g.Status, *ug.Status)
		}
		g.Status = *ug.Status
	}
	if ug.StartDate != nil && !ug.StartDate.IsZero() {
		if g.StartDate == nil {
			return Group{}, core.NewStateError("start date is set by activating the group")
		}
		sd := core.DateOf(ug.StartDate.Time)
		g.StartDate = &sd
	}
	if ug.CourseID != nil && *ug.CourseID != g.CourseID {
		if _, err := svc.courses.GetCourseByID(ctx, *ug.CourseID); err != nil {
			return Group{}, courseFieldError(err)
		}
		g.CourseID = *ug.CourseID
	}
	if ug.Name != nil {
		g.Name = *ug.Name
	}
	if ug.DaysOfWeek != nil {
		g.DaysOfWeek = ug.DaysOfWeek
	}
	if ug.Time != nil {
		g.Time = *ug.Time
	}
	if ug.MinStudents != nil {
		g.MinStudents = *ug.MinStudents
	}
	if ug.MaxStudents != nil {
		g.MaxStudents = *ug.MaxStudents
	}
	if err := checkCapacity(g); err != nil {
		return Group{}, err
	}
	g.UpdatedAt = svc.clock.Now().UTC()

	g, err = svc.repo.UpdateGroup(ctx, g)
	if err != nil {
		return Group{}, err
	}
	if err = svc.populate(ctx, &g); err != nil {
		return Group{}, err
	}
	return g, nil
}

// Delete removes the group. Its students, leads and attendance are kept.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteGroup(ctx, id)
}

// populate sets Group.Course; dangling course references are left nil.
func (svc *Service) populate(ctx context.Context, groups ...*Group) error {
	return Populate(ctx, svc.courses, groups...)
}

// Populate loads the course of each group with a single query.
func Populate(ctx context.Context, courses course.Repository, groups ...*Group) error {
	if len(groups) == 0 {
		return nil
	}
	ids := make([]string, 0, len(groups))
	for _, g := range groups {
		ids = append(ids, g.CourseID)
	}
	found, err := courses.QueryCourses(ctx, &course.QueryFilter{IDs: ids}, nil)
	if err != nil {
		return errors.Wrap(err, "populating courses")
	}
	byID := make(map[string]course.Course, len(found))
	for _, c := range found {
		byID[c.ID] = c
	}
	for _, g := range groups {
		if c, ok := byID[g.CourseID]; ok {
			c := c
			g.Course = &c
		}
	}
	return nil
}

// LoadMap fetches the groups with the given ids, keyed by id. Missing ids are absent from the map.
func LoadMap(ctx context.Context, repo Repository, ids []string, exec ...core.DBExecutor) (map[string]Group, error) {
	byID := make(map[string]Group, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}
	groups, err := repo.QueryGroups(ctx, &QueryFilter{IDs: ids}, nil, exec...)
	if err != nil {
		return nil, errors.Wrap(err, "loading groups")
	}
	for _, g := range groups {
		byID[g.ID] = g
	}
	return byID, nil
}

func checkCapacity(g Group) error {
	if g.MaxStudents < g.MinStudents {
		return core.NewValidationError(
			errors.New("invalid capacity"),
			core.FieldError{Field: "max_students", Error: "max_students must be greater than or equal to min_students"},
		)
	}
	return nil
}

func courseFieldError(err error) error {
	if errors.Cause(err) == course.ErrNotFound {
		return core.NewValidationError(err, core.FieldError{Field: "course_id", Error: err.Error()})
	}
	return errors.Wrap(err, "getting course")
}
