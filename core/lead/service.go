package lead

import (
	"context"

	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
)

// ErrNotFound is returned when a lead does not exist.
var ErrNotFound = core.NewNotFoundError("lead")

type (
	Repository interface {
		CreateLead(ctx context.Context, l Lead, exec ...core.DBExecutor) (Lead, error)
		GetLeadByID(ctx context.Context, id string, exec ...core.DBExecutor) (Lead, error)
		// QueryLeads applies AND operation on available QueryFilter fields.
		QueryLeads(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Lead, error)
		UpdateLead(ctx context.Context, l Lead, exec ...core.DBExecutor) (Lead, error)
		DeleteLead(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo     Repository
		groups   group.Repository
		students student.Repository
		tx       core.Transactor
		clock    core.Clock
	}
)

var _ group.LeadConverter = (*Service)(nil) // interface compliance check

func NewService(
	repo Repository,
	groups group.Repository,
	students student.Repository,
	tx core.Transactor,
	clock core.Clock,
) *Service {
	return &Service{
		repo:     repo,
		groups:   groups,
		students: students,
		tx:       tx,
		clock:    clock,
	}
}

// Convert turns the lead into an ACTIVE student of the same group and deletes the lead.
func (svc *Service) Convert(ctx context.Context, id string) (student.Student, error) {
	var std student.Student
	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		ld, err := svc.repo.GetLeadByID(ctx, id, exec)
		if err != nil {
			return err
		}
		std, err = svc.convert(ctx, ld, exec)
		return err
	})
	if err != nil {
		return student.Student{}, err
	}

	students := []student.Student{std}
	if err = student.Populate(ctx, svc.groups, students); err != nil {
		return student.Student{}, err
	}
	return students[0], nil
}

// ConvertGroupLeads converts every lead of the group, oldest first, using the caller's executor.
// It returns the IDs of the created students and the leads skipped because of a phone conflict.
func (svc *Service) ConvertGroupLeads(ctx context.Context, groupID string, exec core.DBExecutor) ([]string, []group.SkippedLead, error) {
	leads, err := svc.repo.QueryLeads(ctx, &QueryFilter{GroupID: groupID}, []core.DBOrdering{{Field: "created_at", Ascending: true}}, exec)
	if err != nil {
		return nil, nil, errors.Wrap(err, "querying group leads")
	}

	converted := make([]string, 0, len(leads))
	var skipped []group.SkippedLead
	for _, ld := range leads {
		std, err := svc.convert(ctx, ld, exec)
		if err != nil {
			if core.IsConflict(err) {
				skipped = append(skipped, group.SkippedLead{LeadID: ld.ID, Name: ld.Name, Phone: ld.Phone, Reason: err.Error()})
				continue
			}
			return nil, nil, errors.Wrapf(err, "converting lead %s", ld.ID)
		}
		converted = append(converted, std.ID)
	}
	return converted, skipped, nil
}

func (svc *Service) convert(ctx context.Context, ld Lead, exec core.DBExecutor) (student.Student, error) {
	if _, err := svc.groups.GetGroupByID(ctx, ld.GroupID, exec); err != nil {
		return student.Student{}, err
	}
	if err := student.CheckPhone(ctx, svc.students, ld.GroupID, ld.Phone, "", exec); err != nil {
		return student.Student{}, err
	}

	now := svc.clock.Now()
	std, err := svc.students.CreateStudent(ctx, student.Student{
		FullName:   ld.Name,
		Phone:      ld.Phone,
		GroupID:    ld.GroupID,
		Status:     student.StatusActive,
		JoinedDate: core.DateOf(now),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}, exec)
	if err != nil {
		return student.Student{}, errors.Wrap(err, "creating student")
	}
	if err = svc.repo.DeleteLead(ctx, ld.ID, exec); err != nil {
		return student.Student{}, errors.Wrap(err, "deleting lead")
	}
	return std, nil
}

// Create registers a lead for a group that is still RECRUITING.
func (svc *Service) Create(ctx context.Context, nl NewLead) (Lead, error) {
	if err := nl.Validate(); err != nil {
		return Lead{}, err
	}
	grp, err := svc.groups.GetGroupByID(ctx, nl.GroupID)
	if err != nil {
		return Lead{}, groupFieldError(err)
	}
	if grp.Status != group.StatusRecruiting {
		return Lead{}, core.NewStateError("leads can only join %s groups, group is %s", group.StatusRecruiting, grp.Status)
	}

	now := svc.clock.Now().UTC()
	l := Lead{
		Name:       nl.Name,
		Phone:      nl.Phone,
		GroupID:    nl.GroupID,
		LeadStatus: StatusInterested,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if nl.LeadStatus != "" {
		l.LeadStatus = nl.LeadStatus
	}
	l, err = svc.repo.CreateLead(ctx, l)
	if err != nil {
		return Lead{}, errors.Wrap(err, "creating lead")
	}
	return svc.GetByID(ctx, l.ID)
}

func (svc *Service) GetByID(ctx context.Context, id string) (Lead, error) {
	l, err := svc.repo.GetLeadByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	leads := []Lead{l}
	if err = svc.populate(ctx, leads); err != nil {
		return Lead{}, err
	}
	return leads[0], nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Lead, error) {
	if filter != nil {
		filter.Clean()
	}
	leads, err := svc.repo.QueryLeads(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	if err = svc.populate(ctx, leads); err != nil {
		return nil, err
	}
	return leads, nil
}

// Update edits a lead. Moving it to another group only requires that group to exist.
func (svc *Service) Update(ctx context.Context, id string, ul UpdateLead) (Lead, error) {
	if err := ul.Validate(); err != nil {
		return Lead{}, err
	}
	l, err := svc.repo.GetLeadByID(ctx, id)
	if err != nil {
		return Lead{}, err
	}
	if ul.GroupID != nil && *ul.GroupID != l.GroupID {
		if _, err := svc.groups.GetGroupByID(ctx, *ul.GroupID); err != nil {
			return Lead{}, groupFieldError(err)
		}
		l.GroupID = *ul.GroupID
	}
	if ul.Name != nil {
		l.Name = *ul.Name
	}
	if ul.Phone != nil {
		l.Phone = *ul.Phone
	}
	if ul.LeadStatus != nil {
		l.LeadStatus = *ul.LeadStatus
	}
	l.UpdatedAt = svc.clock.Now().UTC()

	if _, err = svc.repo.UpdateLead(ctx, l); err != nil {
		return Lead{}, err
	}
	return svc.GetByID(ctx, id)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteLead(ctx, id)
}

// populate sets Lead.Group in place; dangling group references are left nil.
func (svc *Service) populate(ctx context.Context, leads []Lead) error {
	if len(leads) == 0 {
		return nil
	}
	ids := make([]string, 0, len(leads))
	for _, l := range leads {
		ids = append(ids, l.GroupID)
	}
	byID, err := group.LoadMap(ctx, svc.groups, ids)
	if err != nil {
		return err
	}
	for i := range leads {
		if g, ok := byID[leads[i].GroupID]; ok {
			g := g
			leads[i].Group = &g
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
