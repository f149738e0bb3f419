package dummydb

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
)

var groupOrdering = map[string]comparator[group.Group]{
	"name":       func(a, b group.Group) int { return cmpString(a.Name, b.Name) },
	"status":     func(a, b group.Group) int { return strings.Compare(a.Status, b.Status) },
	"start_date": func(a, b group.Group) int { return cmpTimePtr(a.StartDate, b.StartDate) },
	"created_at": func(a, b group.Group) int { return cmpTime(a.CreatedAt, b.CreatedAt) },
}

func groupFallback(a, b group.Group) int {
	if c := cmpTime(a.CreatedAt, b.CreatedAt); c != 0 {
		return c
	}
	return strings.Compare(a.ID, b.ID)
}

type groupRepository struct {
	db *DB
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *DB) group.Repository {
	return &groupRepository{db: db}
}

// store drops the populated course and copies the days so callers can't mutate stored rows.
func (repo *groupRepository) store(g group.Group) group.Group {
	g.Course = nil
	g.DaysOfWeek = append([]string{}, g.DaysOfWeek...)
	repo.db.groups[g.ID] = g
	return g
}

func (repo *groupRepository) match(g group.Group, filter *group.QueryFilter) bool {
	if filter == nil {
		return true
	}
	if filter.IDs != nil && !inIDs(g.ID, filter.IDs) {
		return false
	}
	if filter.CourseID != "" && g.CourseID != filter.CourseID {
		return false
	}
	if filter.Status != "" && g.Status != filter.Status {
		return false
	}
	if filter.Weekday != "" && !g.MeetsOn(filter.Weekday) {
		return false
	}
	return true
}

func (repo *groupRepository) CreateGroup(_ context.Context, g group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g.ID = uuid.New().String()
	return repo.store(g), nil
}

func (repo *groupRepository) GetGroupByID(_ context.Context, id string, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	if g, ok := repo.db.groups[id]; ok {
		return g, nil
	}
	return group.Group{}, group.ErrNotFound
}

func (repo *groupRepository) QueryGroups(_ context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, _ ...core.DBExecutor) ([]group.Group, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	groups := make([]group.Group, 0, len(repo.db.groups))
	for _, g := range repo.db.groups {
		if repo.match(g, filter) {
			groups = append(groups, g)
		}
	}
	orderBy(groups, ordering, groupOrdering, groupFallback)
	return groups, nil
}

func (repo *groupRepository) CountGroups(_ context.Context, filter *group.QueryFilter, _ ...core.DBExecutor) (int, error) {
	repo.db.mu.RLock()
	defer repo.db.mu.RUnlock()

	var n int
	for _, g := range repo.db.groups {
		if repo.match(g, filter) {
			n++
		}
	}
	return n, nil
}

func (repo *groupRepository) UpdateGroup(_ context.Context, g group.Group, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	orig, ok := repo.db.groups[g.ID]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	g.CreatedAt = orig.CreatedAt
	return repo.store(g), nil
}

func (repo *groupRepository) ActivateGroup(_ context.Context, id string, startDate, updatedAt time.Time, _ ...core.DBExecutor) (group.Group, error) {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	g, ok := repo.db.groups[id]
	if !ok {
		return group.Group{}, group.ErrNotFound
	}
	if g.Status != group.StatusRecruiting {
		return group.Group{}, core.NewStateError("group is %s, only %s groups can be activated", g.Status, group.StatusRecruiting)
	}
	g.Status = group.StatusActive
	g.StartDate = &startDate
	g.UpdatedAt = updatedAt
	return repo.store(g), nil
}

func (repo *groupRepository) DeleteGroup(_ context.Context, id string, _ ...core.DBExecutor) error {
	repo.db.mu.Lock()
	defer repo.db.mu.Unlock()

	if _, ok := repo.db.groups[id]; !ok {
		return group.ErrNotFound
	}
	delete(repo.db.groups, id)
	return nil
}
