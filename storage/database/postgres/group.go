package pgrepos

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
)

const groupColumns = `id, course_id, name, status, start_date, days_of_week, time, min_students, max_students, created_at, updated_at`

var groupOrderColumns = map[string]string{
	"name":       "name",
	"status":     "status",
	"start_date": "start_date",
	"created_at": "created_at",
}

type groupRow struct {
	ID          string         `db:"id"`
	CourseID    string         `db:"course_id"`
	Name        string         `db:"name"`
	Status      string         `db:"status"`
	StartDate   null.Time      `db:"start_date"`
	DaysOfWeek  pq.StringArray `db:"days_of_week"`
	Time        string         `db:"time"`
	MinStudents int            `db:"min_students"`
	MaxStudents int            `db:"max_students"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
}

func newGroupRow(g group.Group) groupRow {
	days := pq.StringArray(g.DaysOfWeek)
	if days == nil {
		days = pq.StringArray{}
	}
	return groupRow{
		ID:          g.ID,
		CourseID:    g.CourseID,
		Name:        g.Name,
		Status:      g.Status,
		StartDate:   nullDate(g.StartDate),
		DaysOfWeek:  days,
		Time:        g.Time,
		MinStudents: g.MinStudents,
		MaxStudents: g.MaxStudents,
		CreatedAt:   g.CreatedAt.UTC(),
		UpdatedAt:   g.UpdatedAt.UTC(),
	}
}

func (r groupRow) toGroup() group.Group {
	days := []string(r.DaysOfWeek)
	if days == nil {
		days = []string{}
	}
	return group.Group{
		ID:          r.ID,
		CourseID:    r.CourseID,
		Name:        r.Name,
		Status:      r.Status,
		StartDate:   datePtr(r.StartDate),
		DaysOfWeek:  days,
		Time:        r.Time,
		MinStudents: r.MinStudents,
		MaxStudents: r.MaxStudents,
		CreatedAt:   r.CreatedAt.UTC(),
		UpdatedAt:   r.UpdatedAt.UTC(),
	}
}

type groupRepository struct {
	baseRepository
}

var _ group.Repository = (*groupRepository)(nil) // interface compliance check

func NewGroupRepository(db *sqlx.DB) group.Repository {
	return &groupRepository{baseRepository{db: db}}
}

func groupWhere(filter *group.QueryFilter) whereClause {
	var where whereClause
	if filter == nil {
		return where
	}
	if filter.IDs != nil {
		where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
	}
	if filter.CourseID != "" {
		where.add("course_id::text = $%d", filter.CourseID)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.Weekday != "" {
		where.add("$%d = ANY(days_of_week)", filter.Weekday)
	}
	return where
}

func (repo *groupRepository) CreateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	g.ID = uuid.New().String()
	q := `INSERT INTO "group" (` + groupColumns + `)
		VALUES (:id, :course_id, :name, :status, :start_date, :days_of_week, :time, :min_students, :max_students, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newGroupRow(g)); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return g, nil
}

func (repo *groupRepository) GetGroupByID(ctx context.Context, id string, exec ...core.DBExecutor) (group.Group, error) {
	if !isUUID(id) {
		return group.Group{}, group.ErrNotFound
	}
	var row groupRow
	q := `SELECT ` + groupColumns + ` FROM "group" WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return group.Group{}, trapNoRowsErr(err, group.ErrNotFound, "selecting group")
	}
	return row.toGroup(), nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, filter *group.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]group.Group, error) {
	where := groupWhere(filter)
	q := `SELECT ` + groupColumns + ` FROM "group"` + where.String() + orderClause(ordering, groupOrderColumns, "created_at ASC, id ASC")

	var rows []groupRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}
	groups := make([]group.Group, 0, len(rows))
	for _, r := range rows {
		groups = append(groups, r.toGroup())
	}
	return groups, nil
}

func (repo *groupRepository) CountGroups(ctx context.Context, filter *group.QueryFilter, exec ...core.DBExecutor) (int, error) {
	where := groupWhere(filter)
	var n int
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &n, `SELECT COUNT(*) FROM "group"`+where.String(), where.args...); err != nil {
		return 0, errors.Wrap(err, "counting groups")
	}
	return n, nil
}

func (repo *groupRepository) UpdateGroup(ctx context.Context, g group.Group, exec ...core.DBExecutor) (group.Group, error) {
	q := `UPDATE "group" SET course_id = :course_id, name = :name, status = :status, start_date = :start_date,
		days_of_week = :days_of_week, time = :time, min_students = :min_students, max_students = :max_students,
		updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newGroupRow(g))
	if err != nil {
		return group.Group{}, errors.Wrap(err, "updating group")
	}
	if err = checkAffected(res, group.ErrNotFound); err != nil {
		return group.Group{}, err
	}
	return g, nil
}

// ActivateGroup is a compare-and-set on status: concurrent activations of the same group
// cannot both succeed.
func (repo *groupRepository) ActivateGroup(ctx context.Context, id string, startDate, updatedAt time.Time, exec ...core.DBExecutor) (group.Group, error) {
	if !isUUID(id) {
		return group.Group{}, group.ErrNotFound
	}
	ex := repo.getExec(exec)
	q := `UPDATE "group" SET status = $2, start_date = $3, updated_at = $4
		WHERE id = $1 AND status = $5
		RETURNING ` + groupColumns
	var row groupRow
	err := sqlx.GetContext(ctx, ex, &row, q, id, group.StatusActive, core.DateOf(startDate), updatedAt.UTC(), group.StatusRecruiting)
	if err == nil {
		return row.toGroup(), nil
	}
	if errors.Cause(err) != sql.ErrNoRows {
		return group.Group{}, errors.Wrap(err, "activating group")
	}

	current, err := repo.GetGroupByID(ctx, id, ex)
	if err != nil {
		return group.Group{}, err
	}
	return group.Group{}, core.NewStateError("group is %s, only %s groups can be activated", current.Status, group.StatusRecruiting)
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return group.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM "group" WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting group")
	}
	return checkAffected(res, group.ErrNotFound)
}
