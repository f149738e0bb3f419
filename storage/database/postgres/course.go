package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/course"
)

const courseColumns = `id, name, description, monthly_price, lessons_per_month, is_active, created_at, updated_at`

var courseOrderColumns = map[string]string{
	"name":          "name",
	"monthly_price": "monthly_price",
	"created_at":    "created_at",
}

type courseRow struct {
	ID              string          `db:"id"`
	Name            string          `db:"name"`
	Description     string          `db:"description"`
	MonthlyPrice    decimal.Decimal `db:"monthly_price"`
	LessonsPerMonth int             `db:"lessons_per_month"`
	IsActive        bool            `db:"is_active"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}

func newCourseRow(c course.Course) courseRow {
	return courseRow{
		ID:              c.ID,
		Name:            c.Name,
		Description:     c.Description,
		MonthlyPrice:    c.MonthlyPrice,
		LessonsPerMonth: c.LessonsPerMonth,
		IsActive:        c.IsActive,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
	}
}

func (r courseRow) toCourse() course.Course {
	return course.Course{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		MonthlyPrice:    r.MonthlyPrice,
		LessonsPerMonth: r.LessonsPerMonth,
		IsActive:        r.IsActive,
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type courseRepository struct {
	baseRepository
}

var _ course.Repository = (*courseRepository)(nil) // interface compliance check

func NewCourseRepository(db *sqlx.DB) course.Repository {
	return &courseRepository{baseRepository{db: db}}
}

func (repo *courseRepository) CreateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	c.ID = uuid.New().String()
	q := `INSERT INTO course (` + courseColumns + `)
		VALUES (:id, :name, :description, :monthly_price, :lessons_per_month, :is_active, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newCourseRow(c)); err != nil {
		return course.Course{}, errors.Wrap(err, "inserting course")
	}
	return c, nil
}

func (repo *courseRepository) GetCourseByID(ctx context.Context, id string, exec ...core.DBExecutor) (course.Course, error) {
	if _, err := uuid.Parse(id); err != nil {
		return course.Course{}, course.ErrNotFound
	}
	var row courseRow
	q := `SELECT ` + courseColumns + ` FROM course WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return course.Course{}, trapNoRowsErr(err, course.ErrNotFound, "selecting course")
	}
	return row.toCourse(), nil
}

func (repo *courseRepository) QueryCourses(ctx context.Context, filter *course.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]course.Course, error) {
	var where whereClause
	if filter != nil {
		if filter.IDs != nil {
			where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
		}
		if filter.Search != "" {
			where.add("name ILIKE $%d", "%"+filter.Search+"%")
		}
		if filter.IsActive != nil {
			where.add("is_active = $%d", *filter.IsActive)
		}
	}
	q := `SELECT ` + courseColumns + ` FROM course` + where.String() + orderClause(ordering, courseOrderColumns, "created_at ASC, id ASC")

	var rows []courseRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, r := range rows {
		courses = append(courses, r.toCourse())
	}
	return courses, nil
}

func (repo *courseRepository) UpdateCourse(ctx context.Context, c course.Course, exec ...core.DBExecutor) (course.Course, error) {
	q := `UPDATE course SET name = :name, description = :description, monthly_price = :monthly_price,
		lessons_per_month = :lessons_per_month, is_active = :is_active, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newCourseRow(c))
	if err != nil {
		return course.Course{}, errors.Wrap(err, "updating course")
	}
	if err = checkAffected(res, course.ErrNotFound); err != nil {
		return course.Course{}, err
	}
	return c, nil
}

func (repo *courseRepository) DeleteCourse(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if _, err := uuid.Parse(id); err != nil {
		return course.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM course WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting course")
	}
	return checkAffected(res, course.ErrNotFound)
}
