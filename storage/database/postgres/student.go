package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/student"
)

const studentColumns = `id, full_name, phone, parent_phone, group_id, status, joined_date,
	last_payment_date, next_payment_date, created_at, updated_at`

var studentOrderColumns = map[string]string{
	"full_name":         "full_name",
	"status":            "status",
	"joined_date":       "joined_date",
	"next_payment_date": "next_payment_date",
	"created_at":        "created_at",
}

type studentRow struct {
	ID              string    `db:"id"`
	FullName        string    `db:"full_name"`
	Phone           string    `db:"phone"`
	ParentPhone     string    `db:"parent_phone"`
	GroupID         string    `db:"group_id"`
	Status          string    `db:"status"`
	JoinedDate      time.Time `db:"joined_date"`
	LastPaymentDate null.Time `db:"last_payment_date"`
	NextPaymentDate null.Time `db:"next_payment_date"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func newStudentRow(s student.Student) studentRow {
	return studentRow{
		ID:              s.ID,
		FullName:        s.FullName,
		Phone:           s.Phone,
		ParentPhone:     s.ParentPhone,
		GroupID:         s.GroupID,
		Status:          s.Status,
		JoinedDate:      core.DateOf(s.JoinedDate),
		LastPaymentDate: nullDate(s.LastPaymentDate),
		NextPaymentDate: nullDate(s.NextPaymentDate),
		CreatedAt:       s.CreatedAt.UTC(),
		UpdatedAt:       s.UpdatedAt.UTC(),
	}
}

func (r studentRow) toStudent() student.Student {
	return student.Student{
		ID:              r.ID,
		FullName:        r.FullName,
		Phone:           r.Phone,
		ParentPhone:     r.ParentPhone,
		GroupID:         r.GroupID,
		Status:          r.Status,
		JoinedDate:      core.DateOf(r.JoinedDate),
		LastPaymentDate: datePtr(r.LastPaymentDate),
		NextPaymentDate: datePtr(r.NextPaymentDate),
		CreatedAt:       r.CreatedAt.UTC(),
		UpdatedAt:       r.UpdatedAt.UTC(),
	}
}

type studentRepository struct {
	baseRepository
}

var _ student.Repository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(db *sqlx.DB) student.Repository {
	return &studentRepository{baseRepository{db: db}}
}

func studentWhere(filter *student.QueryFilter) whereClause {
	var where whereClause
	if filter == nil {
		return where
	}
	if filter.IDs != nil {
		where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
	}
	if filter.GroupID != "" {
		where.add("group_id::text = $%d", filter.GroupID)
	}
	if filter.Status != "" {
		where.add("status = $%d", filter.Status)
	}
	if filter.Phone != "" {
		where.add("phone = $%d", filter.Phone)
	}
	if filter.Search != "" {
		where.add("(full_name ILIKE $%[1]d OR phone ILIKE $%[1]d)", "%"+filter.Search+"%")
	}
	if filter.NextPaymentFrom != nil {
		where.add("next_payment_date >= $%d", core.DateOf(*filter.NextPaymentFrom))
	}
	if filter.NextPaymentTo != nil {
		where.add("next_payment_date < $%d", core.DateOf(*filter.NextPaymentTo))
	}
	if len(filter.ExcludeStatuses) > 0 {
		where.add("NOT (status = ANY($%d))", pq.Array(filter.ExcludeStatuses))
	}
	return where
}

func studentWriteErr(err error, s student.Student, msg string) error {
	if isUniqueViolation(err) {
		return core.NewConflictError("a student with phone %s already exists in this group", s.Phone)
	}
	return errors.Wrap(err, msg)
}

func (repo *studentRepository) CreateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	s.ID = uuid.New().String()
	q := `INSERT INTO student (` + studentColumns + `)
		VALUES (:id, :full_name, :phone, :parent_phone, :group_id, :status, :joined_date,
			:last_payment_date, :next_payment_date, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newStudentRow(s)); err != nil {
		return student.Student{}, studentWriteErr(err, s, "inserting student")
	}
	return s, nil
}

func (repo *studentRepository) GetStudentByID(ctx context.Context, id string, exec ...core.DBExecutor) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	var row studentRow
	q := `SELECT ` + studentColumns + ` FROM student WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "selecting student")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) QueryStudents(ctx context.Context, filter *student.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]student.Student, error) {
	where := studentWhere(filter)
	q := `SELECT ` + studentColumns + ` FROM student` + where.String() + orderClause(ordering, studentOrderColumns, "created_at ASC, id ASC")

	var rows []studentRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting students")
	}
	students := make([]student.Student, 0, len(rows))
	for _, r := range rows {
		students = append(students, r.toStudent())
	}
	return students, nil
}

func (repo *studentRepository) CountStudents(ctx context.Context, filter *student.QueryFilter, exec ...core.DBExecutor) (int, error) {
	where := studentWhere(filter)
	var n int
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &n, `SELECT COUNT(*) FROM student`+where.String(), where.args...); err != nil {
		return 0, errors.Wrap(err, "counting students")
	}
	return n, nil
}

// UpdateStudent leaves the payment dates alone; only UpdatePaymentDates writes them.
func (repo *studentRepository) UpdateStudent(ctx context.Context, s student.Student, exec ...core.DBExecutor) (student.Student, error) {
	q := `UPDATE student SET full_name = :full_name, phone = :phone, parent_phone = :parent_phone,
		group_id = :group_id, status = :status, joined_date = :joined_date, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newStudentRow(s))
	if err != nil {
		return student.Student{}, studentWriteErr(err, s, "updating student")
	}
	if err = checkAffected(res, student.ErrNotFound); err != nil {
		return student.Student{}, err
	}
	return repo.GetStudentByID(ctx, s.ID, exec...)
}

func (repo *studentRepository) UpdatePaymentDates(ctx context.Context, id string, dates student.PaymentDates, exec ...core.DBExecutor) (student.Student, error) {
	if !isUUID(id) {
		return student.Student{}, student.ErrNotFound
	}
	q := `UPDATE student SET last_payment_date = $2, next_payment_date = $3,
		status = COALESCE(NULLIF($4, ''), status), updated_at = $5
		WHERE id = $1
		RETURNING ` + studentColumns
	var row studentRow
	err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q,
		id, nullDate(dates.Last), nullDate(dates.Next), dates.Status, dates.UpdatedAt.UTC())
	if err != nil {
		return student.Student{}, trapNoRowsErr(err, student.ErrNotFound, "updating payment dates")
	}
	return row.toStudent(), nil
}

func (repo *studentRepository) MarkDebtors(ctx context.Context, horizon, updatedAt time.Time, exec ...core.DBExecutor) (int, error) {
	q := `UPDATE student SET status = $1, updated_at = $2
		WHERE NOT (status = ANY($3)) AND next_payment_date IS NOT NULL AND next_payment_date < $4`
	res, err := repo.getExec(exec).ExecContext(ctx, q,
		student.StatusDebtor, updatedAt.UTC(),
		pq.Array([]string{student.StatusStopped, student.StatusDebtor}), core.DateOf(horizon))
	if err != nil {
		return 0, errors.Wrap(err, "marking debtors")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "reading affected rows")
	}
	return int(n), nil
}

func (repo *studentRepository) DeleteStudent(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return student.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM student WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return checkAffected(res, student.ErrNotFound)
}
