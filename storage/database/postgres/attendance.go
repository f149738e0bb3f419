package pgrepos

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/attendance"
)

const attendanceColumns = `id, student_id, group_id, date, status, note, created_at, updated_at`

var attendanceOrderColumns = map[string]string{
	"date":       "date",
	"status":     "status",
	"created_at": "created_at",
}

type attendanceRow struct {
	ID        string    `db:"id"`
	StudentID string    `db:"student_id"`
	GroupID   string    `db:"group_id"`
	Date      time.Time `db:"date"`
	Status    string    `db:"status"`
	Note      string    `db:"note"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func newAttendanceRow(a attendance.Attendance) attendanceRow {
	return attendanceRow{
		ID:        a.ID,
		StudentID: a.StudentID,
		GroupID:   a.GroupID,
		Date:      core.DateOf(a.Date),
		Status:    a.Status,
		Note:      a.Note,
		CreatedAt: a.CreatedAt.UTC(),
		UpdatedAt: a.UpdatedAt.UTC(),
	}
}

func (r attendanceRow) toAttendance() attendance.Attendance {
	return attendance.Attendance{
		ID:        r.ID,
		StudentID: r.StudentID,
		GroupID:   r.GroupID,
		Date:      core.DateOf(r.Date),
		Status:    r.Status,
		Note:      r.Note,
		CreatedAt: r.CreatedAt.UTC(),
		UpdatedAt: r.UpdatedAt.UTC(),
	}
}

type attendanceRepository struct {
	baseRepository
}

var _ attendance.Repository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(db *sqlx.DB) attendance.Repository {
	return &attendanceRepository{baseRepository{db: db}}
}

// UpsertAttendance relies on the (student_id, group_id, date) unique constraint,
// so concurrent marks of the same lesson day end up as one row.
func (repo *attendanceRepository) UpsertAttendance(ctx context.Context, a attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	a.ID = uuid.New().String()
	q := `INSERT INTO attendance (` + attendanceColumns + `)
		VALUES (:id, :student_id, :group_id, :date, :status, :note, :created_at, :updated_at)
		ON CONFLICT ON CONSTRAINT attendance_student_group_date_key
		DO UPDATE SET status = EXCLUDED.status, note = EXCLUDED.note, updated_at = EXCLUDED.updated_at
		RETURNING ` + attendanceColumns

	query, args, err := sqlx.Named(q, newAttendanceRow(a))
	if err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "binding attendance")
	}
	ex := repo.getExec(exec)
	var row attendanceRow
	if err = sqlx.GetContext(ctx, ex, &row, ex.Rebind(query), args...); err != nil {
		return attendance.Attendance{}, errors.Wrap(err, "upserting attendance")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) GetAttendanceByID(ctx context.Context, id string, exec ...core.DBExecutor) (attendance.Attendance, error) {
	if !isUUID(id) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	var row attendanceRow
	q := `SELECT ` + attendanceColumns + ` FROM attendance WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "selecting attendance")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) QueryAttendance(ctx context.Context, filter *attendance.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]attendance.Attendance, error) {
	var where whereClause
	if filter != nil {
		if filter.IDs != nil {
			where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
		}
		if filter.GroupID != "" {
			where.add("group_id::text = $%d", filter.GroupID)
		}
		if filter.StudentID != "" {
			where.add("student_id::text = $%d", filter.StudentID)
		}
		if filter.Date != nil {
			where.add("date = $%d", core.DateOf(*filter.Date))
		}
	}
	q := `SELECT ` + attendanceColumns + ` FROM attendance` + where.String() + orderClause(ordering, attendanceOrderColumns, "created_at ASC, id ASC")

	var rows []attendanceRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting attendance")
	}
	records := make([]attendance.Attendance, 0, len(rows))
	for _, r := range rows {
		records = append(records, r.toAttendance())
	}
	return records, nil
}

func (repo *attendanceRepository) UpdateAttendance(ctx context.Context, a attendance.Attendance, exec ...core.DBExecutor) (attendance.Attendance, error) {
	if !isUUID(a.ID) {
		return attendance.Attendance{}, attendance.ErrNotFound
	}
	q := `UPDATE attendance SET status = $2, note = $3, updated_at = $4 WHERE id = $1 RETURNING ` + attendanceColumns
	var row attendanceRow
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, a.ID, a.Status, a.Note, a.UpdatedAt.UTC()); err != nil {
		return attendance.Attendance{}, trapNoRowsErr(err, attendance.ErrNotFound, "updating attendance")
	}
	return row.toAttendance(), nil
}

func (repo *attendanceRepository) DeleteAttendance(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return attendance.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM attendance WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting attendance")
	}
	return checkAffected(res, attendance.ErrNotFound)
}
