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
	"github.com/infast/crm/core/payment"
)

const paymentColumns = `id, student_id, amount, payment_date, payment_method, note, created_at, updated_at`

var paymentOrderColumns = map[string]string{
	"payment_date": "payment_date",
	"amount":       "amount",
	"created_at":   "created_at",
}

type paymentRow struct {
	ID            string          `db:"id"`
	StudentID     string          `db:"student_id"`
	Amount        decimal.Decimal `db:"amount"`
	PaymentDate   time.Time       `db:"payment_date"`
	PaymentMethod string          `db:"payment_method"`
	Note          string          `db:"note"`
	CreatedAt     time.Time       `db:"created_at"`
	UpdatedAt     time.Time       `db:"updated_at"`
}

func newPaymentRow(p payment.Payment) paymentRow {
	return paymentRow{
		ID:            p.ID,
		StudentID:     p.StudentID,
		Amount:        p.Amount,
		PaymentDate:   core.DateOf(p.PaymentDate),
		PaymentMethod: p.PaymentMethod,
		Note:          p.Note,
		CreatedAt:     p.CreatedAt.UTC(),
		UpdatedAt:     p.UpdatedAt.UTC(),
	}
}

func (r paymentRow) toPayment() payment.Payment {
	return payment.Payment{
		ID:            r.ID,
		StudentID:     r.StudentID,
		Amount:        r.Amount,
		PaymentDate:   core.DateOf(r.PaymentDate),
		PaymentMethod: r.PaymentMethod,
		Note:          r.Note,
		CreatedAt:     r.CreatedAt.UTC(),
		UpdatedAt:     r.UpdatedAt.UTC(),
	}
}

type paymentRepository struct {
	baseRepository
}

var _ payment.Repository = (*paymentRepository)(nil) // interface compliance check

func NewPaymentRepository(db *sqlx.DB) payment.Repository {
	return &paymentRepository{baseRepository{db: db}}
}

func paymentWhere(filter *payment.QueryFilter) whereClause {
	var where whereClause
	if filter == nil {
		return where
	}
	if filter.IDs != nil {
		where.add("id = ANY($%d::uuid[])", pq.Array(validUUIDs(filter.IDs)))
	}
	if filter.StudentID != "" {
		where.add("student_id::text = $%d", filter.StudentID)
	}
	if filter.DateFrom != nil {
		where.add("payment_date >= $%d", core.DateOf(*filter.DateFrom))
	}
	if filter.DateTo != nil {
		where.add("payment_date <= $%d", core.DateOf(*filter.DateTo))
	}
	return where
}

func (repo *paymentRepository) CreatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	p.ID = uuid.New().String()
	q := `INSERT INTO payment (` + paymentColumns + `)
		VALUES (:id, :student_id, :amount, :payment_date, :payment_method, :note, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newPaymentRow(p)); err != nil {
		return payment.Payment{}, errors.Wrap(err, "inserting payment")
	}
	return p, nil
}

func (repo *paymentRepository) GetPaymentByID(ctx context.Context, id string, exec ...core.DBExecutor) (payment.Payment, error) {
	if !isUUID(id) {
		return payment.Payment{}, payment.ErrNotFound
	}
	var row paymentRow
	q := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &row, q, id); err != nil {
		return payment.Payment{}, trapNoRowsErr(err, payment.ErrNotFound, "selecting payment")
	}
	return row.toPayment(), nil
}

func (repo *paymentRepository) QueryPayments(ctx context.Context, filter *payment.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]payment.Payment, error) {
	where := paymentWhere(filter)
	q := `SELECT ` + paymentColumns + ` FROM payment` + where.String() + orderClause(ordering, paymentOrderColumns, "created_at ASC, id ASC")

	var rows []paymentRow
	if err := sqlx.SelectContext(ctx, repo.getExec(exec), &rows, q, where.args...); err != nil {
		return nil, errors.Wrap(err, "selecting payments")
	}
	payments := make([]payment.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toPayment())
	}
	return payments, nil
}

func (repo *paymentRepository) SumPayments(ctx context.Context, filter *payment.QueryFilter, exec ...core.DBExecutor) (decimal.Decimal, error) {
	where := paymentWhere(filter)
	var total decimal.Decimal
	q := `SELECT COALESCE(SUM(amount), 0) FROM payment` + where.String()
	if err := sqlx.GetContext(ctx, repo.getExec(exec), &total, q, where.args...); err != nil {
		return decimal.Zero, errors.Wrap(err, "summing payments")
	}
	return total, nil
}

func (repo *paymentRepository) UpdatePayment(ctx context.Context, p payment.Payment, exec ...core.DBExecutor) (payment.Payment, error) {
	q := `UPDATE payment SET amount = :amount, payment_date = :payment_date, payment_method = :payment_method,
		note = :note, updated_at = :updated_at
		WHERE id = :id`
	res, err := sqlx.NamedExecContext(ctx, repo.getExec(exec), q, newPaymentRow(p))
	if err != nil {
		return payment.Payment{}, errors.Wrap(err, "updating payment")
	}
	if err = checkAffected(res, payment.ErrNotFound); err != nil {
		return payment.Payment{}, err
	}
	return repo.GetPaymentByID(ctx, p.ID, exec...)
}

func (repo *paymentRepository) DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error {
	if !isUUID(id) {
		return payment.ErrNotFound
	}
	res, err := repo.getExec(exec).ExecContext(ctx, `DELETE FROM payment WHERE id = $1`, id)
	if err != nil {
		return errors.Wrap(err, "deleting payment")
	}
	return checkAffected(res, payment.ErrNotFound)
}
