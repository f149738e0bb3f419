package payment

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
	"github.com/infast/crm/core/student"
)

// ErrNotFound is returned when a payment does not exist.
var ErrNotFound = core.NewNotFoundError("payment")

var latestFirst = []core.DBOrdering{{Field: "payment_date"}, {Field: "created_at"}}

type (
	Repository interface {
		CreatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		GetPaymentByID(ctx context.Context, id string, exec ...core.DBExecutor) (Payment, error)
		// QueryPayments applies AND operation on available QueryFilter fields.
		QueryPayments(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Payment, error)
		SumPayments(ctx context.Context, filter *QueryFilter, exec ...core.DBExecutor) (decimal.Decimal, error)
		UpdatePayment(ctx context.Context, p Payment, exec ...core.DBExecutor) (Payment, error)
		DeletePayment(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		repo              Repository
		students          student.Repository
		groups            group.Repository
		tx                core.Transactor
		clock             core.Clock
		recomputeOnDelete bool
	}
)

func NewService(
	repo Repository,
	students student.Repository,
	groups group.Repository,
	tx core.Transactor,
	clock core.Clock,
	conf core.PaymentsConfig,
) *Service {
	return &Service{
		repo:              repo,
		students:          students,
		groups:            groups,
		tx:                tx,
		clock:             clock,
		recomputeOnDelete: conf.RecomputeOnDelete,
	}
}

// Record stores a payment and moves the student's paid-through dates:
// last payment = payment date, next payment = one calendar month later.
// A payment always makes the student ACTIVE again.
func (svc *Service) Record(ctx context.Context, np NewPayment) (Payment, error) {
	if err := np.Validate(); err != nil {
		return Payment{}, err
	}

	now := svc.clock.Now()
	p := Payment{
		StudentID:     np.StudentID,
		Amount:        *np.Amount,
		PaymentDate:   core.DateOf(now),
		PaymentMethod: MethodCash,
		Note:          np.Note,
		CreatedAt:     now.UTC(),
		UpdatedAt:     now.UTC(),
	}
	if np.PaymentDate != nil && !np.PaymentDate.IsZero() {
		p.PaymentDate = core.DateOf(np.PaymentDate.Time)
	}
	if np.PaymentMethod != "" {
		p.PaymentMethod = np.PaymentMethod
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.students.GetStudentByID(ctx, p.StudentID, exec); err != nil {
			if errors.Cause(err) == student.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "student_id", Error: err.Error()})
			}
			return errors.Wrap(err, "getting student")
		}

		var err error
		if p, err = svc.repo.CreatePayment(ctx, p, exec); err != nil {
			return errors.Wrap(err, "creating payment")
		}
		_, err = svc.students.UpdatePaymentDates(ctx, p.StudentID, paymentDates(p.PaymentDate, student.StatusActive, now), exec)
		return errors.Wrap(err, "updating student payment dates")
	})
	if err != nil {
		return Payment{}, err
	}
	return svc.GetByID(ctx, p.ID)
}

// Edit updates a payment. A new payment date recomputes the student's dates but leaves the status alone.
func (svc *Service) Edit(ctx context.Context, id string, up UpdatePayment) (Payment, error) {
	if err := up.Validate(); err != nil {
		return Payment{}, err
	}

	err := svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		p, err := svc.repo.GetPaymentByID(ctx, id, exec)
		if err != nil {
			return err
		}
		if up.Amount != nil {
			p.Amount = *up.Amount
		}
		if up.PaymentMethod != nil {
			p.PaymentMethod = *up.PaymentMethod
		}
		if up.Note != nil {
			p.Note = *up.Note
		}
		dateChanged := up.PaymentDate != nil && !up.PaymentDate.IsZero()
		if dateChanged {
			p.PaymentDate = core.DateOf(up.PaymentDate.Time)
		}
		now := svc.clock.Now()
		p.UpdatedAt = now.UTC()

		if p, err = svc.repo.UpdatePayment(ctx, p, exec); err != nil {
			return err
		}
		if dateChanged {
			_, err = svc.students.UpdatePaymentDates(ctx, p.StudentID, paymentDates(p.PaymentDate, "", now), exec)
			return errors.Wrap(err, "updating student payment dates")
		}
		return nil
	})
	if err != nil {
		return Payment{}, err
	}
	return svc.GetByID(ctx, id)
}

// Delete removes a payment. The student's dates are only recomputed, from their latest
// remaining payment, when payments.recomputeOnDelete is enabled.
func (svc *Service) Delete(ctx context.Context, id string) error {
	return svc.tx.RunInTx(ctx, func(exec core.DBExecutor) error {
		p, err := svc.repo.GetPaymentByID(ctx, id, exec)
		if err != nil {
			return err
		}
		if err = svc.repo.DeletePayment(ctx, id, exec); err != nil {
			return err
		}
		if !svc.recomputeOnDelete {
			return nil
		}

		now := svc.clock.Now()
		dates := student.PaymentDates{UpdatedAt: now.UTC()}
		remaining, err := svc.repo.QueryPayments(ctx, &QueryFilter{StudentID: p.StudentID}, latestFirst, exec)
		if err != nil {
			return errors.Wrap(err, "querying remaining payments")
		}
		if len(remaining) > 0 {
			dates = paymentDates(remaining[0].PaymentDate, "", now)
		}
		_, err = svc.students.UpdatePaymentDates(ctx, p.StudentID, dates, exec)
		if errors.Cause(err) == student.ErrNotFound {
			return nil
		}
		return errors.Wrap(err, "updating student payment dates")
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Payment, error) {
	p, err := svc.repo.GetPaymentByID(ctx, id)
	if err != nil {
		return Payment{}, err
	}
	payments := []Payment{p}
	if err = svc.populate(ctx, payments); err != nil {
		return Payment{}, err
	}
	return payments[0], nil
}

func (svc *Service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Payment, error) {
	payments, err := svc.repo.QueryPayments(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	if err = svc.populate(ctx, payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// Revenue sums the payments made between from and to, both inclusive.
func (svc *Service) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	from, to = core.DateOf(from), core.DateOf(to)
	return svc.repo.SumPayments(ctx, &QueryFilter{DateFrom: &from, DateTo: &to})
}

// populate sets Payment.Student (with its Group) in place; dangling references are left nil.
func (svc *Service) populate(ctx context.Context, payments []Payment) error {
	if len(payments) == 0 {
		return nil
	}
	ids := make([]string, 0, len(payments))
	for _, p := range payments {
		ids = append(ids, p.StudentID)
	}
	students, err := svc.students.QueryStudents(ctx, &student.QueryFilter{IDs: ids}, nil)
	if err != nil {
		return errors.Wrap(err, "populating students")
	}
	if err = student.Populate(ctx, svc.groups, students); err != nil {
		return err
	}
	byID := make(map[string]student.Student, len(students))
	for _, s := range students {
		byID[s.ID] = s
	}
	for i := range payments {
		if s, ok := byID[payments[i].StudentID]; ok {
			s := s
			payments[i].Student = &s
		}
	}
	return nil
}

func paymentDates(paidOn time.Time, status string, now time.Time) student.PaymentDates {
	last := core.DateOf(paidOn)
	next := core.AddMonth(last)
	return student.PaymentDates{Last: &last, Next: &next, Status: status, UpdatedAt: now.UTC()}
}
