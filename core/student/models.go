package student

import (
	"time"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
)

// Statuses
const (
	StatusLead    = "LEAD"
	StatusActive  = "ACTIVE"
	StatusDebtor  = "DEBTOR"
	StatusStopped = "STOPPED"
)

// DebtorHorizonDays is how many days ahead of the next payment a student is already considered a debtor.
const DebtorHorizonDays = 3

var Statuses = []string{StatusLead, StatusActive, StatusDebtor, StatusStopped}

type Student struct {
	ID              string       `json:"id"`
	FullName        string       `json:"full_name"`
	Phone           string       `json:"phone"`
	ParentPhone     string       `json:"parent_phone"`
	GroupID         string       `json:"group_id"`
	Group           *group.Group `json:"group,omitempty"`
	Status          string       `json:"status"`
	JoinedDate      time.Time    `json:"joined_date"`
	LastPaymentDate *time.Time   `json:"last_payment_date"`
	NextPaymentDate *time.Time   `json:"next_payment_date"`
	CreatedAt       time.Time    `json:"created_at"` // UTC
	UpdatedAt       time.Time    `json:"updated_at"` // UTC
}

// NewStudent contains information needed to create a new Student.
type NewStudent struct {
	FullName    string     `json:"full_name" validate:"required,max=255"`
	Phone       string     `json:"phone" validate:"required,phone"`
	ParentPhone string     `json:"parent_phone" validate:"omitempty,phone"`
	GroupID     string     `json:"group_id" validate:"required"`
	Status      string     `json:"status" validate:"omitempty,studentstatus"`
	JoinedDate  *core.Date `json:"joined_date"`
}

func (ns *NewStudent) Validate() error {
	ns.FullName = core.CleanString(ns.FullName)
	ns.Phone = core.CleanString(ns.Phone)
	ns.ParentPhone = core.CleanString(ns.ParentPhone)
	ns.GroupID = core.CleanString(ns.GroupID)
	return core.ValidateStruct(ns)
}

// UpdateStudent defines what information may be provided to modify an existing Student.
// Payment dates belong to the payment ledger and cannot be edited here.
type UpdateStudent struct {
	FullName    *string    `json:"full_name" validate:"omitempty,min=1,max=255"`
	Phone       *string    `json:"phone" validate:"omitempty,phone"`
	ParentPhone *string    `json:"parent_phone" validate:"omitempty,phone"`
	GroupID     *string    `json:"group_id" validate:"omitempty,min=1"`
	Status      *string    `json:"status" validate:"omitempty,studentstatus"`
	JoinedDate  *core.Date `json:"joined_date"`
}

func (us *UpdateStudent) Validate() error {
	for _, fld := range []*string{us.FullName, us.Phone, us.ParentPhone} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	check := *us
	if check.ParentPhone != nil && *check.ParentPhone == "" {
		check.ParentPhone = nil // clearing the parent phone is allowed
	}
	return core.ValidateStruct(&check)
}

type QueryFilter struct {
	IDs             []string
	GroupID         string
	Status          string
	Phone           string
	Search          string     // case-insensitive match on FullName or Phone
	NextPaymentFrom *time.Time // inclusive
	NextPaymentTo   *time.Time // exclusive
	ExcludeStatuses []string
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.Phone = core.CleanString(qf.Phone)
}

// PaymentDates is what the payment ledger writes on a student.
// Nil dates are stored as NULL. An empty Status leaves the status untouched.
type PaymentDates struct {
	Last      *time.Time
	Next      *time.Time
	Status    string
	UpdatedAt time.Time
}

// SweepResult is the outcome of one debtor sweep.
type SweepResult struct {
	Date         time.Time `json:"date"`
	Horizon      time.Time `json:"horizon"`
	Transitioned int       `json:"transitioned"`
	DueToday     []Student `json:"due_today"`
}

// OrderingFields are the fields students can be ordered by.
var OrderingFields = []string{"full_name", "status", "joined_date", "next_payment_date", "created_at"}
