package payment

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/student"
)

// Methods
const (
	MethodCash        = "CASH"
	MethodCard        = "CARD"
	MethodClickWallet = "CLICK_WALLET"
	MethodPaymeWallet = "PAYME_WALLET"
)

var Methods = []string{MethodCash, MethodCard, MethodClickWallet, MethodPaymeWallet}

type Payment struct {
	ID            string           `json:"id"`
	StudentID     string           `json:"student_id"`
	Student       *student.Student `json:"student,omitempty"`
	Amount        decimal.Decimal  `json:"amount"`
	PaymentDate   time.Time        `json:"payment_date"`
	PaymentMethod string           `json:"payment_method"`
	Note          string           `json:"note"`
	CreatedAt     time.Time        `json:"created_at"` // UTC
	UpdatedAt     time.Time        `json:"updated_at"` // UTC
}

// NewPayment contains information needed to record a Payment.
// PaymentDate defaults to today and PaymentMethod to CASH.
type NewPayment struct {
	StudentID     string           `json:"student_id" validate:"required"`
	Amount        *decimal.Decimal `json:"amount" validate:"required,gte=0"`
	PaymentDate   *core.Date       `json:"payment_date"`
	PaymentMethod string           `json:"payment_method" validate:"omitempty,paymethod"`
	Note          string           `json:"note"`
}

func (np *NewPayment) Validate() error {
	np.StudentID = core.CleanString(np.StudentID)
	np.Note = core.CleanString(np.Note)
	if err := core.ValidateStruct(np); err != nil {
		return err
	}
	return core.ValidateMoney(core.MoneyField{Name: "amount", Value: np.Amount})
}

// UpdatePayment defines what information may be provided to edit a Payment.
// The owning student cannot be changed.
type UpdatePayment struct {
	Amount        *decimal.Decimal `json:"amount" validate:"omitempty,gte=0"`
	PaymentDate   *core.Date       `json:"payment_date"`
	PaymentMethod *string          `json:"payment_method" validate:"omitempty,paymethod"`
	Note          *string          `json:"note"`
}

func (up *UpdatePayment) Validate() error {
	if up.Note != nil {
		*up.Note = core.CleanString(*up.Note)
	}
	if err := core.ValidateStruct(up); err != nil {
		return err
	}
	return core.ValidateMoney(core.MoneyField{Name: "amount", Value: up.Amount})
}

type QueryFilter struct {
	IDs       []string
	StudentID string
	DateFrom  *time.Time // inclusive
	DateTo    *time.Time // inclusive
}

// OrderingFields are the fields payments can be ordered by.
var OrderingFields = []string{"payment_date", "amount", "created_at"}
