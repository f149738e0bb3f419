package course

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/infast/crm/core"
)

type Course struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price"`
	LessonsPerMonth int             `json:"lessons_per_month"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"` // UTC
	UpdatedAt       time.Time       `json:"updated_at"` // UTC
}

// NewCourse contains information needed to create a new Course.
type NewCourse struct {
	Name            string          `json:"name" validate:"required,max=255"`
	Description     string          `json:"description"`
	MonthlyPrice    decimal.Decimal `json:"monthly_price" validate:"gte=0"`
	LessonsPerMonth int             `json:"lessons_per_month" validate:"required,min=1"`
	IsActive        *bool           `json:"is_active"`
}

func (nc *NewCourse) Validate() error {
	nc.Name = core.CleanString(nc.Name)
	nc.Description = core.CleanString(nc.Description)
	if err := core.ValidateStruct(nc); err != nil {
		return err
	}
	return core.ValidateMoney(core.MoneyField{Name: "monthly_price", Value: &nc.MonthlyPrice})
}

// UpdateCourse defines what information may be provided to modify an existing Course.
// nil fields are left untouched.
type UpdateCourse struct {
	Name            *string          `json:"name" validate:"omitempty,min=1,max=255"`
	Description     *string          `json:"description"`
	MonthlyPrice    *decimal.Decimal `json:"monthly_price" validate:"omitempty,gte=0"`
	LessonsPerMonth *int             `json:"lessons_per_month" validate:"omitempty,min=1"`
	IsActive        *bool            `json:"is_active"`
}

func (uc *UpdateCourse) Validate() error {
	if uc.Name != nil {
		name := core.CleanString(*uc.Name)
		uc.Name = &name
	}
	if err := core.ValidateStruct(uc); err != nil {
		return err
	}
	return core.ValidateMoney(core.MoneyField{Name: "monthly_price", Value: uc.MonthlyPrice})
}

type QueryFilter struct {
	IDs      []string
	Search   string // case-insensitive match on Name
	IsActive *bool
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields are the fields courses can be ordered by.
var OrderingFields = []string{"name", "monthly_price", "created_at"}
