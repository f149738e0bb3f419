package lead

import (
	"time"

	"github.com/infast/crm/core"
	"github.com/infast/crm/core/group"
)

// Statuses
const (
	StatusInterested = "INTERESTED"
	StatusRegistered = "REGISTERED"
	StatusConfirmed  = "CONFIRMED"
)

var Statuses = []string{StatusInterested, StatusRegistered, StatusConfirmed}

type Lead struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	Phone      string       `json:"phone"`
	GroupID    string       `json:"group_id"`
	Group      *group.Group `json:"group,omitempty"`
	LeadStatus string       `json:"lead_status"`
	CreatedAt  time.Time    `json:"created_at"` // UTC
	UpdatedAt  time.Time    `json:"updated_at"` // UTC
}

// NewLead contains information needed to create a new Lead.
type NewLead struct {
	Name       string `json:"name" validate:"required,max=255"`
	Phone      string `json:"phone" validate:"required,phone"`
	GroupID    string `json:"group_id" validate:"required"`
	LeadStatus string `json:"lead_status" validate:"omitempty,leadstatus"`
}

func (nl *NewLead) Validate() error {
	nl.Name = core.CleanString(nl.Name)
	nl.Phone = core.CleanString(nl.Phone)
	nl.GroupID = core.CleanString(nl.GroupID)
	return core.ValidateStruct(nl)
}

// UpdateLead defines what information may be provided to modify an existing Lead.
type UpdateLead struct {
	Name       *string `json:"name" validate:"omitempty,min=1,max=255"`
	Phone      *string `json:"phone" validate:"omitempty,phone"`
	GroupID    *string `json:"group_id" validate:"omitempty,min=1"`
	LeadStatus *string `json:"lead_status" validate:"omitempty,leadstatus"`
}

func (ul *UpdateLead) Validate() error {
	for _, fld := range []*string{ul.Name, ul.Phone, ul.GroupID} {
		if fld != nil {
			*fld = core.CleanString(*fld)
		}
	}
	return core.ValidateStruct(ul)
}

type QueryFilter struct {
	IDs        []string
	GroupID    string
	LeadStatus string
	Search     string // case-insensitive match on Name or Phone
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields are the fields leads can be ordered by.
var OrderingFields = []string{"name", "lead_status", "created_at"}
