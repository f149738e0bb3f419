package lead

import "github.com/infast/crm/core"

var leadStatusTag = "leadstatus"

func init() {
	core.RegisterEnum(leadStatusTag, Statuses...)
}
