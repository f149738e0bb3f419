package group

import "github.com/infast/crm/core"

var (
	weekdayTag     = "weekday"
	groupStatusTag = "groupstatus"
)

func init() {
	core.RegisterEnum(weekdayTag, Weekdays...)
	core.RegisterEnum(groupStatusTag, Statuses...)
}
