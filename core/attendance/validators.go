package attendance

import "github.com/infast/crm/core"

var attendanceStatusTag = "attendancestatus"

func init() {
	core.RegisterEnum(attendanceStatusTag, Statuses...)
}
