package student

import "github.com/infast/crm/core"

var studentStatusTag = "studentstatus"

func init() {
	core.RegisterEnum(studentStatusTag, Statuses...)
}
