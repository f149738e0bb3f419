package payment

import "github.com/infast/crm/core"

var payMethodTag = "paymethod"

func init() {
	core.RegisterEnum(payMethodTag, Methods...)
}
