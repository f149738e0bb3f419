package student

import (
	"net/mail"

	"github.com/infast/crm/core"
)

const sweepDigestTemplate = "sweep_digest"

type digestData struct {
	Date         string
	Transitioned int
	DueToday     []Student
}

// NewSweepDigest builds the email summarizing a sweep run for the given recipients.
func NewSweepDigest(res SweepResult, recipients []string) *core.EmailMessage {
	to := make([]mail.Address, 0, len(recipients))
	for _, addr := range recipients {
		to = append(to, mail.Address{Address: addr})
	}
	return &core.EmailMessage{
		To:           to,
		Subject:      "Payment sweep " + res.Date.Format(core.DateLayout),
		TemplateName: sweepDigestTemplate,
		TemplateData: digestData{
			Date:         res.Date.Format(core.DateLayout),
			Transitioned: res.Transitioned,
			DueToday:     res.DueToday,
		},
	}
}
